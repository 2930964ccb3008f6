// Package cohort provides the collective transport for the benchmark.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package cohort

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/NVIDIA/mdbench/cmn/cos"
	"github.com/NVIDIA/mdbench/cmn/nlog"

	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"
)

// TCP cohort for multi-process runs: rank 0 doubles as the coordinator
// in a star topology. Every worker holds one long-lived connection to
// the coordinator; frames are length-prefixed MessagePack. Collectives
// are strictly lockstep - one request frame per rank, one release frame
// back - so a single in-order stream per rank suffices.

// frame kinds
const (
	frHello = iota
	frBarrier
	frReduceF
	frReduceI
	frGatherF
	frAllReduceMax
	frP2P
	frRelease
	frAbort
)

const dialRetry = 100 * time.Millisecond

type (
	frame struct {
		kind  int
		src   int
		dst   int // p2p destination, reduce/gather root, abort code
		tag   int
		op    Op
		fvals []float64
		ivals []int64
		bytes []byte
	}

	// TCPConf is everything a worker needs to join: the coordinator
	// address and its own rank/size.
	TCPConf struct {
		Addr        string
		Rank        int
		Size        int
		DialTimeout time.Duration
	}

	TCP struct {
		coord  *coordinator // rank 0 only
		conn   net.Conn     // ranks != 0
		collCh chan *frame  // release frames, in collective order
		p2p    p2pStore
		rank   int
		size   int
	}

	coordinator struct {
		conns []net.Conn    // index 1..size-1
		wmu   []sync.Mutex  // p2p forwards race collective releases
		inbox []chan *frame // collective requests per remote rank
		p2p   *p2pStore     // rank 0 deliveries
		size  int
	}
)

// interface guard
var _ Cohort = (*TCP)(nil)

// NewTCP joins (rank != 0) or forms (rank 0) the cohort. Rank 0 blocks
// until all `size-1` other workers connected; other ranks return once
// they have dialed the coordinator and sent their hello.
func NewTCP(conf *TCPConf) (*TCP, error) {
	c := &TCP{rank: conf.Rank, size: conf.Size}
	c.p2p.ch = make(map[p2pKey]chan []byte)
	if conf.Rank == 0 {
		coord, err := listenAndAccept(conf, &c.p2p)
		if err != nil {
			return nil, err
		}
		c.coord = coord
		return c, nil
	}
	conn, err := dialCoordinator(conf)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.collCh = make(chan *frame, 1)
	go c.readLoop()
	return c, nil
}

func listenAndAccept(conf *TCPConf, p2p *p2pStore) (*coordinator, error) {
	l, err := net.Listen("tcp", conf.Addr)
	if err != nil {
		return nil, errors.Wrap(err, "cohort: listen")
	}
	defer l.Close()
	coord := &coordinator{
		conns: make([]net.Conn, conf.Size),
		wmu:   make([]sync.Mutex, conf.Size),
		inbox: make([]chan *frame, conf.Size),
		p2p:   p2p,
		size:  conf.Size,
	}
	for i := 1; i < conf.Size; i++ {
		conn, err := l.Accept()
		if err != nil {
			return nil, errors.Wrap(err, "cohort: accept")
		}
		hello, err := readFrame(conn)
		if err != nil || hello.kind != frHello {
			return nil, errors.Errorf("cohort: bad hello from %s", conn.RemoteAddr())
		}
		if hello.src <= 0 || hello.src >= conf.Size || coord.conns[hello.src] != nil {
			return nil, errors.Errorf("cohort: duplicate or out-of-range rank %d", hello.src)
		}
		coord.conns[hello.src] = conn
	}
	for r := 1; r < conf.Size; r++ {
		coord.inbox[r] = make(chan *frame, 1)
		go coord.readLoop(r)
	}
	return coord, nil
}

func dialCoordinator(conf *TCPConf) (net.Conn, error) {
	var (
		conn     net.Conn
		err      error
		deadline = time.Now().Add(max(conf.DialTimeout, 10*time.Second))
	)
	for {
		conn, err = net.Dial("tcp", conf.Addr)
		if err == nil {
			break
		}
		// keep retrying only while the coordinator is not up yet
		if !cos.IsErrConnectionRefused(err) || time.Now().After(deadline) {
			return nil, errors.Wrapf(err, "cohort: dial %s", conf.Addr)
		}
		time.Sleep(dialRetry)
	}
	err = writeFrame(conn, &frame{kind: frHello, src: conf.Rank})
	return conn, err
}

func (c *TCP) Rank() int { return c.rank }
func (c *TCP) Size() int { return c.size }

//
// collectives: worker side
//

func (c *TCP) Barrier() {
	_, _, err := c.collective(&frame{kind: frBarrier, src: c.rank})
	if err != nil {
		nlog.Errorf("cohort: barrier: %v", err)
	}
}

func (c *TCP) ReduceFloats(vals []float64, op Op, root int) ([]float64, error) {
	fv, _, err := c.collective(&frame{kind: frReduceF, src: c.rank, dst: root, op: op, fvals: vals})
	if c.rank != root {
		fv = nil
	}
	return fv, err
}

func (c *TCP) ReduceInts(vals []int64, op Op, root int) ([]int64, error) {
	_, iv, err := c.collective(&frame{kind: frReduceI, src: c.rank, dst: root, op: op, ivals: vals})
	if c.rank != root {
		iv = nil
	}
	return iv, err
}

func (c *TCP) GatherFloat(val float64, root int) ([]float64, error) {
	fv, _, err := c.collective(&frame{kind: frGatherF, src: c.rank, dst: root, fvals: []float64{val}})
	if c.rank != root {
		fv = nil
	}
	return fv, err
}

func (c *TCP) AllReduceMax(val int64) (int64, error) {
	_, iv, err := c.collective(&frame{kind: frAllReduceMax, src: c.rank, ivals: []int64{val}})
	if err != nil {
		return 0, err
	}
	return iv[0], nil
}

func (c *TCP) collective(req *frame) ([]float64, []int64, error) {
	if c.rank == 0 {
		rel, err := c.coord.run(req)
		if err != nil {
			return nil, nil, err
		}
		return rel.fvals, rel.ivals, nil
	}
	if err := writeFrame(c.conn, req); err != nil {
		return nil, nil, err
	}
	rel, ok := <-c.collCh
	if !ok {
		return nil, nil, errors.New("cohort: connection closed")
	}
	return rel.fvals, rel.ivals, nil
}

func (c *TCP) Send(dst, tag int, b []byte) error {
	fr := &frame{kind: frP2P, src: c.rank, dst: dst, tag: tag, bytes: b}
	if c.rank == 0 {
		return c.coord.forward(fr)
	}
	return writeFrame(c.conn, fr)
}

func (c *TCP) Recv(src, tag int) ([]byte, error) {
	return <-c.p2p.channel(p2pKey{src: src, dst: c.rank, tag: tag}), nil
}

func (c *TCP) Abort(code int) {
	fr := &frame{kind: frAbort, src: c.rank, dst: code}
	if c.rank == 0 {
		c.coord.broadcastAbort(code)
	} else {
		_ = writeFrame(c.conn, fr)
	}
	nlog.Errorf("cohort: rank %d aborting (code %d)", c.rank, code)
	os.Exit(code)
}

// non-root demux: p2p deliveries go to the store, everything else is a
// release for the collective in flight
func (c *TCP) readLoop() {
	for {
		fr, err := readFrame(c.conn)
		if err != nil {
			// EOF and RST are the coordinator going away; anything else
			// is a transport fault worth reporting
			if err != io.EOF && !cos.IsErrConnectionReset(err) {
				nlog.Errorf("cohort: rank %d: read: %v", c.rank, err)
			}
			close(c.collCh)
			return
		}
		switch fr.kind {
		case frP2P:
			c.p2p.channel(p2pKey{src: fr.src, dst: c.rank, tag: fr.tag}) <- fr.bytes
		case frAbort:
			nlog.Errorf("cohort: aborted by rank %d (code %d)", fr.src, fr.dst)
			os.Exit(fr.dst)
		default:
			c.collCh <- fr
		}
	}
}

/////////////////
// coordinator //
/////////////////

// per-connection reader: forwards p2p, queues collective requests
func (co *coordinator) readLoop(r int) {
	conn := co.conns[r]
	for {
		fr, err := readFrame(conn)
		if err != nil {
			if err != io.EOF && !cos.IsErrConnectionReset(err) {
				nlog.Errorf("cohort: lost rank %d: %v", r, err)
			}
			return
		}
		switch fr.kind {
		case frP2P:
			if err := co.forward(fr); err != nil {
				nlog.Errorf("cohort: forward p2p from %d to %d: %v", fr.src, fr.dst, err)
			}
		case frAbort:
			nlog.Errorf("cohort: rank %d aborted (code %d)", fr.src, fr.dst)
			co.broadcastAbort(fr.dst)
			os.Exit(fr.dst)
		default:
			co.inbox[r] <- fr
		}
	}
}

func (co *coordinator) forward(fr *frame) error {
	if fr.dst == 0 {
		co.p2p.channel(p2pKey{src: fr.src, dst: 0, tag: fr.tag}) <- fr.bytes
		return nil
	}
	return co.write(fr.dst, fr)
}

func (co *coordinator) write(r int, fr *frame) error {
	co.wmu[r].Lock()
	err := writeFrame(co.conns[r], fr)
	co.wmu[r].Unlock()
	return err
}

// run executes one collective with rank 0's own request `own`, returning
// rank 0's release frame
func (co *coordinator) run(own *frame) (*frame, error) {
	reqs := make([]*frame, co.size)
	reqs[0] = own
	for r := 1; r < co.size; r++ {
		fr, ok := <-co.inbox[r]
		if !ok {
			return nil, errors.Errorf("cohort: lost rank %d", r)
		}
		if fr.kind != own.kind {
			return nil, errors.Errorf("cohort: collective mismatch: rank %d sent %d, expected %d", r, fr.kind, own.kind)
		}
		reqs[r] = fr
	}

	releases := make([]*frame, co.size)
	for r := range releases {
		releases[r] = &frame{kind: frRelease, src: 0}
	}
	switch own.kind {
	case frBarrier:
		// nothing to compute
	case frReduceF:
		acc := make([]float64, len(own.fvals))
		copy(acc, reqs[0].fvals)
		for r := 1; r < co.size; r++ {
			foldFloats(own.op, acc, reqs[r].fvals)
		}
		releases[own.dst].fvals = acc
	case frReduceI:
		acc := make([]int64, len(own.ivals))
		copy(acc, reqs[0].ivals)
		for r := 1; r < co.size; r++ {
			foldInts(own.op, acc, reqs[r].ivals)
		}
		releases[own.dst].ivals = acc
	case frGatherF:
		acc := make([]float64, co.size)
		for r := range acc {
			acc[r] = reqs[r].fvals[0]
		}
		releases[own.dst].fvals = acc
	case frAllReduceMax:
		acc := []int64{reqs[0].ivals[0]}
		for r := 1; r < co.size; r++ {
			foldInts(OpMax, acc, reqs[r].ivals)
		}
		for r := range releases {
			releases[r].ivals = acc
		}
	}
	for r := 1; r < co.size; r++ {
		if err := co.write(r, releases[r]); err != nil {
			return nil, err
		}
	}
	return releases[0], nil
}

func (co *coordinator) broadcastAbort(code int) {
	for r := 1; r < co.size; r++ {
		if co.conns[r] != nil {
			_ = co.write(r, &frame{kind: frAbort, src: 0, dst: code})
		}
	}
}

//
// wire format: 4-byte big-endian length prefix, then the msgp body
//

func (fr *frame) marshal() []byte {
	b := make([]byte, 0, 64+8*len(fr.fvals)+8*len(fr.ivals)+len(fr.bytes))
	b = msgp.AppendInt(b, fr.kind)
	b = msgp.AppendInt(b, fr.src)
	b = msgp.AppendInt(b, fr.dst)
	b = msgp.AppendInt(b, fr.tag)
	b = msgp.AppendInt(b, int(fr.op))
	b = msgp.AppendArrayHeader(b, uint32(len(fr.fvals)))
	for _, v := range fr.fvals {
		b = msgp.AppendFloat64(b, v)
	}
	b = msgp.AppendArrayHeader(b, uint32(len(fr.ivals)))
	for _, v := range fr.ivals {
		b = msgp.AppendInt64(b, v)
	}
	b = msgp.AppendBytes(b, fr.bytes)
	return b
}

func unmarshalFrame(b []byte) (*frame, error) {
	var (
		fr  = &frame{}
		op  int
		n   uint32
		err error
	)
	if fr.kind, b, err = msgp.ReadIntBytes(b); err != nil {
		return nil, err
	}
	if fr.src, b, err = msgp.ReadIntBytes(b); err != nil {
		return nil, err
	}
	if fr.dst, b, err = msgp.ReadIntBytes(b); err != nil {
		return nil, err
	}
	if fr.tag, b, err = msgp.ReadIntBytes(b); err != nil {
		return nil, err
	}
	if op, b, err = msgp.ReadIntBytes(b); err != nil {
		return nil, err
	}
	fr.op = Op(op)
	if n, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
		return nil, err
	}
	if n > 0 {
		fr.fvals = make([]float64, n)
		for i := range fr.fvals {
			if fr.fvals[i], b, err = msgp.ReadFloat64Bytes(b); err != nil {
				return nil, err
			}
		}
	}
	if n, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
		return nil, err
	}
	if n > 0 {
		fr.ivals = make([]int64, n)
		for i := range fr.ivals {
			if fr.ivals[i], b, err = msgp.ReadInt64Bytes(b); err != nil {
				return nil, err
			}
		}
	}
	if fr.bytes, _, err = msgp.ReadBytesBytes(b, nil); err != nil {
		return nil, err
	}
	return fr, nil
}

func writeFrame(conn net.Conn, fr *frame) error {
	body := fr.marshal()
	hdr := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(hdr, uint32(len(body)))
	_, err := conn.Write(append(hdr, body...))
	return err
}

func readFrame(conn net.Conn) (*frame, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return nil, err
	}
	body := make([]byte, binary.BigEndian.Uint32(hdr))
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, err
	}
	return unmarshalFrame(body)
}
