// Package nlog - logger for the benchmark and all its modules
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Verbosity is orthogonal to zerolog's own levels: level 0 is the
// regular info surface, levels >= 1 progressively enable per-operation
// tracing (see V).

var (
	logger    = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}).With().Logger()
	verbosity atomic.Int32
	quiet     atomic.Bool
)

func SetVerbosity(v int) { verbosity.Store(int32(v)) }

func SetQuiet(q bool) {
	quiet.Store(q)
	if q {
		logger = logger.Level(zerolog.ErrorLevel)
	}
}

// V returns true when the current verbosity is at least `level`.
func V(level int) bool { return verbosity.Load() >= int32(level) }

func sprint(a ...any) string { return strings.TrimSuffix(fmt.Sprintln(a...), "\n") }

func Infoln(a ...any)             { logger.Info().Msg(sprint(a...)) }
func Infof(f string, a ...any)    { logger.Info().Msgf(f, a...) }
func Warningln(a ...any)          { logger.Warn().Msg(sprint(a...)) }
func Warningf(f string, a ...any) { logger.Warn().Msgf(f, a...) }
func Errorln(a ...any)            { logger.Error().Msg(sprint(a...)) }
func Errorf(f string, a ...any)   { logger.Error().Msgf(f, a...) }
