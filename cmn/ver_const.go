// Package cmn provides common constants, types, and utilities for the
// mdbench benchmark and its modules.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

// (major.minor) version of the benchmark; updated manually prior to each
// release - making a build with an updated version is the precondition
// to creating the corresponding git tag

const (
	VersionMDBench = "1.0"
)
