// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

// Package bitnet holds the shared configuration for the BitNet LUT compute
// layer: the fixed set of supported GEMM shapes and the worker-count policy
// for the small-core targets (Raspberry Pi 5 class hardware) this module is
// tuned for.
package bitnet

import (
	"os"
	"runtime"
	"strconv"
)

const (
	// MaxWorkers caps the worker pool size. Tuned for Raspberry Pi 5
	// (4 cores); machines with fewer cores get fewer workers, machines
	// with more do not get extra ones.
	MaxWorkers = 4

	// CacheLineSize is the cache line size of the target cores, used to
	// pad per-slot accumulators so parallel writers never share a line.
	CacheLineSize = 64
)

// Shape describes one supported quantized GEMM operation.
//
// M and K identify the operation (output rows × contraction length).
// BM is the row chunk one kernel call produces, and BK is the number of
// contraction elements consumed per kernel invocation (one K block).
type Shape struct {
	M  int // output row count
	K  int // contraction dimension
	BM int // rows per kernel call
	BK int // contraction elements per K block
}

// KBlocks returns the number of K blocks in the contraction dimension.
func (s Shape) KBlocks() int {
	return s.K / s.BK
}

// shapes is the fixed enumeration of supported GEMM shapes. These match the
// three weight matrices of the bitnet_b1_58-large model.
var shapes = []Shape{
	{M: 3200, K: 8640, BM: 160, BK: 64},
	{M: 3200, K: 3200, BM: 160, BK: 128},
	{M: 8640, K: 3200, BM: 320, BK: 64},
}

// Shapes returns the supported GEMM shapes.
func Shapes() []Shape {
	out := make([]Shape, len(shapes))
	copy(out, shapes)
	return out
}

// LookupShape returns the Shape for an (m, k) pair, or ok=false when the
// pair is not in the supported set. Callers fall back to the generic
// single-threaded path for unsupported pairs.
func LookupShape(m, k int) (Shape, bool) {
	for _, s := range shapes {
		if s.M == m && s.K == k {
			return s, true
		}
	}
	return Shape{}, false
}

// OptimalWorkerCount returns the worker count for this host:
// min(MaxWorkers, runtime.NumCPU()), always at least 1.
//
// The BITNET_WORKERS environment variable overrides the computed value
// (still clamped to at least 1).
func OptimalWorkerCount() int {
	if v := os.Getenv("BITNET_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return n
		}
	}
	n := runtime.NumCPU()
	if n > MaxWorkers {
		n = MaxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}
