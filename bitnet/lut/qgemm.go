// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package lut

import (
	"fmt"

	"github.com/ThomasVuNguyen/BitNet/bitnet"
	"github.com/ThomasVuNguyen/BitNet/bitnet/threading"
)

// minParallelKBlocks gates the parallel GEMM path: with this many K blocks
// or fewer, the whole chunk runs inline on the calling goroutine and no
// tasks are created.
const minParallelKBlocks = 2

// accStride is the per-slot accumulator stride in int32 elements, rounded
// up to a whole cache line so concurrent slots never share one.
func accStride(bm int) int {
	line := bitnet.CacheLineSize / 4
	return (bm + line - 1) / line * line
}

// QGemmLUT3200x8640 computes one 160-row chunk of the 3200×8640 GEMM.
// See QGemmLUTShape for the contract.
func QGemmLUT3200x8640(pool threading.Executor, a []byte, qlut []int8, scales, lutScales []float32, c []float32) error {
	s, _ := bitnet.LookupShape(3200, 8640)
	return QGemmLUTShape(pool, s, a, qlut, scales, lutScales, c)
}

// QGemmLUT3200x3200 computes one 160-row chunk of the 3200×3200 GEMM.
// See QGemmLUTShape for the contract.
func QGemmLUT3200x3200(pool threading.Executor, a []byte, qlut []int8, scales, lutScales []float32, c []float32) error {
	s, _ := bitnet.LookupShape(3200, 3200)
	return QGemmLUTShape(pool, s, a, qlut, scales, lutScales, c)
}

// QGemmLUT8640x3200 computes one 320-row chunk of the 8640×3200 GEMM.
// See QGemmLUTShape for the contract.
func QGemmLUT8640x3200(pool threading.Executor, a []byte, qlut []int8, scales, lutScales []float32, c []float32) error {
	s, _ := bitnet.LookupShape(8640, 3200)
	return QGemmLUTShape(pool, s, a, qlut, scales, lutScales, c)
}

// QGemmLUTShape computes one BM-row output chunk for a supported shape:
//
//	c[i] = float32(sum over K of w[i,:]·act) / lutScales[0] * scales[0]
//
// a is the chunk's packed weights (shape.BM × shape.K, blocked by shape.BK),
// qlut the preprocessed lookup table for the activation vector, and c
// receives shape.BM float32 results.
//
// The contraction dimension is split into ceil(blocks/workers) contiguous
// K-block ranges, one per thread slot. Every slot accumulates into its own
// cache-line-padded int32 accumulator; after the barrier the slot partials
// are reduced in slot order and scaled single-threaded, so results are
// bit-identical to the serial path regardless of scheduling.
//
// Buffer lengths are validated up front and reported as errors; there is no
// silent truncation and no fallback buffer.
func QGemmLUTShape(pool threading.Executor, s bitnet.Shape, a []byte, qlut []int8, scales, lutScales []float32, c []float32) error {
	if err := validateQGemm(s, a, qlut, scales, lutScales, c); err != nil {
		return err
	}
	kernel := kernelFor(s)
	if kernel == nil {
		return fmt.Errorf("lut: no kernel for shape %dx%d", s.M, s.K)
	}

	total := s.KBlocks()
	if pool == nil || total <= minParallelKBlocks {
		acc := make([]int32, s.BM)
		runBlocks(kernel, s, acc, a, qlut, 0, total)
		finalize(c, acc, s.BM, scales[0], lutScales[0])
		return nil
	}

	ranges := blockRanges(total, pool.NumWorkers())
	stride := accStride(s.BM)
	partials := make([]int32, len(ranges)*stride)

	for slot, r := range ranges {
		r := r
		if r.empty() {
			continue
		}
		part := partials[slot*stride : slot*stride+s.BM]
		pool.Submit(func() {
			runBlocks(kernel, s, part, a, qlut, r.start, r.end)
		})
	}
	pool.Wait()

	// Deterministic reduction: slot order, single-threaded.
	acc := make([]int32, s.BM)
	for slot := range ranges {
		part := partials[slot*stride : slot*stride+s.BM]
		for i := range acc {
			acc[i] += part[i]
		}
	}
	finalize(c, acc, s.BM, scales[0], lutScales[0])
	return nil
}

// QGemmLUT dispatches a GEMM chunk by shape. Supported (m, k) pairs take
// the parallel per-shape path; anything else falls back to the general
// single-threaded path unconditionally, with the chunk treated as a single
// unblocked K range of m rows.
func QGemmLUT(pool threading.Executor, m, k int, a []byte, qlut []int8, scales, lutScales []float32, c []float32) error {
	if s, ok := bitnet.LookupShape(m, k); ok {
		return QGemmLUTShape(pool, s, a, qlut, scales, lutScales, c)
	}
	return qgemmGeneric(m, k, a, qlut, scales, lutScales, c)
}

// qgemmGeneric is the general path for shapes outside the fixed enumeration:
// single-threaded, layout bk = k (one block).
func qgemmGeneric(m, k int, a []byte, qlut []int8, scales, lutScales []float32, c []float32) error {
	if k <= 0 || k%2 != 0 {
		return fmt.Errorf("lut: contraction extent %d is not a positive multiple of 2", k)
	}
	s := bitnet.Shape{M: m, K: k, BM: m, BK: k}
	if err := validateQGemm(s, a, qlut, scales, lutScales, c); err != nil {
		return err
	}
	acc := make([]int32, m)
	tblBlock(acc, qlut[:LUTBytes(k)], a[:WeightBytes(m, k)], m, k)
	finalize(c, acc, m, scales[0], lutScales[0])
	return nil
}

func validateQGemm(s bitnet.Shape, a []byte, qlut []int8, scales, lutScales []float32, c []float32) error {
	if want := WeightBytes(s.BM, s.K); len(a) < want {
		return fmt.Errorf("lut: packed weights have %d bytes, need %d for %dx%d chunk", len(a), want, s.BM, s.K)
	}
	if want := LUTBytes(s.K); len(qlut) < want {
		return fmt.Errorf("lut: qlut has %d bytes, need %d", len(qlut), want)
	}
	if len(c) < s.BM {
		return fmt.Errorf("lut: output slice has %d values, need %d", len(c), s.BM)
	}
	if len(scales) < 1 || len(lutScales) < 1 {
		return fmt.Errorf("lut: scales and lutScales must each hold at least one value")
	}
	if lutScales[0] == 0 {
		return fmt.Errorf("lut: lutScales[0] is zero")
	}
	return nil
}

// kernelFor returns the shape's block kernel.
func kernelFor(s bitnet.Shape) func(acc []int32, lut []int8, a []byte) {
	switch {
	case s.M == 3200 && s.K == 8640:
		return tblImpl3200x8640
	case s.M == 3200 && s.K == 3200:
		return tblImpl3200x3200
	case s.M == 8640 && s.K == 3200:
		return tblImpl8640x3200
	}
	return nil
}

// runBlocks feeds K blocks [b0, b1) of the chunk through the kernel.
func runBlocks(kernel func([]int32, []int8, []byte), s bitnet.Shape, acc []int32, a []byte, qlut []int8, b0, b1 int) {
	lutBlock := s.BK / 2 * lutEntries
	aBlock := s.BM * s.BK / 4
	for b := b0; b < b1; b++ {
		kernel(acc, qlut[b*lutBlock:(b+1)*lutBlock], a[b*aBlock:(b+1)*aBlock])
	}
}

// finalize applies the two-stage scaling to the integer accumulator,
// producing the float32 outputs. Single-threaded: the chunk is too small
// for parallelism to help here.
func finalize(c []float32, acc []int32, rows int, scale, lutScale float32) {
	for i := 0; i < rows; i++ {
		c[i] = float32(acc[i]) / lutScale * scale
	}
}
