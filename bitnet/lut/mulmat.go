// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package lut

import (
	"fmt"

	"github.com/ThomasVuNguyen/BitNet/bitnet"
	"github.com/ThomasVuNguyen/BitNet/bitnet/threading"
)

// Full-matrix calls run single-threaded below these extents.
const (
	minParallelRows = 512
	minParallelK    = 512
)

// MulMat computes the complete m-row quantized matrix-vector product:
// activations are preprocessed into the lookup table, then the output is
// produced chunk by chunk (shape.BM rows per chunk).
//
// a holds the packed weights for all m rows, chunk-major: chunk ci occupies
// a[ci*WeightBytes(BM,k) : (ci+1)*WeightBytes(BM,k)]. act is the k-length
// activation vector and c receives m float32 results.
//
// For supported shapes above the size gate, chunks are shared between
// workers through a TileDistributor: each worker repeatedly grabs the next
// chunk, computes it with the serial block loop into its disjoint slice of
// c, and reports it to a ProgressTracker. Chunk outputs never overlap, so
// the parallel phase is write-disjoint and the result matches the serial
// path exactly.
//
// Unsupported (m, k) pairs run the general single-threaded path.
func MulMat(pool *threading.Pool, m, k int, a []byte, act []float32, scales []float32, c []float32) error {
	s, ok := bitnet.LookupShape(m, k)
	if !ok {
		return mulMatGeneric(m, k, a, act, scales, c)
	}
	if len(a) < WeightBytes(m, k) {
		return fmt.Errorf("lut: packed weights have %d bytes, need %d", len(a), WeightBytes(m, k))
	}
	if len(c) < m {
		return fmt.Errorf("lut: output slice has %d values, need %d", len(c), m)
	}
	if len(scales) < 1 {
		return fmt.Errorf("lut: scales slice is empty")
	}

	qlut := make([]int8, LUTBytes(k))
	lutScales := make([]float32, 1)
	// A nil *Pool must stay a nil Executor, or the serial gate inside
	// Preprocess would see a non-nil interface.
	var exec threading.Executor
	if pool != nil {
		exec = pool
	}
	if err := Preprocess(exec, m, k, act, lutScales, qlut); err != nil {
		return err
	}

	chunks := m / s.BM
	chunkBytes := WeightBytes(s.BM, s.K)
	kernel := kernelFor(s)

	runChunk := func(ci int) {
		acc := make([]int32, s.BM)
		runBlocks(kernel, s, acc, a[ci*chunkBytes:(ci+1)*chunkBytes], qlut, 0, s.KBlocks())
		finalize(c[ci*s.BM:(ci+1)*s.BM], acc, s.BM, scales[0], lutScales[0])
	}

	if pool == nil || m < minParallelRows || k < minParallelK {
		for ci := 0; ci < chunks; ci++ {
			runChunk(ci)
		}
		return nil
	}

	// One tile per chunk: chunks are large (BM×K), so fine-grained
	// stealing balances better than fixed per-worker striping.
	dist := threading.NewTileDistributor(chunks, 1, 1)
	progress := threading.NewProgressTracker(dist.TotalTiles())
	for w := 0; w < pool.NumWorkers(); w++ {
		pool.Submit(func() {
			for {
				tile, ok := dist.Next()
				if !ok {
					return
				}
				for ci := tile.RowStart; ci < tile.RowEnd; ci++ {
					runChunk(ci)
					progress.MarkCompleted()
				}
			}
		})
	}
	pool.Wait()
	return nil
}

// mulMatGeneric handles shapes outside the fixed enumeration: serial
// preprocessing followed by the general single-threaded GEMM.
func mulMatGeneric(m, k int, a []byte, act []float32, scales []float32, c []float32) error {
	qlut := make([]int8, LUTBytes(k))
	lutScales := make([]float32, 1)
	if err := PreprocessSerial(m, k, act, lutScales, qlut); err != nil {
		return err
	}
	return qgemmGeneric(m, k, a, qlut, scales, lutScales, c)
}
