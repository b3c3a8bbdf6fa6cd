// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package lut

import (
	"fmt"
	"math"

	"github.com/ThomasVuNguyen/BitNet/bitnet/threading"
)

const (
	// Preprocessing runs single-threaded below these extents; the table is
	// too small for parallel dispatch to pay off.
	minParallelPreprocessM = 1024
	minParallelPreprocessK = 1024

	// minPreprocessSlice is the narrowest group slice handed to one worker.
	minPreprocessSlice = 64
)

// PreprocessSerial quantizes a k-length activation vector into the lookup
// table consumed by the GEMM kernels. m is the row extent of the operation
// the table will feed; it only participates in the parallel gate and is
// accepted here for signature parity with Preprocess.
//
// On return lutScales[0] holds the table scale and qlut the quantized
// entries (16 per activation pair).
func PreprocessSerial(m, k int, act []float32, lutScales []float32, qlut []int8) error {
	if err := validatePreprocess(k, act, lutScales, qlut); err != nil {
		return err
	}
	scale := lutScale(act, k)
	lutScales[0] = scale
	quantizeGroups(act, qlut, scale, 0, k/2)
	return nil
}

// Preprocess is the parallel version of PreprocessSerial. The group extent
// of the table is split into contiguous per-worker slices of at least
// minPreprocessSlice groups; each slice writes a disjoint region of qlut,
// so slices share nothing.
//
// Below the m/k thresholds (or with a nil pool) no tasks are created and
// the serial path runs inline.
func Preprocess(pool threading.Executor, m, k int, act []float32, lutScales []float32, qlut []int8) error {
	if pool == nil || m < minParallelPreprocessM || k < minParallelPreprocessK {
		return PreprocessSerial(m, k, act, lutScales, qlut)
	}
	if err := validatePreprocess(k, act, lutScales, qlut); err != nil {
		return err
	}

	// The scale is a global reduction over the activations; computing it
	// up front keeps the parallel phase write-disjoint.
	scale := lutScale(act, k)
	lutScales[0] = scale

	groups := k / 2
	slice := groups / pool.NumWorkers()
	if slice < minPreprocessSlice {
		slice = minPreprocessSlice
	}
	for start := 0; start < groups; start += slice {
		start := start
		end := min(start+slice, groups)
		pool.Submit(func() {
			quantizeGroups(act, qlut, scale, start, end)
		})
	}
	pool.Wait()
	return nil
}

func validatePreprocess(k int, act []float32, lutScales []float32, qlut []int8) error {
	if k <= 0 || k%2 != 0 {
		return fmt.Errorf("lut: contraction extent %d is not a positive multiple of 2", k)
	}
	if len(act) < k {
		return fmt.Errorf("lut: activation slice has %d values, need %d", len(act), k)
	}
	if len(lutScales) < 1 {
		return fmt.Errorf("lut: lutScales slice is empty")
	}
	if len(qlut) < LUTBytes(k) {
		return fmt.Errorf("lut: qlut slice has %d bytes, need %d", len(qlut), LUTBytes(k))
	}
	return nil
}

// lutScale returns the int8 quantization scale for the table: 127 divided
// by the largest partial-sum magnitude any entry can take.
func lutScale(act []float32, k int) float32 {
	var maxAbs float32
	for g := 0; g < k/2; g++ {
		m := abs32(act[2*g]) + abs32(act[2*g+1])
		if m > maxAbs {
			maxAbs = m
		}
	}
	if maxAbs == 0 {
		return 1
	}
	return 127 / maxAbs
}

// quantizeGroups fills table entries for groups [g0, g1). This is the
// per-chunk preprocessing routine; parallel slices call it with disjoint
// group ranges.
func quantizeGroups(act []float32, qlut []int8, scale float32, g0, g1 int) {
	for g := g0; g < g1; g++ {
		a0 := act[2*g]
		a1 := act[2*g+1]
		out := qlut[g*lutEntries : (g+1)*lutEntries]
		for idx := 0; idx < lutEntries; idx++ {
			lo := ternValue(uint8(idx) & 3)
			hi := ternValue(uint8(idx) >> 2)
			v := float64(scale) * (float64(hi)*float64(a1) + float64(lo)*float64(a0))
			out[idx] = clampInt8(math.Round(v))
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt8(v float64) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}
