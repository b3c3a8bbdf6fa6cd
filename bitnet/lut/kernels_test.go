// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package lut

import (
	"math/rand"
	"testing"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// randTernary returns n ternary weights in {-1, 0, +1}.
func randTernary(rng *rand.Rand, n int) []int8 {
	w := make([]int8, n)
	for i := range w {
		w[i] = int8(rng.Intn(3) - 1)
	}
	return w
}

// randActs returns k activations in [-1, 1).
func randActs(rng *rand.Rand, k int) []float32 {
	a := make([]float32, k)
	for i := range a {
		a[i] = rng.Float32()*2 - 1
	}
	return a
}

// naiveQGemm computes the expected chunk output directly from the unpacked
// ternary weights and the quantized table, bypassing the packed layout and
// the kernels entirely.
func naiveQGemm(w []int8, qlut []int8, rows, k int, scale, lutScale float32) []float32 {
	c := make([]float32, rows)
	for i := 0; i < rows; i++ {
		var acc int32
		for g := 0; g < k/2; g++ {
			lo := ternCode(w[i*k+2*g])
			hi := ternCode(w[i*k+2*g+1])
			acc += int32(qlut[g*lutEntries+int(hi<<2|lo)])
		}
		c[i] = float32(acc) / lutScale * scale
	}
	return c
}

func TestTblBlockMatchesNaive(t *testing.T) {
	rng := testRNG()
	const rows, k = 16, 128

	w := randTernary(rng, rows*k)
	act := randActs(rng, k)

	qlut := make([]int8, LUTBytes(k))
	lutScales := make([]float32, 1)
	if err := PreprocessSerial(rows, k, act, lutScales, qlut); err != nil {
		t.Fatalf("PreprocessSerial: %v", err)
	}

	// Single unblocked K range.
	packed, err := PackWeights(w, rows, k, k)
	if err != nil {
		t.Fatalf("PackWeights: %v", err)
	}
	acc := make([]int32, rows)
	tblBlock(acc, qlut, packed, rows, k)

	want := naiveQGemm(w, qlut, rows, k, 1, lutScales[0])
	for i := 0; i < rows; i++ {
		got := float32(acc[i]) / lutScales[0]
		if got != want[i] {
			t.Errorf("row %d: kernel = %v, naive = %v", i, got, want[i])
		}
	}
}

func TestTblBlockBlockedLayoutMatchesUnblocked(t *testing.T) {
	rng := testRNG()
	const rows, k, bk = 8, 256, 64

	w := randTernary(rng, rows*k)
	act := randActs(rng, k)

	qlut := make([]int8, LUTBytes(k))
	lutScales := make([]float32, 1)
	if err := PreprocessSerial(rows, k, act, lutScales, qlut); err != nil {
		t.Fatalf("PreprocessSerial: %v", err)
	}

	blocked, err := PackWeights(w, rows, k, bk)
	if err != nil {
		t.Fatalf("PackWeights blocked: %v", err)
	}
	flat, err := PackWeights(w, rows, k, k)
	if err != nil {
		t.Fatalf("PackWeights flat: %v", err)
	}

	accBlocked := make([]int32, rows)
	lutBlock := bk / 2 * lutEntries
	aBlock := rows * bk / 4
	for b := 0; b < k/bk; b++ {
		tblBlock(accBlocked[:], qlut[b*lutBlock:(b+1)*lutBlock], blocked[b*aBlock:(b+1)*aBlock], rows, bk)
	}

	accFlat := make([]int32, rows)
	tblBlock(accFlat, qlut, flat, rows, k)

	for i := 0; i < rows; i++ {
		if accBlocked[i] != accFlat[i] {
			t.Errorf("row %d: blocked acc = %d, unblocked acc = %d", i, accBlocked[i], accFlat[i])
		}
	}
}

func TestPackWeightsErrors(t *testing.T) {
	w := make([]int8, 16)
	if _, err := PackWeights(w, 2, 8, 3); err == nil {
		t.Error("PackWeights with odd block size: err = nil, want error")
	}
	if _, err := PackWeights(w, 2, 8, 6); err == nil {
		t.Error("PackWeights with k not a multiple of bk: err = nil, want error")
	}
	if _, err := PackWeights(w[:8], 2, 8, 4); err == nil {
		t.Error("PackWeights with short weight slice: err = nil, want error")
	}
}
