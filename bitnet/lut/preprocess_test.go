// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package lut

import (
	"testing"

	"github.com/ThomasVuNguyen/BitNet/bitnet/threading"
)

func TestPreprocessBelowThresholdStaysSerial(t *testing.T) {
	pool := threading.New(4)
	defer pool.Close()

	rng := testRNG()
	const m, k = 512, 512 // below the 1024 gate in both extents

	act := randActs(rng, k)
	qlut := make([]int8, LUTBytes(k))
	lutScales := make([]float32, 1)

	if err := Preprocess(pool, m, k, act, lutScales, qlut); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if got := pool.Submitted(); got != 0 {
		t.Errorf("Submitted() = %d for below-threshold call, want 0", got)
	}

	// And the serial result is what the parallel entry point produced.
	qlutSerial := make([]int8, LUTBytes(k))
	serialScales := make([]float32, 1)
	if err := PreprocessSerial(m, k, act, serialScales, qlutSerial); err != nil {
		t.Fatalf("PreprocessSerial: %v", err)
	}
	if serialScales[0] != lutScales[0] {
		t.Errorf("scale = %v, serial scale = %v", lutScales[0], serialScales[0])
	}
	for i := range qlut {
		if qlut[i] != qlutSerial[i] {
			t.Fatalf("qlut[%d] = %d, serial = %d", i, qlut[i], qlutSerial[i])
		}
	}
}

func TestPreprocessParallelMatchesSerial(t *testing.T) {
	pool := threading.New(4)
	defer pool.Close()

	rng := testRNG()
	const m, k = 1024, 2048

	act := randActs(rng, k)

	qlutPar := make([]int8, LUTBytes(k))
	scalesPar := make([]float32, 1)
	if err := Preprocess(pool, m, k, act, scalesPar, qlutPar); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if pool.Submitted() == 0 {
		t.Error("Submitted() = 0 for above-threshold call, want parallel tasks")
	}

	qlutSer := make([]int8, LUTBytes(k))
	scalesSer := make([]float32, 1)
	if err := PreprocessSerial(m, k, act, scalesSer, qlutSer); err != nil {
		t.Fatalf("PreprocessSerial: %v", err)
	}

	if scalesPar[0] != scalesSer[0] {
		t.Errorf("parallel scale = %v, serial scale = %v", scalesPar[0], scalesSer[0])
	}
	for i := range qlutSer {
		if qlutPar[i] != qlutSer[i] {
			t.Fatalf("qlut[%d]: parallel = %d, serial = %d", i, qlutPar[i], qlutSer[i])
		}
	}
}

func TestPreprocessNilPoolRunsSerial(t *testing.T) {
	rng := testRNG()
	const m, k = 2048, 2048

	act := randActs(rng, k)
	qlut := make([]int8, LUTBytes(k))
	lutScales := make([]float32, 1)
	if err := Preprocess(nil, m, k, act, lutScales, qlut); err != nil {
		t.Fatalf("Preprocess(nil pool): %v", err)
	}
	if lutScales[0] == 0 {
		t.Error("lutScales[0] = 0 after preprocessing")
	}
}

func TestPreprocessValidation(t *testing.T) {
	act := make([]float32, 64)
	qlut := make([]int8, LUTBytes(64))
	scales := make([]float32, 1)

	if err := PreprocessSerial(8, 63, act, scales, qlut); err == nil {
		t.Error("odd k: err = nil, want error")
	}
	if err := PreprocessSerial(8, 64, act[:32], scales, qlut); err == nil {
		t.Error("short activations: err = nil, want error")
	}
	if err := PreprocessSerial(8, 64, act, nil, qlut); err == nil {
		t.Error("empty lutScales: err = nil, want error")
	}
	if err := PreprocessSerial(8, 64, act, scales, qlut[:8]); err == nil {
		t.Error("short qlut: err = nil, want error")
	}
}

func TestPreprocessZeroActivations(t *testing.T) {
	act := make([]float32, 64) // all zero
	qlut := make([]int8, LUTBytes(64))
	scales := make([]float32, 1)

	if err := PreprocessSerial(8, 64, act, scales, qlut); err != nil {
		t.Fatalf("PreprocessSerial: %v", err)
	}
	if scales[0] != 1 {
		t.Errorf("scale for all-zero activations = %v, want 1", scales[0])
	}
	for i, v := range qlut {
		if v != 0 {
			t.Fatalf("qlut[%d] = %d for all-zero activations, want 0", i, v)
		}
	}
}
