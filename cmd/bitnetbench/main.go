// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

// bitnetbench times the serial and parallel LUT-GEMM paths for each
// supported shape and verifies that both produce identical output.
//
// Usage:
//
//	bitnetbench [-iters N] [-workers N] [-pin] [-shape MxK]
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ThomasVuNguyen/BitNet/bitnet"
	"github.com/ThomasVuNguyen/BitNet/bitnet/lut"
	"github.com/ThomasVuNguyen/BitNet/bitnet/threading"
)

func main() {
	iters := flag.Int("iters", 20, "timed iterations per shape")
	workers := flag.Int("workers", bitnet.OptimalWorkerCount(), "worker count")
	pin := flag.Bool("pin", false, "pin workers to cores (best effort)")
	shapeArg := flag.String("shape", "", "single shape to run, e.g. 3200x8640 (default: all)")
	flag.Parse()

	var pool *threading.Pool
	if *pin {
		pool = threading.NewPinned(*workers)
	} else {
		pool = threading.New(*workers)
	}
	defer pool.Close()

	p := message.NewPrinter(language.English)
	p.Printf("bitnetbench: %d workers, pinning=%v, %d iterations per shape\n\n", pool.NumWorkers(), *pin, *iters)

	for _, s := range bitnet.Shapes() {
		if *shapeArg != "" && *shapeArg != fmt.Sprintf("%dx%d", s.M, s.K) {
			continue
		}
		if err := runShape(p, pool, s, *iters); err != nil {
			fmt.Fprintf(os.Stderr, "bitnetbench: %dx%d: %v\n", s.M, s.K, err)
			os.Exit(1)
		}
	}
}

func runShape(p *message.Printer, pool *threading.Pool, s bitnet.Shape, iters int) error {
	rng := rand.New(rand.NewSource(7))

	w := make([]int8, s.BM*s.K)
	for i := range w {
		w[i] = int8(rng.Intn(3) - 1)
	}
	act := make([]float32, s.K)
	for i := range act {
		act[i] = rng.Float32()*2 - 1
	}

	qlut := make([]int8, lut.LUTBytes(s.K))
	lutScales := make([]float32, 1)
	if err := lut.PreprocessSerial(s.BM, s.K, act, lutScales, qlut); err != nil {
		return err
	}
	a, err := lut.PackWeights(w, s.BM, s.K, s.BK)
	if err != nil {
		return err
	}
	scales := []float32{1}

	serial := make([]float32, s.BM)
	serialNs, err := timeIt(iters, func() error {
		return lut.QGemmLUTShape(nil, s, a, qlut, scales, lutScales, serial)
	})
	if err != nil {
		return err
	}

	parallel := make([]float32, s.BM)
	parallelNs, err := timeIt(iters, func() error {
		return lut.QGemmLUTShape(pool, s, a, qlut, scales, lutScales, parallel)
	})
	if err != nil {
		return err
	}

	for i := range serial {
		if serial[i] != parallel[i] {
			return fmt.Errorf("output mismatch at row %d: serial %v, parallel %v", i, serial[i], parallel[i])
		}
	}

	ops := int64(s.BM) * int64(s.K)
	p.Printf("%5dx%-5d  %d MAC/chunk\n", s.M, s.K, ops)
	p.Printf("  serial:   %10s  (%d ops/s)\n", time.Duration(serialNs), rate(ops, serialNs))
	p.Printf("  parallel: %10s  (%d ops/s)  %.2fx\n", time.Duration(parallelNs), rate(ops, parallelNs),
		float64(serialNs)/float64(parallelNs))
	p.Println(strings.Repeat("-", 48))
	return nil
}

// timeIt returns the best-of-iters wall time in nanoseconds.
func timeIt(iters int, fn func() error) (int64, error) {
	best := int64(1<<63 - 1)
	for it := 0; it < iters; it++ {
		start := time.Now()
		if err := fn(); err != nil {
			return 0, err
		}
		if d := time.Since(start).Nanoseconds(); d < best {
			best = d
		}
	}
	return best, nil
}

func rate(ops, ns int64) int64 {
	if ns <= 0 {
		return 0
	}
	return ops * int64(time.Second) / ns
}
