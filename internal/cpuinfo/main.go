// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

// Package main prints the host characteristics the BitNet compute layer
// cares about: core count, worker-pool sizing, pinning support, and the
// CPU features a future SIMD kernel build would dispatch on.
package main

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/ThomasVuNguyen/BitNet/bitnet"
	"github.com/ThomasVuNguyen/BitNet/bitnet/threading"
)

func main() {
	fmt.Printf("GOOS: %s\n", runtime.GOOS)
	fmt.Printf("GOARCH: %s\n", runtime.GOARCH)
	fmt.Printf("NumCPU: %d\n", runtime.NumCPU())
	fmt.Println()

	fmt.Printf("Worker pool size: %d (cap %d)\n", bitnet.OptimalWorkerCount(), bitnet.MaxWorkers)
	fmt.Printf("Core pinning available: %v\n", threading.CanPinThreads())
	fmt.Println()

	fmt.Println("Supported GEMM shapes:")
	for _, s := range bitnet.Shapes() {
		fmt.Printf("  %5dx%-5d  BM=%-4d BK=%-4d (%d K blocks)\n", s.M, s.K, s.BM, s.BK, s.KBlocks())
	}
	fmt.Println()

	switch runtime.GOARCH {
	case "arm64":
		printARM64Features()
	case "amd64":
		printAMD64Features()
	}
}

func printARM64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.ARM64 ===")
	fmt.Printf("  HasASIMD:    %v (NEON baseline)\n", cpu.ARM64.HasASIMD)
	fmt.Printf("  HasFP:       %v (Floating point)\n", cpu.ARM64.HasFP)
	fmt.Printf("  HasASIMDDP:  %v (Dot product)\n", cpu.ARM64.HasASIMDDP)
	fmt.Printf("  HasSVE:      %v (Scalable Vector Extension)\n", cpu.ARM64.HasSVE)
	fmt.Printf("  HasSVE2:     %v (SVE2)\n", cpu.ARM64.HasSVE2)
	fmt.Printf("  HasATOMICS:  %v (Large System Extensions)\n", cpu.ARM64.HasATOMICS)
}

func printAMD64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.X86 ===")
	fmt.Printf("  HasAVX:     %v\n", cpu.X86.HasAVX)
	fmt.Printf("  HasAVX2:    %v\n", cpu.X86.HasAVX2)
	fmt.Printf("  HasAVX512F: %v\n", cpu.X86.HasAVX512F)
	fmt.Printf("  HasSSE2:    %v\n", cpu.X86.HasSSE2)
	fmt.Printf("  HasSSE41:   %v\n", cpu.X86.HasSSE41)
}
