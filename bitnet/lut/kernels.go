// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

// Package lut implements table-lookup GEMM for ternary (1.58-bit) quantized
// weights, with parallel dispatch over a threading.Pool.
//
// # Data format
//
// Weights are ternary values {-1, 0, +1} stored as 2-bit codes
// (0 → -1, 1 → 0, 2 → +1; code 3 is reserved and decodes to 0). Two
// consecutive contraction positions form a group; the pair of codes is a
// 4-bit index into a 16-entry lookup table.
//
// A packed weight chunk covers rows × k values, blocked along the
// contraction dimension into blocks of bk elements. Within block b, group
// g and row i map to nibble number (b*bk/2+g)*rows + i; nibbles are stored
// two per byte, low nibble first. A chunk is therefore rows*k/4 bytes.
//
// The quantized lookup table (QLUT) holds, for every group of the
// contraction dimension, 16 int8 entries: entry idx is the quantized partial
// sum value(hi)*act[2g+1] + value(lo)*act[2g], scaled by the LUT scale
// produced during preprocessing. The QLUT for a k-length activation vector
// is k*8 bytes.
//
// Accumulation is exact int32 arithmetic; a kernel invocation consumes one
// block and adds into an accumulator it has exclusive access to, so kernels
// need no internal synchronization.
package lut

import "fmt"

// WeightBytes returns the packed size of a rows×k ternary weight chunk.
func WeightBytes(rows, k int) int { return rows * k / 4 }

// LUTBytes returns the QLUT size for a k-length activation vector.
func LUTBytes(k int) int { return k * 8 }

// lutEntries is the table width per group: one entry per 4-bit code pair.
const lutEntries = 16

// ternValue decodes a 2-bit weight code.
func ternValue(code uint8) int32 {
	switch code {
	case 0:
		return -1
	case 2:
		return 1
	default:
		return 0
	}
}

// tblBlock accumulates one K block into acc. lut is the block's slice of the
// QLUT ((bk/2)*16 entries), a is the block's packed weights (rows*bk/4
// bytes). The caller owns acc exclusively for the duration of the call.
func tblBlock(acc []int32, lut []int8, a []byte, rows, bk int) {
	groups := bk / 2
	for g := 0; g < groups; g++ {
		lutg := lut[g*lutEntries : (g+1)*lutEntries]
		base := g * rows
		for i := 0; i < rows; i++ {
			n := base + i
			b := a[n>>1]
			var idx uint8
			if n&1 == 0 {
				idx = b & 0x0F
			} else {
				idx = b >> 4
			}
			acc[i] += int32(lutg[idx])
		}
	}
}

// Per-shape kernel entry points. These are package variables so an
// architecture-specific build can install a SIMD implementation; the
// defaults are the portable reference kernels.
var (
	tblImpl3200x8640 = func(acc []int32, lut []int8, a []byte) { tblBlock(acc, lut, a, 160, 64) }
	tblImpl3200x3200 = func(acc []int32, lut []int8, a []byte) { tblBlock(acc, lut, a, 160, 128) }
	tblImpl8640x3200 = func(acc []int32, lut []int8, a []byte) { tblBlock(acc, lut, a, 320, 64) }
)

// PackWeights packs ternary weights (values in {-1, 0, +1}, row-major
// rows×k) into the blocked 2-bit layout described in the package comment.
// k must be a multiple of bk, and bk a multiple of 2.
func PackWeights(w []int8, rows, k, bk int) ([]byte, error) {
	if bk <= 0 || bk%2 != 0 {
		return nil, fmt.Errorf("lut: block size %d is not a positive multiple of 2", bk)
	}
	if k%bk != 0 {
		return nil, fmt.Errorf("lut: k=%d is not a multiple of block size %d", k, bk)
	}
	if len(w) < rows*k {
		return nil, fmt.Errorf("lut: weight slice has %d values, need %d", len(w), rows*k)
	}

	packed := make([]byte, WeightBytes(rows, k))
	groups := bk / 2
	for b := 0; b < k/bk; b++ {
		for g := 0; g < groups; g++ {
			k0 := b*bk + 2*g
			for i := 0; i < rows; i++ {
				lo := ternCode(w[i*k+k0])
				hi := ternCode(w[i*k+k0+1])
				idx := hi<<2 | lo
				n := (b*groups+g)*rows + i
				if n&1 == 0 {
					packed[n>>1] |= idx
				} else {
					packed[n>>1] |= idx << 4
				}
			}
		}
	}
	return packed, nil
}

// ternCode encodes a ternary value as a 2-bit code.
func ternCode(v int8) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0:
		return 2
	default:
		return 1
	}
}
