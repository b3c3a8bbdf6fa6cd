// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package lut

// blockRange is a half-open range of K-block indices assigned to one
// thread slot.
type blockRange struct {
	start, end int
}

func (r blockRange) empty() bool { return r.start >= r.end }

// blockRanges splits [0, total) into slots contiguous disjoint ranges of
// ceil(total/slots) blocks each. The ranges partition the interval exactly;
// only trailing slots can be empty, and only when slots > total.
//
// The assignment depends only on (total, slots), so block-to-slot mapping
// is reproducible across runs.
func blockRanges(total, slots int) []blockRange {
	per := (total + slots - 1) / slots
	ranges := make([]blockRange, slots)
	for s := 0; s < slots; s++ {
		start := min(s*per, total)
		ranges[s] = blockRange{start: start, end: min(start+per, total)}
	}
	return ranges
}
