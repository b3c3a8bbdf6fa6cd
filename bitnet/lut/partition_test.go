// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package lut

import "testing"

func TestBlockRanges3200x8640(t *testing.T) {
	// 8640 / 64 = 135 K blocks over 4 slots: 34, 34, 34, 33.
	ranges := blockRanges(135, 4)
	want := []blockRange{{0, 34}, {34, 68}, {68, 102}, {102, 135}}

	if len(ranges) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(ranges), len(want))
	}
	for i, r := range ranges {
		if r != want[i] {
			t.Errorf("ranges[%d] = [%d, %d), want [%d, %d)", i, r.start, r.end, want[i].start, want[i].end)
		}
	}
}

func TestBlockRangesPartitionExactly(t *testing.T) {
	for _, slots := range []int{1, 2, 3, 4, 7, 8, 16} {
		for _, total := range []int{1, 2, 3, 25, 50, 135, 1000} {
			ranges := blockRanges(total, slots)
			if len(ranges) != slots {
				t.Fatalf("blockRanges(%d, %d): got %d ranges, want %d", total, slots, len(ranges), slots)
			}

			next := 0
			emptySeen := false
			for i, r := range ranges {
				if r.start != next {
					t.Fatalf("blockRanges(%d, %d): range %d starts at %d, want %d", total, slots, i, r.start, next)
				}
				if r.end < r.start {
					t.Fatalf("blockRanges(%d, %d): range %d is inverted", total, slots, i)
				}
				if r.empty() {
					emptySeen = true
				} else if emptySeen {
					t.Fatalf("blockRanges(%d, %d): non-empty range %d after an empty one", total, slots, i)
				}
				next = r.end
			}
			if next != total {
				t.Fatalf("blockRanges(%d, %d): ranges end at %d, want %d", total, slots, next, total)
			}
			if emptySeen && slots <= total {
				t.Fatalf("blockRanges(%d, %d): empty slot although slots <= blocks", total, slots)
			}
		}
	}
}
