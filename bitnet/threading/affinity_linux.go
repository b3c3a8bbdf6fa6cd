// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

//go:build linux

package threading

import "golang.org/x/sys/unix"

// CanPinThreads reports whether this platform supports core pinning.
func CanPinThreads() bool { return true }

// pinToCore requests affinity of the calling thread to one logical core.
// Best effort: errors are ignored, the worker simply runs unpinned.
// The caller must have locked its OS thread first.
func pinToCore(core int) {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	_ = unix.SchedSetaffinity(0, &set)
}
