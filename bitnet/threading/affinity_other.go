// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

//go:build !linux

package threading

// CanPinThreads reports whether this platform supports core pinning.
func CanPinThreads() bool { return false }

// pinToCore is a no-op on platforms without a thread affinity facility.
func pinToCore(int) {}
