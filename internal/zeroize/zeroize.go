// Package zeroize provides memory-hygiene helpers for secret byte buffers:
// seeds, private scalars, and signing messages derived from secrets. Every
// sensitive buffer in the core is owned by the innermost stack frame that
// computed it and is cleared on every return path, including error and
// cancellation paths.
package zeroize

import (
	"runtime"
	"unsafe"
)

// Bytes zeros b in place. Safe to call on nil or empty slices. Uses
// runtime.KeepAlive to stop the compiler eliminating the write as dead
// stores to a value that is about to go out of scope.
func Bytes(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// Array32 zeros a fixed 32-byte array in place.
func Array32(b *[32]byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// Array64 zeros a fixed 64-byte array in place.
func Array64(b *[64]byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// String overwrites the backing bytes of *s and resets it to empty. Go
// strings are normally immutable; this relies on the caller having built s
// from a buffer it otherwise controls (e.g. via unsafe or byte conversion)
// and is only safe to use on strings known not to be shared/interned.
func String(s *string) {
	if s == nil || *s == "" {
		return
	}
	b := unsafe.Slice(unsafe.StringData(*s), len(*s))
	Bytes(b)
	*s = ""
}
