// Package secure provides best-effort memory zeroing for key material.
// Go's garbage collector and escape analysis mean this cannot guarantee
// erasure, but it shrinks the window during which unwrapped keys are
// recoverable from a memory dump.
package secure

import "crypto/subtle"

// Zero overwrites b with zeros using a constant-time copy so the compiler
// cannot optimize the write away.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// ZeroAll zeros every slice passed in, in order.
func ZeroAll(slices ...[]byte) {
	for _, s := range slices {
		Zero(s)
	}
}
