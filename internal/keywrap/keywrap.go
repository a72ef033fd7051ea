// Package keywrap implements the inverse of the standard 64-bit-block AES
// key-wrap algorithm (RFC 3394) with the default integrity constant
// 0xA6A6A6A6A6A6A6A6. Only unwrap is needed: the core never wraps a key.
package keywrap

import (
	"encoding/binary"

	"github.com/richinfante/ibackuptool-go/internal/blockcipher"
	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

// DefaultIV is the standard key-wrap integrity check value.
const DefaultIV uint64 = 0xA6A6A6A6A6A6A6A6

// Unwrap recovers the key material wrapped in w under the key-encryption
// key kek. kek must be 32 bytes (AES-256). w must be 8*(n+1) bytes for some
// n >= 1. Returns bkerrors.ErrIntegrityMismatch if the recovered A value does
// not equal DefaultIV — the caller (KeyBag.UnlockWithPasscode) treats this
// as "wrong passcode".
func Unwrap(kek, w []byte) ([]byte, error) {
	if len(w) < 16 || len(w)%8 != 0 {
		return nil, bkerrors.ErrBadBlockSize
	}

	n := len(w)/8 - 1
	words := make([]uint64, n+1)
	for i := 0; i <= n; i++ {
		words[i] = binary.BigEndian.Uint64(w[i*8 : i*8+8])
	}

	a := words[0]
	r := make([]uint64, n+1) // r[1..n] used; r[0] unused
	copy(r[1:], words[1:])

	block := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(block[0:8], a^t)
			binary.BigEndian.PutUint64(block[8:16], r[i])

			d, err := blockcipher.DecryptAES256ECBBlock(kek, block)
			if err != nil {
				return nil, err
			}
			a = binary.BigEndian.Uint64(d[0:8])
			r[i] = binary.BigEndian.Uint64(d[8:16])
		}
	}

	if a != DefaultIV {
		return nil, bkerrors.ErrIntegrityMismatch
	}

	out := make([]byte, n*8)
	for i := 1; i <= n; i++ {
		binary.BigEndian.PutUint64(out[(i-1)*8:(i-1)*8+8], r[i])
	}
	return out, nil
}
