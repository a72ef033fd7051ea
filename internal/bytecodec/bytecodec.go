// Package bytecodec provides fixed-width integer packing and unpacking in
// both big- and little-endian byte order. It backs the key bag's TLV fields
// and the protection-class prefix stored ahead of every wrapped key.
package bytecodec

import (
	"encoding/binary"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

// PackUint64BE packs v as 8 big-endian bytes.
func PackUint64BE(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// UnpackUint64BE unpacks 8 big-endian bytes into a uint64.
// Fails with bkerrors.ErrShortBuffer if b is shorter than 8 bytes.
func UnpackUint64BE(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, bkerrors.ErrShortBuffer
	}
	return binary.BigEndian.Uint64(b[:8]), nil
}

// UnpackUint32BE unpacks 4 big-endian bytes into a uint32.
// Fails with bkerrors.ErrShortBuffer if b is shorter than 4 bytes.
func UnpackUint32BE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, bkerrors.ErrShortBuffer
	}
	return binary.BigEndian.Uint32(b[:4]), nil
}

// UnpackUint32LE unpacks 4 little-endian bytes into a uint32.
// Fails with bkerrors.ErrShortBuffer if b is shorter than 4 bytes.
func UnpackUint32LE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, bkerrors.ErrShortBuffer
	}
	return binary.LittleEndian.Uint32(b[:4]), nil
}

// PackUint32LE packs v as 4 little-endian bytes. Used to frame the
// protection-class prefix ahead of wrapped manifest/file keys.
func PackUint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
