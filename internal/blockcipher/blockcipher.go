// Package blockcipher provides the two AES building blocks the backup
// format needs: zero-IV, no-padding CBC decryption for the catalog and file
// payloads, and single-block ECB decryption for the key-wrap primitive.
package blockcipher

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

// DecryptAES256CBC decrypts ciphertext with a 16-byte all-zero IV and no
// padding. len(ciphertext) must be a positive multiple of 16; otherwise this
// fails with bkerrors.ErrBadBlockSize. The returned plaintext has the same
// length as ciphertext.
func DecryptAES256CBC(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, bkerrors.ErrBadBlockSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCDecrypter(block, iv)

	plaintext := make([]byte, len(ciphertext))
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// DecryptAES256ECBBlock decrypts exactly one 16-byte block under raw AES-ECB.
// It is used only by keywrap, which operates on 16-byte (A||R[i]) blocks at a
// time and supplies its own chaining via the key-wrap recurrence.
func DecryptAES256ECBBlock(key, block []byte) ([]byte, error) {
	if len(block) != aes.BlockSize {
		return nil, bkerrors.ErrBadBlockSize
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, aes.BlockSize)
	c.Decrypt(out, block)
	return out, nil
}
