package blockcipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

// encryptAES256CBCForTest mirrors DecryptAES256CBC's framing (zero IV, no
// padding) so the round-trip property can be exercised without a separate
// production encrypt path (the core never encrypts backups).
func encryptAES256CBCForTest(t *testing.T, key, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(block, iv)
	ciphertext := make([]byte, len(plaintext))
	mode.CryptBlocks(ciphertext, plaintext)
	return ciphertext
}

func TestAES256CBCRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}

	for _, size := range []int{16, 32, 160, 4096} {
		plaintext := make([]byte, size)
		if _, err := rand.Read(plaintext); err != nil {
			t.Fatal(err)
		}

		ciphertext := encryptAES256CBCForTest(t, key, plaintext)
		got, err := DecryptAES256CBC(key, ciphertext)
		if err != nil {
			t.Fatalf("DecryptAES256CBC: %v", err)
		}
		if len(got) != len(plaintext) {
			t.Fatalf("length mismatch: got %d want %d", len(got), len(plaintext))
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch for size %d", size)
		}
	}
}

func TestAES256CBCBadBlockSize(t *testing.T) {
	key := make([]byte, 32)
	if _, err := DecryptAES256CBC(key, make([]byte, 17)); err != bkerrors.ErrBadBlockSize {
		t.Errorf("expected ErrBadBlockSize, got %v", err)
	}
	if _, err := DecryptAES256CBC(key, nil); err != bkerrors.ErrBadBlockSize {
		t.Errorf("expected ErrBadBlockSize for empty input, got %v", err)
	}
}
