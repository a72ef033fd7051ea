package kdf

import (
	"bytes"
	"testing"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

func TestDerivePasscodeKeyDeterministic(t *testing.T) {
	passcode := []byte("1234")
	dpSalt := bytes.Repeat([]byte{0x01}, 20)
	salt := bytes.Repeat([]byte{0x02}, 20)

	k1, err := DerivePasscodeKey(passcode, dpSalt, 10, salt, 10)
	if err != nil {
		t.Fatalf("DerivePasscodeKey: %v", err)
	}
	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}

	k2, err := DerivePasscodeKey(passcode, dpSalt, 10, salt, 10)
	if err != nil {
		t.Fatalf("DerivePasscodeKey: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("two derivations with identical inputs should be byte-equal")
	}

	k3, _ := DerivePasscodeKey([]byte("wrong"), dpSalt, 10, salt, 10)
	if bytes.Equal(k1, k3) {
		t.Error("different passcodes should not derive the same key")
	}
}

func TestDerivePasscodeKeyMissingDoubleProtection(t *testing.T) {
	salt := bytes.Repeat([]byte{0x02}, 20)
	if _, err := DerivePasscodeKey([]byte("1234"), nil, 0, salt, 10); err != bkerrors.ErrMissingDoubleProtection {
		t.Errorf("expected ErrMissingDoubleProtection, got %v", err)
	}
}
