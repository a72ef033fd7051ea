package keybag

import (
	"bytes"
	"crypto/aes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"golang.org/x/crypto/pbkdf2"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
	"github.com/richinfante/ibackuptool-go/internal/tlv"
)

func tagBytes(tag string, value []byte) []byte {
	b := make([]byte, 8+len(value))
	copy(b[0:4], tag)
	binary.BigEndian.PutUint32(b[4:8], uint32(len(value)))
	copy(b[8:], value)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// wrapTestKey implements RFC 3394 key wrap so tests can construct a bag
// whose class keys actually unwrap under a known passcode-derived KEK.
func wrapTestKey(kek, key []byte) []byte {
	block, err := aes.NewCipher(kek)
	if err != nil {
		panic(err)
	}
	n := len(key) / 8
	r := make([][]byte, n+1)
	r[0] = nil
	for i := 1; i <= n; i++ {
		r[i] = append([]byte(nil), key[(i-1)*8:i*8]...)
	}
	a := []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[0:8], a)
			copy(buf[8:16], r[i])
			block.Encrypt(buf, buf)
			t := uint64(n*j + i)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			for k := 0; k < 8; k++ {
				buf[k] ^= tb[k]
			}
			copy(a, buf[0:8])
			r[i] = append([]byte(nil), buf[8:16]...)
		}
	}

	out := append([]byte(nil), a...)
	for i := 1; i <= n; i++ {
		out = append(out, r[i]...)
	}
	return out
}

func derivePasscodeKeyForTest(passcode, dpSalt []byte, dpIters uint32, salt []byte, iters uint32) []byte {
	intermediate := pbkdf2.Key(passcode, dpSalt, int(dpIters), sha256.Size, sha256.New)
	return pbkdf2.Key(intermediate, salt, int(iters), 32, sha1.New)
}

func buildTestBag(t *testing.T, passcode string, classKeys map[ProtectionClass][]byte) []byte {
	t.Helper()

	rootUUID := bytes.Repeat([]byte{0xAA}, 16)
	salt := bytes.Repeat([]byte{0x02}, 20)
	dpSalt := bytes.Repeat([]byte{0x01}, 20)

	var buf []byte
	buf = append(buf, tagBytes(tlv.TagUUID, rootUUID)...)
	buf = append(buf, tagBytes(tlv.TagVers, u32(2))...)
	buf = append(buf, tagBytes(tlv.TagType, u32(1))...)
	buf = append(buf, tagBytes(tlv.TagSalt, salt)...)
	buf = append(buf, tagBytes(tlv.TagIter, u32(10))...)
	buf = append(buf, tagBytes(tlv.TagDPSL, dpSalt)...)
	buf = append(buf, tagBytes(tlv.TagDPIC, u32(10))...)
	buf = append(buf, tagBytes(tlv.TagHMCK, bytes.Repeat([]byte{0x03}, 20))...)
	buf = append(buf, tagBytes(tlv.TagWrap, u32(2))...)

	passcodeKey := derivePasscodeKeyForTest([]byte(passcode), dpSalt, 10, salt, 10)

	i := 0
	for class, key := range classKeys {
		i++
		classUUID := bytes.Repeat([]byte{byte(0x10 + i)}, 16)
		buf = append(buf, tagBytes(tlv.TagUUID, classUUID)...)
		buf = append(buf, tagBytes(tlv.TagClas, u32(uint32(class)))...)
		buf = append(buf, tagBytes(tlv.TagKTYP, u32(0))...)
		buf = append(buf, tagBytes(tlv.TagWrap, u32(2))...)
		wrapped := wrapTestKey(passcodeKey, key)
		buf = append(buf, tagBytes(tlv.TagWPKY, wrapped)...)
	}

	return buf
}

func TestBuildSectioning(t *testing.T) {
	classKeys := map[ProtectionClass][]byte{
		ProtectionClassNSFileProtectionComplete: bytes.Repeat([]byte{0x11}, 32),
		ProtectionClassNSFileProtectionNone:     bytes.Repeat([]byte{0x22}, 32),
	}
	raw := buildTestBag(t, "1234", classKeys)

	kb, err := Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(kb.Keys) != 2 {
		t.Fatalf("got %d class key entries, want 2", len(kb.Keys))
	}
	if !kb.Root.HasDoubleProtection() {
		t.Error("expected double protection to be present")
	}
}

func TestBuildMalformedMissingRequiredField(t *testing.T) {
	var buf []byte
	buf = append(buf, tagBytes(tlv.TagUUID, bytes.Repeat([]byte{0xAA}, 16))...)
	buf = append(buf, tagBytes(tlv.TagVers, u32(2))...)
	// TYPE, SALT, HMCK, WRAP all missing.

	_, err := Build(buf)
	if err == nil {
		t.Fatal("expected error for incomplete root section")
	}
	if !bkerrors.Is(err, bkerrors.ErrMalformedKeyBag) {
		t.Errorf("expected ErrMalformedKeyBag, got %v", err)
	}
}

func TestUnlockWithPasscodeSuccess(t *testing.T) {
	wantKey := bytes.Repeat([]byte{0x11}, 32)
	classKeys := map[ProtectionClass][]byte{
		ProtectionClassNSFileProtectionComplete: wantKey,
	}
	raw := buildTestBag(t, "1234", classKeys)

	kb, err := Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := kb.UnlockWithPasscode("1234"); err != nil {
		t.Fatalf("UnlockWithPasscode: %v", err)
	}
	if !kb.IsUnlocked() {
		t.Error("expected bag to report unlocked")
	}

	got, ok := kb.FindClassKey(ProtectionClassNSFileProtectionComplete)
	if !ok {
		t.Fatal("expected to find class key")
	}
	if !bytes.Equal(got, wantKey) {
		t.Errorf("FindClassKey = %x, want %x", got, wantKey)
	}
}

func TestUnlockWithWrongPasscode(t *testing.T) {
	classKeys := map[ProtectionClass][]byte{
		ProtectionClassNSFileProtectionComplete: bytes.Repeat([]byte{0x11}, 32),
	}
	raw := buildTestBag(t, "1234", classKeys)

	kb, err := Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := kb.UnlockWithPasscode("wrong"); err != bkerrors.ErrWrongPasscode {
		t.Errorf("expected ErrWrongPasscode, got %v", err)
	}
	if kb.IsUnlocked() {
		t.Error("bag should not report unlocked after failed unlock")
	}
}
