// Package kdf derives the passcode key used to unlock a backup's key bag.
// The derivation is two cascaded PBKDF2 stages, matching the format the
// teacher's Argon2-based crypto package derives a single key from a
// password and salt, generalized here to the backup format's two-stage
// double-protection scheme.
package kdf

import (
	"crypto/sha1"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

// KeySize is the output size of DerivePasscodeKey, in bytes.
const KeySize = 32

// DerivePasscodeKey derives the 32-byte passcode key from the user's
// passcode and the key bag's root parameters.
//
//	t      = PBKDF2-HMAC-SHA-256(password=passcode, salt=dpSalt, iter=dpIters, 32)
//	return   PBKDF2-HMAC-SHA-1(password=t, salt=salt, iter=iters, 32)
//
// dpSalt/dpIters are required for any encrypted backup the core targets;
// an absent double-protection salt fails with bkerrors.ErrMissingDoubleProtection.
func DerivePasscodeKey(passcode, dpSalt []byte, dpIters uint32, salt []byte, iters uint32) ([]byte, error) {
	if len(dpSalt) == 0 || dpIters == 0 {
		return nil, bkerrors.ErrMissingDoubleProtection
	}

	stage1 := pbkdf2.Key(passcode, dpSalt, int(dpIters), KeySize, sha256.New)
	stage2 := pbkdf2.Key(stage1, salt, int(iters), KeySize, sha1.New)
	return stage2, nil
}
