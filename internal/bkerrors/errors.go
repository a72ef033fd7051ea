// Package bkerrors provides typed errors for the backup core.
// This enables callers to use errors.Is()/errors.As() for specific error handling.
package bkerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy. Use errors.Is(err, bkerrors.ErrWrongPasscode)
// to check for a specific condition.
var (
	// Index errors
	ErrMissingIndex     = errors.New("missing one or more of Info.plist, Status.plist, Manifest.plist")
	ErrNotABackup       = errors.New("path does not look like a backup")
	ErrMalformedPlist   = errors.New("malformed property list")

	// KeyBag errors
	ErrMalformedKeyBag        = errors.New("key bag is malformed")
	ErrTruncatedRecord        = errors.New("TLV record declares a length exceeding the remaining buffer")
	ErrMissingDoubleProtection = errors.New("key bag root is missing double-protection salt/iterations")

	// Cryptographic errors
	ErrWrongPasscode     = errors.New("wrong passcode")
	ErrBadBlockSize      = errors.New("ciphertext length is not a multiple of the block size")
	ErrShortBuffer       = errors.New("buffer shorter than required width")
	ErrIntegrityMismatch = errors.New("key unwrap integrity check failed")

	// Catalog errors
	ErrCatalogOpenFailed = errors.New("failed to open catalog")
	ErrRowDecodeFailed   = errors.New("catalog row metadata failed to decode")

	// Blob errors
	ErrFileNotFound          = errors.New("blob not found on backing store")
	ErrInManifestButNotFound = errors.New("file is listed in the catalog but its blob is missing")
	ErrNoFileInfo            = errors.New("record has no decoded file info")
	ErrNoEncryptionKey       = errors.New("record has no unwrapped encryption key")

	// State errors
	ErrNotReady    = errors.New("backup is not ready: catalog not loaded")
	ErrNotUnlocked = errors.New("backup is not ready: key bag not unlocked")
)

// TlvError reports a failure while parsing a single TLV record.
type TlvError struct {
	Tag string // 4-byte ASCII tag being parsed, or "" if not yet read
	Err error
}

func (e *TlvError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("tlv record %q: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("tlv: %v", e.Err)
}

func (e *TlvError) Unwrap() error { return e.Err }

// NewTlvError wraps err with the tag under parse.
func NewTlvError(tag string, err error) *TlvError {
	return &TlvError{Tag: tag, Err: err}
}

// KeyBagError reports a failure building or unlocking a key bag, with the
// offending field or class UUID for diagnosability.
type KeyBagError struct {
	Field string
	Err   error
}

func (e *KeyBagError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keybag %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("keybag %s invalid", e.Field)
}

func (e *KeyBagError) Unwrap() error { return e.Err }

// NewKeyBagError creates a new KeyBagError.
func NewKeyBagError(field string, err error) *KeyBagError {
	return &KeyBagError{Field: field, Err: err}
}

// StateError reports an operation attempted before the Backup state machine
// reached the required stage.
type StateError struct {
	Operation string
	Required  string
	Current   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s requires state %s, backup is at %s", e.Operation, e.Required, e.Current)
}

// NewStateError creates a new StateError.
func NewStateError(operation, required, current string) *StateError {
	return &StateError{Operation: operation, Required: required, Current: current}
}

// FileError represents an error during backing-store file access.
type FileError struct {
	Op   string // "open", "read", "stat"
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s failed", e.Op, e.Path)
}

func (e *FileError) Unwrap() error { return e.Err }

// NewFileError creates a new FileError.
func NewFileError(op, path string, err error) *FileError {
	return &FileError{Op: op, Path: path, Err: err}
}

// Is checks if target matches any of our sentinel errors.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
