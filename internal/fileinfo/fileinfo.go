// Package fileinfo decodes a resolved archiver dictionary into FileInfo, the
// per-file metadata record, and unwraps its encryption key against a key bag.
package fileinfo

import (
	"github.com/richinfante/ibackuptool-go/internal/bytecodec"
	"github.com/richinfante/ibackuptool-go/internal/keybag"
	"github.com/richinfante/ibackuptool-go/internal/keywrap"
)

// FileInfo is the decoded per-file metadata carried inside a backup
// catalog's `file` blob.
type FileInfo struct {
	LastModified     uint64
	LastStatusChange uint64
	Birth            uint64
	InodeNumber      uint64
	UserID           uint64
	GroupID          uint64
	Mode             uint64
	Size             uint64
	Flags            uint64

	ProtectionClass keybag.ProtectionClass

	// Set only when the archiver dictionary carried an EncryptionKey field.
	HasEncryptionKey bool
	// WrappedEncryptionClass is the 4-byte LE prefix carried alongside the
	// wrapped key. It is diagnostic only: the class key lookup in
	// UnwrapFileKey uses ProtectionClass, the file's own attribute, not this
	// prefix.
	WrappedEncryptionClass uint32
	WrappedEncryptionKey   []byte
	EncryptionKey          []byte // populated by UnwrapFileKey

	ExtendedAttributes []byte
}

// Decode builds a FileInfo from a resolved archiver dictionary (the output
// of archiver.Resolve). Missing scalar fields default to zero; a missing
// ProtectionClass defaults to keybag.ProtectionClassUnknown (99).
func Decode(fields map[string]any) *FileInfo {
	fi := &FileInfo{
		LastModified:     asUint64(fields["LastModified"]),
		LastStatusChange: asUint64(fields["LastStatusChange"]),
		Birth:            asUint64(fields["Birth"]),
		InodeNumber:      asUint64(fields["InodeNumber"]),
		UserID:           asUint64(fields["UserID"]),
		GroupID:          asUint64(fields["GroupID"]),
		Mode:             asUint64(fields["Mode"]),
		Size:             asUint64(fields["Size"]),
		Flags:            asUint64(fields["Flags"]),
	}

	if v, ok := fields["ProtectionClass"]; ok {
		fi.ProtectionClass = keybag.ProtectionClassFromUint32(uint32(asUint64(v)))
	} else {
		fi.ProtectionClass = keybag.ProtectionClassUnknown
	}

	if raw := nsData(fields["EncryptionKey"]); raw != nil && len(raw) >= 4 {
		class, err := bytecodec.UnpackUint32LE(raw[:4])
		if err == nil {
			fi.HasEncryptionKey = true
			fi.WrappedEncryptionClass = class
			fi.WrappedEncryptionKey = append([]byte(nil), raw[4:]...)
		}
	}

	if raw := nsData(fields["ExtendedAttributes"]); raw != nil {
		fi.ExtendedAttributes = append([]byte(nil), raw...)
	}

	return fi
}

// UnwrapFileKey looks up the class key matching this file's protection
// class and unwraps the per-file key. A missing class key or missing
// wrapped key is non-fatal: the FileInfo is left unchanged so the rest of
// the catalog can still be browsed.
func (fi *FileInfo) UnwrapFileKey(kb *keybag.KeyBag) {
	if !fi.HasEncryptionKey || len(fi.WrappedEncryptionKey) == 0 {
		return
	}
	classKey, ok := kb.FindClassKey(fi.ProtectionClass)
	if !ok {
		return
	}
	key, err := keywrap.Unwrap(classKey, fi.WrappedEncryptionKey)
	if err != nil {
		return
	}
	fi.EncryptionKey = key
}

func asUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case int:
		return uint64(n)
	case uint32:
		return uint64(n)
	default:
		return 0
	}
}

// nsData pulls the raw byte payload out of an archiver data-wrapper
// dictionary of the form {"NS.data": []byte{...}}. Returns nil if field is
// absent or not shaped this way.
func nsData(field any) []byte {
	dict, ok := field.(map[string]any)
	if !ok {
		return nil
	}
	data, ok := dict["NS.data"].([]byte)
	if !ok {
		return nil
	}
	return data
}
