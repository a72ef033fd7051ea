// Package keybag owns the key bag's root parameters and class key entries,
// and the unlock protocol that recovers each class key from a passcode.
package keybag

import (
	"github.com/google/uuid"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
	"github.com/richinfante/ibackuptool-go/internal/bytecodec"
	"github.com/richinfante/ibackuptool-go/internal/kdf"
	"github.com/richinfante/ibackuptool-go/internal/keywrap"
	"github.com/richinfante/ibackuptool-go/internal/log"
	"github.com/richinfante/ibackuptool-go/internal/secure"
	"github.com/richinfante/ibackuptool-go/internal/tlv"
)

// RootParams holds the key bag's root section: the parameters needed to
// derive the passcode key and identify the bag itself.
type RootParams struct {
	UUID    uuid.UUID
	Version uint32
	Kind    Kind

	HMACCheck []byte
	Salt      []byte
	Iterations uint32

	DoubleProtectionSalt       []byte // optional
	DoubleProtectionWrapType   uint32 // optional, DPWT: how the double-protection key itself is wrapped
	DoubleProtectionIterations uint32 // optional, 0 if absent; DPIC

	Wrap uint32
}

// HasDoubleProtection reports whether this root carries the double
// password-based key derivation salt/iteration count.
func (r *RootParams) HasDoubleProtection() bool {
	return len(r.DoubleProtectionSalt) > 0 && r.DoubleProtectionIterations > 0
}

// ClassKeyEntry is one class key section: its protection class, how it is
// itself protected, and its wrapped key bytes. Key is populated only after
// KeyBag.UnlockWithPasscode succeeds.
type ClassKeyEntry struct {
	UUID      uuid.UUID
	Class     ProtectionClass
	KeyType   KeyType
	Wrap      uint32
	Wrapped   []byte
	Key       []byte // unwrapped, nil until unlock succeeds
}

// KeyBag is the parsed (and optionally unlocked) key bag.
type KeyBag struct {
	Root    RootParams
	Keys    []*ClassKeyEntry
	unlocked bool
}

// ClassKeys returns every class key entry, unlocked or not.
func (kb *KeyBag) ClassKeys() []*ClassKeyEntry {
	return kb.Keys
}

// IsUnlocked reports whether UnlockWithPasscode has succeeded on this bag.
func (kb *KeyBag) IsUnlocked() bool {
	return kb.unlocked
}

// Build parses a raw key bag blob into a KeyBag. The stream contains
// exactly one root section followed by zero or more class key sections,
// delimited by UUID records (see sectionRecords and spec §4.6 sectioning rule).
func Build(raw []byte) (*KeyBag, error) {
	records, err := tlv.Parse(raw)
	if err != nil {
		return nil, err
	}

	sections := sectionRecords(records)
	if len(sections) == 0 {
		return nil, bkerrors.NewKeyBagError("root", bkerrors.ErrMalformedKeyBag)
	}

	kb := &KeyBag{}
	if err := kb.Root.populate(sections[0]); err != nil {
		return nil, err
	}

	for _, section := range sections[1:] {
		entry, err := parseClassKeyEntry(section)
		if err != nil {
			return nil, err
		}
		kb.Keys = append(kb.Keys, entry)
	}

	return kb, nil
}

// sectionRecords splits the flat record stream into [root, classKey1,
// classKey2, ...] groups. The first UUID record starts the root section;
// the second UUID record starts the first class key; every subsequent UUID
// record starts the next class key.
func sectionRecords(records []tlv.Record) [][]tlv.Record {
	var sections [][]tlv.Record
	var current []tlv.Record
	uuidCount := 0

	for _, r := range records {
		if r.Tag == tlv.TagUUID {
			uuidCount++
			if uuidCount > 1 {
				sections = append(sections, current)
				current = nil
			}
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func (r *RootParams) populate(records []tlv.Record) error {
	var haveUUID, haveVers, haveType, haveSalt, haveHMCK, haveWrap bool

	for _, rec := range records {
		switch rec.Tag {
		case tlv.TagUUID:
			id, err := uuid.FromBytes(rec.Value)
			if err != nil {
				return bkerrors.NewKeyBagError("UUID", err)
			}
			r.UUID = id
			haveUUID = true
		case tlv.TagVers:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return bkerrors.NewKeyBagError("VERS", err)
			}
			r.Version = v
			haveVers = true
		case tlv.TagType:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return bkerrors.NewKeyBagError("TYPE", err)
			}
			r.Kind = KindFromUint32(v)
			haveType = true
		case tlv.TagIter:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return bkerrors.NewKeyBagError("ITER", err)
			}
			r.Iterations = v
		case tlv.TagDPWT:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return bkerrors.NewKeyBagError("DPWT", err)
			}
			r.DoubleProtectionWrapType = v
		case tlv.TagDPIC:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return bkerrors.NewKeyBagError("DPIC", err)
			}
			r.DoubleProtectionIterations = v
		case tlv.TagDPSL:
			r.DoubleProtectionSalt = rec.Value
		case tlv.TagWrap:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return bkerrors.NewKeyBagError("WRAP", err)
			}
			r.Wrap = v
			haveWrap = true
		case tlv.TagHMCK:
			r.HMACCheck = rec.Value
			haveHMCK = true
		case tlv.TagSalt:
			r.Salt = rec.Value
			haveSalt = true
		}
	}

	if !(haveUUID && haveVers && haveType && haveSalt && haveHMCK && haveWrap) {
		return bkerrors.NewKeyBagError("root", bkerrors.ErrMalformedKeyBag)
	}
	return nil
}

func parseClassKeyEntry(records []tlv.Record) (*ClassKeyEntry, error) {
	entry := &ClassKeyEntry{}

	for _, rec := range records {
		switch rec.Tag {
		case tlv.TagUUID:
			id, err := uuid.FromBytes(rec.Value)
			if err != nil {
				return nil, bkerrors.NewKeyBagError("classkey.UUID", err)
			}
			entry.UUID = id
		case tlv.TagClas:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return nil, bkerrors.NewKeyBagError("CLAS", err)
			}
			entry.Class = ProtectionClassFromUint32(v)
		case tlv.TagKTYP:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return nil, bkerrors.NewKeyBagError("KTYP", err)
			}
			entry.KeyType = KeyType(v)
		case tlv.TagWrap:
			v, err := bytecodec.UnpackUint32BE(rec.Value)
			if err != nil {
				return nil, bkerrors.NewKeyBagError("classkey.WRAP", err)
			}
			entry.Wrap = v
		case tlv.TagWPKY:
			entry.Wrapped = rec.Value
		}
	}

	return entry, nil
}

// UnlockWithPasscode derives the passcode key from root parameters and
// unwraps every class key. If any class key fails its unwrap integrity
// check, all derived material is discarded and bkerrors.ErrWrongPasscode is
// returned — the whole bag is left parsed-but-locked.
func (kb *KeyBag) UnlockWithPasscode(passcode string) error {
	passcodeKey, err := kdf.DerivePasscodeKey(
		[]byte(passcode),
		kb.Root.DoubleProtectionSalt,
		kb.Root.DoubleProtectionIterations,
		kb.Root.Salt,
		kb.Root.Iterations,
	)
	if err != nil {
		return err
	}

	defer secure.Zero(passcodeKey)

	unwrapped := make([][]byte, len(kb.Keys))
	for i, entry := range kb.Keys {
		if len(entry.Wrapped) == 0 {
			continue
		}
		key, err := keywrap.Unwrap(passcodeKey, entry.Wrapped)
		if err != nil {
			log.Warn("key bag class key unwrap failed", log.String("class", entry.Class.String()))
			secure.ZeroAll(unwrapped...)
			return bkerrors.ErrWrongPasscode
		}
		unwrapped[i] = key
	}

	for i, entry := range kb.Keys {
		entry.Key = unwrapped[i]
	}
	kb.unlocked = true
	return nil
}

// FindClassKey returns the unwrapped 32-byte key for the given protection
// class, if that class was present and successfully unwrapped.
func (kb *KeyBag) FindClassKey(class ProtectionClass) ([]byte, bool) {
	for _, entry := range kb.Keys {
		if entry.Class == class && len(entry.Key) > 0 {
			return entry.Key, true
		}
	}
	return nil, false
}
