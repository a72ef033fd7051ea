package keybag

// ProtectionClass is a small closed set of numeric identifiers a key or file
// carries. Its meaning is opaque to the core: it is only used as a lookup
// key to select the class key that wraps a given file's key.
type ProtectionClass uint32

const (
	ProtectionClassNSFileProtectionComplete                              ProtectionClass = 1
	ProtectionClassNSFileProtectionCompleteUnlessOpen                    ProtectionClass = 2
	ProtectionClassNSFileProtectionCompleteUntilFirstUserAuthentication  ProtectionClass = 3
	ProtectionClassNSFileProtectionNone                                  ProtectionClass = 4
	ProtectionClassNSFileProtectionRecovery                              ProtectionClass = 5
	ProtectionClassSecAttrAccessibleWhenUnlocked                         ProtectionClass = 6
	ProtectionClassSecAttrAccessibleAfterFirstUnlock                     ProtectionClass = 7
	ProtectionClassSecAttrAccessibleAlways                               ProtectionClass = 8
	ProtectionClassSecAttrAccessibleWhenUnlockedThisDeviceOnly           ProtectionClass = 9
	ProtectionClassSecAttrAccessibleAfterFirstUnlockThisDeviceOnly       ProtectionClass = 10
	ProtectionClassSecAttrAccessibleAlwaysThisDeviceOnly                 ProtectionClass = 11
	ProtectionClassUnknown                                               ProtectionClass = 99
)

var protectionClassNames = map[ProtectionClass]string{
	ProtectionClassNSFileProtectionComplete:                             "NSFileProtectionComplete",
	ProtectionClassNSFileProtectionCompleteUnlessOpen:                   "NSFileProtectionCompleteUnlessOpen",
	ProtectionClassNSFileProtectionCompleteUntilFirstUserAuthentication: "NSFileProtectionCompleteUntilFirstUserAuthentication",
	ProtectionClassNSFileProtectionNone:                                 "NSFileProtectionNone",
	ProtectionClassNSFileProtectionRecovery:                             "NSFileProtectionRecovery",
	ProtectionClassSecAttrAccessibleWhenUnlocked:                        "kSecAttrAccessibleWhenUnlocked",
	ProtectionClassSecAttrAccessibleAfterFirstUnlock:                    "kSecAttrAccessibleAfterFirstUnlock",
	ProtectionClassSecAttrAccessibleAlways:                              "kSecAttrAccessibleAlways",
	ProtectionClassSecAttrAccessibleWhenUnlockedThisDeviceOnly:          "kSecAttrAccessibleWhenUnlockedThisDeviceOnly",
	ProtectionClassSecAttrAccessibleAfterFirstUnlockThisDeviceOnly:      "kSecAttrAccessibleAfterFirstUnlockThisDeviceOnly",
	ProtectionClassSecAttrAccessibleAlwaysThisDeviceOnly:                "kSecAttrAccessibleAlwaysThisDeviceOnly",
	ProtectionClassUnknown:                                              "Unknown",
}

// ProtectionClassFromUint32 maps a raw numeric identifier to its
// ProtectionClass, falling back to ProtectionClassUnknown for anything
// outside 1..11.
func ProtectionClassFromUint32(v uint32) ProtectionClass {
	if v >= 1 && v <= 11 {
		return ProtectionClass(v)
	}
	return ProtectionClassUnknown
}

// String returns the named protection class, or "Unknown" for unrecognized values.
func (p ProtectionClass) String() string {
	if name, ok := protectionClassNames[p]; ok {
		return name
	}
	return "Unknown"
}

// KeyType distinguishes how a class key is itself protected.
type KeyType uint32

const (
	KeyTypeAES        KeyType = 0
	KeyTypeCurve25519 KeyType = 1
)

// Kind identifies which variant of key bag this is (root TYPE field).
type Kind uint32

const (
	KindSystem  Kind = 0
	KindBackup  Kind = 1
	KindEscrow  Kind = 2
	KindICloud  Kind = 3
	KindUnknown Kind = 99
)

// KindFromUint32 maps the raw TYPE field to a Kind.
func KindFromUint32(v uint32) Kind {
	switch v {
	case 0, 1, 2, 3:
		return Kind(v)
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "System"
	case KindBackup:
		return "Backup"
	case KindEscrow:
		return "Escrow"
	case KindICloud:
		return "iCloud"
	default:
		return "Unknown"
	}
}
