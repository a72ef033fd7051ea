package backup

// State is a stage in the explicit lifecycle a Backup moves through as it
// is opened, unlocked, and made readable.
type State int

const (
	Created State = iota
	IndexLoaded
	KeyBagParsed
	KeyBagUnlocked
	ManifestKeyUnwrapped
	CatalogLoaded
	FileKeysUnwrapped
	Readable
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case IndexLoaded:
		return "IndexLoaded"
	case KeyBagParsed:
		return "KeyBagParsed"
	case KeyBagUnlocked:
		return "KeyBagUnlocked"
	case ManifestKeyUnwrapped:
		return "ManifestKeyUnwrapped"
	case CatalogLoaded:
		return "CatalogLoaded"
	case FileKeysUnwrapped:
		return "FileKeysUnwrapped"
	case Readable:
		return "Readable"
	default:
		return "Unknown"
	}
}

// atLeast reports whether s has progressed at least as far as other.
func (s State) atLeast(other State) bool {
	return s >= other
}
