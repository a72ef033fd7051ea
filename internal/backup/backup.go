// Package backup orchestrates key-bag parsing, manifest/catalog decryption,
// and blob retrieval for one opened backup. It is the public entry point
// for the rest of the module.
package backup

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"howett.net/plist"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
	"github.com/richinfante/ibackuptool-go/internal/blockcipher"
	"github.com/richinfante/ibackuptool-go/internal/bytecodec"
	"github.com/richinfante/ibackuptool-go/internal/catalog"
	"github.com/richinfante/ibackuptool-go/internal/keybag"
	"github.com/richinfante/ibackuptool-go/internal/keywrap"
	"github.com/richinfante/ibackuptool-go/internal/log"
	"github.com/richinfante/ibackuptool-go/internal/secure"
	"github.com/richinfante/ibackuptool-go/internal/store"
)

// Backup is a logical container over a backup's on-disk (or archived)
// layout: its index, key bag, catalog, and backing store.
type Backup struct {
	root             store.Store
	useOldConvention bool
	bypassManifest   bool

	Info     Info
	Status   Status
	Manifest Manifest

	keyBag      *keybag.KeyBag
	manifestKey []byte

	cat *catalog.Catalog

	state State
}

// Options configures Open.
type Options struct {
	// UseOldFileConvention selects the pre-content-addressed physical
	// layout: <root>/<file_id> instead of <root>/<aa>/<file_id>.
	UseOldFileConvention bool
	// BypassManifest skips manifest-key unwrap and treats the backup as if
	// it were unencrypted, even when Manifest.IsEncrypted is true. Useful
	// for diagnosing a backup whose key bag or manifest key is malformed.
	BypassManifest bool
}

// Open probes path: if it names a file with a ".zip" extension, it is
// opened as an archive and the entry named "Manifest.plist" locates the
// logical root; otherwise path is treated as a directory. Status.plist,
// Info.plist, and Manifest.plist are read and parsed. Returns
// bkerrors.ErrMissingIndex if any of the three is absent.
func Open(path string, opts Options) (*Backup, error) {
	var backing store.Store

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		archiveStore, err := store.OpenArchiveStore(path)
		if err != nil {
			return nil, err
		}
		backing = archiveStore
	} else {
		info, err := os.Stat(path)
		if err != nil {
			return nil, bkerrors.NewFileError("stat", path, err)
		}
		if !info.IsDir() {
			return nil, bkerrors.ErrNotABackup
		}
		backing = store.NewDirectoryStore(path)
	}

	b := &Backup{
		root:             backing,
		useOldConvention: opts.UseOldFileConvention,
		bypassManifest:   opts.BypassManifest,
		state:            Created,
	}

	statusRaw, statusErr := backing.ReadFile("Status.plist")
	infoRaw, infoErr := backing.ReadFile("Info.plist")
	manifestRaw, manifestErr := backing.ReadFile("Manifest.plist")
	if statusErr != nil || infoErr != nil || manifestErr != nil {
		return nil, bkerrors.ErrMissingIndex
	}

	if err := plist.Unmarshal(statusRaw, &b.Status); err != nil {
		return nil, bkerrors.Wrap(err, "decode Status.plist")
	}
	if err := plist.Unmarshal(infoRaw, &b.Info); err != nil {
		return nil, bkerrors.Wrap(err, "decode Info.plist")
	}
	if err := plist.Unmarshal(manifestRaw, &b.Manifest); err != nil {
		return nil, bkerrors.Wrap(err, "decode Manifest.plist")
	}

	b.state = IndexLoaded
	log.Info("backup index loaded", log.Bool("encrypted", b.Manifest.IsEncrypted))
	return b, nil
}

// Encrypted reports whether this backup's manifest, catalog, and files
// require a passcode to read. False for a backup whose Manifest.plist
// marks it unencrypted, and also false whenever BypassManifest was set on
// Open, even if Manifest.IsEncrypted is true.
func (b *Backup) Encrypted() bool {
	return b.Manifest.IsEncrypted && !b.bypassManifest
}

// ParseKeyBag parses the raw key bag bytes carried in Manifest.plist. Only
// meaningful for encrypted backups.
func (b *Backup) ParseKeyBag() error {
	if !b.state.atLeast(IndexLoaded) {
		return bkerrors.NewStateError("ParseKeyBag", IndexLoaded.String(), b.state.String())
	}
	if !b.Encrypted() {
		return nil
	}

	kb, err := keybag.Build(b.Manifest.RawKeyBag)
	if err != nil {
		return err
	}
	b.keyBag = kb
	b.state = KeyBagParsed
	return nil
}

// Unlock derives the passcode key and unwraps every class key in the
// parsed key bag. Returns bkerrors.ErrWrongPasscode on integrity failure.
func (b *Backup) Unlock(passcode string) error {
	if !b.Encrypted() {
		return nil
	}
	if !b.state.atLeast(KeyBagParsed) {
		return bkerrors.NewStateError("Unlock", KeyBagParsed.String(), b.state.String())
	}

	if err := b.keyBag.UnlockWithPasscode(passcode); err != nil {
		return err
	}
	b.state = KeyBagUnlocked
	return nil
}

// UnlockManifestKey unwraps the manifest key using the class key selected
// by the protection class stored in the first four little-endian bytes of
// the wrapped manifest key.
func (b *Backup) UnlockManifestKey() error {
	if !b.Encrypted() {
		return nil
	}
	if !b.state.atLeast(KeyBagUnlocked) {
		return bkerrors.ErrNotUnlocked
	}

	key, err := unwrapPrefixedKey(b.keyBag, b.Manifest.WrappedManifestKey)
	if err != nil {
		return err
	}
	b.manifestKey = key
	b.state = ManifestKeyUnwrapped
	return nil
}

// unwrapPrefixedKey unwraps a key stored as [4-byte little-endian
// protection class] || [wrapped bytes], the framing shared by the manifest
// key and every per-file encryption key.
func unwrapPrefixedKey(kb *keybag.KeyBag, prefixed []byte) ([]byte, error) {
	if len(prefixed) < 4 {
		return nil, bkerrors.ErrShortBuffer
	}
	classVal, err := bytecodec.UnpackUint32LE(prefixed[:4])
	if err != nil {
		return nil, err
	}
	class := keybag.ProtectionClassFromUint32(classVal)

	classKey, ok := kb.FindClassKey(class)
	if !ok {
		return nil, bkerrors.ErrNoEncryptionKey
	}
	return keywrap.Unwrap(classKey, prefixed[4:])
}

// LoadCatalog reads Manifest.db through the backing store. If the backup
// is encrypted, the raw database bytes are AES-CBC decrypted with the
// unwrapped manifest key and written to a scoped temporary file before
// being opened; otherwise the raw database bytes are copied unchanged to a
// scoped temporary file, which is then opened read-only. The catalog file
// in the backup itself is never opened in place.
func (b *Backup) LoadCatalog() error {
	requiredState := IndexLoaded
	if b.Encrypted() {
		requiredState = ManifestKeyUnwrapped
	}
	if !b.state.atLeast(requiredState) {
		return bkerrors.NewStateError("LoadCatalog", requiredState.String(), b.state.String())
	}

	dbPath, cleanup, err := b.materializeCatalog()
	if err != nil {
		return err
	}
	defer cleanup()

	cat, err := catalog.Open(dbPath)
	if err != nil {
		return err
	}
	b.cat = cat
	b.state = CatalogLoaded
	log.Info("catalog loaded", log.Int("records", len(cat.All())), log.Int("decodeErrors", cat.DecodeErrors()))
	return nil
}

// materializeCatalog returns a path to a plaintext SQLite file, plus a
// cleanup function. That path is always a scoped temp file: for encrypted
// backups it holds the AES-CBC-decrypted bytes, for unencrypted ones a copy
// of the raw bytes. The cleanup function removes it
// once the catalog is opened and its rows are materialized in memory.
func (b *Backup) materializeCatalog() (path string, cleanup func(), err error) {
	raw, err := b.root.ReadFile(b.physicalPathFor("Manifest.db"))
	if err != nil {
		return "", nil, err
	}

	if !b.Encrypted() {
		tmp, err := os.CreateTemp("", "ibackup-catalog-*.db")
		if err != nil {
			return "", nil, bkerrors.Wrap(err, "create temp catalog file")
		}
		if _, err := tmp.Write(raw); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", nil, bkerrors.Wrap(err, "write temp catalog file")
		}
		tmp.Close()
		return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
	}

	plaintext, err := blockcipher.DecryptAES256CBC(b.manifestKey, raw)
	if err != nil {
		return "", nil, err
	}
	defer secure.Zero(plaintext)

	tmp, err := os.CreateTemp("", "ibackup-catalog-*.db")
	if err != nil {
		return "", nil, bkerrors.Wrap(err, "create temp catalog file")
	}
	if _, err := tmp.Write(plaintext); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, bkerrors.Wrap(err, "write temp catalog file")
	}
	tmp.Close()
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// UnwrapAllFileKeys unwraps every catalog record's per-file key. Failures
// are non-fatal per record: a record without a decodable FileInfo, or
// without a wrapped key, is left alone.
func (b *Backup) UnwrapAllFileKeys() error {
	if !b.state.atLeast(CatalogLoaded) {
		return bkerrors.NewStateError("UnwrapAllFileKeys", CatalogLoaded.String(), b.state.String())
	}
	if !b.Encrypted() {
		b.state = FileKeysUnwrapped
		return nil
	}
	if !b.state.atLeast(KeyBagUnlocked) {
		return bkerrors.ErrNotUnlocked
	}

	for _, rec := range b.cat.All() {
		if rec.FileInfo == nil {
			continue
		}
		rec.FileInfo.UnwrapFileKey(b.keyBag)
	}
	b.state = FileKeysUnwrapped
	return nil
}

// Ready moves the Backup to the terminal Readable state once the catalog
// and (for encrypted backups) the file keys have been processed. Separated
// from UnwrapAllFileKeys so callers can inspect intermediate failures.
func (b *Backup) Ready() error {
	if !b.state.atLeast(FileKeysUnwrapped) {
		return bkerrors.NewStateError("Ready", FileKeysUnwrapped.String(), b.state.String())
	}
	b.state = Readable
	return nil
}

// State reports the current lifecycle stage.
func (b *Backup) State() State { return b.state }

// KeyBagUUID returns the parsed key bag's root UUID, or "" if no key bag
// has been parsed (unencrypted backup, or ParseKeyBag not yet called).
func (b *Backup) KeyBagUUID() string {
	if b.keyBag == nil {
		return ""
	}
	return b.keyBag.Root.UUID.String()
}

// KeyBagClassCount returns the number of class key entries in the parsed
// key bag, or 0 if none has been parsed.
func (b *Backup) KeyBagClassCount() int {
	if b.keyBag == nil {
		return 0
	}
	return len(b.keyBag.ClassKeys())
}

// Records returns every catalog record, or nil if the catalog has not been
// loaded yet.
func (b *Backup) Records() []*catalog.FileRecord {
	if b.cat == nil {
		return nil
	}
	return b.cat.All()
}

// FindByID delegates to the loaded catalog.
func (b *Backup) FindByID(fileID string) (*catalog.FileRecord, bool) {
	if b.cat == nil {
		return nil, false
	}
	return b.cat.FindByID(fileID)
}

// FindByPath delegates to the loaded catalog.
func (b *Backup) FindByPath(domain, relativePath string) (*catalog.FileRecord, bool) {
	if b.cat == nil {
		return nil, false
	}
	return b.cat.FindByPath(domain, relativePath)
}

// Domains returns the distinct, sorted set of domains observed in the
// loaded catalog.
func (b *Backup) Domains() []string {
	if b.cat == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, rec := range b.cat.All() {
		seen[rec.Domain] = struct{}{}
	}
	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// ArchiveRoot reports the directory prefix inside a zip-backed backup that
// contains Manifest.plist, and whether the backup is zip-backed at all.
// Directory-backed backups always return ("", false).
func (b *Backup) ArchiveRoot() (string, bool) {
	archive, ok := b.root.(*store.ArchiveStore)
	if !ok {
		return "", false
	}
	return archive.ArchiveRoot(), true
}

// ComputeFileID returns the lowercase-hex SHA-1 of domain + "-" + relative,
// the identifier scheme used to name blobs on disk.
func ComputeFileID(domain, relativeFilename string) string {
	h := sha1.Sum([]byte(domain + "-" + relativeFilename))
	return hex.EncodeToString(h[:])
}

// ReadFile resolves rec's physical path under the selected file-naming
// convention, reads its raw bytes from the backing store, and — for
// encrypted backups — decrypts them with the record's unwrapped per-file
// key.
func (b *Backup) ReadFile(rec *catalog.FileRecord) ([]byte, error) {
	if !b.state.atLeast(CatalogLoaded) {
		return nil, bkerrors.ErrNotReady
	}

	raw, err := b.root.ReadFile(b.physicalPathFor(rec.FileID))
	if err != nil {
		return nil, err
	}

	if !b.Encrypted() {
		return raw, nil
	}

	if rec.FileInfo == nil {
		return nil, bkerrors.ErrNoFileInfo
	}
	if len(rec.FileInfo.EncryptionKey) == 0 {
		return nil, bkerrors.ErrNoEncryptionKey
	}
	return blockcipher.DecryptAES256CBC(rec.FileInfo.EncryptionKey, raw)
}

// physicalPathFor maps a logical blob name (or a plain index file name like
// "Manifest.db") to its physical path under the selected convention,
// relative to the backing store's root.
func (b *Backup) physicalPathFor(name string) string {
	switch name {
	case "Info.plist", "Status.plist", "Manifest.plist", "Manifest.db":
		return name
	}
	if b.useOldConvention {
		return name
	}
	if len(name) < 2 {
		return name
	}
	return filepath.Join(name[:2], name)
}
