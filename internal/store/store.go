// Package store abstracts a backup's backing storage: either a plain
// directory on disk or a zip archive rooted one level deep. Both present the
// same "read a named entry" surface to internal/backup.
package store

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

// Store reads named entries out of a backup's backing storage.
type Store interface {
	// ReadFile returns the full contents of the entry at relativePath,
	// relative to the backing store's root.
	ReadFile(relativePath string) ([]byte, error)
	// Close releases any held resources (the archive handle of a zip-backed
	// store; a directory store holds none).
	Close() error
}

// directoryStore backs onto a plain directory, the common case for an
// un-archived backup on disk.
type directoryStore struct {
	root string
}

// NewDirectoryStore opens root as a directory-backed Store.
func NewDirectoryStore(root string) Store {
	return &directoryStore{root: root}
}

func (d *directoryStore) ReadFile(relativePath string) ([]byte, error) {
	full := filepath.Join(d.root, relativePath)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bkerrors.NewFileError("read", relativePath, bkerrors.ErrFileNotFound)
		}
		return nil, bkerrors.NewFileError("read", relativePath, err)
	}
	return data, nil
}

func (d *directoryStore) Close() error { return nil }

// ArchiveStore is the zip-backed Store implementation, exported so callers
// can read ArchiveRoot() after opening. It backs onto a single zip archive,
// rooted one level deep: every entry name inside the archive carries a
// common directory prefix (archiveRoot), which is stripped before matching
// against relativePath. The archive handle is not safe for concurrent reads
// from multiple goroutines (single-reader semantics).
type ArchiveStore struct {
	reader      *zip.ReadCloser
	archiveRoot string
	index       map[string]*zip.File
}

// OpenArchiveStore opens the zip archive at zipPath and locates the entry
// named "Manifest.plist" to determine the archive's logical root: the
// directory containing it. Returns bkerrors.ErrNotABackup if no such entry
// exists at any depth.
func OpenArchiveStore(zipPath string) (*ArchiveStore, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, bkerrors.NewFileError("open", zipPath, err)
	}

	archiveRoot := ""
	found := false
	for _, f := range reader.File {
		if filepath.Base(f.Name) == "Manifest.plist" {
			archiveRoot = filepath.Dir(f.Name)
			if archiveRoot == "." {
				archiveRoot = ""
			}
			found = true
			break
		}
	}
	if !found {
		reader.Close()
		return nil, bkerrors.ErrNotABackup
	}

	index := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		name := f.Name
		if archiveRoot != "" {
			name = strings.TrimPrefix(name, archiveRoot+"/")
		}
		index[name] = f
	}

	return &ArchiveStore{reader: reader, archiveRoot: archiveRoot, index: index}, nil
}

// ArchiveRoot returns the directory prefix inside the zip that contains
// Manifest.plist (empty string if it sits at the archive's top level).
func (a *ArchiveStore) ArchiveRoot() string { return a.archiveRoot }

func (a *ArchiveStore) ReadFile(relativePath string) ([]byte, error) {
	f, ok := a.index[relativePath]
	if !ok {
		return nil, bkerrors.NewFileError("read", relativePath, bkerrors.ErrFileNotFound)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, bkerrors.NewFileError("open", relativePath, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func (a *ArchiveStore) Close() error {
	return a.reader.Close()
}
