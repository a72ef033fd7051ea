package store

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

func TestDirectoryStoreReadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Info.plist"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewDirectoryStore(dir)
	data, err := s.ReadFile("Info.plist")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadFile = %q, want hello", data)
	}
}

func TestDirectoryStoreNotFound(t *testing.T) {
	s := NewDirectoryStore(t.TempDir())
	if _, err := s.ReadFile("missing.plist"); !bkerrors.Is(err, bkerrors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func buildTestZip(t *testing.T, prefix string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := map[string]string{
		prefix + "Manifest.plist": "manifest-data",
		prefix + "Info.plist":     "info-data",
	}
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return path
}

func TestArchiveStoreRootedAtTop(t *testing.T) {
	path := buildTestZip(t, "")
	s, err := OpenArchiveStore(path)
	if err != nil {
		t.Fatalf("OpenArchiveStore: %v", err)
	}
	defer s.Close()

	if s.ArchiveRoot() != "" {
		t.Errorf("ArchiveRoot = %q, want empty", s.ArchiveRoot())
	}
	data, err := s.ReadFile("Info.plist")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "info-data" {
		t.Errorf("ReadFile = %q, want info-data", data)
	}
}

func TestArchiveStoreRootedOneLevelDeep(t *testing.T) {
	path := buildTestZip(t, "MyBackup/")
	s, err := OpenArchiveStore(path)
	if err != nil {
		t.Fatalf("OpenArchiveStore: %v", err)
	}
	defer s.Close()

	if s.ArchiveRoot() != "MyBackup" {
		t.Errorf("ArchiveRoot = %q, want MyBackup", s.ArchiveRoot())
	}
	data, err := s.ReadFile("Info.plist")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "info-data" {
		t.Errorf("ReadFile = %q, want info-data", data)
	}
}

func TestArchiveStoreNotABackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	zw.Close()
	f.Close()

	if _, err := OpenArchiveStore(path); !bkerrors.Is(err, bkerrors.ErrNotABackup) {
		t.Errorf("expected ErrNotABackup, got %v", err)
	}
}
