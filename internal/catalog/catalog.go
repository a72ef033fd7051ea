// Package catalog reads the Files table out of a backup's Manifest.db, a
// SQLite database, and decodes each row's plist blob into a FileInfo.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinfante/ibackuptool-go/internal/archiver"
	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
	"github.com/richinfante/ibackuptool-go/internal/fileinfo"
	"github.com/richinfante/ibackuptool-go/internal/log"
)

// FileRecord is one row of the Files table, with its metadata blob decoded
// when possible.
type FileRecord struct {
	FileID       string
	Domain       string
	RelativePath string
	Flags        int64

	// FileInfo is nil when the row's blob failed to decode. The record
	// remains addressable by id/path but cannot be decrypted.
	FileInfo *fileinfo.FileInfo
}

// Catalog is an opened, fully materialized Files table.
type Catalog struct {
	records      []*FileRecord
	decodeErrors int
}

// DecodeErrors reports how many rows had a FileInfo that failed to decode.
func (c *Catalog) DecodeErrors() int { return c.decodeErrors }

// Open reads every row of the Files table at dbPath and decodes each blob.
// Decode failures are tolerated per row: the row is retained with a nil
// FileInfo rather than failing the whole catalog load.
func Open(dbPath string) (*Catalog, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, bkerrors.Wrap(err, "open catalog database")
	}
	defer db.Close()

	rows, err := db.Query(`SELECT fileID, domain, relativePath, flags, file FROM Files`)
	if err != nil {
		return nil, bkerrors.NewFileError("query", dbPath, bkerrors.ErrCatalogOpenFailed)
	}
	defer rows.Close()

	cat := &Catalog{}
	for rows.Next() {
		rec := &FileRecord{}
		var blob []byte
		if err := rows.Scan(&rec.FileID, &rec.Domain, &rec.RelativePath, &rec.Flags, &blob); err != nil {
			return nil, bkerrors.Wrap(err, "scan catalog row")
		}

		fi, err := decodeBlob(blob)
		if err != nil {
			log.Warn("catalog row failed to decode", log.String("fileID", rec.FileID), log.Err(err))
			cat.decodeErrors++
		} else {
			rec.FileInfo = fi
		}

		cat.records = append(cat.records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, bkerrors.Wrap(err, "iterate catalog rows")
	}

	return cat, nil
}

func decodeBlob(blob []byte) (*fileinfo.FileInfo, error) {
	if len(blob) == 0 {
		return nil, bkerrors.ErrRowDecodeFailed
	}
	resolved, err := archiver.Resolve(blob)
	if err != nil {
		return nil, bkerrors.Wrap(err, "resolve archiver")
	}
	return fileinfo.Decode(resolved), nil
}

// All returns every FileRecord in insertion order as returned by the
// database.
func (c *Catalog) All() []*FileRecord {
	return c.records
}

// FindByID returns the record whose FileID matches, if any.
func (c *Catalog) FindByID(fileID string) (*FileRecord, bool) {
	for _, rec := range c.records {
		if rec.FileID == fileID {
			return rec, true
		}
	}
	return nil, false
}

// FindByPath returns the record whose domain and relative path match, if
// any.
func (c *Catalog) FindByPath(domain, relativePath string) (*FileRecord, bool) {
	for _, rec := range c.records {
		if rec.Domain == domain && rec.RelativePath == relativePath {
			return rec, true
		}
	}
	return nil, false
}
