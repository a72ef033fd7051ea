// Package tlv parses the flat tag-length-value stream that makes up a key
// bag blob: a 4-byte ASCII tag, a 4-byte big-endian length, and that many
// bytes of payload, repeated until fewer than 8 bytes remain.
package tlv

import (
	"encoding/binary"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

// Known key bag tags. Anything else is preserved as Unknown and ignored by
// higher layers (KeyBag only reads the tags it recognizes).
const (
	TagUUID = "UUID"
	TagVers = "VERS"
	TagType = "TYPE"
	TagHMCK = "HMCK"
	TagSalt = "SALT"
	TagIter = "ITER"
	TagDPWT = "DPWT"
	TagDPIC = "DPIC"
	TagDPSL = "DPSL"
	TagWrap = "WRAP"
	TagClas = "CLAS"
	TagWPKY = "WPKY"
	TagKTYP = "KTYP"
	TagPBKY = "PBKY"
)

var knownTags = map[string]bool{
	TagUUID: true, TagVers: true, TagType: true, TagHMCK: true,
	TagSalt: true, TagIter: true, TagDPWT: true, TagDPIC: true,
	TagDPSL: true, TagWrap: true, TagClas: true, TagWPKY: true,
	TagKTYP: true, TagPBKY: true,
}

// Unknown is a placeholder text for a tag outside the recognized set. Parse
// does not use it: records with an unknown tag keep their original tag text
// and are flagged by Record.Unknown, without discarding the payload.
const Unknown = "?"

// Record is a single parsed tag-length-value entry.
type Record struct {
	Tag     string
	Value   []byte
	Unknown bool
}

// IsKnown reports whether r.Tag is one of the recognized key bag tags.
func (r Record) IsKnown() bool {
	return knownTags[r.Tag]
}

// Parse decodes buf into a sequence of Records. Parsing stops cleanly when
// fewer than 8 bytes remain (the minimum size of a tag+length header).
// A record whose declared length exceeds the remaining buffer fails the
// whole parse with bkerrors.ErrTruncatedRecord.
func Parse(buf []byte) ([]Record, error) {
	var records []Record
	offset := 0

	for len(buf)-offset >= 8 {
		tag := string(buf[offset : offset+4])
		length := binary.BigEndian.Uint32(buf[offset+4 : offset+8])
		offset += 8

		remaining := len(buf) - offset
		if int64(length) > int64(remaining) {
			return nil, bkerrors.NewTlvError(tag, bkerrors.ErrTruncatedRecord)
		}

		value := buf[offset : offset+int(length)]
		offset += int(length)

		records = append(records, Record{
			Tag:     tag,
			Value:   value,
			Unknown: !knownTags[tag],
		})
	}

	return records, nil
}
