package tlv

import (
	"encoding/binary"
	"testing"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

func record(tag string, value []byte) []byte {
	b := make([]byte, 8+len(value))
	copy(b[0:4], tag)
	binary.BigEndian.PutUint32(b[4:8], uint32(len(value)))
	copy(b[8:], value)
	return b
}

func TestParseWellFormed(t *testing.T) {
	var buf []byte
	buf = append(buf, record(TagUUID, make([]byte, 16))...)
	buf = append(buf, record(TagVers, []byte{0, 0, 0, 3})...)
	buf = append(buf, record("XTRA", []byte("hi"))...)

	records, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Tag != TagUUID || records[0].Unknown {
		t.Errorf("record 0 = %+v", records[0])
	}
	if !records[2].Unknown {
		t.Errorf("record 2 should be unknown: %+v", records[2])
	}
}

func TestParseTruncatedRecord(t *testing.T) {
	buf := record(TagSalt, make([]byte, 20))
	buf = buf[:len(buf)-5] // chop off part of the declared payload

	_, err := Parse(buf)
	if err == nil {
		t.Fatal("expected error for truncated record")
	}
	if !bkerrors.Is(err, bkerrors.ErrTruncatedRecord) {
		t.Errorf("expected ErrTruncatedRecord, got %v", err)
	}
}

func TestParseStopsOnShortRemainder(t *testing.T) {
	buf := record(TagUUID, make([]byte, 16))
	buf = append(buf, 1, 2, 3) // 3 trailing bytes, not enough for a header

	records, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}
