package archiver

import (
	"bytes"
	"testing"

	"howett.net/plist"
)

func marshalDoc(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := plist.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestResolveFlattensOneLevel(t *testing.T) {
	doc := map[string]any{
		"$archiver": archiverName,
		"$top": map[string]any{
			"root": plist.UID(1),
		},
		"$objects": []any{
			"$null",
			map[string]any{
				"name":  plist.UID(2),
				"count": int64(3),
			},
			"leaf-value",
		},
	}

	raw := marshalDoc(t, doc)
	resolved, err := Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved["name"] != "leaf-value" {
		t.Errorf("resolved[name] = %v, want leaf-value", resolved["name"])
	}
	if resolved["count"] != int64(3) {
		t.Errorf("resolved[count] = %v, want 3", resolved["count"])
	}
}

func TestResolveNotArchiver(t *testing.T) {
	doc := map[string]any{
		"$archiver": "NSSomethingElse",
	}
	raw := marshalDoc(t, doc)

	_, err := Resolve(raw)
	archErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if archErr.Kind != NotArchiver {
		t.Errorf("kind = %s, want NotArchiver", archErr.Kind)
	}
}

func TestResolveMissingObjects(t *testing.T) {
	doc := map[string]any{
		"$archiver": archiverName,
		"$top": map[string]any{
			"root": plist.UID(1),
		},
	}
	raw := marshalDoc(t, doc)

	_, err := Resolve(raw)
	archErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if archErr.Kind != MissingObjects {
		t.Errorf("kind = %s, want MissingObjects", archErr.Kind)
	}
}

func TestResolveNoRootUid(t *testing.T) {
	doc := map[string]any{
		"$archiver": archiverName,
		"$top":      map[string]any{},
		"$objects":  []any{"$null"},
	}
	raw := marshalDoc(t, doc)

	_, err := Resolve(raw)
	archErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if archErr.Kind != NoRootUid {
		t.Errorf("kind = %s, want NoRootUid", archErr.Kind)
	}
}
