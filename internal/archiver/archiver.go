// Package archiver resolves the one-level NSKeyedArchiver object graph used
// by Apple property lists: a flat $objects array addressed by UID
// back-references, rooted at $top.root.
package archiver

import (
	"fmt"

	"howett.net/plist"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
)

const archiverName = "NSKeyedArchiver"

// Kind distinguishes the specific way a document fails the archiver
// contract, so callers can report diagnostics without string matching.
type Kind string

const (
	NotArchiver    Kind = "NotArchiver"
	NoRootUid      Kind = "NoRootUid"
	MissingObjects Kind = "MissingObjects"
	MalformedRoot  Kind = "MalformedRoot"
)

// Error reports a failure decoding the archiver envelope.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("archiver: %s: %s", e.Kind, e.Msg) }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Resolve decodes raw as a plist and resolves its root object one reference
// level deep: every UID-valued entry in the root dictionary is replaced by
// the object at that index in $objects. Non-UID values are carried as-is.
func Resolve(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := plist.Unmarshal(raw, &doc); err != nil {
		return nil, bkerrors.Wrap(err, "decode plist")
	}

	archiverField, _ := doc["$archiver"].(string)
	if archiverField != archiverName {
		return nil, newError(NotArchiver, fmt.Sprintf("$archiver = %q, want %q", archiverField, archiverName))
	}

	top, ok := doc["$top"].(map[string]any)
	if !ok {
		return nil, newError(NoRootUid, "$top is not a dictionary")
	}
	rootUID, ok := top["root"].(plist.UID)
	if !ok {
		return nil, newError(NoRootUid, "$top.root is not a UID")
	}

	objects, ok := doc["$objects"].([]any)
	if !ok {
		return nil, newError(MissingObjects, "$objects is not an array")
	}
	if int(rootUID) < 0 || int(rootUID) >= len(objects) {
		return nil, newError(MalformedRoot, "root UID out of range")
	}

	root, ok := objects[int(rootUID)].(map[string]any)
	if !ok {
		return nil, newError(MalformedRoot, "root object is not a dictionary")
	}

	resolved := make(map[string]any, len(root))
	for key, value := range root {
		if uid, isUID := value.(plist.UID); isUID {
			idx := int(uid)
			if idx < 0 || idx >= len(objects) {
				return nil, newError(MalformedRoot, fmt.Sprintf("field %q references out-of-range UID %d", key, idx))
			}
			resolved[key] = objects[idx]
			continue
		}
		resolved[key] = value
	}

	return resolved, nil
}
