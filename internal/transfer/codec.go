// Package transfer encodes repository state for persistence and export, and
// routes combined export files back to the repositories on import.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidImport matches every *ImportError via errors.Is.
var ErrInvalidImport = errors.New("invalid import data")

// ImportError reports an import payload that could not be accepted.
type ImportError struct {
	Entity string
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Entity, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInvalidImport) match any ImportError.
func (e *ImportError) Is(target error) bool { return target == ErrInvalidImport }

// Encode renders v as indented JSON, the format used for both the store and
// export files.
func Encode(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses blob into v. The blob must be a JSON object carrying a
// non-null requiredKey; entity names the collection in errors.
func Decode(entity, requiredKey, blob string, v any) error {
	if err := json.Unmarshal([]byte(blob), v); err != nil {
		return &ImportError{Entity: entity, Err: err}
	}
	if res := gjson.Get(blob, requiredKey); !res.Exists() || res.Type == gjson.Null {
		return &ImportError{Entity: entity, Err: fmt.Errorf("missing %q", requiredKey)}
	}
	return nil
}
