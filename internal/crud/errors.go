package crud

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidID is returned for ids the store cannot parse.
	ErrInvalidID = errors.New("invalid id")
)

// DuplicateKeyError reports a write that would repeat a unique field value.
type DuplicateKeyError struct {
	Field string
	Value any
}

func (e *DuplicateKeyError) Error() string {
	kv, err := json.Marshal(map[string]any{e.Field: e.Value})
	if err != nil {
		kv = []byte("{}")
	}
	return "Duplicate key error: " + string(kv)
}

// ValidationError reports body values that do not match the schema.
type ValidationError struct {
	Model    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return e.Model + " validation failed: " + strings.Join(e.Problems, ", ")
}
