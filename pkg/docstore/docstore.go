// Package docstore defines the document-database primitives the purchase
// workflows run on: point reads, filtered collection reads, merge-style
// upserts and idempotent deletes. Drivers live in the sub-packages.
package docstore

import (
	"context"
	"errors"
	"reflect"
	"strings"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// MaxInValues is the largest value list an OpIn filter may carry. Hosted
// document databases cap IN clauses at this size; every driver enforces it so
// callers chunk the same way regardless of backend.
const MaxInValues = 10

type Op string

const (
	OpEqual Op = "=="
	OpIn    Op = "in"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Document is a single record in a collection.
type Document struct {
	ID   string
	Data map[string]any
}

// String returns the named field when it holds a string, "" otherwise.
// A stored null reads as "".
func (d Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

func (d Document) Bool(field string) bool {
	b, _ := d.Data[field].(bool)
	return b
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Set merges fields into the document, creating it when absent.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// Path joins collection and document segments, e.g. Path("users", uid, "notifications").
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

var ErrInvalidFilter = errors.New("docstore: invalid filter")

// Validate checks operator and value shape for a filter.
func (f Filter) Validate() error {
	if f.Field == "" {
		return ErrInvalidFilter
	}
	switch f.Op {
	case OpEqual:
		return nil
	case OpIn:
		vals, ok := InValues(f.Value)
		if !ok || len(vals) == 0 || len(vals) > MaxInValues {
			return ErrInvalidFilter
		}
		return nil
	default:
		return ErrInvalidFilter
	}
}

// InValues normalises the value of an OpIn filter to a slice.
func InValues(v any) ([]any, bool) {
	switch vals := v.(type) {
	case []string:
		out := make([]any, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out, true
	case []any:
		return vals, true
	default:
		return nil, false
	}
}

// Matches reports whether data satisfies every filter. Drivers without a
// native query engine use it directly.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got, ok := data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !equal(got, f.Value) {
				return false
			}
		case OpIn:
			vals, _ := InValues(f.Value)
			found := false
			for _, v := range vals {
				if equal(got, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
