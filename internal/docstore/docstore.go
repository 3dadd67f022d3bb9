// Package docstore defines a small schema-flexible document store.
//
// Documents are JSON objects addressed by a collection path and an id.
// Collection paths may be nested ("expenses/{uid}/transactions"). Both
// backends round-trip data through encoding/json, so callers always read
// back float64 numbers, strings for decimals and RFC 3339 strings for times.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	OpEqual        Op = "=="
	OpGreaterEqual Op = ">="
	OpLess         Op = "<"
)

type (
	Op string

	Ref struct {
		Collection string
		ID         string
	}

	Snapshot struct {
		Ref       Ref
		Data      map[string]any
		Exists    bool
		UpdatedAt time.Time
	}

	Filter struct {
		Field string
		Op    Op
		Value any
	}

	Query struct {
		Collection string
		Filters    []Filter
		OrderBy    string
		Desc       bool
		Limit      int
	}

	// Accessor is the read/write surface shared by stores and transactions.
	Accessor interface {
		Get(ctx context.Context, ref Ref) (Snapshot, error)
		// Set overwrites the whole document.
		Set(ctx context.Context, ref Ref, data map[string]any) error
		// Merge overwrites top-level fields only, creating the document if needed.
		Merge(ctx context.Context, ref Ref, data map[string]any) error
		// Create fails with ErrAlreadyExists when the document exists.
		Create(ctx context.Context, ref Ref, data map[string]any) error
		// Delete is a no-op for missing documents.
		Delete(ctx context.Context, ref Ref) error
		Query(ctx context.Context, q Query) ([]Snapshot, error)
	}

	Tx interface {
		Accessor
	}

	Store interface {
		Accessor
		// RunTransaction applies every write made through tx or none of them.
		RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
		Close() error
	}
)

var (
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidField  = errors.New("invalid field name")
	ErrInvalidOp     = errors.New("invalid query operator")
	ErrInvalidRef    = errors.New("invalid document reference")
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Path joins collection path segments.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

func Doc(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

func (r Ref) String() string {
	return r.Collection + "/" + r.ID
}

func (r Ref) Validate() error {
	if r.Collection == "" || r.ID == "" || strings.Contains(r.ID, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, r.String())
	}
	for _, seg := range strings.Split(r.Collection, "/") {
		if seg == "" {
			return fmt.Errorf("%w: %q", ErrInvalidRef, r.String())
		}
	}
	return nil
}

// ValidateField rejects field names that could not be used safely in a query.
func ValidateField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
	return nil
}

func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidRef)
	}
	for _, f := range q.Filters {
		if err := ValidateField(f.Field); err != nil {
			return err
		}
		switch f.Op {
		case OpEqual, OpGreaterEqual, OpLess:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidOp, f.Op)
		}
	}
	if q.OrderBy != "" {
		if err := ValidateField(q.OrderBy); err != nil {
			return err
		}
	}
	return nil
}

// SQL returns the comparison operator used by SQL backends.
func (o Op) SQL() string {
	if o == OpEqual {
		return "="
	}
	return string(o)
}

// Where appends an equality or range filter.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}
