// Package dao provides filtered read access to the entities a data source
// exposes, plus catalog introspection feeding the schema package.
package dao

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/hupe1980/querymesh/schema"
)

// ErrInvalidQuery wraps every query shape rejection: bad identifiers,
// unsupported operators. These fail before any statement reaches the
// backend.
var ErrInvalidQuery = errors.New("invalid query")

// Op is a filter comparison operator.
type Op string

// Supported filter operators.
const (
	OpEq   Op = "eq"
	OpLike Op = "like"
	OpGte  Op = "gte"
	OpLte  Op = "lte"
)

// Filter constrains one field of a query.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes one bounded read against an entity.
type Query struct {
	Entity  string
	Filters []Filter
	Limit   int
	Offset  int
}

// DefaultLimit bounds result sets when the caller does not.
const DefaultLimit = 100

// MaxLimit is the hard ceiling on any single read.
const MaxLimit = 1000

// Row is one result record keyed by field name.
type Row map[string]any

// DAO is the read contract over a data source. Implementations also act as
// a schema.Source so the same handle drives both querying and introspection.
type DAO interface {
	schema.Source

	// Query executes a filtered, bounded read. Unknown entities and fields
	// are rejected before any statement reaches the backend.
	Query(ctx context.Context, q Query) ([]Row, error)

	// Close releases the underlying connection.
	Close() error
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdent reports whether s is safe to interpolate as an identifier.
// Identifiers cannot travel as placeholders, so everything else about a
// query is parameterized and identifiers are whitelisted by this shape.
func validIdent(s string) bool {
	return identPattern.MatchString(s)
}

// normalize applies limit defaults and validates operators and identifiers.
func (q *Query) normalize() error {
	if !validIdent(q.Entity) {
		return fmt.Errorf("%w: invalid entity name %q", ErrInvalidQuery, q.Entity)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	for _, f := range q.Filters {
		if !validIdent(f.Field) {
			return fmt.Errorf("%w: invalid field name %q", ErrInvalidQuery, f.Field)
		}
		switch f.Op {
		case OpEq, OpLike, OpGte, OpLte:
		default:
			return fmt.Errorf("%w: unsupported operator %q on field %s", ErrInvalidQuery, f.Op, f.Field)
		}
	}
	return nil
}
