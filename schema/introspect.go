package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSourceUnavailable signals that the backing store could not be reached.
var ErrSourceUnavailable = errors.New("schema: source unavailable")

// ErrSchemaEmpty signals that the name filter matched no entities. Callers
// decide whether this is fatal.
var ErrSchemaEmpty = errors.New("schema: no entities matched")

// Source is the collaborator contract the introspector reads from. The SQL
// DAO implements it by querying catalog tables; tests supply fakes.
type Source interface {
	// DescribeSchema returns raw descriptors for every entity the source
	// exposes. Implementations report connectivity failures as errors that
	// wrap ErrSourceUnavailable.
	DescribeSchema(ctx context.Context) ([]Descriptor, error)
}

// Introspector produces validated, normalized descriptors from a source.
// It is read-only and holds no state beyond its collaborator.
type Introspector struct {
	source Source
}

// NewIntrospector wraps a source.
func NewIntrospector(source Source) *Introspector {
	return &Introspector{source: source}
}

// Describe returns one descriptor per entity whose name contains the filter
// substring (empty filter matches all). It fails with ErrSourceUnavailable
// when the source cannot be reached and ErrSchemaEmpty when the filter
// matches nothing. Descriptors that violate their own invariants fail the
// whole introspection: a broken catalog is not something to generate code
// from.
func (in *Introspector) Describe(ctx context.Context, filter string) ([]Descriptor, error) {
	all, err := in.source.DescribeSchema(ctx)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var matched []Descriptor
	for _, d := range all {
		if filter != "" && !strings.Contains(d.Entity, filter) {
			continue
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		matched = append(matched, d)
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: filter %q", ErrSchemaEmpty, filter)
	}
	return matched, nil
}
