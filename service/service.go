// Package service wires introspected data source entities into executable,
// registered query tools. It sits between the dao and tool packages: the
// dao provides the rows and the catalog, the registry provides the calling
// contract, and the service manufactures the handlers in between.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/hupe1980/querymesh/codegen"
	"github.com/hupe1980/querymesh/dao"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/schema"
	"github.com/hupe1980/querymesh/tool"
)

// QueryService registers one bounded query tool per entity of a data
// source, plus an optional single-record lookup tool for keyed entities.
type QueryService struct {
	dao      dao.DAO
	registry *tool.Registry
	logger   logging.Logger
	filter   string
	lookups  bool
}

// Options configures a QueryService.
type Options struct {
	// Logger receives registration progress. Defaults to no logging.
	Logger logging.Logger
	// EntityFilter restricts registration to entities whose name contains
	// the substring. Empty registers everything.
	EntityFilter string
	// LookupTools additionally registers get_<entity> tools for entities
	// with key fields.
	LookupTools bool
}

// New wires a query service over a data access handle and a tool registry.
func New(d dao.DAO, registry *tool.Registry, optFns ...func(o *Options)) *QueryService {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &QueryService{
		dao:      d,
		registry: registry,
		logger:   opts.Logger,
		filter:   opts.EntityFilter,
		lookups:  opts.LookupTools,
	}
}

// RegisterEntityTools introspects the source and registers one query tool
// per matched entity. It returns the descriptors it registered. Entities
// that fail synthesis fail the whole registration: a partially exposed
// source is worse than an unavailable one.
func (s *QueryService) RegisterEntityTools(ctx context.Context) ([]tool.Descriptor, error) {
	descs, err := schema.NewIntrospector(s.dao).Describe(ctx, s.filter)
	if err != nil {
		return nil, err
	}

	var registered []tool.Descriptor
	for _, desc := range descs {
		td, err := codegen.SynthesizeToolDescriptor(desc)
		if err != nil {
			return nil, err
		}
		if _, err := s.registry.Register(td, s.queryHandler(desc)); err != nil {
			return nil, fmt.Errorf("service: registering %s: %w", td.Name, err)
		}
		s.logger.Info("registered query tool", "tool", td.Name, "entity", desc.Entity, "parameters", len(td.Parameters))
		registered = append(registered, td)

		if !s.lookups {
			continue
		}
		lookup, err := codegen.SynthesizeLookupDescriptor(desc)
		if err != nil {
			// Keyless entities simply have no lookup form.
			s.logger.Debug("skipping lookup tool", "entity", desc.Entity, "reason", err)
			continue
		}
		if _, err := s.registry.Register(lookup, s.lookupHandler(desc)); err != nil {
			return nil, fmt.Errorf("service: registering %s: %w", lookup.Name, err)
		}
		s.logger.Info("registered lookup tool", "tool", lookup.Name, "entity", desc.Entity)
		registered = append(registered, lookup)
	}
	return registered, nil
}

// queryArgs is the decoded shape of a query tool invocation: the limit
// travels explicitly, everything else is a field filter.
type queryArgs struct {
	Limit   int            `mapstructure:"limit"`
	Filters map[string]any `mapstructure:",remain"`
}

func (s *QueryService) queryHandler(desc schema.Descriptor) tool.Handler {
	toolName := "query_" + desc.Entity
	fieldTypes := make(map[string]schema.Type, len(desc.Fields))
	for _, f := range desc.Fields {
		fieldTypes[f.Name] = f.Type
	}

	return tool.HandlerFunc(func(ctx context.Context, args map[string]any) (any, error) {
		var decoded queryArgs
		if err := mapstructure.Decode(args, &decoded); err != nil {
			return nil, &tool.ExecutionError{Tool: toolName, Cause: fmt.Errorf("decoding arguments: %w", err)}
		}

		q := dao.Query{Entity: desc.Entity, Limit: decoded.Limit}
		for field, value := range args {
			if field == "limit" {
				continue
			}
			op := dao.OpEq
			if fieldTypes[field] == schema.TypeString {
				op = dao.OpLike
			}
			q.Filters = append(q.Filters, dao.Filter{Field: field, Op: op, Value: value})
		}

		rows, err := s.dao.Query(ctx, q)
		if err != nil {
			return nil, &tool.ExecutionError{Tool: toolName, Cause: err}
		}
		return rows, nil
	})
}

func (s *QueryService) lookupHandler(desc schema.Descriptor) tool.Handler {
	toolName := "get_" + desc.Entity

	return tool.HandlerFunc(func(ctx context.Context, args map[string]any) (any, error) {
		q := dao.Query{Entity: desc.Entity, Limit: 1}
		for field, value := range args {
			q.Filters = append(q.Filters, dao.Filter{Field: field, Op: dao.OpEq, Value: value})
		}
		rows, err := s.dao.Query(ctx, q)
		if err != nil {
			return nil, &tool.ExecutionError{Tool: toolName, Cause: err}
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	})
}

// Entities describes the entities currently visible through the source,
// for operator inspection endpoints.
func (s *QueryService) Entities(ctx context.Context) ([]schema.Descriptor, error) {
	descs, err := schema.NewIntrospector(s.dao).Describe(ctx, s.filter)
	if err != nil && errors.Is(err, schema.ErrSchemaEmpty) {
		return nil, nil
	}
	return descs, err
}
