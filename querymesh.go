// Package querymesh provides a high-level façade over the framework's
// registries and execution machinery, enabling rapid construction of
// tool-using, data-aware agent services. Most applications interact with
// this package by:
//  1. Creating a QueryMesh via New() (optionally overriding the in-memory
//     defaults)
//  2. Registering tools and agents
//  3. Dispatching conversation turns (DispatchTurn) or calling tools
//     directly (ExecuteTool)
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable memory store, a real data source
// and a structured logger.
package querymesh

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/querymesh/agent"
	"github.com/hupe1980/querymesh/codegen"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/dao"
	"github.com/hupe1980/querymesh/dispatch"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/memory"
	"github.com/hupe1980/querymesh/model"
	"github.com/hupe1980/querymesh/schema"
	"github.com/hupe1980/querymesh/service"
	"github.com/hupe1980/querymesh/tool"
)

// Options configures the QueryMesh instance.
type Options struct {
	// DispatchTimeout bounds every tool handler invocation.
	DispatchTimeout time.Duration

	// MaxParallelTools caps concurrent tool executions within one fan-out.
	MaxParallelTools int64

	// MemoryStore holds conversation histories. Defaults to in-memory.
	MemoryStore memory.Store

	// DAO is the queryable data source. Optional; without one the query
	// tooling and introspection surfaces are unavailable.
	DAO dao.DAO

	// EntityFilter restricts entity tool registration to matching names.
	EntityFilter string

	// LookupTools additionally registers single-record lookup tools.
	LookupTools bool

	// ModulePath overrides the import path prefix in generated artifacts.
	ModulePath string

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// QueryMesh is the high-level façade aggregating the registries, the
// dispatch executor and the conversation router.
type QueryMesh struct {
	opts     Options
	tools    *tool.Registry
	agents   *agent.Registry
	executor *dispatch.Executor
	router   *agent.Router
	svc      *service.QueryService
}

// New creates a QueryMesh with optional overrides. Any unset collaborator
// is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *QueryMesh {
	opts := Options{
		DispatchTimeout:  15 * time.Second,
		MaxParallelTools: 4,
		MemoryStore:      memory.NewInMemoryStore(),
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	tools := tool.NewRegistry()
	agents := agent.NewRegistry()
	executor := dispatch.NewExecutor(func(o *dispatch.Options) {
		o.Timeout = opts.DispatchTimeout
		o.MaxParallel = opts.MaxParallelTools
		o.Logger = opts.Logger
	})
	router := agent.NewRouter(agents, tools, executor, opts.MemoryStore, func(o *agent.RouterOptions) {
		o.Logger = opts.Logger
	})

	m := &QueryMesh{
		opts:     opts,
		tools:    tools,
		agents:   agents,
		executor: executor,
		router:   router,
	}
	if opts.DAO != nil {
		m.svc = service.New(opts.DAO, tools, func(o *service.Options) {
			o.Logger = opts.Logger
			o.EntityFilter = opts.EntityFilter
			o.LookupTools = opts.LookupTools
		})
	}
	return m
}

// Tools exposes the tool registry.
func (m *QueryMesh) Tools() *tool.Registry { return m.tools }

// Agents exposes the agent registry.
func (m *QueryMesh) Agents() *agent.Registry { return m.agents }

// Router exposes the conversation router.
func (m *QueryMesh) Router() *agent.Router { return m.router }

// Executor exposes the dispatch executor.
func (m *QueryMesh) Executor() *dispatch.Executor { return m.executor }

// Service exposes the query service, nil without a configured DAO.
func (m *QueryMesh) Service() *service.QueryService { return m.svc }

// RegisterTool adds a tool to the registry.
func (m *QueryMesh) RegisterTool(d tool.Descriptor, h tool.Handler) error {
	_, err := m.tools.Register(d, h)
	return err
}

// RegisterAgent binds an agent configuration to a reasoning model.
func (m *QueryMesh) RegisterAgent(cfg agent.Config, mdl model.Model) error {
	return m.agents.Register(cfg, mdl)
}

// RegisterEntityTools introspects the data source and registers one query
// tool per entity.
func (m *QueryMesh) RegisterEntityTools(ctx context.Context) ([]tool.Descriptor, error) {
	if m.svc == nil {
		return nil, fmt.Errorf("querymesh: no data source configured")
	}
	return m.svc.RegisterEntityTools(ctx)
}

// DispatchTurn runs one conversation turn for the named agent.
func (m *QueryMesh) DispatchTurn(ctx context.Context, conversationID, agentName, message string) (*core.TurnResult, error) {
	return m.router.DispatchTurn(ctx, conversationID, agentName, message)
}

// ExecuteTool validates and runs a single tool call outside any
// conversation.
func (m *QueryMesh) ExecuteTool(ctx context.Context, call core.ToolCall) dispatch.Result {
	validated, err := m.tools.Resolve(call)
	if err != nil {
		return dispatch.Result{RequestID: call.RequestID, Tool: call.Name, Err: err}
	}
	return m.executor.Execute(ctx, validated)
}

// GenerateArtifacts renders source artifacts for every introspected entity
// and writes them under outDir.
func (m *QueryMesh) GenerateArtifacts(ctx context.Context, outDir string, kinds ...codegen.Kind) ([]codegen.Artifact, error) {
	if m.opts.DAO == nil {
		return nil, fmt.Errorf("querymesh: no data source configured")
	}
	descs, err := schema.NewIntrospector(m.opts.DAO).Describe(ctx, "")
	if err != nil {
		return nil, err
	}
	engine, err := codegen.NewEngine(func(o *codegen.EngineOptions) {
		if m.opts.ModulePath != "" {
			o.ModulePath = m.opts.ModulePath
		}
	})
	if err != nil {
		return nil, err
	}
	artifacts, failures := engine.RenderAll(descs, kinds...)
	for entity, ferr := range failures {
		m.opts.Logger.Warn("codegen.entity.failed", "entity", entity, "error", ferr)
	}
	writer, err := codegen.NewWriter(outDir)
	if err != nil {
		return nil, err
	}
	if err := writer.WriteAll(artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// Shutdown drains in-flight tool executions and closes the owned stores.
func (m *QueryMesh) Shutdown(ctx context.Context) error {
	if err := m.executor.Drain(ctx); err != nil {
		return fmt.Errorf("querymesh: draining dispatches: %w", err)
	}
	if err := m.opts.MemoryStore.Close(); err != nil {
		return fmt.Errorf("querymesh: closing memory store: %w", err)
	}
	if m.opts.DAO != nil {
		if err := m.opts.DAO.Close(); err != nil {
			return fmt.Errorf("querymesh: closing data source: %w", err)
		}
	}
	return nil
}
