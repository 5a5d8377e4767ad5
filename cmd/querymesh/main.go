// Command querymesh runs the framework as a service: an HTTP surface over
// configured agents, registered tools and a queryable data source, plus
// supporting subcommands for code generation and config validation.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/querymesh"
	"github.com/hupe1980/querymesh/codegen"
	"github.com/hupe1980/querymesh/config"
	"github.com/hupe1980/querymesh/dao"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/memory"
	"github.com/hupe1980/querymesh/model"
	"github.com/hupe1980/querymesh/model/anthropic"
	"github.com/hupe1980/querymesh/model/openai"
	"github.com/hupe1980/querymesh/server"
)

var version = "dev"

type cli struct {
	Config string `help:"Path to the configuration file." short:"c" default:"querymesh.yaml" type:"path"`

	Serve    serveCmd    `cmd:"" help:"Run the HTTP server." default:"withargs"`
	Generate generateCmd `cmd:"" help:"Render source artifacts from the data source schema."`
	Validate validateCmd `cmd:"" help:"Validate the configuration file."`
	Version  versionCmd  `cmd:"" help:"Print the version."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("querymesh"),
		kong.Description("Tool-using, data-aware agent service."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&c))
}

type serveCmd struct{}

func (s *serveCmd) Run(c *cli) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	d, err := openDAO(cfg)
	if err != nil {
		return err
	}
	store, err := openMemory(cfg)
	if err != nil {
		return err
	}

	mesh := querymesh.New(func(o *querymesh.Options) {
		o.DispatchTimeout = cfg.Dispatch.Timeout.Std()
		o.MaxParallelTools = cfg.Dispatch.MaxParallel
		o.MemoryStore = store
		o.DAO = d
		o.EntityFilter = cfg.Source.EntityFilter
		o.LookupTools = cfg.Source.LookupTools
		o.Logger = logger
	})

	mdl, err := buildModel(cfg)
	if err != nil {
		return err
	}
	for _, agentCfg := range cfg.Agents {
		if err := mesh.RegisterAgent(agentCfg, mdl); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if d != nil {
		registered, err := mesh.RegisterEntityTools(ctx)
		if err != nil {
			return fmt.Errorf("registering entity tools: %w", err)
		}
		logger.Info("entity tools registered", "count", len(registered))
	}

	srv := server.New(cfg.Addr(), server.Dependencies{
		Router:   mesh.Router(),
		Agents:   mesh.Agents(),
		Tools:    mesh.Tools(),
		Executor: mesh.Executor(),
		DAO:      d,
		Service:  mesh.Service(),
	}, func(o *server.Options) {
		o.Logger = logger
		if len(cfg.Agents) > 0 {
			o.DefaultAgent = cfg.Agents[0].Name
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	return mesh.Shutdown(shutdownCtx)
}

type generateCmd struct {
	Out   string   `help:"Output directory." default:""`
	Kinds []string `help:"Artifact kinds to render (model, controller, tool)." name:"kind"`
}

func (g *generateCmd) Run(c *cli) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	d, err := openDAO(cfg)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("generate requires a configured data source")
	}

	outDir := g.Out
	if outDir == "" {
		outDir = cfg.Codegen.OutDir
	}
	kindNames := g.Kinds
	if len(kindNames) == 0 {
		kindNames = cfg.Codegen.Kinds
	}
	var kinds []codegen.Kind
	for _, k := range kindNames {
		kinds = append(kinds, codegen.Kind(k))
	}

	mesh := querymesh.New(func(o *querymesh.Options) {
		o.DAO = d
		o.Logger = logger
		o.ModulePath = cfg.Codegen.ModulePath
	})
	defer func() { _ = d.Close() }()

	artifacts, err := mesh.GenerateArtifacts(context.Background(), outDir, kinds...)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		fmt.Println(a.Path)
	}
	return nil
}

type validateCmd struct{}

func (v *validateCmd) Run(c *cli) error {
	if _, err := config.Load(c.Config); err != nil {
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}

type versionCmd struct{}

func (v *versionCmd) Run(c *cli) error {
	fmt.Println(version)
	return nil
}

// openDAO opens the configured data source, nil when none is configured.
func openDAO(cfg *config.Config) (dao.DAO, error) {
	if cfg.Source.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open(cfg.Source.Driver, cfg.Source.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening data source: %w", err)
	}
	return dao.NewSQLDAO(db, cfg.Source.Driver, func(o *dao.SQLDAOOptions) {
		if cfg.Source.SourceID != "" {
			o.SourceID = cfg.Source.SourceID
		}
	})
}

// openMemory builds the configured conversation store.
func openMemory(cfg *config.Config) (memory.Store, error) {
	if cfg.Memory.Backend == "in_memory" {
		return memory.NewInMemoryStore(func(o *memory.InMemoryOptions) {
			o.MaxTurns = cfg.Memory.MaxTurns
		}), nil
	}
	db, err := sql.Open(cfg.Memory.Driver, cfg.Memory.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening memory store: %w", err)
	}
	return memory.NewSQLStore(db, cfg.Memory.Driver, func(o *memory.SQLOptions) {
		o.MaxTurns = cfg.Memory.MaxTurns
	})
}

// buildModel constructs the configured reasoning provider.
func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.LLM.Provider {
	case "openai":
		m := openai.NewModel(func(o *openai.Options) {
			if cfg.LLM.Model != "" {
				o.Model = cfg.LLM.Model
			}
			if cfg.LLM.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.LLM.MaxTokens)
			}
		})
		return m, nil
	case "anthropic":
		m := anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.LLM.Model != "" {
				o.Model = anthropicsdk.Model(cfg.LLM.Model)
			}
			if cfg.LLM.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.LLM.MaxTokens)
			}
			o.APIKey = cfg.LLM.APIKey
		})
		return m, nil
	case "stub":
		return model.NewStubModel().Respond(model.Completion{Text: "ok"}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
