package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/querymesh/model"
)

// ErrAgentNotFound signals a dispatch against an unregistered agent name.
var ErrAgentNotFound = errors.New("agent not found")

// Agent is a registered configuration bound to its reasoning model.
type Agent struct {
	cfg   Config
	model model.Model
}

// Config returns the agent's configuration.
func (a *Agent) Config() Config { return a.cfg }

// Registry holds the agents addressable by the router. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Register binds a configuration to a model. Re-registering a name replaces
// the previous binding.
func (r *Registry) Register(cfg Config, m model.Model) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("agent %s: model is required", cfg.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[cfg.Name] = &Agent{cfg: cfg, model: m}
	return nil
}

// Resolve returns the agent registered under name.
func (r *Registry) Resolve(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, name)
	}
	return a, nil
}

// List returns every registered configuration sorted by name.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	configs := make([]Config, 0, len(r.agents))
	for _, a := range r.agents {
		configs = append(configs, a.cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}
