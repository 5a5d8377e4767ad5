package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/dispatch"
	"github.com/hupe1980/querymesh/internal/util"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/memory"
	"github.com/hupe1980/querymesh/model"
	"github.com/hupe1980/querymesh/tool"
)

// ErrToolLoopExceeded signals a turn that hit its reasoning round bound
// without producing a final response.
var ErrToolLoopExceeded = errors.New("tool loop bound exceeded")

// Router drives conversation turns: it resolves the addressed agent, loops
// reasoning rounds against its model, fans requested tool calls out through
// the dispatch executor, and commits every turn to the memory store.
type Router struct {
	agents   *Registry
	tools    *tool.Registry
	executor *dispatch.Executor
	store    memory.Store
	logger   logging.Logger
}

// RouterOptions configures a Router.
type RouterOptions struct {
	// Logger receives per-round records. Defaults to no logging.
	Logger logging.Logger
}

// NewRouter wires a router over its collaborators.
func NewRouter(agents *Registry, tools *tool.Registry, executor *dispatch.Executor, store memory.Store, optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{agents: agents, tools: tools, executor: executor, store: store, logger: opts.Logger}
}

// DispatchTurn runs one full conversation turn for the named agent.
//
// The user message is committed to memory before the first reasoning round.
// Each round offers the agent's allowed tools to the model; requested calls
// are validated, executed in request order and folded back into the history
// as tool turns before the next round. A round that yields text ends the
// turn. A turn that exhausts its round bound fails with ErrToolLoopExceeded;
// a model failure surfaces as model.ErrReasoningUnavailable with no
// assistant turn committed for that round.
func (r *Router) DispatchTurn(ctx context.Context, conversationID, agentName, message string) (*core.TurnResult, error) {
	a, err := r.agents.Resolve(agentName)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg

	prompt, err := util.RenderPrompt(cfg.SystemPrompt, cfg.PromptVars)
	if err != nil {
		return nil, fmt.Errorf("agent %s: rendering system prompt: %w", cfg.Name, err)
	}

	userTurn := core.NewUserTurn(message)
	if err := r.store.Append(ctx, conversationID, userTurn); err != nil {
		return nil, fmt.Errorf("agent %s: committing user turn: %w", cfg.Name, err)
	}

	history, err := r.store.History(ctx, conversationID, cfg.contextWindow())
	if err != nil {
		return nil, fmt.Errorf("agent %s: loading history: %w", cfg.Name, err)
	}

	definitions := toolDefinitions(r.tools.List(cfg.AllowedTools))
	usage := &core.TokenUsage{}
	var executed []core.ToolCall

	for round := 1; round <= cfg.maxRounds(); round++ {
		completion, err := a.model.Complete(ctx, model.Request{
			ModelID:      cfg.Model,
			Temperature:  cfg.Temperature,
			SystemPrompt: prompt,
			History:      history,
			Tools:        definitions,
		})
		if err != nil {
			if errors.Is(err, model.ErrReasoningUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", model.ErrReasoningUnavailable, err)
		}
		usage.Add(completion.Usage)

		if len(completion.ToolCalls) == 0 {
			assistant := core.NewAssistantTurn(completion.Text)
			if err := r.store.Append(ctx, conversationID, assistant); err != nil {
				return nil, fmt.Errorf("agent %s: committing response: %w", cfg.Name, err)
			}
			r.logger.Info("agent.turn.completed",
				"agent", cfg.Name,
				"conversation_id", conversationID,
				"rounds", round,
				"tool_calls", len(executed),
			)
			return &core.TurnResult{
				ConversationID: conversationID,
				AgentName:      cfg.Name,
				Response:       completion.Text,
				ToolCalls:      executed,
				Rounds:         round,
				Usage:          usage,
			}, nil
		}

		assistant := core.NewAssistantTurn(completion.Text, completion.ToolCalls...)
		toolTurns := r.runToolCalls(ctx, cfg, completion.ToolCalls)
		executed = append(executed, completion.ToolCalls...)

		turns := append([]core.Turn{assistant}, toolTurns...)
		if err := r.store.Append(ctx, conversationID, turns...); err != nil {
			return nil, fmt.Errorf("agent %s: committing tool round: %w", cfg.Name, err)
		}
		history = append(history, turns...)
	}

	return nil, fmt.Errorf("%w: agent %s gave no final response within %d rounds",
		ErrToolLoopExceeded, cfg.Name, cfg.maxRounds())
}

// runToolCalls validates and executes the requested calls, returning one
// tool turn per call in request order. Allowlist rejections and validation
// failures become error turns so the model sees what went wrong instead of
// the turn aborting.
func (r *Router) runToolCalls(ctx context.Context, cfg Config, calls []core.ToolCall) []core.Turn {
	n := len(calls)
	errs := make([]error, n)
	values := make([]any, n)

	var batch []*tool.ValidatedCall
	var batchIdx []int
	for i, call := range calls {
		if !cfg.allowsTool(call.Name) {
			err := fmt.Errorf("tool %q is not in agent %s's allowed set", call.Name, cfg.Name)
			r.logger.Warn("agent.tool.rejected", "agent", cfg.Name, "tool", call.Name, "error", err)
			errs[i] = err
			continue
		}
		validated, err := r.tools.Resolve(call)
		if err != nil {
			r.logger.Warn("agent.tool.rejected", "agent", cfg.Name, "tool", call.Name, "error", err)
			errs[i] = err
			continue
		}
		batch = append(batch, validated)
		batchIdx = append(batchIdx, i)
	}

	for j, res := range r.executor.ExecuteBatch(ctx, batch) {
		errs[batchIdx[j]] = res.Err
		values[batchIdx[j]] = res.Value
	}

	turns := make([]core.Turn, n)
	for i, call := range calls {
		payload := map[string]any{"result": values[i]}
		if errs[i] != nil {
			payload = map[string]any{"error": errs[i].Error()}
		}
		turns[i] = core.NewToolTurn(call, encodeToolPayload(payload))
	}
	return turns
}

func encodeToolPayload(payload map[string]any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":"encoding tool result: %v"}`, err)
	}
	return string(raw)
}

// toolDefinitions converts registry descriptors to the model-facing form.
func toolDefinitions(descriptors []tool.Descriptor) []model.ToolDefinition {
	if len(descriptors) == 0 {
		return nil
	}
	definitions := make([]model.ToolDefinition, len(descriptors))
	for i, d := range descriptors {
		definitions[i] = model.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema(),
		}
	}
	return definitions
}
