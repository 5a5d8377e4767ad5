package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hupe1980/querymesh/agent"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/dao"
	"github.com/hupe1980/querymesh/model"
	"github.com/hupe1980/querymesh/schema"
	"github.com/hupe1980/querymesh/tool"
)

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Agent          string `json:"agent"`
	Message        string `json:"message"`
}

type toolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolResponse struct {
	RequestID  string `json:"request_id"`
	Tool       string `json:"tool"`
	Value      any    `json:"value,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type queryRequest struct {
	Entity  string        `json:"entity"`
	Filters []queryFilter `json:"filters"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

type queryFilter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status": "ok",
		"agents": len(s.deps.Agents.List()),
		"tools":  len(s.deps.Tools.List(nil)),
		"source": s.deps.DAO != nil,
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Agent == "" {
		req.Agent = s.defaultAgent
	}
	if req.Agent == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "agent and message are required"})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = core.NewID()
	}

	result, err := s.deps.Router.DispatchTurn(r.Context(), req.ConversationID, req.Agent, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tool name is required"})
		return
	}

	validated, err := s.deps.Tools.Resolve(core.ToolCall{Name: req.Name, Arguments: req.Arguments})
	if err != nil {
		s.writeError(w, err)
		return
	}

	res := s.deps.Executor.Execute(r.Context(), validated)
	resp := toolResponse{
		RequestID:  res.RequestID,
		Tool:       res.Tool,
		Value:      res.Value,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
		var timeout *tool.TimeoutError
		status := http.StatusInternalServerError
		if errors.As(res.Err, &timeout) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.deps.DAO == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no data source configured"})
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	q := dao.Query{Entity: req.Entity, Limit: req.Limit, Offset: req.Offset}
	for _, f := range req.Filters {
		q.Filters = append(q.Filters, dao.Filter{Field: f.Field, Op: dao.Op(f.Op), Value: f.Value})
	}
	rows, err := s.deps.DAO.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows)})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tools.List(nil))
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Agents.List())
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	if s.deps.Service == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no data source configured"})
		return
	}
	descs, err := s.deps.Service.Entities(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, descs)
}

// writeError maps framework errors onto HTTP statuses. Unrecognized errors
// are a 500 and never leak internals beyond their message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var timeout *tool.TimeoutError

	switch {
	case errors.Is(err, agent.ErrAgentNotFound), errors.Is(err, tool.ErrToolNotFound):
		status = http.StatusNotFound
	case tool.IsValidation(err), isBadRequest(err):
		status = http.StatusBadRequest
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, agent.ErrToolLoopExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrReasoningUnavailable), errors.Is(err, schema.ErrSourceUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("server.request.failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// isBadRequest recognizes query shape errors raised before any backend work.
func isBadRequest(err error) bool {
	var unsupported *schema.UnsupportedTypeError
	if errors.As(err, &unsupported) {
		return true
	}
	return errors.Is(err, dao.ErrInvalidQuery)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
