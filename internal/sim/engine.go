// Package sim implements a protocol peer for query sessions: a canned
// multi-stage pipeline that speaks the /ws/query wire contract. It is
// used by integration tests and as a standalone development server; it
// performs no real reasoning.
package sim

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nlq-workbench/client/internal/model"
	"github.com/nlq-workbench/client/internal/protocol"
)

// Provider describes a query target the simulator accepts.
type Provider struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Dialect string `json:"dialect"`
}

var defaultProviders = []Provider{
	{ID: "sql-postgres", Name: "PostgreSQL", Dialect: "postgresql"},
	{ID: "sql-mysql", Name: "MySQL", Dialect: "mysql"},
	{ID: "sql-sqlite", Name: "SQLite", Dialect: "sqlite"},
}

// Engine replays a fixed stage script per request: started, schema
// retrieval, query generation, validation, then exactly one terminal
// frame (result, clarification, or error).
type Engine struct {
	providers  map[string]Provider
	stageDelay time.Duration
}

// NewEngine creates an engine with the default providers. stageDelay is
// the pause between emitted stages; tests pass zero.
func NewEngine(stageDelay time.Duration) *Engine {
	providers := make(map[string]Provider, len(defaultProviders))
	for _, p := range defaultProviders {
		providers[p.ID] = p
	}
	return &Engine{
		providers:  providers,
		stageDelay: stageDelay,
	}
}

// Providers returns the providers the engine accepts, in a stable order.
func (e *Engine) Providers() []Provider {
	out := make([]Provider, len(defaultProviders))
	copy(out, defaultProviders)
	return out
}

// Run executes the pipeline for one request, emitting each frame through
// emit in order. An emit error aborts the run (the peer went away).
func (e *Engine) Run(req *protocol.QueryRequest, emit func(*protocol.Envelope) error) error {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if err := emit(envelope(protocol.KindProgress, protocol.ProgressPayload{
		Stage:          protocol.StageStarted,
		Message:        "Analyzing request",
		Progress:       0,
		ConversationID: conversationID,
	})); err != nil {
		return err
	}

	if _, ok := e.providers[req.ProviderID]; !ok {
		return emit(envelope(protocol.KindError, protocol.ErrorPayload{
			Message: fmt.Sprintf("%s: %s", model.ErrUnknownProvider, req.ProviderID),
			Details: map[string]any{"provider_id": req.ProviderID},
		}))
	}

	e.pause()
	if err := emit(envelope(protocol.KindProgress, protocol.ProgressPayload{
		Stage:    protocol.StageSchemaRetrieval,
		Message:  "Retrieving relevant schema",
		Progress: 0.25,
	})); err != nil {
		return err
	}

	if questions := clarify(req.Query); len(questions) > 0 {
		e.pause()
		return emit(envelope(protocol.KindClarification, protocol.ClarificationPayload{
			Questions: questions,
		}))
	}

	e.pause()
	if err := emit(envelope(protocol.KindProgress, protocol.ProgressPayload{
		Stage:    protocol.StageQueryGeneration,
		Message:  "Generating query",
		Progress: 0.5,
	})); err != nil {
		return err
	}

	e.pause()
	if err := emit(envelope(protocol.KindProgress, protocol.ProgressPayload{
		Stage:    protocol.StageValidation,
		Message:  "Validating generated query",
		Progress: 0.75,
	})); err != nil {
		return err
	}

	e.pause()
	return emit(envelope(protocol.KindResult, protocol.ResultPayload{
		Result: e.buildResult(req),
	}))
}

// buildResult derives a deterministic result from the request text.
func (e *Engine) buildResult(req *protocol.QueryRequest) protocol.QueryResult {
	table := subjectOf(req.Query)
	generated := fmt.Sprintf("SELECT * FROM %s LIMIT 100", table)

	trace, _ := json.Marshal([]map[string]any{
		{"stage": protocol.StageSchemaRetrieval, "detail": fmt.Sprintf("matched table %q", table)},
		{"stage": protocol.StageQueryGeneration, "detail": "generated candidate query"},
		{"stage": protocol.StageValidation, "detail": "candidate passed validation"},
	})

	result := protocol.QueryResult{
		GeneratedQuery:   generated,
		ConfidenceScore:  confidence(req.Query),
		ValidationStatus: "valid",
		ReasoningTrace:   trace,
		Iterations:       1,
		TurnID:           uuid.New().String(),
	}

	if req.Options.EnableExecution {
		execution, _ := json.Marshal(map[string]any{"rows": []any{}, "row_count": 0})
		result.ExecutionResult = execution
	}

	return result
}

func (e *Engine) pause() {
	if e.stageDelay > 0 {
		time.Sleep(e.stageDelay)
	}
}

// clarify returns follow-up questions for requests too vague to answer,
// or nil when the pipeline can proceed.
func clarify(query string) []string {
	if len(strings.Fields(query)) >= 2 {
		return nil
	}
	return []string{
		"Which table or entity should the query read from?",
		"What columns or fields do you want returned?",
	}
}

// subjectOf extracts the last word of the request as the table subject.
func subjectOf(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "records"
	}
	subject := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,;:!?'\""))
	if subject == "" {
		return "records"
	}
	return subject
}

// confidence derives a stable pseudo-confidence in [0.75, 0.95) from the
// request text.
func confidence(query string) float64 {
	return 0.75 + float64(len(query)%20)/100
}

// envelope wraps a payload into a wire envelope of the given kind.
func envelope(kind protocol.MessageKind, payload any) *protocol.Envelope {
	data, _ := json.Marshal(payload)
	return &protocol.Envelope{Type: kind, Data: data}
}
