// Package protocol defines the wire contract for query sessions: the
// outbound request frame and the tagged-union inbound frames delivered
// by the query-generation backend over a WebSocket connection.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageKind discriminates inbound frames.
type MessageKind string

const (
	// Server -> Client message kinds
	KindProgress      MessageKind = "progress"
	KindResult        MessageKind = "result"
	KindClarification MessageKind = "clarification"
	KindError         MessageKind = "error"
)

// IsTerminal reports whether a frame of this kind ends the current turn.
func (k MessageKind) IsTerminal() bool {
	switch k {
	case KindResult, KindClarification, KindError:
		return true
	}
	return false
}

// Stage names reported on progress frames. The backend may introduce new
// stages at any time; only StageStarted carries protocol meaning for the
// client (it opens a turn and carries the conversation id).
const (
	StageStarted         = "started"
	StageSchemaRetrieval = "schema_retrieval"
	StageQueryGeneration = "query_generation"
	StageValidation      = "validation"
)

// Envelope is the raw inbound frame: a kind discriminator plus an
// undecoded payload. The payload is decoded per kind by the caller.
type Envelope struct {
	Type MessageKind     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ProgressPayload reports a named backend processing stage.
// ConversationID is present only when Stage is StageStarted.
// Progress is passed through as received; displayed range is [0,1].
type ProgressPayload struct {
	Stage          string  `json:"stage"`
	Message        string  `json:"message"`
	Progress       float64 `json:"progress"`
	ConversationID string  `json:"conversation_id,omitempty"`
}

// QueryResult is the outcome of a completed turn.
type QueryResult struct {
	GeneratedQuery   string          `json:"generated_query"`
	ConfidenceScore  float64         `json:"confidence_score"`
	ValidationStatus string          `json:"validation_status"`
	ExecutionResult  json.RawMessage `json:"execution_result,omitempty"`
	ReasoningTrace   json.RawMessage `json:"reasoning_trace,omitempty"`
	Iterations       int             `json:"iterations"`
	TurnID           string          `json:"turn_id"`
}

// ResultPayload wraps the turn result.
type ResultPayload struct {
	Result QueryResult `json:"result"`
}

// ClarificationPayload carries follow-up questions the backend needs
// answered before it can generate a query.
type ClarificationPayload struct {
	Questions []string `json:"questions"`
}

// ErrorPayload reports a backend-side turn failure.
type ErrorPayload struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Options is an opaque passthrough of pipeline tuning knobs; the client
// does not interpret any of these fields.
type Options struct {
	TraceLevel          string  `json:"trace_level"`
	EnableExecution     bool    `json:"enable_execution"`
	MaxIterations       int     `json:"max_iterations"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// QueryRequest is the outbound frame. An empty ConversationID means a new
// conversation; the field is omitted from the wire form in that case and
// the backend treats absence and null identically.
type QueryRequest struct {
	ProviderID     string  `json:"provider_id"`
	Query          string  `json:"query"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Options        Options `json:"options"`
}

// Validate checks the request fields the client itself depends on.
func (r *QueryRequest) Validate() error {
	if r.ProviderID == "" {
		return fmt.Errorf("provider_id is required")
	}
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

// DecodeEnvelope parses a raw frame into an Envelope. A decode failure
// here is a protocol-level diagnostic, never fatal to the session.
func DecodeEnvelope(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("frame missing type discriminator")
	}
	return &env, nil
}

// DecodeProgress parses the payload of a progress frame.
func DecodeProgress(data json.RawMessage) (*ProgressPayload, error) {
	var p ProgressPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode progress payload: %w", err)
	}
	return &p, nil
}

// DecodeResult parses the payload of a result frame.
func DecodeResult(data json.RawMessage) (*ResultPayload, error) {
	var p ResultPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode result payload: %w", err)
	}
	return &p, nil
}

// DecodeClarification parses the payload of a clarification frame.
func DecodeClarification(data json.RawMessage) (*ClarificationPayload, error) {
	var p ClarificationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode clarification payload: %w", err)
	}
	return &p, nil
}

// DecodeError parses the payload of an error frame.
func DecodeError(data json.RawMessage) (*ErrorPayload, error) {
	var p ErrorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode error payload: %w", err)
	}
	return &p, nil
}
