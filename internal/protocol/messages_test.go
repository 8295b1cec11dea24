package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"progress","data":{"stage":"started","message":"m","progress":0}}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if env.Type != KindProgress {
		t.Fatalf("expected progress, got %q", env.Type)
	}
	payload, err := DecodeProgress(env.Data)
	if err != nil {
		t.Fatalf("DecodeProgress failed: %v", err)
	}
	if payload.Stage != StageStarted {
		t.Fatalf("expected started stage, got %q", payload.Stage)
	}
}

func TestDecodeEnvelopeRejectsMalformedFrame(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`not json at all`)); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestDecodeEnvelopeRejectsMissingType(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"data":{"stage":"started"}}`)); err == nil {
		t.Fatal("expected error for missing type discriminator")
	}
}

func TestDecodeProgressRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeProgress(json.RawMessage(`{"stage":42}`)); err == nil {
		t.Fatal("expected error for malformed progress payload")
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		kind     MessageKind
		terminal bool
	}{
		{KindProgress, false},
		{KindResult, true},
		{KindClarification, true},
		{KindError, true},
		{MessageKind("heartbeat"), false},
	}
	for _, tc := range cases {
		if got := tc.kind.IsTerminal(); got != tc.terminal {
			t.Errorf("IsTerminal(%q) = %v, want %v", tc.kind, got, tc.terminal)
		}
	}
}

func TestQueryRequestOmitsEmptyConversationID(t *testing.T) {
	data, err := json.Marshal(QueryRequest{ProviderID: "sql-postgres", Query: "show customers"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "conversation_id") {
		t.Fatalf("empty conversation id leaked onto the wire: %s", data)
	}

	data, err = json.Marshal(QueryRequest{ProviderID: "sql-postgres", Query: "show customers", ConversationID: "c1"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"conversation_id":"c1"`) {
		t.Fatalf("explicit conversation id missing from wire form: %s", data)
	}
}

func TestQueryRequestValidate(t *testing.T) {
	valid := QueryRequest{ProviderID: "sql-postgres", Query: "show customers"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	missingProvider := QueryRequest{Query: "show customers"}
	if err := missingProvider.Validate(); err == nil {
		t.Fatal("missing provider_id accepted")
	}
	missingQuery := QueryRequest{ProviderID: "sql-postgres"}
	if err := missingQuery.Validate(); err == nil {
		t.Fatal("missing query accepted")
	}
}
