package session

import (
	"testing"

	"github.com/nlq-workbench/client/internal/protocol"
)

func newTestRouter() (*Router, *ProgressTracker, *Correlator) {
	correlator := NewCorrelator()
	tracker := NewProgressTracker(correlator.Capture)
	return NewRouter(tracker, correlator), tracker, correlator
}

func TestRouterMalformedFrameIsTolerated(t *testing.T) {
	router, tracker, _ := newTestRouter()

	var protocolErrs []error
	var delivered []*protocol.Envelope
	router.SetOnError(func(err error) { protocolErrs = append(protocolErrs, err) })
	router.SetOnMessage(func(env *protocol.Envelope) { delivered = append(delivered, env) })

	router.Route([]byte(`{not json`))

	if len(protocolErrs) != 1 {
		t.Fatalf("expected 1 protocol error, got %d", len(protocolErrs))
	}
	if len(delivered) != 0 {
		t.Fatalf("malformed frame was delivered to the consumer")
	}
	if tracker.Snapshot() != nil {
		t.Fatal("malformed frame mutated the progress snapshot")
	}
}

func TestRouterMissingDiscriminatorIsProtocolError(t *testing.T) {
	router, _, _ := newTestRouter()

	var protocolErrs []error
	router.SetOnError(func(err error) { protocolErrs = append(protocolErrs, err) })

	router.Route([]byte(`{"data":{}}`))

	if len(protocolErrs) != 1 {
		t.Fatalf("expected 1 protocol error, got %d", len(protocolErrs))
	}
}

func TestRouterUnrecognizedKindIsIgnored(t *testing.T) {
	router, tracker, _ := newTestRouter()

	var protocolErrs []error
	var delivered []*protocol.Envelope
	router.SetOnError(func(err error) { protocolErrs = append(protocolErrs, err) })
	router.SetOnMessage(func(env *protocol.Envelope) { delivered = append(delivered, env) })

	router.Route([]byte(`{"type":"telemetry","data":{"cpu":0.2}}`))

	if len(protocolErrs) != 0 {
		t.Fatalf("unrecognized kind reported as error: %v", protocolErrs)
	}
	if len(delivered) != 0 {
		t.Fatal("unrecognized kind was delivered to the consumer")
	}
	if tracker.Snapshot() != nil {
		t.Fatal("unrecognized kind mutated the progress snapshot")
	}
}

func TestRouterProgressDispatch(t *testing.T) {
	router, tracker, correlator := newTestRouter()

	router.Route([]byte(`{"type":"progress","data":{"stage":"started","message":"Analyzing","progress":0,"conversation_id":"abc123"}}`))

	snapshot := tracker.Snapshot()
	if snapshot == nil {
		t.Fatal("expected a live snapshot after started")
	}
	if snapshot.Stage != protocol.StageStarted {
		t.Fatalf("expected stage started, got %q", snapshot.Stage)
	}
	if correlator.Active() != "abc123" {
		t.Fatalf("expected conversation abc123, got %q", correlator.Active())
	}
}

func TestRouterMalformedProgressPayload(t *testing.T) {
	router, tracker, _ := newTestRouter()

	var protocolErrs []error
	router.SetOnError(func(err error) { protocolErrs = append(protocolErrs, err) })

	router.Route([]byte(`{"type":"progress","data":"nope"}`))

	if len(protocolErrs) != 1 {
		t.Fatalf("expected 1 protocol error, got %d", len(protocolErrs))
	}
	if tracker.Snapshot() != nil {
		t.Fatal("malformed payload mutated the progress snapshot")
	}
}

func TestRouterTerminalKindsClearSnapshot(t *testing.T) {
	terminalFrames := map[string]string{
		"result":        `{"type":"result","data":{"result":{"generated_query":"SELECT 1","turn_id":"t1"}}}`,
		"clarification": `{"type":"clarification","data":{"questions":["which table?"]}}`,
		"error":         `{"type":"error","data":{"message":"boom"}}`,
	}

	for name, frame := range terminalFrames {
		t.Run(name, func(t *testing.T) {
			router, tracker, _ := newTestRouter()

			router.Route([]byte(`{"type":"progress","data":{"stage":"started","message":"m","progress":0,"conversation_id":"c1"}}`))
			if tracker.Snapshot() == nil {
				t.Fatal("expected live snapshot before terminal frame")
			}

			router.Route([]byte(frame))
			if tracker.Snapshot() != nil {
				t.Fatalf("%s frame did not clear the snapshot", name)
			}
		})
	}
}

func TestRouterDeliversRecognizedMessagesInOrder(t *testing.T) {
	router, _, _ := newTestRouter()

	var kinds []protocol.MessageKind
	router.SetOnMessage(func(env *protocol.Envelope) { kinds = append(kinds, env.Type) })

	frames := []string{
		`{"type":"progress","data":{"stage":"started","message":"m","progress":0,"conversation_id":"c1"}}`,
		`{"type":"unknown_kind","data":{}}`,
		`{"type":"progress","data":{"stage":"query_generation","message":"m","progress":0.5}}`,
		`{"type":"result","data":{"result":{"generated_query":"SELECT 1","turn_id":"t1"}}}`,
	}
	for _, frame := range frames {
		router.Route([]byte(frame))
	}

	want := []protocol.MessageKind{protocol.KindProgress, protocol.KindProgress, protocol.KindResult}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(kinds))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("delivery %d: expected %q, got %q", i, want[i], kinds[i])
		}
	}
}
