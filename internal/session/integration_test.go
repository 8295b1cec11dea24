package session_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nlq-workbench/client/api/handlers"
	"github.com/nlq-workbench/client/internal/protocol"
	"github.com/nlq-workbench/client/internal/session"
	"github.com/nlq-workbench/client/internal/sim"
)

const integrationTimeout = 5 * time.Second

func startBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := handlers.NewRouter(sim.NewServer(sim.NewEngine(0)))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/query"
}

func connect(t *testing.T, url string) (*session.QuerySession, chan *protocol.Envelope) {
	t.Helper()
	sess := session.New(session.Config{URL: url})
	messages := make(chan *protocol.Envelope, 32)
	sess.SetOnMessage(func(env *protocol.Envelope) { messages <- env })

	connected := make(chan struct{}, 1)
	sess.SetOnStateChange(func(state session.ConnState) {
		if state == session.StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	sess.Connect()
	t.Cleanup(sess.Disconnect)

	select {
	case <-connected:
	case <-time.After(integrationTimeout):
		t.Fatal("never connected to backend")
	}
	return sess, messages
}

func collectTurn(t *testing.T, messages chan *protocol.Envelope) []*protocol.Envelope {
	t.Helper()
	var turn []*protocol.Envelope
	for {
		select {
		case env := <-messages:
			turn = append(turn, env)
			if env.Type.IsTerminal() {
				return turn
			}
		case <-time.After(integrationTimeout):
			t.Fatalf("turn never terminated; got %d frames", len(turn))
		}
	}
}

func TestFullQueryTurnAgainstBackend(t *testing.T) {
	url := startBackend(t)
	sess, messages := connect(t, url)

	err := sess.SendQuery(protocol.QueryRequest{
		ProviderID: "sql-postgres",
		Query:      "show all customers from berlin",
		Options: protocol.Options{
			TraceLevel:          "summary",
			MaxIterations:       3,
			ConfidenceThreshold: 0.7,
		},
	})
	if err != nil {
		t.Fatalf("SendQuery failed: %v", err)
	}

	turn := collectTurn(t, messages)
	if turn[len(turn)-1].Type != protocol.KindResult {
		t.Fatalf("expected result terminal, got %q", turn[len(turn)-1].Type)
	}
	for _, env := range turn[:len(turn)-1] {
		if env.Type != protocol.KindProgress {
			t.Fatalf("non-progress frame before terminal: %q", env.Type)
		}
	}

	result, err := protocol.DecodeResult(turn[len(turn)-1].Data)
	if err != nil {
		t.Fatalf("DecodeResult failed: %v", err)
	}
	if result.Result.GeneratedQuery == "" {
		t.Fatal("result carried no generated query")
	}

	if sess.ConversationID() == "" {
		t.Fatal("no conversation id captured from the started frame")
	}
	if sess.Progress() != nil {
		t.Fatalf("snapshot survived the terminal frame: %+v", sess.Progress())
	}
}

func TestFollowUpSharesConversation(t *testing.T) {
	url := startBackend(t)
	sess, messages := connect(t, url)

	if err := sess.SendQuery(protocol.QueryRequest{ProviderID: "sql-postgres", Query: "show all customers"}); err != nil {
		t.Fatalf("SendQuery failed: %v", err)
	}
	collectTurn(t, messages)
	first := sess.ConversationID()
	if first == "" {
		t.Fatal("no conversation id after first turn")
	}

	if err := sess.SendQuery(protocol.QueryRequest{ProviderID: "sql-postgres", Query: "show their recent orders"}); err != nil {
		t.Fatalf("follow-up SendQuery failed: %v", err)
	}
	collectTurn(t, messages)
	if sess.ConversationID() != first {
		t.Fatalf("follow-up moved conversations: %q then %q", first, sess.ConversationID())
	}
}

func TestUnknownProviderYieldsErrorFrame(t *testing.T) {
	url := startBackend(t)
	sess, messages := connect(t, url)

	if err := sess.SendQuery(protocol.QueryRequest{ProviderID: "no-such-provider", Query: "show all customers"}); err != nil {
		t.Fatalf("SendQuery failed: %v", err)
	}
	turn := collectTurn(t, messages)
	last := turn[len(turn)-1]
	if last.Type != protocol.KindError {
		t.Fatalf("expected error terminal, got %q", last.Type)
	}
	payload, err := protocol.DecodeError(last.Data)
	if err != nil {
		t.Fatalf("DecodeError failed: %v", err)
	}
	if payload.Message == "" {
		t.Fatal("error frame carried no message")
	}
}

func TestAmbiguousQueryYieldsClarification(t *testing.T) {
	url := startBackend(t)
	sess, messages := connect(t, url)

	if err := sess.SendQuery(protocol.QueryRequest{ProviderID: "sql-postgres", Query: "show"}); err != nil {
		t.Fatalf("SendQuery failed: %v", err)
	}
	turn := collectTurn(t, messages)
	last := turn[len(turn)-1]
	if last.Type != protocol.KindClarification {
		t.Fatalf("expected clarification terminal, got %q", last.Type)
	}
	payload, err := protocol.DecodeClarification(last.Data)
	if err != nil {
		t.Fatalf("DecodeClarification failed: %v", err)
	}
	if len(payload.Questions) == 0 {
		t.Fatal("clarification carried no questions")
	}
}
