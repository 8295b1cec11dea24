package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nlq-workbench/client/internal/model"
	"github.com/nlq-workbench/client/internal/protocol"
)

// Config holds configuration for a query session.
type Config struct {
	// URL is the session endpoint, e.g. ws://host/ws/query.
	URL string

	// Dialer opens transport connections. Nil selects the default
	// gorilla-backed dialer; tests inject a fake.
	Dialer Dialer

	// ReconnectDelay is the fixed delay between reconnect attempts.
	// Zero selects the 3 second default.
	ReconnectDelay time.Duration

	// MaxReconnects bounds consecutive reconnect attempts. Zero selects
	// the default of 5.
	MaxReconnects int
}

// QuerySession is the consumer-facing facade over the connection manager,
// router, progress tracker, and correlator. All session state is owned
// here and mutated only through the documented operations; consumers
// receive read-only projections.
type QuerySession struct {
	conn       *ConnectionManager
	router     *Router
	tracker    *ProgressTracker
	correlator *Correlator
}

// New creates a query session for the given endpoint. The session is
// created disconnected; call Connect to open the transport.
func New(cfg Config) *QuerySession {
	correlator := NewCorrelator()
	tracker := NewProgressTracker(correlator.Capture)
	router := NewRouter(tracker, correlator)
	conn := NewConnectionManager(cfg.URL, cfg.Dialer, cfg.ReconnectDelay, cfg.MaxReconnects)
	conn.SetOnFrame(router.Route)

	return &QuerySession{
		conn:       conn,
		router:     router,
		tracker:    tracker,
		correlator: correlator,
	}
}

// SetOnMessage sets the consumer callback, invoked exactly once per
// decoded inbound message so the consumer can render results,
// clarifications, and errors.
func (s *QuerySession) SetOnMessage(callback func(*protocol.Envelope)) {
	s.router.SetOnMessage(callback)
}

// SetOnError sets the callback for transport and protocol diagnostics.
// These are reported, not thrown: the consumer is expected to observe
// connection state continuously rather than catch errors.
func (s *QuerySession) SetOnError(callback func(error)) {
	s.router.SetOnError(callback)
	s.conn.SetOnError(callback)
}

// SetOnStateChange sets the callback invoked on every connection state
// transition.
func (s *QuerySession) SetOnStateChange(callback func(ConnState)) {
	s.conn.SetOnStateChange(callback)
}

// Connect opens the session transport. A no-op while already connecting
// or connected.
func (s *QuerySession) Connect() {
	s.conn.Connect()
}

// Disconnect cancels any pending reconnect and closes the transport with
// the normal close code. A no-op while already disconnected. Disconnect
// is the session's only cancellation primitive: an in-flight turn cannot
// be aborted client-side short of disconnecting entirely.
func (s *QuerySession) Disconnect() {
	s.conn.Disconnect()
}

// SendQuery serializes and transmits a query request. The precondition
// is a connected session; otherwise it fails with ErrNotConnected and no
// transport write is attempted. It does not wait for the response: the
// backend answers asynchronously through the inbound message stream.
//
// A request without an explicit conversation id inherits the session's
// active one; a request carrying a different id adopts it as active.
func (s *QuerySession) SendQuery(req protocol.QueryRequest) error {
	if s.conn.State() != StateConnected {
		return model.ErrNotConnected
	}

	if req.ConversationID == "" {
		req.ConversationID = s.correlator.Active()
	} else {
		s.correlator.Adopt(req.ConversationID)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to serialize query request: %w", err)
	}

	return s.conn.Send(data)
}

// NewConversation resets the active conversation id and clears any live
// progress snapshot. Persisted history is not touched.
func (s *QuerySession) NewConversation() {
	s.correlator.Reset()
	s.tracker.Clear()
}

// State returns the current connection state.
func (s *QuerySession) State() ConnState {
	return s.conn.State()
}

// Progress returns the live progress snapshot, or nil when no turn is in
// flight.
func (s *QuerySession) Progress() *ProgressSnapshot {
	return s.tracker.Snapshot()
}

// ConversationID returns the active conversation id, or "" when the next
// query starts a new conversation.
func (s *QuerySession) ConversationID() string {
	return s.correlator.Active()
}
