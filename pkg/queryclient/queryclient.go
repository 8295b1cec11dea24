// Package queryclient exposes the realtime query session client for
// external consumers.
package queryclient

import (
	"github.com/nlq-workbench/client/internal/model"
	"github.com/nlq-workbench/client/internal/protocol"
	"github.com/nlq-workbench/client/internal/session"
)

// Re-export types from internal packages for external use
type (
	QuerySession     = session.QuerySession
	Config           = session.Config
	ConnState        = session.ConnState
	ProgressSnapshot = session.ProgressSnapshot
	Dialer           = session.Dialer
	Conn             = session.Conn

	Envelope             = protocol.Envelope
	MessageKind          = protocol.MessageKind
	QueryRequest         = protocol.QueryRequest
	QueryResult          = protocol.QueryResult
	Options              = protocol.Options
	ProgressPayload      = protocol.ProgressPayload
	ResultPayload        = protocol.ResultPayload
	ClarificationPayload = protocol.ClarificationPayload
	ErrorPayload         = protocol.ErrorPayload
)

// Connection states.
const (
	StateDisconnected = session.StateDisconnected
	StateConnecting   = session.StateConnecting
	StateConnected    = session.StateConnected
	StateError        = session.StateError
)

// Message kinds.
const (
	KindProgress      = protocol.KindProgress
	KindResult        = protocol.KindResult
	KindClarification = protocol.KindClarification
	KindError         = protocol.KindError
)

// Sentinel errors.
var (
	ErrNotConnected       = model.ErrNotConnected
	ErrReconnectExhausted = model.ErrReconnectExhausted
)

// New creates a query session. The session is created disconnected;
// call Connect to open the transport.
func New(cfg Config) *QuerySession {
	return session.New(cfg)
}
