package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nlq-workbench/client/internal/model"
)

// ConnState represents the connection state of a query session.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateError        ConnState = "error"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Delay between reconnect attempts after an abnormal close.
	defaultReconnectDelay = 3 * time.Second

	// Maximum consecutive reconnect attempts before giving up.
	defaultMaxReconnects = 5
)

// Conn is the minimal transport surface the connection manager needs.
// *websocket.Conn satisfies it; tests substitute a scripted fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a transport connection to the session endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the default gorilla-backed dialer.
type wsDialer struct {
	dialer *websocket.Dialer
}

func (d *wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, nil
}

// NewWebSocketDialer returns the default production dialer.
func NewWebSocketDialer() Dialer {
	return &wsDialer{dialer: &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}}
}

// ConnectionManager owns the transport lifecycle for one session: it
// opens the connection, reads frames, and applies the bounded reconnect
// policy on abnormal closes. At most one live transport exists at a time;
// reconnects are scheduled only from the close path, never proactively.
type ConnectionManager struct {
	url            string
	dialer         Dialer
	reconnectDelay time.Duration
	maxReconnects  int

	mu             sync.Mutex
	state          ConnState
	conn           Conn
	gen            int // connection generation; guards stale read loops
	attempts       int
	reconnectTimer *time.Timer
	localClose     bool // disconnect intent for the current connection

	hmu     sync.RWMutex
	onState func(ConnState)
	onFrame func([]byte)
	onError func(error)
}

// NewConnectionManager creates a connection manager for the given endpoint.
// Zero-value config fields fall back to the protocol defaults.
func NewConnectionManager(url string, dialer Dialer, reconnectDelay time.Duration, maxReconnects int) *ConnectionManager {
	if dialer == nil {
		dialer = NewWebSocketDialer()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	if maxReconnects <= 0 {
		maxReconnects = defaultMaxReconnects
	}
	return &ConnectionManager{
		url:            url,
		dialer:         dialer,
		reconnectDelay: reconnectDelay,
		maxReconnects:  maxReconnects,
		state:          StateDisconnected,
	}
}

// SetOnStateChange sets the callback invoked on every state transition.
func (cm *ConnectionManager) SetOnStateChange(callback func(ConnState)) {
	cm.hmu.Lock()
	defer cm.hmu.Unlock()
	cm.onState = callback
}

// SetOnFrame sets the callback invoked with every raw inbound frame,
// in transport delivery order.
func (cm *ConnectionManager) SetOnFrame(callback func([]byte)) {
	cm.hmu.Lock()
	defer cm.hmu.Unlock()
	cm.onFrame = callback
}

// SetOnError sets the callback for transport-level failures.
func (cm *ConnectionManager) SetOnError(callback func(error)) {
	cm.hmu.Lock()
	defer cm.hmu.Unlock()
	cm.onError = callback
}

// State returns the current connection state.
func (cm *ConnectionManager) State() ConnState {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// Attempts returns the current reconnect attempt count. It is 0 after
// any successful open.
func (cm *ConnectionManager) Attempts() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.attempts
}

// Connect opens the transport. Calling Connect while already connecting
// or connected is a no-op. An explicit Connect supersedes any pending
// reconnect and resets the attempt counter.
func (cm *ConnectionManager) Connect() {
	cm.mu.Lock()
	if cm.state == StateConnecting || cm.state == StateConnected {
		cm.mu.Unlock()
		return
	}
	cm.stopReconnectTimerLocked()
	cm.attempts = 0
	cm.state = StateConnecting
	cm.gen++
	gen := cm.gen
	cm.mu.Unlock()

	cm.notifyState(StateConnecting)
	go cm.dial(gen)
}

// Disconnect cancels any pending reconnect, closes the transport with
// the normal close code, and sets the state to disconnected. The timer
// is stopped before the socket is touched so a scheduled reconnect can
// never fire after the disconnect intent has been recorded. Calling
// Disconnect while already disconnected is a no-op.
func (cm *ConnectionManager) Disconnect() {
	cm.mu.Lock()
	cm.stopReconnectTimerLocked()

	if cm.state == StateDisconnected && cm.conn == nil {
		cm.mu.Unlock()
		return
	}

	conn := cm.conn
	cm.conn = nil
	cm.localClose = true
	cm.gen++ // invalidate the running read loop's close handling
	cm.attempts = 0
	cm.state = StateDisconnected
	cm.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}

	cm.notifyState(StateDisconnected)
}

// Send writes a frame to the transport. It fails with ErrNotConnected
// when the session is not connected, without touching the transport.
func (cm *ConnectionManager) Send(data []byte) error {
	cm.mu.Lock()
	if cm.state != StateConnected || cm.conn == nil {
		cm.mu.Unlock()
		return model.ErrNotConnected
	}
	conn := cm.conn
	cm.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// dial performs one connection attempt for the given generation.
func (cm *ConnectionManager) dial(gen int) {
	conn, err := cm.dialer.Dial(context.Background(), cm.url)

	cm.mu.Lock()
	if gen != cm.gen {
		// A Disconnect or newer Connect superseded this attempt.
		cm.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		// No close frame exists for a failed dial; it counts as an
		// abnormal close for the reconnect policy.
		state, notice := cm.handleAbnormalCloseLocked()
		cm.mu.Unlock()
		cm.notifyError(fmt.Errorf("transport connect failed: %w", err))
		if notice != nil {
			cm.notifyError(notice)
		}
		cm.notifyState(state)
		return
	}

	cm.conn = conn
	cm.localClose = false
	cm.attempts = 0
	cm.state = StateConnected
	cm.mu.Unlock()

	cm.notifyState(StateConnected)
	go cm.readLoop(conn, gen)
}

// readLoop delivers inbound frames in order until the transport closes.
func (cm *ConnectionManager) readLoop(conn Conn, gen int) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			cm.handleClose(gen, err)
			return
		}
		cm.notifyFrame(frame)
	}
}

// handleClose classifies a transport close and applies the reconnect policy.
func (cm *ConnectionManager) handleClose(gen int, err error) {
	cm.mu.Lock()
	if gen != cm.gen {
		// Disconnect already handled this connection.
		cm.mu.Unlock()
		return
	}
	cm.conn = nil
	cm.gen++

	if cm.localClose || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		cm.localClose = false
		cm.state = StateDisconnected
		cm.mu.Unlock()
		cm.notifyState(StateDisconnected)
		return
	}

	state, notice := cm.handleAbnormalCloseLocked()
	cm.mu.Unlock()

	cm.notifyError(fmt.Errorf("transport closed abnormally: %w", err))
	if notice != nil {
		cm.notifyError(notice)
	}
	cm.notifyState(state)
}

// handleAbnormalCloseLocked schedules a reconnect when attempts remain,
// or parks the manager in the disconnected state when they are exhausted.
// It returns the resulting state and an optional exhaustion notice; the
// caller fires notifications after releasing the lock.
func (cm *ConnectionManager) handleAbnormalCloseLocked() (ConnState, error) {
	if cm.attempts >= cm.maxReconnects {
		cm.attempts = 0
		cm.state = StateDisconnected
		return StateDisconnected, model.ErrReconnectExhausted
	}

	cm.attempts++
	cm.state = StateError
	cm.reconnectTimer = time.AfterFunc(cm.reconnectDelay, cm.reconnect)
	return StateError, nil
}

// reconnect fires when the reconnect timer elapses.
func (cm *ConnectionManager) reconnect() {
	cm.mu.Lock()
	cm.reconnectTimer = nil
	if cm.state != StateError {
		// Disconnect or an explicit Connect won the race.
		cm.mu.Unlock()
		return
	}
	cm.state = StateConnecting
	cm.gen++
	gen := cm.gen
	cm.mu.Unlock()

	cm.notifyState(StateConnecting)
	go cm.dial(gen)
}

func (cm *ConnectionManager) stopReconnectTimerLocked() {
	if cm.reconnectTimer != nil {
		cm.reconnectTimer.Stop()
		cm.reconnectTimer = nil
	}
}

func (cm *ConnectionManager) notifyState(state ConnState) {
	cm.hmu.RLock()
	callback := cm.onState
	cm.hmu.RUnlock()
	if callback != nil {
		callback(state)
	}
}

func (cm *ConnectionManager) notifyFrame(frame []byte) {
	cm.hmu.RLock()
	callback := cm.onFrame
	cm.hmu.RUnlock()
	if callback != nil {
		callback(frame)
	}
}

func (cm *ConnectionManager) notifyError(err error) {
	cm.hmu.RLock()
	callback := cm.onError
	cm.hmu.RUnlock()
	if callback != nil {
		callback(err)
	}
}
