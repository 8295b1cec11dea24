// Package session implements the realtime query session client: a
// persistent duplex WebSocket connection to the query-generation backend.
//
// The package implements:
//   - ConnectionManager: Owns the transport lifecycle (connect, close,
//     bounded reconnect with a fixed delay)
//   - Router: Decodes inbound frames and dispatches by message kind
//   - ProgressTracker: Derives the single live progress projection from
//     the inbound event stream
//   - Correlator: Binds a session's turns to server-issued conversation ids
//   - QuerySession: Facade composing the above; Connect, Disconnect,
//     SendQuery, and read access to connection state and progress
//
// Key behaviors:
//   - Bounded reconnect: abnormal closes schedule at most 5 reconnects,
//     3 seconds apart; an intentional close (code 1000) never reconnects
//   - Malformed frames are reported and tolerated, never fatal
//   - Unrecognized message kinds are logged and ignored for forward
//     compatibility with server additions
//   - All transport and protocol failures surface as state plus error
//     callbacks; SendQuery's not-connected precondition is the only
//     synchronous failure in the public surface
package session
