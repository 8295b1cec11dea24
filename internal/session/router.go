package session

import (
	"fmt"
	"log"
	"sync"

	"github.com/nlq-workbench/client/internal/protocol"
)

// Router decodes inbound frames and dispatches them by message kind.
// Frames are processed strictly in the order the transport delivers them;
// the router never reorders or buffers. A frame that fails to decode is
// reported as a protocol diagnostic and otherwise ignored: malformed
// frames are tolerated, not fatal.
type Router struct {
	tracker    *ProgressTracker
	correlator *Correlator

	hmu       sync.RWMutex
	onMessage func(*protocol.Envelope)
	onError   func(error)
}

// NewRouter creates a router dispatching into the given tracker and
// correlator.
func NewRouter(tracker *ProgressTracker, correlator *Correlator) *Router {
	return &Router{
		tracker:    tracker,
		correlator: correlator,
	}
}

// SetOnMessage sets the consumer callback, invoked exactly once per
// decoded inbound message of a recognized kind.
func (r *Router) SetOnMessage(callback func(*protocol.Envelope)) {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	r.onMessage = callback
}

// SetOnError sets the callback for protocol-level diagnostics.
func (r *Router) SetOnError(callback func(error)) {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	r.onError = callback
}

// Route processes one raw inbound frame.
func (r *Router) Route(frame []byte) {
	env, err := protocol.DecodeEnvelope(frame)
	if err != nil {
		r.reportError(fmt.Errorf("protocol error: %w", err))
		return
	}

	switch env.Type {
	case protocol.KindProgress:
		payload, err := protocol.DecodeProgress(env.Data)
		if err != nil {
			r.reportError(fmt.Errorf("protocol error: %w", err))
			return
		}
		r.tracker.Apply(payload)

	case protocol.KindResult, protocol.KindClarification, protocol.KindError:
		// Terminal message: the turn is over, the live snapshot goes away.
		r.tracker.Clear()

	default:
		// Forward-compatible with server additions.
		log.Printf("Ignoring message with unrecognized type %q", env.Type)
		return
	}

	r.deliver(env)
}

func (r *Router) deliver(env *protocol.Envelope) {
	r.hmu.RLock()
	callback := r.onMessage
	r.hmu.RUnlock()
	if callback != nil {
		callback(env)
	}
}

func (r *Router) reportError(err error) {
	r.hmu.RLock()
	callback := r.onError
	r.hmu.RUnlock()
	if callback != nil {
		callback(err)
	}
}
