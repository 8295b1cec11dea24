package session

import "sync"

// Correlator maintains the currently active conversation id for the
// session. The id is server-issued: it is captured from the started
// progress frame of each turn, inherited by outbound requests that omit
// an explicit id, and reset when the consumer starts a new conversation.
type Correlator struct {
	mu     sync.RWMutex
	active string
}

// NewCorrelator creates a correlator with no active conversation.
func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Capture records the conversation id carried on a turn's started frame.
func (c *Correlator) Capture(id string) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
}

// Adopt records an id the consumer supplied explicitly on an outbound
// request, e.g. to resume an older conversation.
func (c *Correlator) Adopt(id string) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
}

// Active returns the currently active conversation id, or "" when none.
func (c *Correlator) Active() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Reset clears the active id. Persisted history is untouched; that is
// the conversation store's concern, not the correlator's.
func (c *Correlator) Reset() {
	c.mu.Lock()
	c.active = ""
	c.mu.Unlock()
}
