package app

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"apitap/internal/adapter"
	"apitap/internal/cli"
)

// maxConcurrentCaptures bounds how many browser-driven capture sessions
// can be open at once, so an operator can't accumulate unbounded
// background browser processes by forgetting to close one.
const maxConcurrentCaptures = 3

// CaptureSession tracks one in-flight capture or discovery browser
// session keyed by the domain it targets.
type CaptureSession struct {
	ID      string
	Domain  string
	Browser adapter.Browser
}

// CaptureSessions is the process-wide, capacity-bounded table of open
// browser sessions.
type CaptureSessions struct {
	mu       sync.Mutex
	sessions map[string]*CaptureSession
}

// NewCaptureSessions constructs an empty session table.
func NewCaptureSessions() *CaptureSessions {
	return &CaptureSessions{sessions: make(map[string]*CaptureSession)}
}

// Open registers a new session for domain, failing with a CapacityError
// if the table is already at maxConcurrentCaptures.
func (c *CaptureSessions) Open(domain string, browser adapter.Browser) (*CaptureSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sessions[domain]; ok {
		return existing, nil
	}
	if len(c.sessions) >= maxConcurrentCaptures {
		return nil, &cli.CapacityError{Reason: fmt.Sprintf("%d capture sessions already open", maxConcurrentCaptures)}
	}
	session := &CaptureSession{ID: uuid.NewString(), Domain: domain, Browser: browser}
	c.sessions[domain] = session
	return session, nil
}

// Close removes domain's session from the table, if present.
func (c *CaptureSessions) Close(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, domain)
}

// Count reports how many sessions are currently open.
func (c *CaptureSessions) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
