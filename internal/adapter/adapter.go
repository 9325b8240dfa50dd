// Package adapter defines the Go interfaces for the external
// collaborators the core consumes but does not implement: the browser
// automation layer, discovery probes, and raw content readers. Each is a
// thin boundary; a local, non-networked stub implementation lets the
// core be exercised end-to-end without the real collaborators.
package adapter

import (
	"context"
	"time"

	"apitap/internal/skillstore"
)

// ActionKind tags which browser interaction an Action describes.
type ActionKind string

const (
	ActionSnapshot ActionKind = "snapshot"
	ActionClick    ActionKind = "click"
	ActionType     ActionKind = "type"
	ActionSelect   ActionKind = "select"
	ActionNavigate ActionKind = "navigate"
	ActionScroll   ActionKind = "scroll"
	ActionWait     ActionKind = "wait"
)

// Action carries the parameters for one browser interaction; only the
// fields relevant to Kind are populated.
type Action struct {
	Kind    ActionKind
	Ref     string
	Text    string
	Submit  bool
	Value   string
	URL     string
	Dir     string
	Seconds int
}

// PageSnapshot is a minimal description of the page a browser session
// currently shows.
type PageSnapshot struct {
	URL   string
	Title string
}

// InteractResult is the outcome of one Action.
type InteractResult struct {
	Success  bool
	Snapshot PageSnapshot
	Error    string
}

// CapturedExchange is one request/response pair observed by a browser
// session, in the wire shape described by the browser adapter contract.
type CapturedExchange struct {
	Request   CapturedRequestWire
	Response  CapturedResponseWire
	Timestamp time.Time
}

// CapturedRequestWire is the request half of a CapturedExchange.
type CapturedRequestWire struct {
	URL      string
	Method   string
	Headers  map[string]string
	PostData string
}

// CapturedResponseWire is the response half of a CapturedExchange.
type CapturedResponseWire struct {
	Status      int
	Headers     map[string]string
	Body        string
	ContentType string
}

// DomainSummary is one domain's worth of captured traffic, returned by
// Finish.
type DomainSummary struct {
	Domain    string
	Exchanges []CapturedExchange
}

// Browser drives an interactive or headless browser session for capture
// and credential-refresh handoff.
type Browser interface {
	// Start navigates to url and begins capturing traffic, returning the
	// initial page snapshot.
	Start(ctx context.Context, url string) (PageSnapshot, error)
	// Interact performs one Action against the current page.
	Interact(ctx context.Context, action Action) (InteractResult, error)
	// Finish ends the session and returns per-domain captured traffic.
	// Per the resolved Open Question (DESIGN.md), Finish being called is
	// the authoritative signal that an interactive login completed —
	// observed session cookies are hints only, never sole completion.
	Finish(ctx context.Context) ([]DomainSummary, error)
	// Abort ends the session immediately without returning captures.
	Abort(ctx context.Context) error
	// Stream returns a channel of exchanges observed live, for callers
	// that want to react before Finish (e.g. the refresh orchestrator
	// watching for a declared refreshable token).
	Stream() <-chan CapturedExchange
}

// DiscoveryResult is the outcome of probing a URL for framework/OpenAPI
// hints when no skill file exists yet.
type DiscoveryResult struct {
	Confidence string // "none", "low", "medium", "high"
	Frameworks []string
	Specs      []string
	Probes     []string
	Hints      map[string]string
	// SkillFile is a skeleton skill file the probe was confident enough
	// to build (Confidence "medium" or "high"); nil when the probe only
	// has enough signal to suggest a capture is worthwhile.
	SkillFile *skillstore.SkillFile
}

// Discovery probes a URL for enough structure to bootstrap a skeleton
// skill file when confidence is at least medium.
type Discovery interface {
	Discover(ctx context.Context, url string) (DiscoveryResult, error)
}

// ContentReader fetches raw content for URLs that have no matching
// endpoint yet. Both methods must pass the URL through the SSRF
// validator before any fetch.
type ContentReader interface {
	Peek(ctx context.Context, url string) (ContentPreview, error)
	Read(ctx context.Context, url string, maxBytes int) (ContentResult, error)
}

// ContentPreview is a cheap summary used before committing to a full
// Read.
type ContentPreview struct {
	ContentType   string
	ApproxBytes   int
	StatusCode    int
}

// ContentResult is the outcome of a full content read, size-bounded by
// maxBytes.
type ContentResult struct {
	Body      []byte
	Truncated bool
	ContentType string
	StatusCode  int
}
