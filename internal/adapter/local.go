package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"apitap/internal/ssrf"
)

// LocalBrowser is a non-networked Browser stub: it streams a fixed set of
// exchanges and returns a fixed snapshot without driving any real browser
// or CDP attach, sufficient for exercising the refresh/capture flow in
// tests. Interactions are not recorded; a navigate action only updates
// the snapshot URL.
type LocalBrowser struct {
	snapshot  PageSnapshot
	exchanges []CapturedExchange
	stream    chan CapturedExchange
	finished  bool
}

// NewLocalBrowser constructs a LocalBrowser that will report exchanges
// as its captured traffic when Finish is called.
func NewLocalBrowser(exchanges []CapturedExchange) *LocalBrowser {
	return &LocalBrowser{
		exchanges: exchanges,
		stream:    make(chan CapturedExchange, len(exchanges)),
	}
}

func (b *LocalBrowser) Start(_ context.Context, u string) (PageSnapshot, error) {
	b.snapshot = PageSnapshot{URL: u, Title: "local-stub"}
	for _, ex := range b.exchanges {
		b.stream <- ex
	}
	return b.snapshot, nil
}

func (b *LocalBrowser) Interact(_ context.Context, action Action) (InteractResult, error) {
	switch action.Kind {
	case ActionNavigate:
		b.snapshot.URL = action.URL
	}
	return InteractResult{Success: true, Snapshot: b.snapshot}, nil
}

func (b *LocalBrowser) Finish(_ context.Context) ([]DomainSummary, error) {
	b.finished = true
	close(b.stream)
	byDomain := map[string][]CapturedExchange{}
	for _, ex := range b.exchanges {
		u, err := url.Parse(ex.Request.URL)
		if err != nil {
			continue
		}
		byDomain[u.Hostname()] = append(byDomain[u.Hostname()], ex)
	}
	summaries := make([]DomainSummary, 0, len(byDomain))
	for domain, exs := range byDomain {
		summaries = append(summaries, DomainSummary{Domain: domain, Exchanges: exs})
	}
	return summaries, nil
}

func (b *LocalBrowser) Abort(_ context.Context) error {
	if !b.finished {
		b.finished = true
		close(b.stream)
	}
	return nil
}

func (b *LocalBrowser) Stream() <-chan CapturedExchange { return b.stream }

// NullDiscovery is a Discovery stub reporting zero confidence for every
// URL — the minimal heuristic stub described in §1/§6 for the real
// framework/OpenAPI probe, which is out of scope for the core.
type NullDiscovery struct{}

func (NullDiscovery) Discover(_ context.Context, _ string) (DiscoveryResult, error) {
	return DiscoveryResult{Confidence: "none"}, nil
}

// HTTPContentReader is a minimal ContentReader backed by net/http,
// validating every URL through the SSRF checker before dispatch.
type HTTPContentReader struct {
	Client *http.Client
}

// NewHTTPContentReader constructs an HTTPContentReader with a 15-second
// client timeout.
func NewHTTPContentReader() *HTTPContentReader {
	return &HTTPContentReader{Client: &http.Client{Timeout: 15 * time.Second}}
}

func (r *HTTPContentReader) Peek(ctx context.Context, rawURL string) (ContentPreview, error) {
	if res := ssrf.Validate(ctx, rawURL); !res.Safe {
		return ContentPreview{}, fmt.Errorf("adapter: %s", res.Reason)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ContentPreview{}, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return ContentPreview{}, err
	}
	defer resp.Body.Close()
	return ContentPreview{
		ContentType: resp.Header.Get("Content-Type"),
		ApproxBytes: int(resp.ContentLength),
		StatusCode:  resp.StatusCode,
	}, nil
}

func (r *HTTPContentReader) Read(ctx context.Context, rawURL string, maxBytes int) (ContentResult, error) {
	if res := ssrf.Validate(ctx, rawURL); !res.Safe {
		return ContentResult{}, fmt.Errorf("adapter: %s", res.Reason)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ContentResult{}, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return ContentResult{}, err
	}
	defer resp.Body.Close()

	limit := maxBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	buf := make([]byte, limit+1)
	n, _ := readFull(resp.Body, buf)
	truncated := n > limit
	if truncated {
		n = limit
	}
	return ContentResult{
		Body:        buf[:n],
		Truncated:   truncated,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

func readFull(r interface {
	Read(p []byte) (int, error)
}, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
