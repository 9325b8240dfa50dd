// Package verifier implements the endpoint verifier (C6): an optional
// live replay of GET (and, on request, POST) endpoints against the
// origin, upgrading an endpoint's replayability tier from heuristic to
// verified.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"apitap/internal/skillstore"
	"apitap/pkg/logging"
)

// Verifier issues one live call per endpoint during finalize.
type Verifier struct {
	Client      *http.Client
	VerifyPosts bool
}

// New constructs a Verifier with a 10-second client timeout.
func New(verifyPosts bool) *Verifier {
	return &Verifier{
		Client:      &http.Client{Timeout: 10 * time.Second},
		VerifyPosts: verifyPosts,
	}
}

// Verify replays endpoint once against baseURL and returns its updated
// Replayability. POST verification is skipped unless VerifyPosts is set
// and the endpoint carries a RequestBody; a skipped endpoint keeps its
// heuristic classification unverified.
func (v *Verifier) Verify(ctx context.Context, baseURL string, endpoint skillstore.SkillEndpoint) skillstore.Replayability {
	if endpoint.Method != "GET" && !(v.VerifyPosts && endpoint.Method == "POST" && endpoint.RequestBody != nil) {
		return endpoint.Replayability
	}

	path := resolveExamplePath(endpoint)
	req, err := v.buildRequest(ctx, baseURL, path, endpoint)
	if err != nil {
		logging.Warn("Verifier", "could not build verification request", "endpoint", endpoint.ID, "err", err)
		return demote(endpoint.Replayability, "build-error")
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return demote(endpoint.Replayability, "network-error")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	result := endpoint.Replayability
	result.Verified = true

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		result.Tier = skillstore.TierYellow
		result.Signals = append(result.Signals, "auth-required")
		return result
	case resp.StatusCode >= 500:
		result.Tier = skillstore.TierOrange
		result.Signals = append(result.Signals, "status-class-match", "server-error")
		return result
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Signals = append(result.Signals, "status-match")
	default:
		result.Tier = skillstore.TierOrange
		result.Signals = append(result.Signals, "unexpected-status")
		return result
	}

	if len(body) == 0 {
		result.Signals = append(result.Signals, "empty-body")
		return result
	}

	if shapeMatches(endpoint.ResponseShape, body) {
		result.Signals = append(result.Signals, "shape-match")
	} else {
		result.Tier = skillstore.TierOrange
		result.Signals = append(result.Signals, "shape-mismatch")
	}
	return result
}

func demote(current skillstore.Replayability, signal string) skillstore.Replayability {
	current.Tier = skillstore.TierOrange
	current.Verified = true
	current.Signals = append(current.Signals, signal)
	return current
}

func (v *Verifier) buildRequest(ctx context.Context, baseURL, path string, endpoint skillstore.SkillEndpoint) (*http.Request, error) {
	url := baseURL + path
	var body io.Reader
	if endpoint.Method == "POST" && endpoint.RequestBody != nil {
		data, err := json.Marshal(endpoint.RequestBody.Template)
		if err != nil {
			return nil, fmt.Errorf("marshal request body template: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, endpoint.Method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// resolveExamplePath returns the concrete path to verify against: the
// captured example request's own path, with every ":name" placeholder
// already resolved to the value actually observed. Verification has no
// caller-supplied params to substitute with, so the raw ":id"-shaped
// template would 404 against the live origin and wrongly demote a
// perfectly replayable endpoint.
func resolveExamplePath(endpoint skillstore.SkillEndpoint) string {
	if path := endpoint.ExamplePath(); path != "" {
		return path
	}
	return endpoint.Path
}

func shapeMatches(expected skillstore.ResponseShape, body []byte) bool {
	if expected.Type == "" {
		return true
	}
	var v interface{}
	if json.Unmarshal(body, &v) != nil {
		return expected.Type == "text"
	}
	switch v.(type) {
	case map[string]interface{}:
		return expected.Type == "object"
	case []interface{}:
		return expected.Type == "array"
	default:
		return expected.Type == "scalar"
	}
}
