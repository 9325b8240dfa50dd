// Package replay implements the replay engine (C8): path/query/header/
// body resolution, pre-flight and reactive credential refresh, SSRF
// validation, single-hop redirect handling, contract-drift detection,
// and size-bounded response truncation.
package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/sjson"

	"apitap/internal/cli"
	"apitap/internal/refresh"
	"apitap/internal/skillstore"
	"apitap/internal/ssrf"
	"apitap/internal/store"
	"apitap/pkg/logging"
)

// blockedHeaders are dropped from every replayed request regardless of
// what was captured: hop-by-hop headers, forwarding headers, and
// anything the engine re-derives itself (auth, cookie).
var blockedHeaders = map[string]bool{
	"host": true, "connection": true, "keep-alive": true,
	"proxy-authenticate": true, "proxy-authorization": true,
	"te": true, "trailer": true, "transfer-encoding": true, "upgrade": true,
	"cookie": true, "set-cookie": true, "authorization": true,
	"x-forwarded-for": true, "x-forwarded-host": true, "x-forwarded-proto": true,
	"forwarded": true,
}

func isBlockedHeader(name string) bool {
	lower := strings.ToLower(name)
	if blockedHeaders[lower] {
		return true
	}
	return strings.HasPrefix(lower, "proxy-") || strings.HasPrefix(lower, "sec-")
}

const (
	requestDeadline  = 30 * time.Second
	proactiveRefresh = 30 * time.Second
)

// Params are the caller-supplied inputs to one replay.
type Params struct {
	PathAndBodyParams map[string]string
	Fresh             bool
	MaxBytes          int
}

// Result is the outcome of one replay.
type Result struct {
	Status           int
	Data             interface{}
	Refreshed        bool
	Truncated        bool
	ContractWarnings []ContractWarning
	AuthError        *AuthErrorEnvelope
}

// ContractWarning is one observation that a live response's schema
// drifted from the captured baseline.
type ContractWarning struct {
	Field    string `json:"field"`
	Severity string `json:"severity"` // "error", "warn", "info"
	Detail   string `json:"detail"`
}

// AuthErrorEnvelope wraps a 401/403 that survived the single
// refresh-and-retry cycle.
type AuthErrorEnvelope struct {
	Error            string      `json:"error"`
	Suggestion       string      `json:"suggestion"`
	Domain           string      `json:"domain"`
	OriginalResponse interface{} `json:"originalResponse"`
}

// Engine dispatches replay requests against live origins.
type Engine struct {
	Client       *http.Client
	Store        *store.Store
	Orchestrator *refresh.Orchestrator
}

// New constructs an Engine. credentialStore and orchestrator are borrowed
// handles (spec §9: the engine never owns them).
func New(credentialStore *store.Store, orchestrator *refresh.Orchestrator) *Engine {
	return &Engine{
		Client: &http.Client{
			Timeout: requestDeadline,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Store:        credentialStore,
		Orchestrator: orchestrator,
	}
}

// Replay executes endpointID within skill against its live origin.
func (e *Engine) Replay(ctx context.Context, skill *skillstore.SkillFile, endpointID string, params Params) (Result, error) {
	endpoint := findEndpoint(skill, endpointID)
	if endpoint == nil {
		return Result{}, &cli.NotFoundError{Kind: "endpoint", ID: endpointID, Alternatives: endpointIDs(skill)}
	}

	path, err := resolvePath(*endpoint, params.PathAndBodyParams)
	if err != nil {
		return Result{}, &cli.ValidationError{Reason: err.Error()}
	}

	query := assembleQuery(*endpoint, params.PathAndBodyParams)
	headers := e.filterAndInjectHeaders(skill.Domain, *endpoint)

	body, contentType, err := assembleBody(*endpoint, params.PathAndBodyParams, e.Store, skill.Domain)
	if err != nil {
		return Result{}, &cli.ValidationError{Reason: err.Error()}
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	if err := e.preflightRefresh(ctx, skill, params.Fresh); err != nil {
		logging.Warn("Replay", "preflight refresh failed, continuing with existing credentials", "domain", skill.Domain, "err", err)
	}
	// re-inject auth in case preflight refresh rotated it
	headers = e.filterAndInjectHeaders(skill.Domain, *endpoint)

	fullURL := skill.BaseURL + path
	if query != "" {
		fullURL += "?" + query
	}

	if res := ssrf.Validate(ctx, fullURL); !res.Safe {
		return Result{}, &cli.ValidationError{Reason: "SSRF validation failed: " + res.Reason}
	}

	resp, respBody, refreshed, err := e.dispatchWithRetry(ctx, endpoint.Method, fullURL, headers, body, skill, false)
	if err != nil {
		return Result{}, &cli.TransientError{Endpoint: fullURL, Reason: err}
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
	}()

	result := Result{Status: resp.StatusCode, Refreshed: refreshed}

	decoded := decodeBody(resp.Header.Get("Content-Type"), respBody)
	result.Data = decoded

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		result.AuthError = &AuthErrorEnvelope{
			Error:            fmt.Sprintf("request failed with status %d", resp.StatusCode),
			Suggestion:       fmt.Sprintf("run 'apitap auth %s' to re-authenticate, or 'apitap refresh %s'", skill.Domain, skill.Domain),
			Domain:           skill.Domain,
			OriginalResponse: decoded,
		}
		return result, nil
	}

	if endpoint.ResponseSchema != nil {
		if obj, ok := decoded.(map[string]interface{}); ok {
			result.ContractWarnings = diffSchema(endpoint.ResponseSchema, obj)
		}
	}

	if params.MaxBytes > 0 {
		truncated, newData := truncateToFit(result.Data, params.MaxBytes)
		result.Data = newData
		result.Truncated = truncated
	}

	return result, nil
}

func findEndpoint(skill *skillstore.SkillFile, id string) *skillstore.SkillEndpoint {
	for i := range skill.Endpoints {
		if skill.Endpoints[i].ID == id {
			return &skill.Endpoints[i]
		}
	}
	return nil
}

func endpointIDs(skill *skillstore.SkillFile) []string {
	ids := make([]string, len(skill.Endpoints))
	for i, ep := range skill.Endpoints {
		ids[i] = ep.ID
	}
	return ids
}

func resolvePath(endpoint skillstore.SkillEndpoint, params map[string]string) (string, error) {
	segments := strings.Split(endpoint.Path, "/")
	exampleSegments := strings.Split(endpoint.ExamplePath(), "/")

	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := strings.TrimPrefix(seg, ":")
		if v, ok := params[name]; ok {
			segments[i] = v
			continue
		}
		if i < len(exampleSegments) {
			segments[i] = exampleSegments[i]
			continue
		}
		return "", fmt.Errorf("unsubstituted path placeholder %q", seg)
	}
	return strings.Join(segments, "/"), nil
}

func assembleQuery(endpoint skillstore.SkillEndpoint, params map[string]string) string {
	values := url.Values{}
	for name, p := range endpoint.QueryParams {
		values.Set(name, p.Example)
	}
	pathPlaceholders := pathPlaceholderNames(endpoint.Path)
	for name, v := range params {
		if pathPlaceholders[name] {
			continue
		}
		if endpoint.RequestBody != nil && containsDottedRoot(endpoint.RequestBody.Variables, name) {
			continue
		}
		values.Set(name, v)
	}
	return values.Encode()
}

func pathPlaceholderNames(path string) map[string]bool {
	out := map[string]bool{}
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, ":") {
			out[strings.TrimPrefix(seg, ":")] = true
		}
	}
	return out
}

func containsDottedRoot(paths []string, name string) bool {
	for _, p := range paths {
		if p == name || strings.HasPrefix(p, name+".") {
			return true
		}
	}
	return false
}

// filterAndInjectHeaders drops blocklisted headers, resolves [stored]
// placeholders, and injects fresh auth with parent-domain fallback
// unless the endpoint requests isolation.
func (e *Engine) filterAndInjectHeaders(domain string, endpoint skillstore.SkillEndpoint) map[string]string {
	out := map[string]string{}
	for name, value := range endpoint.Headers {
		if isBlockedHeader(name) {
			continue
		}
		if value == skillstore.StoredPlaceholder {
			if stored := e.resolveStoredHeader(domain, name, endpoint.IsolatedAuth); stored != "" {
				out[name] = stored
			}
			// never send the literal "[stored]"; drop if unresolved
			continue
		}
		out[name] = value
	}

	if auth := e.lookupAuth(domain, endpoint.IsolatedAuth); auth != nil {
		out[auth.Header] = auth.Value
	}
	return out
}

func (e *Engine) resolveStoredHeader(domain, headerName string, isolated bool) string {
	auth := e.lookupAuth(domain, isolated)
	if auth == nil {
		return ""
	}
	if strings.EqualFold(auth.Header, headerName) {
		return auth.Value
	}
	return ""
}

func (e *Engine) lookupAuth(domain string, isolated bool) *store.StoredAuth {
	if e.Store == nil {
		return nil
	}
	if isolated {
		auth, ok := e.Store.Retrieve(domain)
		if !ok {
			return nil
		}
		return auth
	}
	auth, ok := e.Store.RetrieveWithFallback(domain)
	if !ok {
		return nil
	}
	return auth
}

func assembleBody(endpoint skillstore.SkillEndpoint, params map[string]string, credStore *store.Store, domain string) ([]byte, string, error) {
	if endpoint.RequestBody == nil {
		return nil, "", nil
	}
	templateJSON, err := json.Marshal(endpoint.RequestBody.Template)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request body template: %w", err)
	}
	current := string(templateJSON)

	for _, path := range endpoint.RequestBody.Variables {
		if v, ok := params[path]; ok {
			current, err = sjson.Set(current, path, v)
			if err != nil {
				return nil, "", fmt.Errorf("substitute body variable %q: %w", path, err)
			}
		}
	}

	if credStore != nil {
		tokens, ok := credStore.RetrieveTokens(domain)
		if ok {
			for _, path := range endpoint.RequestBody.RefreshableTokens {
				if tok, found := tokens[path]; found {
					current, err = sjson.Set(current, path, tok.Value)
					if err != nil {
						return nil, "", fmt.Errorf("substitute refreshable token %q: %w", path, err)
					}
				}
			}
		}
	}

	return []byte(current), endpoint.RequestBody.ContentType, nil
}

func (e *Engine) preflightRefresh(ctx context.Context, skill *skillstore.SkillFile, fresh bool) error {
	if e.Orchestrator == nil || e.Store == nil {
		return nil
	}
	if fresh {
		_, err := e.Orchestrator.Refresh(ctx, skill.Domain, skill)
		return err
	}

	auth, ok := e.Store.RetrieveWithFallback(skill.Domain)
	if !ok {
		return nil
	}
	now := time.Now()
	if auth.ExpiresAt != nil && auth.ExpiresAt.Before(now.Add(proactiveRefresh)) {
		_, err := e.Orchestrator.Refresh(ctx, skill.Domain, skill)
		return err
	}
	if exp, ok := jwtExpiry(auth.Value); ok && exp.Before(now.Add(proactiveRefresh)) {
		_, err := e.Orchestrator.Refresh(ctx, skill.Domain, skill)
		return err
	}
	return nil
}

func jwtExpiry(bearerValue string) (time.Time, bool) {
	value := strings.TrimPrefix(bearerValue, "Bearer ")
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(value, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// dispatchWithRetry performs the request, follows at most one redirect,
// and on a 401/403 performs exactly one refresh-and-retry cycle.
func (e *Engine) dispatchWithRetry(ctx context.Context, method, fullURL string, headers map[string]string, body []byte, skill *skillstore.SkillFile, alreadyRefreshed bool) (*http.Response, []byte, bool, error) {
	resp, respBody, err := e.dispatchOnce(ctx, method, fullURL, headers, body)
	if err != nil {
		return nil, nil, alreadyRefreshed, err
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if location != "" {
			redirectURL, err := resolveRedirect(fullURL, location)
			if err == nil {
				if res := ssrf.Validate(ctx, redirectURL); res.Safe {
					getHeaders := map[string]string{}
					for k, v := range headers {
						if !isBlockedHeader(k) {
							getHeaders[k] = v
						}
					}
					resp2, body2, err2 := e.dispatchOnce(ctx, http.MethodGet, redirectURL, getHeaders, nil)
					if err2 == nil {
						resp, respBody = resp2, body2
					}
				} else {
					return nil, nil, alreadyRefreshed, fmt.Errorf("redirect blocked: %s", res.Reason)
				}
			}
		}
	}

	if (resp.StatusCode == 401 || resp.StatusCode == 403) && !alreadyRefreshed && e.Orchestrator != nil {
		if _, err := e.Orchestrator.Refresh(ctx, skill.Domain, skill); err == nil {
			newHeaders := map[string]string{}
			for k, v := range headers {
				newHeaders[k] = v
			}
			if auth := e.lookupAuth(skill.Domain, false); auth != nil {
				newHeaders[auth.Header] = auth.Value
			}
			return e.dispatchWithRetry(ctx, method, fullURL, newHeaders, body, skill, true)
		}
	}

	return resp, respBody, alreadyRefreshed, nil
}

func (e *Engine) dispatchOnce(ctx context.Context, method, fullURL string, headers map[string]string, body []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}

func resolveRedirect(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}

func decodeBody(contentType string, body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	if strings.Contains(contentType, "json") {
		var v interface{}
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}
