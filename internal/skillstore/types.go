package skillstore

import (
	"net/url"
	"time"
)

// Provenance is the three-state trust tag carried by every skill file.
type Provenance string

const (
	ProvenanceSelf     Provenance = "self"
	ProvenanceImported Provenance = "imported"
	ProvenanceUnsigned Provenance = "unsigned"
)

// Tier is the replayability confidence class for an endpoint, ordered by
// confidence: green is highest, red lowest, unknown not yet assessed.
type Tier string

const (
	TierGreen   Tier = "green"
	TierYellow  Tier = "yellow"
	TierOrange  Tier = "orange"
	TierRed     Tier = "red"
	TierUnknown Tier = "unknown"
)

// StoredPlaceholder is the sentinel written into a captured header value
// to mean "fill this from the credential store at replay time."
const StoredPlaceholder = "[stored]"

// SkillFile is the per-domain unit of persistence: a deduplicated,
// parameterized catalog of replayable endpoints plus auth config and
// provenance.
type SkillFile struct {
	Version    string          `json:"version"`
	Domain     string          `json:"domain"`
	BaseURL    string          `json:"baseUrl"`
	CapturedAt time.Time       `json:"capturedAt"`
	Endpoints  []SkillEndpoint `json:"endpoints"`
	Metadata   SkillMetadata   `json:"metadata"`
	Provenance Provenance      `json:"provenance"`
	Signature  string          `json:"signature,omitempty"`
	Auth       *SkillAuth      `json:"auth,omitempty"`
}

// SkillMetadata records bookkeeping about how a skill file was produced.
type SkillMetadata struct {
	CaptureCount  int    `json:"captureCount"`
	FilteredCount int    `json:"filteredCount"`
	ToolVersion   string `json:"toolVersion"`
	DOMBytes      *int   `json:"domBytes,omitempty"`
}

// SkillAuth carries domain-level auth hints that aren't per-endpoint.
type SkillAuth struct {
	CaptchaRisk  bool         `json:"captchaRisk,omitempty"`
	BrowserMode  bool         `json:"browserMode,omitempty"`
	RefreshURL   string       `json:"refreshUrl,omitempty"`
	OAuthConfig  *OAuthConfig `json:"oauthConfig,omitempty"`
}

// OAuthConfig describes the token endpoint and grant an endpoint's auth
// was detected as using. Refresh tokens and client secrets never live
// here — they are captured separately into the credential store.
type OAuthConfig struct {
	TokenEndpoint string `json:"tokenEndpoint"`
	ClientID      string `json:"clientId,omitempty"`
	GrantType     string `json:"grantType"`
	Scope         string `json:"scope,omitempty"`
}

// SkillEndpoint is one replayable endpoint within a SkillFile.
type SkillEndpoint struct {
	ID             string                 `json:"id"`
	Method         string                 `json:"method"`
	Path           string                 `json:"path"`
	QueryParams    map[string]QueryParam  `json:"queryParams,omitempty"`
	Headers        map[string]string      `json:"headers,omitempty"`
	ResponseShape  ResponseShape          `json:"responseShape"`
	ResponseSchema *SchemaNode            `json:"responseSchema,omitempty"`
	Examples       Examples               `json:"examples"`
	RequestBody    *RequestBody           `json:"requestBody,omitempty"`
	Replayability  Replayability          `json:"replayability"`
	Pagination     *Pagination            `json:"pagination,omitempty"`
	IsolatedAuth   bool                   `json:"isolatedAuth,omitempty"`
}

// QueryParam describes one observed query-string parameter.
type QueryParam struct {
	Type    string `json:"type"`
	Example string `json:"example"`
}

// ResponseShape is the compact, single-line summary of a response body's
// shape.
type ResponseShape struct {
	Type   string   `json:"type"`
	Fields []string `json:"fields,omitempty"`
}

// SchemaNode is a recursive snapshot of a JSON value's shape, capped at
// depth 5 by the generator.
type SchemaNode struct {
	Type     string                 `json:"type"`
	Nullable bool                   `json:"nullable,omitempty"`
	Fields   map[string]*SchemaNode `json:"fields,omitempty"`
	Items    *SchemaNode            `json:"items,omitempty"`
}

// Examples carries one concrete captured request URL and an optional
// response preview for diffing and documentation.
type Examples struct {
	RequestURL      string `json:"requestUrl"`
	ResponsePreview string `json:"responsePreview,omitempty"`
}

// ExamplePath returns the path component of the endpoint's captured
// example request URL — a concrete path with every ":name" placeholder
// already resolved to the value actually observed, e.g. "/api/item/42"
// for a "/api/item/:id" endpoint. Callers that need to dial or verify an
// endpoint without caller-supplied params fall back to this instead of
// the raw placeholder template. Returns "" if the example URL is
// missing or unparseable.
func (e SkillEndpoint) ExamplePath() string {
	u, err := url.Parse(e.Examples.RequestURL)
	if err != nil {
		return ""
	}
	return u.Path
}

// RequestBody is the templated request body for non-GET endpoints.
type RequestBody struct {
	ContentType       string      `json:"contentType"`
	Template          interface{} `json:"template"`
	Variables         []string    `json:"variables,omitempty"`
	RefreshableTokens []string    `json:"refreshableTokens,omitempty"`
}

// Replayability is the generator/verifier's confidence classification for
// an endpoint.
type Replayability struct {
	Tier     Tier     `json:"tier"`
	Verified bool     `json:"verified"`
	Signals  []string `json:"signals,omitempty"`
}

// Pagination describes how an endpoint paginates, when detected.
type Pagination struct {
	Style      string `json:"style"` // "cursor", "offset", "page"
	ParamName  string `json:"paramName"`
	NextField  string `json:"nextField,omitempty"`
}
