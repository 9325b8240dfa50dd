package generator

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"apitap/internal/skillstore"
	"apitap/pkg/logging"
)

// Generator consumes already-filtered capture exchanges and groups them
// into per-domain skill files.
type Generator struct {
	ToolVersion string
}

// New constructs a Generator that stamps toolVersion into every skill
// file's metadata.
func New(toolVersion string) *Generator {
	return &Generator{ToolVersion: toolVersion}
}

type endpointBuilder struct {
	endpoint     skillstore.SkillEndpoint
	bodySamples  []string
	captchaRisk  bool
}

// Generate groups exchanges by hostname and returns one SkillFile per
// domain.
func (g *Generator) Generate(exchanges []Exchange) (map[string]*skillstore.SkillFile, error) {
	byDomain := map[string][]Exchange{}
	for _, ex := range exchanges {
		u, err := url.Parse(ex.Request.URL)
		if err != nil {
			logging.Warn("Generator", "skipping exchange with unparseable URL", "url", ex.Request.URL)
			continue
		}
		byDomain[u.Hostname()] = append(byDomain[u.Hostname()], ex)
	}

	out := map[string]*skillstore.SkillFile{}
	for domain, domainExchanges := range byDomain {
		skill, err := g.toSkillFile(domain, domainExchanges)
		if err != nil {
			return nil, fmt.Errorf("generator: building skill file for %s: %w", domain, err)
		}
		out[domain] = skill
	}
	return out, nil
}

// toSkillFile merges a domain's exchanges into deduplicated endpoints
// and applies the cross-request diff strategy (§4.4 step 5, third
// strategy) once every sample for an endpoint is known.
func (g *Generator) toSkillFile(domain string, exchanges []Exchange) (*skillstore.SkillFile, error) {
	builders := map[string]*endpointBuilder{}
	var order []string
	var baseURL string
	captchaOnFile := false
	var oauthConfig *skillstore.OAuthConfig

	for _, ex := range exchanges {
		u, err := url.Parse(ex.Request.URL)
		if err != nil {
			continue
		}
		if baseURL == "" {
			baseURL = u.Scheme + "://" + u.Host
		}
		if ex.CaptchaRisk {
			captchaOnFile = true
		}

		parameterized := ParameterizePath(u.Path)
		key := EndpointKey(ex.Request.Method, parameterized)

		b, exists := builders[key]
		if !exists {
			b = &endpointBuilder{
				endpoint: skillstore.SkillEndpoint{
					ID:     slugify(ex.Request.Method, parameterized),
					Method: ex.Request.Method,
					Path:   parameterized,
					Examples: skillstore.Examples{
						RequestURL: ex.Request.URL,
					},
				},
			}
			builders[key] = b
			order = append(order, key)
		}

		mergeQueryParams(&b.endpoint, u.Query())
		b.captchaRisk = b.captchaRisk || ex.CaptchaRisk

		headers := rewriteAuthHeaders(ex.Request.Headers)
		if b.endpoint.Headers == nil {
			b.endpoint.Headers = headers
		}

		if ex.Request.PostData != "" {
			b.bodySamples = append(b.bodySamples, ex.Request.PostData)
		}

		if ex.Response.Body != "" {
			b.endpoint.ResponseShape = ResponseShapeFrom(ex.Response.Body)
			if b.endpoint.ResponseSchema == nil {
				b.endpoint.ResponseSchema = SnapshotSchema(ex.Response.Body)
			}
			if b.endpoint.Examples.ResponsePreview == "" {
				b.endpoint.Examples.ResponsePreview = previewOf(ex.Response.Body)
			}
			if oauthConfig == nil {
				oauthConfig = DetectOAuthConfig(ex.Request.URL, ex.Request.PostData, ex.Response.Body)
			}
		}

		b.endpoint.Replayability = ClassifyReplayability(ex.Request.Headers, b.captchaRisk)
	}

	sort.Strings(order)
	endpoints := make([]skillstore.SkillEndpoint, 0, len(order))
	for _, key := range order {
		b := builders[key]
		finalizeRequestBody(b)
		endpoints = append(endpoints, b.endpoint)
	}

	skill := &skillstore.SkillFile{
		Version:    "1",
		Domain:     domain,
		BaseURL:    baseURL,
		CapturedAt: time.Now().UTC(),
		Endpoints:  endpoints,
		Metadata: skillstore.SkillMetadata{
			CaptureCount: len(exchanges),
			ToolVersion:  g.ToolVersion,
		},
	}
	if captchaOnFile || oauthConfig != nil {
		if skill.Auth == nil {
			skill.Auth = &skillstore.SkillAuth{}
		}
		skill.Auth.CaptchaRisk = captchaOnFile
		skill.Auth.OAuthConfig = oauthConfig
	}
	return skill, nil
}

func finalizeRequestBody(b *endpointBuilder) {
	if len(b.bodySamples) == 0 {
		return
	}
	first := b.bodySamples[0]

	variables := map[string]bool{}
	for _, v := range DetectBodyVariables(first) {
		variables[v] = true
	}
	for i := 1; i < len(b.bodySamples); i++ {
		for _, v := range DiffBodySamples(first, b.bodySamples[i]) {
			variables[v] = true
		}
	}
	if len(variables) == 0 {
		return
	}

	varList := make([]string, 0, len(variables))
	for v := range variables {
		varList = append(varList, v)
	}
	sort.Strings(varList)

	b.endpoint.RequestBody = &skillstore.RequestBody{
		ContentType: "application/json",
		Template:    first,
		Variables:   varList,
	}
}

func mergeQueryParams(endpoint *skillstore.SkillEndpoint, values url.Values) {
	if len(values) == 0 {
		return
	}
	if endpoint.QueryParams == nil {
		endpoint.QueryParams = map[string]skillstore.QueryParam{}
	}
	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if _, exists := endpoint.QueryParams[name]; exists {
			continue
		}
		endpoint.QueryParams[name] = skillstore.QueryParam{
			Type:    inferParamType(vals[0]),
			Example: vals[0],
		}
	}
}

func inferParamType(v string) string {
	if v == "" {
		return "string"
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return "string"
		}
	}
	return "number"
}

// rewriteAuthHeaders rewrites any header the auth-extraction pass
// flagged as a credential to the literal "[stored]" sentinel before the
// exchange is ever written to disk (§4.4 step 9).
func rewriteAuthHeaders(headers map[string]string) map[string]string {
	candidates := ExtractAuthCandidates(headers)
	flagged := map[string]bool{}
	for _, c := range candidates {
		flagged[c.HeaderName] = true
	}

	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if flagged[name] {
			out[name] = skillstore.StoredPlaceholder
			continue
		}
		out[name] = value
	}
	return out
}

func slugify(method, path string) string {
	slug := method
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			slug += string(r)
		case r == ':':
			// drop placeholder markers from the slug
		default:
			slug += "-"
		}
	}
	return toLower(slug)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func previewOf(body string) string {
	const maxPreview = 500
	if len(body) <= maxPreview {
		return body
	}
	return body[:maxPreview]
}
