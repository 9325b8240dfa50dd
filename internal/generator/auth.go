package generator

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"apitap/internal/skillstore"
)

// canonicalAuthHeaders are the header names checked first for auth
// candidates, matched case-insensitively.
var canonicalAuthHeaders = map[string]skillstore.Tier{
	"authorization": skillstore.TierYellow,
	"x-api-key":     skillstore.TierYellow,
	"cookie":        skillstore.TierYellow,
}

// AuthCandidate is one header the generator decided carries a credential.
type AuthCandidate struct {
	HeaderName string
	JWTClaims  map[string]interface{}
	ExpiresAt  *time.Time
}

// ExtractAuthCandidates scans request headers for canonical auth header
// names, JWT bearer values, and high-entropy custom headers.
func ExtractAuthCandidates(headers map[string]string) []AuthCandidate {
	var candidates []AuthCandidate
	for name, value := range headers {
		lower := strings.ToLower(name)
		if _, ok := canonicalAuthHeaders[lower]; ok {
			cand := AuthCandidate{HeaderName: name}
			if lower == "authorization" {
				if claims, exp := parseJWTClaims(value); claims != nil {
					cand.JWTClaims = claims
					cand.ExpiresAt = exp
				}
			}
			candidates = append(candidates, cand)
			continue
		}
		if isSessionCookieLikeName(lower) {
			candidates = append(candidates, AuthCandidate{HeaderName: name})
			continue
		}
		if len(value) >= 32 && shannonEntropy(value) >= entropyThreshold {
			candidates = append(candidates, AuthCandidate{HeaderName: name})
		}
	}
	return candidates
}

func isSessionCookieLikeName(lower string) bool {
	for _, marker := range []string{"session", "sid", "token", "auth"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// parseJWTClaims extracts claims from a bearer value without verifying
// its signature: a JWT is split into three base64url parts and the
// middle payload is decoded as JSON. "exp" (if present) becomes the
// token's expiry.
func parseJWTClaims(headerValue string) (map[string]interface{}, *time.Time) {
	value := strings.TrimPrefix(headerValue, "Bearer ")
	value = strings.TrimPrefix(value, "bearer ")
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return nil, nil
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(value, claims); err != nil {
		return decodeJWTPayloadFallback(parts[1])
	}

	out := map[string]interface{}(claims)
	var expiry *time.Time
	if exp, ok := claims["exp"]; ok {
		if seconds, ok := toFloat(exp); ok {
			t := time.Unix(int64(seconds), 0).UTC()
			expiry = &t
		}
	}
	return out, expiry
}

func decodeJWTPayloadFallback(payload string) (map[string]interface{}, *time.Time) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, nil
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, nil
	}
	var expiry *time.Time
	if exp, ok := claims["exp"]; ok {
		if seconds, ok := toFloat(exp); ok {
			t := time.Unix(int64(seconds), 0).UTC()
			expiry = &t
		}
	}
	return claims, expiry
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// tokenEndpointHints are URL path fragments commonly used by OAuth token
// endpoints, including Firebase's provider-specific "securetoken" shape.
var tokenEndpointHints = []string{"/oauth/token", "/oauth2/token", "/token", "securetoken.googleapis.com"}

// DetectOAuthConfig inspects a response's URL and body for signs it came
// from an OAuth token endpoint: a URL shape match, or an access_token
// field in the body.
func DetectOAuthConfig(requestURL, requestBody, responseBody string) *skillstore.OAuthConfig {
	matchesShape := false
	for _, hint := range tokenEndpointHints {
		if strings.Contains(requestURL, hint) {
			matchesShape = true
			break
		}
	}

	var resp map[string]interface{}
	hasAccessToken := false
	if json.Unmarshal([]byte(responseBody), &resp) == nil {
		if _, ok := resp["access_token"].(string); ok {
			hasAccessToken = true
		}
	}
	if !matchesShape && !hasAccessToken {
		return nil
	}

	cfg := &skillstore.OAuthConfig{
		TokenEndpoint: requestURL,
		GrantType:     "refresh_token",
	}

	if clientID := extractClientID(requestURL, requestBody); clientID != "" {
		cfg.ClientID = clientID
	}
	if strings.Contains(requestURL, "client_credentials") || strings.Contains(requestBody, "grant_type=client_credentials") {
		cfg.GrantType = "client_credentials"
	}
	return cfg
}

func extractClientID(requestURL, requestBody string) string {
	if vals, err := url.ParseQuery(requestBody); err == nil {
		if v := vals.Get("client_id"); v != "" {
			return v
		}
	}
	if u, err := url.Parse(requestURL); err == nil {
		if v := u.Query().Get("key"); v != "" {
			return v
		}
	}
	return ""
}
