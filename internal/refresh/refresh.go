// Package refresh implements the refresh orchestrator (C7): OAuth
// refresh_token/client_credentials grants, browser-driven token capture
// as a fallback, and a per-domain mutex so concurrent callers collapse
// onto a single in-flight refresh.
package refresh

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"apitap/internal/adapter"
	"apitap/internal/skillstore"
	"apitap/internal/store"
	"apitap/pkg/logging"
)

// captchaMarkers are substrings that indicate a captcha interstitial was
// served instead of the expected page.
var captchaMarkers = []string{
	"cf-challenge", "cloudflare", "g-recaptcha", "hcaptcha", "/captcha",
}

// CaptchaKind identifies the detected captcha provider, when any.
type CaptchaKind string

const (
	CaptchaNone       CaptchaKind = ""
	CaptchaCloudflare CaptchaKind = "cloudflare"
	CaptchaRecaptcha  CaptchaKind = "recaptcha"
	CaptchaHCaptcha   CaptchaKind = "hcaptcha"
	CaptchaUnknown    CaptchaKind = "unknown"
)

// Result is the outcome of a refresh attempt.
type Result struct {
	Auth    *store.StoredAuth
	Captcha CaptchaKind
}

// BrowserFactory constructs a fresh Browser session for a domain's
// browser-driven refresh. Headless unless captchaRisk is set.
type BrowserFactory func(ctx context.Context, domain string, headless bool) (adapter.Browser, error)

// Orchestrator drives refreshes for every domain in the process.
type Orchestrator struct {
	store          *store.Store
	newBrowser     BrowserFactory
	group          singleflight.Group
	refreshTimeout time.Duration
}

// New constructs an Orchestrator. newBrowser may be nil if the caller
// never expects browser-driven refresh to be needed (e.g. pure-OAuth
// domains); in that case a browser-driven refresh attempt returns an
// error.
func New(credentialStore *store.Store, newBrowser BrowserFactory) *Orchestrator {
	return &Orchestrator{
		store:          credentialStore,
		newBrowser:     newBrowser,
		refreshTimeout: 60 * time.Second,
	}
}

// Refresh performs a refresh for domain, deduplicating concurrent calls
// onto a single in-flight attempt via singleflight so at most one
// outbound OAuth request (or browser session) is emitted per domain at a
// time.
func (o *Orchestrator) Refresh(ctx context.Context, domain string, skill *skillstore.SkillFile) (Result, error) {
	v, err, _ := o.group.Do(domain, func() (interface{}, error) {
		return o.refreshOnce(ctx, domain, skill)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (o *Orchestrator) refreshOnce(ctx context.Context, domain string, skill *skillstore.SkillFile) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.refreshTimeout)
	defer cancel()

	if skill.Auth != nil && skill.Auth.OAuthConfig != nil {
		auth, err := o.oauthRefresh(ctx, domain, skill.Auth.OAuthConfig)
		if err == nil {
			if storeErr := o.store.Store(domain, *auth); storeErr != nil {
				return Result{}, fmt.Errorf("refresh: persist refreshed auth: %w", storeErr)
			}
			logging.Info("Refresh", "oauth refresh succeeded", "domain", domain)
			return Result{Auth: auth}, nil
		}
		logging.Warn("Refresh", "oauth refresh failed, falling back to browser capture", "domain", domain, "err", err)
	}

	refreshableTokens := collectRefreshableTokens(skill)
	needsBrowser := len(refreshableTokens) > 0 || (skill.Auth != nil && skill.Auth.RefreshURL != "")
	if !needsBrowser {
		return Result{}, fmt.Errorf("refresh: no oauth config and no refreshable tokens declared for %s", domain)
	}
	if o.newBrowser == nil {
		return Result{}, fmt.Errorf("refresh: browser-driven refresh required for %s but no browser adapter configured", domain)
	}

	headless := skill.Auth == nil || !skill.Auth.CaptchaRisk
	return o.browserRefresh(ctx, domain, skill, refreshableTokens, headless)
}

func collectRefreshableTokens(skill *skillstore.SkillFile) []string {
	seen := map[string]bool{}
	var out []string
	for _, ep := range skill.Endpoints {
		if ep.RequestBody == nil {
			continue
		}
		for _, t := range ep.RequestBody.RefreshableTokens {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

func detectCaptcha(pageText string) CaptchaKind {
	for _, marker := range captchaMarkers {
		if containsFold(pageText, marker) {
			switch marker {
			case "cf-challenge", "cloudflare":
				return CaptchaCloudflare
			case "g-recaptcha":
				return CaptchaRecaptcha
			case "hcaptcha":
				return CaptchaHCaptcha
			default:
				return CaptchaUnknown
			}
		}
	}
	return CaptchaNone
}

func containsFold(haystack, needle string) bool {
	hl, nl := len(haystack), len(needle)
	if nl == 0 || nl > hl {
		return false
	}
	hLower := toLowerASCII(haystack)
	nLower := toLowerASCII(needle)
	for i := 0; i+nl <= hl; i++ {
		if hLower[i:i+nl] == nLower {
			return true
		}
	}
	return false
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
