package refresh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"apitap/internal/skillstore"
	"apitap/internal/store"
	"apitap/pkg/logging"
)

// inactivityTimeout aborts a browser-driven refresh session if no
// interaction occurs within this window (spec §5: "default 5 min").
const inactivityTimeout = 5 * time.Minute

// browserRefresh spawns a browser session, navigates to the refresh URL
// (or the skill's base URL), and watches outbound requests for the
// declared refreshable token paths.
//
// Completion heuristic (resolves the spec's Open Question): the browser
// adapter's Finish call — whether triggered by the caller observing a
// completed login or by the user closing the browser window — is the
// sole authoritative signal that the handoff is done. Session cookies
// observed along the way are captured as a warm-start hint but never by
// themselves end the wait, since anonymous/consent cookies produce false
// positives.
func (o *Orchestrator) browserRefresh(ctx context.Context, domain string, skill *skillstore.SkillFile, refreshableTokens []string, headless bool) (Result, error) {
	browser, err := o.newBrowser(ctx, domain, headless)
	if err != nil {
		return Result{}, fmt.Errorf("refresh: start browser session: %w", err)
	}

	target := skill.BaseURL
	if skill.Auth != nil && skill.Auth.RefreshURL != "" {
		target = skill.Auth.RefreshURL
	}

	snapshot, err := browser.Start(ctx, target)
	if err != nil {
		_ = browser.Abort(ctx)
		return Result{}, fmt.Errorf("refresh: navigate to refresh target: %w", err)
	}
	if captcha := detectCaptcha(snapshot.Title); captcha != CaptchaNone {
		_ = browser.Abort(ctx)
		return Result{Captcha: captcha}, fmt.Errorf("refresh: captcha detected (%s), escalating", captcha)
	}

	tokens := map[string]store.StoredToken{}
	var lastSession *store.StoredSession
	captcha := CaptchaNone

	idle := time.NewTimer(inactivityTimeout)
	defer idle.Stop()

collect:
	for {
		select {
		case ex, ok := <-browser.Stream():
			if !ok {
				break collect
			}
			idle.Reset(inactivityTimeout)
			if c := detectCaptcha(ex.Response.Body); c != CaptchaNone {
				captcha = c
			}
			for _, path := range refreshableTokens {
				if value, found := extractBodyField(ex.Request.PostData, path); found {
					tokens[path] = store.StoredToken{Value: value, RefreshedAt: time.Now()}
				}
			}
			if cookies := cookiesFrom(ex.Response.Headers); len(cookies) > 0 {
				session := store.StoredSession{Cookies: cookies, SavedAt: time.Now()}
				lastSession = &session
			}
			if len(refreshableTokens) > 0 && allTokensCaptured(refreshableTokens, tokens) {
				// All declared tokens observed; end the session ourselves
				// rather than waiting indefinitely for an external
				// close-the-browser signal that a scripted capture never
				// sends.
				_, _ = browser.Finish(ctx)
				break collect
			}
		case <-idle.C:
			_ = browser.Abort(ctx)
			return Result{}, fmt.Errorf("refresh: browser session timed out waiting for handoff")
		case <-ctx.Done():
			_ = browser.Abort(ctx)
			return Result{}, fmt.Errorf("refresh: browser session timed out waiting for handoff")
		}
	}

	if captcha != CaptchaNone {
		return Result{Captcha: captcha}, fmt.Errorf("refresh: captcha detected during session (%s)", captcha)
	}

	if len(tokens) > 0 {
		if err := o.store.StoreTokens(domain, tokens); err != nil {
			return Result{}, fmt.Errorf("refresh: persist captured tokens: %w", err)
		}
	}
	if lastSession != nil {
		if err := o.store.StoreSession(domain, *lastSession); err != nil {
			return Result{}, fmt.Errorf("refresh: persist captured session: %w", err)
		}
		logging.Info("Refresh", "session cookies snapshotted after browser refresh", "domain", domain)
	}
	if len(tokens) == 0 && lastSession == nil {
		return Result{}, fmt.Errorf("refresh: browser session ended without capturing any declared token")
	}

	return Result{}, nil
}

// extractBodyField does a shallow dotted-path lookup into a
// form-encoded or JSON request body for one refreshable token path.
func extractBodyField(body, path string) (string, bool) {
	if body == "" {
		return "", false
	}
	key := path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		key = path[idx+1:]
	}
	marker := key + "="
	if idx := strings.Index(body, marker); idx >= 0 {
		rest := body[idx+len(marker):]
		if end := strings.IndexByte(rest, '&'); end >= 0 {
			rest = rest[:end]
		}
		return rest, true
	}
	quoted := `"` + key + `":"`
	if idx := strings.Index(body, quoted); idx >= 0 {
		rest := body[idx+len(quoted):]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end], true
		}
	}
	return "", false
}

func allTokensCaptured(declared []string, captured map[string]store.StoredToken) bool {
	for _, d := range declared {
		if _, ok := captured[d]; !ok {
			return false
		}
	}
	return true
}

func cookiesFrom(headers map[string]string) []store.Cookie {
	raw, ok := headers["set-cookie"]
	if !ok {
		raw, ok = headers["Set-Cookie"]
	}
	if !ok || raw == "" {
		return nil
	}
	var cookies []store.Cookie
	for _, part := range strings.Split(raw, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		cookies = append(cookies, store.Cookie{Name: kv[0], Value: kv[1]})
	}
	return cookies
}
