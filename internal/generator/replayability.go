package generator

import (
	"strings"

	"apitap/internal/skillstore"
)

var csrfLikeHeaders = []string{"x-csrf-token", "x-xsrf-token", "x-requested-with"}

// ClassifyReplayability applies the pre-verification heuristic (§4.4
// step 8): auth placeholder present => yellow, CSRF-like header present
// => orange, captcha risk on the enclosing capture => red, otherwise
// green (unverified).
func ClassifyReplayability(headers map[string]string, captchaRisk bool) skillstore.Replayability {
	if captchaRisk {
		return skillstore.Replayability{Tier: skillstore.TierRed, Signals: []string{"captcha-risk"}}
	}

	var signals []string
	hasCSRF := false
	hasAuth := false
	for name := range headers {
		lower := strings.ToLower(name)
		for _, csrf := range csrfLikeHeaders {
			if lower == csrf {
				hasCSRF = true
			}
		}
		if lower == "authorization" || lower == "cookie" || lower == "x-api-key" {
			hasAuth = true
		}
	}

	if hasCSRF {
		signals = append(signals, "csrf-header")
		return skillstore.Replayability{Tier: skillstore.TierOrange, Signals: signals}
	}
	if hasAuth {
		signals = append(signals, "auth-header")
		return skillstore.Replayability{Tier: skillstore.TierYellow, Signals: signals}
	}
	return skillstore.Replayability{Tier: skillstore.TierGreen, Signals: signals}
}
