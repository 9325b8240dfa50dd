// Package generator implements the skill generator (C5): it consumes a
// stream of captured request/response exchanges and produces a
// deduplicated, parameterized endpoint catalog with classified
// replayability, extracted auth, and response-schema snapshots.
package generator

import "time"

// Exchange is one captured request/response pair, already accepted by
// the capture adapter's filtering scorer (step 1 of §4.4 is delegated
// there; the generator only ever sees already-accepted exchanges).
type Exchange struct {
	Request      CapturedRequest
	Response     CapturedResponse
	CaptchaRisk  bool
	Timestamp    time.Time
}

// CapturedRequest is the request half of an exchange.
type CapturedRequest struct {
	URL      string
	Method   string
	Headers  map[string]string
	PostData string
}

// CapturedResponse is the response half of an exchange.
type CapturedResponse struct {
	Status      int
	Headers     map[string]string
	Body        string
	ContentType string
}
