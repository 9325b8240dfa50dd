package generator

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	ulidPattern = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Za-hjkmnp-tv-z]{26}$`)
	// opaqueTokenPattern matches long base64url-ish opaque strings: no
	// spaces, mostly alphanumeric plus -_., length 20+.
	opaqueTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_\-\.]{20,}$`)
)

// ParameterizePath replaces numeric segments, UUIDs, ULIDs, and long
// opaque tokens in a URL path with ":id"-style placeholders, preserving
// human-readable segments, so two exchanges that differ only in a
// resource identifier parameterize to the same path.
func ParameterizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if isHighCardinalitySegment(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isHighCardinalitySegment(seg string) bool {
	if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
		return true
	}
	if uuidPattern.MatchString(seg) {
		return true
	}
	if ulidPattern.MatchString(seg) {
		return true
	}
	if len(seg) >= 20 && opaqueTokenPattern.MatchString(seg) && hasDigit(seg) {
		return true
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// EndpointKey is the deduplication key: method plus parameterized path.
func EndpointKey(method, parameterizedPath string) string {
	return strings.ToUpper(method) + " " + parameterizedPath
}
