package replay

import (
	"encoding/json"

	apitapstrings "apitap/pkg/strings"
)

// truncateToFit shrinks data so its JSON encoding fits within maxBytes,
// in three escalating passes: trim arrays from the tail, then truncate
// long string fields, then binary-search a common truncation length for
// every string field. Returns the (possibly unchanged) value and whether anything
// was cut.
func truncateToFit(data interface{}, maxBytes int) (bool, interface{}) {
	encoded, err := json.Marshal(data)
	if err != nil || len(encoded) <= maxBytes {
		return false, data
	}

	trimmed := trimArrayTails(data)
	if encoded, err := json.Marshal(trimmed); err == nil && len(encoded) <= maxBytes {
		return true, trimmed
	}

	fieldTruncated := truncateLongStrings(trimmed, apitapstrings.DefaultDescriptionMaxLen)
	if encoded, err := json.Marshal(fieldTruncated); err == nil && len(encoded) <= maxBytes {
		return true, fieldTruncated
	}

	return true, binarySearchShrink(fieldTruncated, maxBytes)
}

// trimArrayTails keeps only the first 20 elements of any longer
// array/slice, recursively, so pagination-sized collections don't dominate the
// response budget.
func trimArrayTails(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		limit := len(val)
		if limit > 20 {
			limit = 20
		}
		out := make([]interface{}, limit)
		for i := 0; i < limit; i++ {
			out[i] = trimArrayTails(val[i])
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[k] = trimArrayTails(child)
		}
		return out
	default:
		return v
	}
}

// truncateLongStrings applies apitapstrings.TruncateDescription to every
// string value in the tree.
func truncateLongStrings(v interface{}, maxLen int) interface{} {
	switch val := v.(type) {
	case string:
		return apitapstrings.TruncateDescription(val, maxLen)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = truncateLongStrings(item, maxLen)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[k] = truncateLongStrings(child, maxLen)
		}
		return out
	default:
		return v
	}
}

// binarySearchShrink is the last resort: it repeatedly halves the
// truncation length of every string field until the whole payload fits,
// capped at a handful of iterations so it always terminates.
func binarySearchShrink(v interface{}, maxBytes int) interface{} {
	lo, hi := apitapstrings.MinTruncateLen, apitapstrings.DefaultDescriptionMaxLen
	best := v
	for i := 0; i < 8 && lo < hi; i++ {
		mid := (lo + hi) / 2
		candidate := truncateLongStrings(v, mid)
		encoded, err := json.Marshal(candidate)
		if err == nil && len(encoded) <= maxBytes {
			best = candidate
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return best
}
