package generator

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// keyNamePatterns matches field names commonly carrying dynamic values:
// timestamps, pagination cursors, request IDs, CSRF/session tokens,
// geolocation, search/filter terms, page numbers.
var keyNamePatterns = regexp.MustCompile(`(?i)(timestamp|_at$|^ts$|cursor|request[_-]?id|trace[_-]?id|csrf|session|nonce|lat(itude)?|lon(gitude)?|query|search|filter|page|offset|limit)`)

// DetectBodyVariables walks a JSON body and returns the union of dotted
// paths flagged dynamic by the value-shape and key-name strategies. The
// cross-request diff strategy (three) is applied separately in
// ToSkillFile once multiple samples for the same endpoint are available.
func DetectBodyVariables(body string) []string {
	if !gjson.Valid(body) {
		return nil
	}
	result := gjson.Parse(body)
	seen := map[string]bool{}
	var paths []string
	walkJSON(result, "", func(path string, value gjson.Result) {
		if seen[path] {
			return
		}
		if isDynamicByShape(value) || isDynamicByKeyName(path) {
			seen[path] = true
			paths = append(paths, path)
		}
	})
	return paths
}

func walkJSON(v gjson.Result, prefix string, visit func(path string, value gjson.Result)) {
	if v.IsObject() {
		v.ForEach(func(key, value gjson.Result) bool {
			path := key.String()
			if prefix != "" {
				path = prefix + "." + path
			}
			visit(path, value)
			walkJSON(value, path, visit)
			return true
		})
		return
	}
	if v.IsArray() {
		v.ForEach(func(idx, value gjson.Result) bool {
			path := prefix + ".0"
			if prefix == "" {
				path = "0"
			}
			visit(path, value)
			walkJSON(value, path, visit)
			return false // only sample the first element, like the schema snapshot
		})
	}
}

func isDynamicByKeyName(path string) bool {
	segs := strings.Split(path, ".")
	last := segs[len(segs)-1]
	return keyNamePatterns.MatchString(last)
}

func isDynamicByShape(v gjson.Result) bool {
	switch v.Type {
	case gjson.Number:
		return true
	case gjson.String:
		s := v.String()
		if uuidPattern.MatchString(s) || ulidPattern.MatchString(s) {
			return true
		}
		if len(s) >= 20 && opaqueTokenPattern.MatchString(s) && shannonEntropy(s) >= entropyThreshold {
			return true
		}
		return false
	default:
		return false
	}
}

const entropyThreshold = 3.5

// shannonEntropy computes the Shannon entropy in bits/byte of s, used to
// flag high-entropy opaque values (tokens, IDs) as dynamic and,
// separately, high-entropy custom headers as auth candidates.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := map[byte]int{}
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	n := float64(len(s))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// DiffBodySamples implements the cross-request diff strategy: fields
// that changed between two captured bodies at the same endpoint are
// marked dynamic; array fields are marked dynamic when lengths differ,
// otherwise diffed element-wise.
func DiffBodySamples(a, b string) []string {
	var va, vb interface{}
	if json.Unmarshal([]byte(a), &va) != nil || json.Unmarshal([]byte(b), &vb) != nil {
		return nil
	}
	var paths []string
	diffValue("", va, vb, &paths)
	return paths
}

func diffValue(path string, a, b interface{}, out *[]string) {
	am, aIsMap := a.(map[string]interface{})
	bm, bIsMap := b.(map[string]interface{})
	if aIsMap && bIsMap {
		for k, av := range am {
			bv, ok := bm[k]
			childPath := joinPath(path, k)
			if !ok {
				*out = append(*out, childPath)
				continue
			}
			diffValue(childPath, av, bv, out)
		}
		return
	}

	aa, aIsArr := a.([]interface{})
	ba, bIsArr := b.([]interface{})
	if aIsArr && bIsArr {
		if len(aa) != len(ba) {
			*out = append(*out, path)
			return
		}
		for i := range aa {
			diffValue(joinPath(path, "0"), aa[i], ba[i], out)
			break // first element only, matching the schema snapshot convention
		}
		return
	}

	if !deepEqualScalar(a, b) {
		*out = append(*out, path)
	}
}

func joinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

func deepEqualScalar(a, b interface{}) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}
