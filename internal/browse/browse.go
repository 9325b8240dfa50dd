// Package browse implements the browse orchestrator (C10): the
// cache-then-disk-then-discovery-then-replay pipeline a single "browse
// this URL" call walks through, grounded on the layered lookup idiom the
// teacher's filesystem-backed client uses before falling back further.
package browse

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"apitap/internal/adapter"
	"apitap/internal/cache"
	"apitap/internal/generator"
	"apitap/internal/replay"
	"apitap/internal/skillstore"
)

// Result is the outcome of one browse call.
type Result struct {
	Success        bool
	Suggestion     string
	Domain         string
	EndpointID     string
	ReplayResult   *replay.Result
	DiscoveryHints *adapter.DiscoveryResult
}

// Orchestrator wires the session cache, on-disk skill store, an optional
// discovery probe, and the replay engine into one lookup.
type Orchestrator struct {
	Cache     *cache.Cache
	SkillFor  func(domain string) (*skillstore.SkillFile, error)
	Discovery adapter.Discovery
	Replay    *replay.Engine
}

// New constructs an Orchestrator backed by skillStore for disk lookups.
func New(skillCache *cache.Cache, skillStore *skillstore.Store, discovery adapter.Discovery, engine *replay.Engine) *Orchestrator {
	return &Orchestrator{
		Cache:     skillCache,
		SkillFor:  skillStore.Load,
		Discovery: discovery,
		Replay:    engine,
	}
}

// Browse resolves rawURL to a domain's skill file via cache, falling
// back to disk and then to a discovery probe, and replays whichever
// endpoint best matches rawURL's path.
func (o *Orchestrator) Browse(ctx context.Context, rawURL string, params replay.Params) (Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("browse: parse url: %w", err)
	}
	domain := parsed.Hostname()
	if domain == "" {
		return Result{}, fmt.Errorf("browse: url has no host: %s", rawURL)
	}

	skill, hints, err := o.resolveSkill(ctx, domain, rawURL)
	if err != nil {
		return Result{}, err
	}
	if skill == nil {
		return Result{Success: false, Suggestion: "capture_needed", Domain: domain, DiscoveryHints: hints}, nil
	}

	endpoint := MatchEndpoint(skill, parsed.Path)
	if endpoint == nil {
		return Result{Success: false, Suggestion: "capture_needed", Domain: domain, DiscoveryHints: hints}, nil
	}

	params = withPathParamsFromURL(params, endpoint.Path, parsed.Path)
	replayResult, err := o.Replay.Replay(ctx, skill, endpoint.ID, params)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success:      true,
		Domain:       domain,
		EndpointID:   endpoint.ID,
		ReplayResult: &replayResult,
	}, nil
}

// resolveSkill walks cache -> disk -> discovery. Cache and disk always
// return a usable skill file when present. Discovery only returns one
// when its probe was confident enough to build a skeleton (spec §4.8:
// "medium" or "high" confidence); below that it only has enough signal
// to suggest a capture is worthwhile, surfaced as a hint on the eventual
// "capture_needed" Result instead.
func (o *Orchestrator) resolveSkill(ctx context.Context, domain, rawURL string) (*skillstore.SkillFile, *adapter.DiscoveryResult, error) {
	if entry, ok := o.Cache.Get(domain); ok {
		return entry.SkillFile, nil, nil
	}

	if o.SkillFor != nil {
		if skill, err := o.SkillFor(domain); err == nil {
			o.Cache.Put(domain, skill, cache.SourceDisk)
			return skill, nil, nil
		}
	}

	if o.Discovery != nil {
		if result, err := o.Discovery.Discover(ctx, rawURL); err == nil {
			if result.SkillFile != nil && isConfidentEnough(result.Confidence) {
				o.Cache.Put(domain, result.SkillFile, cache.SourceDiscovered)
				return result.SkillFile, &result, nil
			}
			return nil, &result, nil
		}
	}

	return nil, nil, nil
}

func isConfidentEnough(confidence string) bool {
	return confidence == "medium" || confidence == "high"
}

// MatchEndpoint finds the best endpoint in skill for targetPath,
// preferring (in order) a tier ranked higher, GET over POST, and then
// the shortest parameterized path, matching the spec's endpoint
// selection heuristic.
func MatchEndpoint(skill *skillstore.SkillFile, targetPath string) *skillstore.SkillEndpoint {
	parameterizedTarget := generator.ParameterizePath(targetPath)

	var candidates []*skillstore.SkillEndpoint
	for i := range skill.Endpoints {
		ep := &skill.Endpoints[i]
		if generator.ParameterizePath(ep.Path) == parameterizedTarget {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := tierRank(candidates[i].Replayability.Tier), tierRank(candidates[j].Replayability.Tier)
		if ti != tj {
			return ti < tj
		}
		mi, mj := methodRank(candidates[i].Method), methodRank(candidates[j].Method)
		if mi != mj {
			return mi < mj
		}
		return len(candidates[i].Path) < len(candidates[j].Path)
	})
	return candidates[0]
}

func tierRank(tier skillstore.Tier) int {
	switch tier {
	case skillstore.TierGreen:
		return 0
	case skillstore.TierYellow:
		return 1
	case skillstore.TierOrange:
		return 2
	case skillstore.TierRed:
		return 3
	default:
		return 4
	}
}

func methodRank(method string) int {
	if strings.EqualFold(method, "GET") {
		return 0
	}
	return 1
}

// withPathParamsFromURL extracts the concrete values a browsed URL
// supplied for each ":name" segment of the matched endpoint's templated
// path (e.g. "/users/:id" vs "/users/7" -> {"id": "7"}), so the caller
// doesn't have to pass path values the URL itself already carries.
func withPathParamsFromURL(params replay.Params, templatePath, actualPath string) replay.Params {
	templateSegments := strings.Split(templatePath, "/")
	actualSegments := strings.Split(actualPath, "/")
	if len(templateSegments) != len(actualSegments) {
		return params
	}

	merged := map[string]string{}
	for k, v := range params.PathAndBodyParams {
		merged[k] = v
	}
	for i, seg := range templateSegments {
		if strings.HasPrefix(seg, ":") {
			name := strings.TrimPrefix(seg, ":")
			if _, already := merged[name]; !already {
				merged[name] = actualSegments[i]
			}
		}
	}
	params.PathAndBodyParams = merged
	return params
}
