package browse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"apitap/internal/adapter"
	"apitap/internal/cache"
	"apitap/internal/crypto"
	"apitap/internal/replay"
	"apitap/internal/skillstore"
	"apitap/internal/store"
)

func withSSRFBypass(t *testing.T) {
	require.NoError(t, os.Setenv("APITAP_SKIP_SSRF_CHECK", "1"))
	t.Cleanup(func() { os.Unsetenv("APITAP_SKIP_SSRF_CHECK") })
}

func TestBrowseHitsCacheThenReplays(t *testing.T) {
	withSSRFBypass(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/7", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	credStore := store.New(filepath.Join(t.TempDir(), "creds.enc"), crypto.DeriveKey("m"))
	engine := replay.New(credStore, nil)
	skillCache := cache.New()

	skill := &skillstore.SkillFile{
		Domain:  "example.com",
		BaseURL: srv.URL,
		Endpoints: []skillstore.SkillEndpoint{
			{ID: "get-user", Method: http.MethodGet, Path: "/users/:id"},
		},
	}
	skillCache.Put("example.com", skill, cache.SourceDisk)

	orch := New(skillCache, skillstore.New(t.TempDir(), crypto.DeriveKey("m")), adapter.NullDiscovery{}, engine)

	result, err := orch.Browse(context.Background(), "https://example.com/users/7", replay.Params{})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "get-user", result.EndpointID)
}

func TestBrowseSuggestsCaptureWhenNoSkillFound(t *testing.T) {
	credStore := store.New(filepath.Join(t.TempDir(), "creds.enc"), crypto.DeriveKey("m"))
	engine := replay.New(credStore, nil)
	skillCache := cache.New()
	skillStore := skillstore.New(t.TempDir(), crypto.DeriveKey("m"))

	orch := New(skillCache, skillStore, adapter.NullDiscovery{}, engine)

	result, err := orch.Browse(context.Background(), "https://unknown.example/anything", replay.Params{})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "capture_needed", result.Suggestion)
	require.NotNil(t, result.DiscoveryHints)
}

type stubDiscovery struct {
	result adapter.DiscoveryResult
}

func (s stubDiscovery) Discover(ctx context.Context, url string) (adapter.DiscoveryResult, error) {
	return s.result, nil
}

func TestBrowseUsesDiscoveredSkeletonSkillWhenConfident(t *testing.T) {
	withSSRFBypass(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/7", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	credStore := store.New(filepath.Join(t.TempDir(), "creds.enc"), crypto.DeriveKey("m"))
	engine := replay.New(credStore, nil)
	skillCache := cache.New()
	skillStore := skillstore.New(t.TempDir(), crypto.DeriveKey("m"))

	skeleton := &skillstore.SkillFile{
		Domain:  "discovered.example",
		BaseURL: srv.URL,
		Endpoints: []skillstore.SkillEndpoint{
			{ID: "get-user", Method: http.MethodGet, Path: "/users/:id"},
		},
	}
	discovery := stubDiscovery{result: adapter.DiscoveryResult{Confidence: "high", SkillFile: skeleton}}

	orch := New(skillCache, skillStore, discovery, engine)

	result, err := orch.Browse(context.Background(), "https://discovered.example/users/7", replay.Params{})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "get-user", result.EndpointID)

	entry, ok := skillCache.Get("discovered.example")
	require.True(t, ok)
	require.Equal(t, cache.SourceDiscovered, entry.Source)
}

func TestBrowseSuggestsCaptureWhenDiscoveryConfidenceTooLow(t *testing.T) {
	skillCache := cache.New()
	skillStore := skillstore.New(t.TempDir(), crypto.DeriveKey("m"))
	credStore := store.New(filepath.Join(t.TempDir(), "creds.enc"), crypto.DeriveKey("m"))
	engine := replay.New(credStore, nil)

	skeleton := &skillstore.SkillFile{Domain: "low-confidence.example"}
	discovery := stubDiscovery{result: adapter.DiscoveryResult{Confidence: "low", SkillFile: skeleton}}

	orch := New(skillCache, skillStore, discovery, engine)

	result, err := orch.Browse(context.Background(), "https://low-confidence.example/anything", replay.Params{})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "capture_needed", result.Suggestion)
	require.NotNil(t, result.DiscoveryHints)

	_, ok := skillCache.Get("low-confidence.example")
	require.False(t, ok)
}

func TestMatchEndpointPrefersGreenTierAndGETAndShorterPath(t *testing.T) {
	skill := &skillstore.SkillFile{
		Endpoints: []skillstore.SkillEndpoint{
			{ID: "red-get", Method: "GET", Path: "/users/:id", Replayability: skillstore.Replayability{Tier: skillstore.TierRed}},
			{ID: "green-post", Method: "POST", Path: "/users/:id", Replayability: skillstore.Replayability{Tier: skillstore.TierGreen}},
			{ID: "green-get", Method: "GET", Path: "/users/:id", Replayability: skillstore.Replayability{Tier: skillstore.TierGreen}},
		},
	}
	best := MatchEndpoint(skill, "/users/42")
	require.NotNil(t, best)
	require.Equal(t, "green-get", best.ID)
}

func TestMatchEndpointReturnsNilWhenNoPathMatches(t *testing.T) {
	skill := &skillstore.SkillFile{
		Endpoints: []skillstore.SkillEndpoint{
			{ID: "only", Method: "GET", Path: "/orders/:id"},
		},
	}
	require.Nil(t, MatchEndpoint(skill, "/users/1"))
}
