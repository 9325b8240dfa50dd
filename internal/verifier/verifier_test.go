package verifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"apitap/internal/skillstore"
)

func TestVerifyUpgradesOnShapeMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"name":"ok"}`))
	}))
	defer srv.Close()

	v := New(false)
	endpoint := skillstore.SkillEndpoint{
		ID:            "get-item",
		Method:        "GET",
		Path:          "/item/1",
		ResponseShape: skillstore.ResponseShape{Type: "object"},
		Replayability: skillstore.Replayability{Tier: skillstore.TierGreen},
	}

	result := v.Verify(context.Background(), srv.URL, endpoint)
	require.True(t, result.Verified)
	require.Equal(t, skillstore.TierGreen, result.Tier)
	require.Contains(t, result.Signals, "shape-match")
}

func TestVerifyDemotesOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := New(false)
	endpoint := skillstore.SkillEndpoint{Method: "GET", Path: "/broken", Replayability: skillstore.Replayability{Tier: skillstore.TierGreen}}

	result := v.Verify(context.Background(), srv.URL, endpoint)
	require.Equal(t, skillstore.TierOrange, result.Tier)
}

func TestVerifyKeepsYellowOnAuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := New(false)
	endpoint := skillstore.SkillEndpoint{Method: "GET", Path: "/private", Replayability: skillstore.Replayability{Tier: skillstore.TierYellow}}

	result := v.Verify(context.Background(), srv.URL, endpoint)
	require.Equal(t, skillstore.TierYellow, result.Tier)
	require.Contains(t, result.Signals, "auth-required")
}

func TestVerifyResolvesParameterizedPathFromExample(t *testing.T) {
	var requestedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":42,"name":"Dynamic"}`))
	}))
	defer srv.Close()

	v := New(false)
	endpoint := skillstore.SkillEndpoint{
		ID:            "get-api-item-id",
		Method:        "GET",
		Path:          "/api/item/:id",
		ResponseShape: skillstore.ResponseShape{Type: "object"},
		Examples:      skillstore.Examples{RequestURL: srv.URL + "/api/item/42"},
		Replayability: skillstore.Replayability{Tier: skillstore.TierGreen},
	}

	result := v.Verify(context.Background(), srv.URL, endpoint)
	require.Equal(t, "/api/item/42", requestedPath)
	require.Equal(t, skillstore.TierGreen, result.Tier)
	require.Contains(t, result.Signals, "shape-match")
}

func TestVerifySkipsPostWithoutOptIn(t *testing.T) {
	v := New(false)
	endpoint := skillstore.SkillEndpoint{
		Method:        "POST",
		RequestBody:   &skillstore.RequestBody{ContentType: "application/json", Template: map[string]interface{}{"a": 1}},
		Replayability: skillstore.Replayability{Tier: skillstore.TierUnknown},
	}
	result := v.Verify(context.Background(), "http://unused.invalid", endpoint)
	require.False(t, result.Verified)
}
