package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"apitap/internal/generator"
	"apitap/internal/skillstore"
)

func writePostExchangesFile(t *testing.T, srv *httptest.Server) string {
	exchanges := []generator.Exchange{
		{
			Request: generator.CapturedRequest{
				URL:      srv.URL + "/orders",
				Method:   http.MethodPost,
				Headers:  map[string]string{"Content-Type": "application/json"},
				PostData: `{"item_id":42}`,
			},
			Response: generator.CapturedResponse{Status: 200, ContentType: "application/json", Body: `{"id":7,"name":"a"}`},
		},
	}
	raw, err := json.Marshal(exchanges)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "exchanges.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestCaptureVerifyPostsFlagOverridesConfig(t *testing.T) {
	withIsolatedStateDir(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"a"}`))
	}))
	defer srv.Close()

	exchangesPath := writePostExchangesFile(t, srv)

	captureCmd := newCaptureCmd()
	captureCmd.SetArgs([]string{exchangesPath, "--verify-posts"})
	captureCmd.SetOut(&bytes.Buffer{})
	require.NoError(t, captureCmd.Execute())

	host := "127.0.0.1"
	showCmd := newShowCmd()
	showCmd.SetArgs([]string{host})
	flagJSON = true
	var out bytes.Buffer
	showCmd.SetOut(&out)
	require.NoError(t, showCmd.Execute())
	flagJSON = false

	var skill skillstore.SkillFile
	require.NoError(t, json.Unmarshal(out.Bytes(), &skill))
	require.Len(t, skill.Endpoints, 1)
	require.True(t, skill.Endpoints[0].Replayability.Verified)
}

func TestCaptureWithoutVerifyPostsLeavesPostUnverified(t *testing.T) {
	withIsolatedStateDir(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"a"}`))
	}))
	defer srv.Close()

	exchangesPath := writePostExchangesFile(t, srv)

	captureCmd := newCaptureCmd()
	captureCmd.SetArgs([]string{exchangesPath})
	captureCmd.SetOut(&bytes.Buffer{})
	require.NoError(t, captureCmd.Execute())

	host := "127.0.0.1"
	showCmd := newShowCmd()
	showCmd.SetArgs([]string{host})
	flagJSON = true
	var out bytes.Buffer
	showCmd.SetOut(&out)
	require.NoError(t, showCmd.Execute())
	flagJSON = false

	var skill skillstore.SkillFile
	require.NoError(t, json.Unmarshal(out.Bytes(), &skill))
	require.Len(t, skill.Endpoints, 1)
	require.False(t, skill.Endpoints[0].Replayability.Verified)
}
