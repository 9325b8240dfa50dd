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
)

func withIsolatedStateDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Setenv("APITAP_DIR", dir))
	require.NoError(t, os.Setenv("APITAP_SKIP_SSRF_CHECK", "1"))
	t.Cleanup(func() {
		os.Unsetenv("APITAP_DIR")
		os.Unsetenv("APITAP_SKIP_SSRF_CHECK")
	})
}

func writeExchangesFile(t *testing.T, srv *httptest.Server) string {
	exchanges := []generator.Exchange{
		{
			Request:  generator.CapturedRequest{URL: srv.URL + "/users/7", Method: http.MethodGet, Headers: map[string]string{}},
			Response: generator.CapturedResponse{Status: 200, ContentType: "application/json", Body: `{"id":7,"name":"a"}`},
		},
	}
	raw, err := json.Marshal(exchanges)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "exchanges.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestCaptureListShowRoundTrip(t *testing.T) {
	withIsolatedStateDir(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"a"}`))
	}))
	defer srv.Close()

	exchangesPath := writeExchangesFile(t, srv)

	captureCmd := newCaptureCmd()
	captureCmd.SetArgs([]string{exchangesPath, "--no-verify"})
	var captureOut bytes.Buffer
	captureCmd.SetOut(&captureOut)
	require.NoError(t, captureCmd.Execute())

	host := "127.0.0.1"

	listCmd := newListCmd()
	var listOut bytes.Buffer
	listCmd.SetOut(&listOut)
	flagJSON = true
	require.NoError(t, listCmd.Execute())
	var domains []string
	require.NoError(t, json.Unmarshal(listOut.Bytes(), &domains))
	require.Contains(t, domains, host)

	showCmd := newShowCmd()
	showCmd.SetArgs([]string{host})
	var showOut bytes.Buffer
	showCmd.SetOut(&showOut)
	require.NoError(t, showCmd.Execute())
	flagJSON = false
}

func TestSearchFindsEndpointAcrossDomains(t *testing.T) {
	withIsolatedStateDir(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	exchangesPath := writeExchangesFile(t, srv)
	captureCmd := newCaptureCmd()
	captureCmd.SetArgs([]string{exchangesPath, "--no-verify"})
	captureCmd.SetOut(&bytes.Buffer{})
	require.NoError(t, captureCmd.Execute())

	searchCmd := newSearchCmd()
	searchCmd.SetArgs([]string{"users"})
	flagJSON = true
	var out bytes.Buffer
	searchCmd.SetOut(&out)
	require.NoError(t, searchCmd.Execute())
	require.Contains(t, out.String(), "users")
	flagJSON = false
}

func TestStatsAggregatesAcrossDomains(t *testing.T) {
	withIsolatedStateDir(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	exchangesPath := writeExchangesFile(t, srv)
	captureCmd := newCaptureCmd()
	captureCmd.SetArgs([]string{exchangesPath, "--no-verify"})
	captureCmd.SetOut(&bytes.Buffer{})
	require.NoError(t, captureCmd.Execute())

	statsCmd := newStatsCmd()
	flagJSON = true
	var out bytes.Buffer
	statsCmd.SetOut(&out)
	require.NoError(t, statsCmd.Execute())
	var counts tierCounts
	require.NoError(t, json.Unmarshal(out.Bytes(), &counts))
	require.Equal(t, 1, counts.Domains)
	require.Equal(t, 1, counts.Endpoints)
	flagJSON = false
}

func TestParseKeyValueArgsRejectsMissingSeparator(t *testing.T) {
	_, err := parseKeyValueArgs([]string{"noequals"})
	require.Error(t, err)

	params, err := parseKeyValueArgs([]string{"id=7", "name=a"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"id": "7", "name": "a"}, params)
}
