package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"apitap/internal/store"
	pkgauth "apitap/pkg/auth"
)

func TestAuthListReportsStoredDomainStatus(t *testing.T) {
	withIsolatedStateDir(t)

	application, err := bootstrap()
	require.NoError(t, err)
	require.NoError(t, application.Services.CredentialStore.Store("api.example.com", store.StoredAuth{
		Type:   store.AuthBearer,
		Header: "Authorization",
		Value:  "tok",
	}))

	authCmd := newAuthCmd()
	authCmd.SetArgs([]string{"--list"})
	flagJSON = true
	var out bytes.Buffer
	authCmd.SetOut(&out)
	require.NoError(t, authCmd.Execute())
	flagJSON = false

	var resp pkgauth.StatusResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Domains, 1)
	require.Equal(t, "api.example.com", resp.Domains[0].Domain)
	require.Equal(t, "bearer", resp.Domains[0].Kind)
	require.True(t, resp.Domains[0].Authenticated)
}

func TestAuthUnknownDomainReturnsNotFound(t *testing.T) {
	withIsolatedStateDir(t)

	authCmd := newAuthCmd()
	authCmd.SetArgs([]string{"unknown.example"})
	authCmd.SetOut(&bytes.Buffer{})
	require.Error(t, authCmd.Execute())
}
