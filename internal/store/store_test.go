package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"apitap/internal/crypto"
)

func testKey() []byte { return crypto.DeriveKey("test-machine") }

func TestStoreRetrieveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	s := New(path, testKey())

	require.NoError(t, s.Store("api.example.com", StoredAuth{Type: AuthBearer, Header: "authorization", Value: "Bearer abc"}))

	auth, ok := s.Retrieve("api.example.com")
	require.True(t, ok)
	require.Equal(t, "Bearer abc", auth.Value)
}

func TestRetrieveWithFallbackWalksParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	s := New(path, testKey())

	require.NoError(t, s.Store("example.com", StoredAuth{Type: AuthBearer, Header: "authorization", Value: "Bearer parent"}))

	auth, ok := s.RetrieveWithFallback("api.sub.example.com")
	require.True(t, ok)
	require.Equal(t, "Bearer parent", auth.Value)
}

func TestRetrieveWithFallbackStopsAtRegistrableDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	s := New(path, testKey())

	require.NoError(t, s.Store("com", StoredAuth{Type: AuthBearer, Header: "authorization", Value: "Bearer suffix"}))

	_, ok := s.RetrieveWithFallback("api.example.com")
	require.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	s := New(path, testKey())

	old := StoredSession{
		Cookies:  []Cookie{{Name: "sid", Value: "xyz"}},
		SavedAt:  time.Now().Add(-48 * time.Hour),
		MaxAgeMs: int64(24 * time.Hour / time.Millisecond),
	}
	require.NoError(t, s.StoreSession("example.com", old))

	_, ok := s.RetrieveSession("example.com")
	require.False(t, ok)
}

func TestDecryptionFailureTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	s1 := New(path, testKey())
	require.NoError(t, s1.Store("example.com", StoredAuth{Type: AuthBearer, Value: "Bearer abc"}))

	s2 := New(path, crypto.DeriveKey("different-machine"))
	_, ok := s2.Retrieve("example.com")
	require.False(t, ok)

	domains, err := s2.ListDomains()
	require.NoError(t, err)
	require.Empty(t, domains)
}

func TestOAuthCredentialsRotateInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	s := New(path, testKey())

	require.NoError(t, s.StoreOAuthCredentials("example.com", OAuthCredentials{RefreshToken: "rt1"}))
	require.NoError(t, s.StoreOAuthCredentials("example.com", OAuthCredentials{RefreshToken: "rt2"}))

	creds, ok := s.RetrieveOAuthCredentials("example.com")
	require.True(t, ok)
	require.Equal(t, "rt2", creds.RefreshToken)
}

func TestClearRemovesDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	s := New(path, testKey())

	require.NoError(t, s.Store("example.com", StoredAuth{Type: AuthBearer, Value: "Bearer abc"}))
	require.NoError(t, s.Clear("example.com"))

	_, ok := s.Retrieve("example.com")
	require.False(t, ok)
}
