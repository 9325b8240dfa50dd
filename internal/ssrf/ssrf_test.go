package ssrf

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResolver map[string][]net.IPAddr

func (f fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	return f[host], nil
}

func TestValidateRejectsBadScheme(t *testing.T) {
	r := ValidateWithResolver(context.Background(), "file:///etc/passwd", nil)
	require.False(t, r.Safe)
}

func TestValidateRejectsLoopbackLiteral(t *testing.T) {
	r := ValidateWithResolver(context.Background(), "http://127.0.0.1/", nil)
	require.False(t, r.Safe)
}

func TestValidateRejectsCloudMetadata(t *testing.T) {
	r := ValidateWithResolver(context.Background(), "http://169.254.169.254/latest/meta-data", nil)
	require.False(t, r.Safe)
}

func TestValidateRejectsPrivateRange(t *testing.T) {
	r := ValidateWithResolver(context.Background(), "http://10.0.0.5/", nil)
	require.False(t, r.Safe)
}

func TestValidateAcceptsPublicResolvedHost(t *testing.T) {
	resolver := fakeResolver{
		"api.example.com": {{IP: net.ParseIP("93.184.216.34")}},
	}
	r := ValidateWithResolver(context.Background(), "https://api.example.com/v1/items", resolver)
	require.True(t, r.Safe)
}

func TestValidateRejectsWhenAnyResolvedAddressIsPrivate(t *testing.T) {
	resolver := fakeResolver{
		"evil.example.com": {
			{IP: net.ParseIP("93.184.216.34")},
			{IP: net.ParseIP("192.168.1.1")},
		},
	}
	r := ValidateWithResolver(context.Background(), "https://evil.example.com/", resolver)
	require.False(t, r.Safe)
}

func TestValidateSkipBypassFlag(t *testing.T) {
	t.Setenv(skipCheckEnv, "1")
	r := ValidateWithResolver(context.Background(), "http://127.0.0.1:9999/", nil)
	require.True(t, r.Safe)
}
