package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBrowserFinishGroupsByDomain(t *testing.T) {
	exchanges := []CapturedExchange{
		{Request: CapturedRequestWire{URL: "https://a.example.com/x", Method: "GET"}},
		{Request: CapturedRequestWire{URL: "https://b.example.com/y", Method: "GET"}},
	}
	b := NewLocalBrowser(exchanges)
	_, err := b.Start(context.Background(), "https://a.example.com/x")
	require.NoError(t, err)

	summaries, err := b.Finish(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
}

func TestNullDiscoveryReportsNoConfidence(t *testing.T) {
	d := NullDiscovery{}
	result, err := d.Discover(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "none", result.Confidence)
}
