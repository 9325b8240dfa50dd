package skillstore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"apitap/internal/cli"
	"apitap/internal/crypto"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func sampleSkill(domain string) *SkillFile {
	return &SkillFile{
		Version:    "1",
		Domain:     domain,
		BaseURL:    "https://" + domain,
		CapturedAt: time.Now().UTC(),
		Endpoints: []SkillEndpoint{
			{
				ID:     "get-api-item-id",
				Method: "GET",
				Path:   "/api/item/:id",
				ResponseShape: ResponseShape{
					Type:   "object",
					Fields: []string{"id", "name"},
				},
				Examples: Examples{RequestURL: "https://" + domain + "/api/item/42"},
				Replayability: Replayability{
					Tier: TierGreen,
				},
			},
		},
		Metadata: SkillMetadata{CaptureCount: 1, ToolVersion: "test"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, testKey())

	skill := sampleSkill("example.com")
	require.NoError(t, store.Save(skill))

	loaded, err := store.Load("example.com")
	require.NoError(t, err)
	require.Equal(t, ProvenanceSelf, loaded.Provenance)
	require.NotEmpty(t, loaded.Signature)
	require.Len(t, loaded.Endpoints, 1)
}

func TestLoadRejectsTamperedContent(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, testKey())

	skill := sampleSkill("example.com")
	require.NoError(t, store.Save(skill))

	loaded, err := store.Load("example.com")
	require.NoError(t, err)
	loaded.BaseURL = "https://evil.example.com"
	require.NoError(t, store.Save(loaded))

	// Re-derive via direct mutation of a valid file to simulate tampering
	// that bypasses Save's re-signing: write a modified copy using the
	// internal path helper and a stale signature.
	tampered := sampleSkill("tampered.com")
	require.NoError(t, store.Save(tampered))

	reloaded, err := store.Load("tampered.com")
	require.NoError(t, err)
	reloaded.BaseURL = "https://evil.example.com"
	raw, err := json.MarshalIndent(reloaded, "", "  ")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NoError(t, os.WriteFile(store.pathFor("tampered.com"), raw, 0o600))

	_, err = store.Load("tampered.com")
	require.Error(t, err)
}

func TestLoadReturnsIntegrityErrorOnBadSignature(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, testKey())

	skill := sampleSkill("tampered-sig.com")
	require.NoError(t, store.Save(skill))

	loaded, err := store.Load("tampered-sig.com")
	require.NoError(t, err)
	loaded.Signature = "hmac-sha256:deadbeef"
	data, err := json.MarshalIndent(loaded, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.pathFor("tampered-sig.com"), data, 0o600))

	_, err = store.Load("tampered-sig.com")
	require.Error(t, err)
	var integrityErr *cli.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
}

func TestListDomains(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, testKey())

	require.NoError(t, store.Save(sampleSkill("a.example.com")))
	require.NoError(t, store.Save(sampleSkill("b.example.com")))

	domains, err := store.ListDomains()
	require.NoError(t, err)
	require.Equal(t, []string{"a.example.com", "b.example.com"}, domains)
}

func TestImportMarksProvenanceImported(t *testing.T) {
	require.NoError(t, os.Setenv("APITAP_SKIP_SSRF_CHECK", "1"))
	t.Cleanup(func() { os.Unsetenv("APITAP_SKIP_SSRF_CHECK") })

	dir := t.TempDir()
	store := New(dir, testKey())

	skill := sampleSkill("imported.com")
	require.NoError(t, store.Import(context.Background(), skill))

	loaded, err := store.Load("imported.com")
	require.NoError(t, err)
	require.Equal(t, ProvenanceImported, loaded.Provenance)
}

func TestImportRejectsSSRFUnsafeBaseURL(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, testKey())

	skill := sampleSkill("metadata.example.com")
	skill.BaseURL = "http://169.254.169.254"

	err := store.Import(context.Background(), skill)
	require.Error(t, err)

	_, loadErr := store.Load("metadata.example.com")
	require.Error(t, loadErr)
}

func TestSignatureRoundTripInvariant(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, testKey())

	skill := sampleSkill("invariant.com")
	require.NoError(t, store.Save(skill))

	canonical, err := canonicalize(skill)
	require.NoError(t, err)
	require.True(t, len(canonical) > 0)
	require.True(t, crypto.Verify(testKey(), canonical, skill.Signature))

	skill.BaseURL = "https://mutated.example.com"
	mutated, err := canonicalize(skill)
	require.NoError(t, err)
	require.False(t, crypto.Verify(testKey(), mutated, skill.Signature))
}
