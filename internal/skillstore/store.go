// Package skillstore implements the per-domain skill-file store (C4):
// atomic read/write of JSON skill files in a user-configurable directory,
// with an HMAC signature over canonical content and three-state
// provenance tracking.
package skillstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"apitap/internal/cli"
	"apitap/internal/crypto"
	"apitap/internal/ssrf"
	"apitap/pkg/logging"
)

// Store persists skill files under a directory, one JSON file per domain.
type Store struct {
	dir string
	key []byte
}

// New constructs a Store rooted at dir, signing with key (apitap's
// machine-derived key from internal/crypto).
func New(dir string, key []byte) *Store {
	return &Store{dir: dir, key: key}
}

func (s *Store) pathFor(domain string) string {
	return filepath.Join(s.dir, sanitizeDomain(domain)+".json")
}

func sanitizeDomain(domain string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(domain)
}

// Save signs skill with provenance "self" and atomically writes it to
// <dir>/<domain>.json. Use this from a direct local capture; it always
// stamps ProvenanceSelf, so it must never be called on a skill file
// whose provenance was already decided by the caller (see Import).
func (s *Store) Save(skill *SkillFile) error {
	skill.Provenance = ProvenanceSelf
	return s.signAndWrite(skill)
}

// signAndWrite signs skill under the local key over its canonical
// content (leaving whatever provenance the caller already stamped
// untouched) and atomically writes it to <dir>/<domain>.json via a
// temp-file-then-rename, so readers never observe a partial write.
func (s *Store) signAndWrite(skill *SkillFile) error {
	sortEndpoints(skill)
	skill.Signature = ""

	canonical, err := canonicalize(skill)
	if err != nil {
		return fmt.Errorf("skillstore: canonicalize: %w", err)
	}
	skill.Signature = crypto.Sign(s.key, canonical)

	data, err := json.MarshalIndent(skill, "", "  ")
	if err != nil {
		return fmt.Errorf("skillstore: marshal: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("skillstore: mkdir: %w", err)
	}

	target := s.pathFor(skill.Domain)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("skillstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("skillstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("skillstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("skillstore: rename temp file: %w", err)
	}
	logging.Info("SkillStore", "saved skill file", "domain", skill.Domain, "provenance", string(skill.Provenance), "endpoints", len(skill.Endpoints))
	return nil
}

// Load reads and verifies the skill file for domain. A self-provenance
// file with an invalid signature is an IntegrityError-class failure (fail
// closed); callers should treat it the same as "no skill file".
func (s *Store) Load(domain string) (*SkillFile, error) {
	data, err := os.ReadFile(s.pathFor(domain))
	if err != nil {
		return nil, err
	}
	var skill SkillFile
	if err := json.Unmarshal(data, &skill); err != nil {
		return nil, fmt.Errorf("skillstore: unmarshal %s: %w", domain, err)
	}

	if skill.Provenance == ProvenanceSelf {
		sig := skill.Signature
		skill.Signature = ""
		canonical, err := canonicalize(&skill)
		skill.Signature = sig
		if err != nil {
			return nil, fmt.Errorf("skillstore: canonicalize for verify: %w", err)
		}
		if !crypto.Verify(s.key, canonical, sig) {
			return nil, &cli.IntegrityError{Reason: fmt.Sprintf("signature verification failed for %s", domain)}
		}
	}
	return &skill, nil
}

// Import writes an externally sourced skill file, marking it "imported"
// and re-signing it under the local key, not the origin's. Load checks
// signatures of self-provenance files only, so an imported file is not
// verified when it is loaded. baseUrl is SSRF
// validated before anything is written, per spec §4.2: a skill file
// pointing at a private, loopback, or cloud-metadata origin is rejected
// rather than imported.
func (s *Store) Import(ctx context.Context, skill *SkillFile) error {
	if res := ssrf.Validate(ctx, skill.BaseURL); !res.Safe {
		return &cli.ValidationError{Reason: "SSRF validation failed for baseUrl: " + res.Reason}
	}
	skill.Provenance = ProvenanceImported
	return s.signAndWrite(skill)
}

// ListDomains returns every domain with a stored skill file.
func (s *Store) ListDomains() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var domains []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		domains = append(domains, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(domains)
	return domains, nil
}

func sortEndpoints(skill *SkillFile) {
	sort.Slice(skill.Endpoints, func(i, j int) bool {
		return skill.Endpoints[i].ID < skill.Endpoints[j].ID
	})
}

// canonicalize produces the deterministic byte sequence signed over: keys
// sorted, no whitespace, signature field excluded.
func canonicalize(skill *SkillFile) ([]byte, error) {
	data, err := json.Marshal(skill)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	delete(raw, "signature")

	var buf bytes.Buffer
	if err := writeCanonical(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
