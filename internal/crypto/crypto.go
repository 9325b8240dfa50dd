// Package crypto derives the machine-bound symmetric key used to encrypt
// the credential store and sign skill files, and provides the AES-256-GCM
// and HMAC-SHA256 primitives built on top of it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	appSalt         = "apitap-key-derivation-salt-v1"
	pbkdf2Iters     = 100_000
	keyLen          = 32 // AES-256
	machineIDEnv    = "APITAP_MACHINE_ID"
	machineIDPath   = "/etc/machine-id"
	signaturePrefix = "hmac-sha256:"
)

// Envelope is the on-disk/serialized shape of an encrypted value.
type Envelope struct {
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	Tag        string `json:"tag"`
}

// MachineID returns a stable per-machine identifier. APITAP_MACHINE_ID
// overrides it for tests; otherwise it reads /etc/machine-id where
// available and falls back to the hostname.
func MachineID() string {
	if v := os.Getenv(machineIDEnv); v != "" {
		return v
	}
	if b, err := os.ReadFile(machineIDPath); err == nil {
		return string(b)
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "apitap-unknown-machine"
}

// DeriveKey derives a 32-byte AES-256 key from machineId via
// PBKDF2-HMAC-SHA512 with a fixed application salt.
func DeriveKey(machineID string) []byte {
	return pbkdf2.Key([]byte(machineID), []byte(appSalt), pbkdf2Iters, keyLen, sha512.New)
}

// Encrypt seals plaintext under key with AES-256-GCM, returning the salt
// (the app salt used for key derivation, recorded for forward compat),
// a fresh 16-byte IV, and the ciphertext/tag split apart.
func Encrypt(key, plaintext []byte) (Envelope, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Envelope{}, fmt.Errorf("crypto: new gcm: %w", err)
	}
	iv := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Envelope{}, fmt.Errorf("crypto: generate iv: %w", err)
	}
	// Use a standard 12-byte nonce derived from the 16-byte IV's first
	// bytes so gcm.Seal never panics on a mismatched nonce size, while
	// the stored IV keeps the spec's 16-byte shape.
	nonce := iv[:gcm.NonceSize()]
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]

	return Envelope{
		Salt:       appSalt,
		IV:         hex.EncodeToString(iv),
		Ciphertext: hex.EncodeToString(ciphertext),
		Tag:        hex.EncodeToString(tag),
	}, nil
}

// Decrypt opens an Envelope produced by Encrypt. A tampered ciphertext or
// wrong key fails closed with a non-nil error; callers must never return
// partial plaintext on error.
func Decrypt(key []byte, env Envelope) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) < gcm.NonceSize() {
		return nil, errors.New("crypto: malformed iv")
	}
	ciphertext, err := hex.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, errors.New("crypto: malformed ciphertext")
	}
	tag, err := hex.DecodeString(env.Tag)
	if err != nil {
		return nil, errors.New("crypto: malformed tag")
	}
	nonce := iv[:gcm.NonceSize()]
	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt failed: %w", err)
	}
	return plaintext, nil
}

// Sign computes an HMAC-SHA256 over content and returns it in the
// "hmac-sha256:<hex>" wire format.
func Sign(key, content []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(content)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is a valid HMAC-SHA256 over content
// under key, using a constant-time comparison. A length mismatch is
// checked before the constant-time compare so short-circuiting on length
// never leaks timing information about the valid signature's content.
func Verify(key, content []byte, signature string) bool {
	expected := Sign(key, content)
	if len(expected) != len(signature) {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
