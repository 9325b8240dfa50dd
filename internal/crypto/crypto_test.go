package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	k1 := DeriveKey("machine-a")
	k2 := DeriveKey("machine-a")
	k3 := DeriveKey("machine-b")

	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
	require.Len(t, k1, keyLen)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveKey("machine-a")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	env, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	require.NotEmpty(t, env.IV)
	require.NotEmpty(t, env.Ciphertext)
	require.NotEmpty(t, env.Tag)

	got, err := Decrypt(key, env)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key := DeriveKey("machine-a")
	other := DeriveKey("machine-b")

	env, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(other, env)
	require.Error(t, err)
}

func TestDecryptTamperedCiphertextFailsClosed(t *testing.T) {
	key := DeriveKey("machine-a")
	env, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	env.Ciphertext = env.Ciphertext[:len(env.Ciphertext)-2] + "00"

	_, err = Decrypt(key, env)
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	key := DeriveKey("machine-a")
	content := []byte(`{"domain":"example.com"}`)

	sig := Sign(key, content)
	require.Contains(t, sig, signaturePrefix)
	require.True(t, Verify(key, content, sig))
}

func TestVerifyFalsifiedByMutation(t *testing.T) {
	key := DeriveKey("machine-a")
	content := []byte(`{"domain":"example.com"}`)
	sig := Sign(key, content)

	mutated := []byte(`{"domain":"example.org"}`)
	require.False(t, Verify(key, mutated, sig))
}

func TestMachineIDEnvOverride(t *testing.T) {
	t.Setenv(machineIDEnv, "test-machine-123")
	require.Equal(t, "test-machine-123", MachineID())
}
