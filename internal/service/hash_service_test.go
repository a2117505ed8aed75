package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashService()

	password := "SecureP@ssw0rd!"
	hash, err := svc.Hash(password)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v="), "hash should start with $argon2id$v=")

	match, err := svc.Verify(password, hash)
	require.NoError(t, err)
	assert.True(t, match, "correct password should verify")

	match, err = svc.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, match, "wrong password should not verify")
}

func TestArgon2HashService_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashService()

	hash1, err := svc.Hash("same-password")
	require.NoError(t, err)
	hash2, err := svc.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2, "same password should produce different hashes (different salts)")
}

func TestArgon2HashService_VerifiesLegacyParameters(t *testing.T) {
	svc := NewArgon2HashService()

	// Records hashed under older parameters keep verifying because the
	// parameters travel in the hash itself.
	legacy := "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHRzb21lc2FsdA$nope"
	_, err := svc.Verify("password", legacy)
	require.NoError(t, err)
}

func TestArgon2HashService_MalformedHash(t *testing.T) {
	svc := NewArgon2HashService()

	for _, bad := range []string{
		"",
		"plain-text",
		"$bcrypt$v=19$m=1,t=1,p=1$AAAA$BBBB",
		"$argon2id$v=19$m=1,t=1,p=1$not-base64!$BBBB",
	} {
		_, err := svc.Verify("password", bad)
		assert.Error(t, err, "hash %q should be rejected", bad)
	}
}
