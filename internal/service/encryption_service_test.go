package service

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAESKey() string {
	return hex.EncodeToString(make([]byte, 32)) // fixed key is fine for tests
}

func TestAESEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey())
	require.NoError(t, err)

	pan := "6037991122334455"
	enc, err := svc.Encrypt(pan)
	require.NoError(t, err)
	assert.NotContains(t, enc, pan, "ciphertext must not leak the plaintext")

	dec, err := svc.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, pan, dec)
}

func TestAESEncryptionService_NonDeterministic(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey())
	require.NoError(t, err)

	enc1, err := svc.Encrypt("same-input")
	require.NoError(t, err)
	enc2, err := svc.Encrypt("same-input")
	require.NoError(t, err)

	assert.NotEqual(t, enc1, enc2, "fresh nonce per encryption")
}

func TestAESEncryptionService_RejectsBadKey(t *testing.T) {
	_, err := NewAESEncryptionService("deadbeef") // too short
	assert.Error(t, err)

	_, err = NewAESEncryptionService("not-hex")
	assert.Error(t, err)
}

func TestAESEncryptionService_RejectsTamperedCiphertext(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey())
	require.NoError(t, err)

	enc, err := svc.Encrypt("6037991122334455")
	require.NoError(t, err)

	_, err = svc.Decrypt(enc[:len(enc)-4] + "AAA=")
	assert.Error(t, err, "GCM must reject modified ciphertext")

	_, err = svc.Decrypt("%%%not-base64%%%")
	assert.Error(t, err)

	_, err = svc.Decrypt("c2hvcnQ") // shorter than a nonce
	assert.Error(t, err)
}
