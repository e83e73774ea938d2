package dustsnapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fastTestParams() KDFParams {
	// Low cost parameters so the unit test suite stays fast; production
	// callers use DefaultKDFParams.
	return KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := New(fastTestParams())
	plaintext := []byte("serialized dust snapshot bytes")

	blob, err := c.Encrypt(plaintext, "correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, plaintext, blob)

	decrypted, err := c.Decrypt(blob, "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	c := New(fastTestParams())
	blob, err := c.Encrypt([]byte("secret"), "right password")
	require.NoError(t, err)

	_, err = c.Decrypt(blob, "wrong password")
	require.Error(t, err)
}

func TestDecryptRejectsTruncatedBlob(t *testing.T) {
	c := New(fastTestParams())
	_, err := c.Decrypt([]byte{1, 2, 3}, "whatever")
	require.Error(t, err)
}

func TestDecryptRejectsUnsupportedVersion(t *testing.T) {
	c := New(fastTestParams())
	blob, err := c.Encrypt([]byte("data"), "pw")
	require.NoError(t, err)
	blob[0] = 0xFF

	_, err = c.Decrypt(blob, "pw")
	require.Error(t, err)
}
