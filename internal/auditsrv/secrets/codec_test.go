package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	passwords := []string{
		NewPassword(),
		NewPassword(),
		"short",
		"pässwörd-with-ütf8",
	}

	for _, p := range passwords {
		blob, err := Encrypt([]byte(p), "encryption-passwd")
		require.Nil(t, err)
		require.NotEmpty(t, blob)

		plaintext, err := Decrypt(blob, "encryption-passwd")
		require.Nil(t, err)
		assert.Equal(t, p, string(plaintext))
	}
}

func TestEncryptProducesUniqueBlobs(t *testing.T) {
	// fresh salt and nonce per call; identical plaintexts must not
	// produce identical blobs
	blob1, err := Encrypt([]byte("same-password"), "key")
	require.Nil(t, err)
	blob2, err := Encrypt([]byte("same-password"), "key")
	require.Nil(t, err)
	assert.NotEqual(t, blob1, blob2)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := Encrypt([]byte("secret"), "original-passwd")
	require.Nil(t, err)

	plaintext, derr := Decrypt(blob, "rotated-passwd")
	assert.Nil(t, plaintext)
	require.NotNil(t, derr)
	assert.ErrorIs(t, derr, ErrDecryption)
}

func TestDecryptTamperedBlob(t *testing.T) {
	blob, err := Encrypt([]byte("secret"), "passwd")
	require.Nil(t, err)

	blob[len(blob)-1] ^= 0xff
	_, derr := Decrypt(blob, "passwd")
	require.NotNil(t, derr)
	assert.ErrorIs(t, derr, ErrDecryption)
}

func TestDecryptMalformedBlob(t *testing.T) {
	cases := map[string][]byte{
		"empty":       {},
		"too short":   {formatVersion, 0x01, 0x02},
		"bad version": append([]byte{0x7f}, make([]byte, minBlobSize)...),
	}

	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decrypt(blob, "passwd")
			require.NotNil(t, err)
			assert.ErrorIs(t, err, ErrDecryption)
		})
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	_, err := Encrypt(nil, "passwd")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrEncryption)
}

func TestNewPasswordEntropy(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := NewPassword()
		assert.GreaterOrEqual(t, len(p), 64)
		assert.False(t, seen[p], "generated password repeated")
		seen[p] = true
	}
}
