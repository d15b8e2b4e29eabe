// Package secrets implements the credential codec for the audit portal:
// symmetric encryption of generated tenant database passwords before they
// are persisted in the registry, and decryption when a tenant pool is
// built. Neither plaintext nor ciphertext is ever logged.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/attestra/attestra/internal/common/apperrors"
)

const (
	formatVersion = 0x01

	saltSize    = 16
	keySize     = 32
	nonceSize   = 12
	memory      = 64 * 1024 // KiB
	iterations  = 3
	parallelism = 4

	// version(1) + salt(16) + nonce(12) + at least one ciphertext byte
	minBlobSize = 1 + saltSize + nonceSize + 1
)

// zero overwrites the given byte slice with zeros.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// deriveKey derives a 32-byte key from a password and salt using Argon2id.
func deriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, iterations, memory, uint8(parallelism), keySize)
}

// validateFormat checks the blob envelope before any cryptographic work.
func validateFormat(blob []byte) apperrors.Error {
	if len(blob) < minBlobSize {
		return ErrDecryption.Msg("credential blob too short")
	}
	if blob[0] != formatVersion {
		return ErrDecryption.Msg("unsupported credential blob version")
	}
	return nil
}

// Encrypt seals the plaintext with the given password using Argon2id key
// derivation and AES-256-GCM. The returned blob is
// [version(1)][salt(16)][nonce(12)][ciphertext].
func Encrypt(plaintext []byte, password string) ([]byte, apperrors.Error) {
	if len(plaintext) == 0 {
		return nil, ErrEncryption.Msg("empty plaintext")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, ErrEncryption.MsgErr("unable to generate salt", err)
	}

	key := deriveKey([]byte(password), salt)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEncryption.Err(err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryption.Err(err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, ErrEncryption.MsgErr("unable to generate nonce", err)
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, 1+saltSize+nonceSize+len(ciphertext))
	blob = append(blob, formatVersion)
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Decrypt opens a blob produced by Encrypt. Returns ErrDecryption if the
// blob is malformed or the password does not match the one it was sealed
// with.
func Decrypt(blob []byte, password string) ([]byte, apperrors.Error) {
	if err := validateFormat(blob); err != nil {
		return nil, err
	}

	salt := blob[1 : 1+saltSize]
	nonce := blob[1+saltSize : 1+saltSize+nonceSize]
	ciphertext := blob[1+saltSize+nonceSize:]

	key := deriveKey([]byte(password), salt)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecryption.Err(err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryption.Err(err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// key mismatch and tampering are indistinguishable here
		return nil, ErrDecryption.Msg("credential blob could not be opened")
	}

	return plaintext, nil
}
