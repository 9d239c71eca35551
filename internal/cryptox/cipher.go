package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/fernet/fernet-go"
)

// tokenVersion is the first byte of every token and is bound into the GCM
// tag as additional data.
const tokenVersion byte = 0x01

// fernetVersion is the first byte of Fernet tokens written by the first
// on-disk format. They are only ever read; Encrypt always writes tokenVersion.
const fernetVersion byte = 0x80

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return aesgcm, nil
}

// Encrypt seals plaintext with AES-256-GCM and returns a self-contained token:
//
//	base64url( version | nonce(12) | ciphertext | tag )
//
// A new random nonce is generated on every call, so encrypting the same
// plaintext twice yields different tokens.
func Encrypt(plaintext string, key Key) (string, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	buf := make([]byte, 0, 1+len(nonce)+len(plaintext)+aesgcm.Overhead())
	buf = append(buf, tokenVersion)
	buf = append(buf, nonce...)
	buf = aesgcm.Seal(buf, nonce, []byte(plaintext), []byte{tokenVersion})

	return base64.URLEncoding.EncodeToString(buf), nil
}

// Decrypt opens a token produced by Encrypt or a legacy Fernet token made
// with the same key. Malformed tokens, unknown versions and authentication
// failures (wrong key, tampered data) all return an error matching
// common.ErrorDecryption.
func Decrypt(token string, key Key) (string, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: malformed token: %v", common.ErrorDecryption, err)
	}
	if len(data) > 0 && data[0] == fernetVersion {
		return decryptFernet(token, key)
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < 1+nonceSize+aesgcm.Overhead() {
		return "", fmt.Errorf("%w: token too short", common.ErrorDecryption)
	}
	if data[0] != tokenVersion {
		return "", fmt.Errorf("%w: unsupported token version %d", common.ErrorDecryption, data[0])
	}

	nonce, ciphertext := data[1:1+nonceSize], data[1+nonceSize:]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, data[:1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorDecryption, err)
	}
	return string(plaintext), nil
}

// IsLegacyToken reports whether token is in the Fernet format.
func IsLegacyToken(token string) bool {
	data, err := base64.URLEncoding.DecodeString(token)
	return err == nil && len(data) > 0 && data[0] == fernetVersion
}

func decryptFernet(token string, key Key) (string, error) {
	fk, err := fernet.DecodeKey(key.Encoded())
	if err != nil {
		return "", fmt.Errorf("%w: fernet key: %v", common.ErrorDecryption, err)
	}
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{fk})
	if msg == nil {
		return "", fmt.Errorf("%w: fernet token rejected", common.ErrorDecryption)
	}
	return string(msg), nil
}
