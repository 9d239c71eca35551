package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length (AES-256).
	KeySize = 32
	// KDFIterations is the PBKDF2 round count.
	KDFIterations = 100_000
	// KDFSaltSize is the length of a per-vault salt created by NewKDFSalt.
	KDFSaltSize = 16
)

// defaultSalt is the application-wide salt used by vaults that predate
// per-vault salts. Changing it makes every existing record undecryptable.
var defaultSalt = []byte("password_manager_salt")

// Key is a derived symmetric key. It is never persisted.
type Key [KeySize]byte

// Encoded returns the URL-safe base64 form of the key, which is also the
// Fernet key format.
func (k Key) Encoded() string {
	return base64.URLEncoding.EncodeToString(k[:])
}

// Wipe zeroes the key in place.
func (k *Key) Wipe() {
	for i := range k {
		k[i] = 0
	}
}

// DeriveKey derives a key from the master password with the fixed
// application salt. The same password always yields the same key.
func DeriveKey(password []byte) (Key, error) {
	return DeriveKeyWithSalt(password, nil)
}

// DeriveKeyWithSalt derives a key from the master password and salt.
// An empty salt falls back to the fixed application salt.
func DeriveKeyWithSalt(password, salt []byte) (Key, error) {
	var k Key
	if len(password) == 0 {
		return k, fmt.Errorf("derive key: empty password: %w", common.ErrorInvalidInput)
	}
	if len(salt) == 0 {
		salt = defaultSalt
	}

	dk := pbkdf2.Key(password, salt, KDFIterations, KeySize, sha256.New)
	copy(k[:], dk)
	common.WipeByteArray(dk)
	return k, nil
}

// NewKDFSalt returns a fresh random salt for DeriveKeyWithSalt.
func NewKDFSalt() []byte {
	return common.GenerateRandByteArray(KDFSaltSize)
}
