package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters encoded into every hash.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultArgon2Params are used for every new hash.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// legacyDigestLen is the length of the hex SHA-256 digests written by the
// first on-disk format.
const legacyDigestLen = sha256.Size * 2

// maxArgon2Memory caps the memory cost (KiB) accepted from a stored hash.
const maxArgon2Memory = 1 << 20

var errMalformedHash = errors.New("malformed stored hash")

// HashSecret returns an encoded argon2id hash of secret with a random salt:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func HashSecret(secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("hash secret: empty input: %w", common.ErrorInvalidInput)
	}
	p := DefaultArgon2Params
	salt := common.GenerateRandByteArray(p.SaltLen)
	sum := argon2.IDKey(secret, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	defer common.WipeByteArray(sum)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifySecret compares candidate against an encoded hash in constant time.
//
// needsRehash is true when the match succeeded against an outdated format
// (a legacy bare SHA-256 digest or weaker argon2 parameters) and the caller
// should store a fresh HashSecret result.
func VerifySecret(encoded string, candidate []byte) (ok bool, needsRehash bool, err error) {
	if isLegacyDigest(encoded) {
		sum := sha256.Sum256(candidate)
		got := hex.EncodeToString(sum[:])
		ok = subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(encoded))) == 1
		return ok, ok, nil
	}

	p, salt, want, err := decodeArgon2(encoded)
	if err != nil {
		return false, false, err
	}
	got := argon2.IDKey(candidate, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	defer common.WipeByteArray(got)

	ok = subtle.ConstantTimeCompare(got, want) == 1
	stale := p.Time < DefaultArgon2Params.Time ||
		p.Memory < DefaultArgon2Params.Memory ||
		p.Threads < DefaultArgon2Params.Threads
	return ok, ok && stale, nil
}

func isLegacyDigest(s string) bool {
	if len(s) != legacyDigestLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", errMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported argon2 version %d", errMalformedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", errMalformedHash, err)
	}

	if err := checkArgon2Params(p); err != nil {
		return p, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", errMalformedHash, err)
	}
	if len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: empty salt", errMalformedHash)
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: hash: %v", errMalformedHash, err)
	}
	if len(sum) == 0 {
		return p, nil, nil, errMalformedHash
	}

	p.SaltLen = len(salt)
	p.KeyLen = uint32(len(sum))
	return p, salt, sum, nil
}

// checkArgon2Params rejects costs argon2.IDKey would panic on or that would
// allocate unbounded memory.
func checkArgon2Params(p Argon2Params) error {
	switch {
	case p.Time < 1:
		return fmt.Errorf("%w: t=%d", errMalformedHash, p.Time)
	case p.Threads < 1:
		return fmt.Errorf("%w: p=%d", errMalformedHash, p.Threads)
	case p.Memory < 8*uint32(p.Threads):
		return fmt.Errorf("%w: m=%d below 8*p", errMalformedHash, p.Memory)
	case p.Memory > maxArgon2Memory:
		return fmt.Errorf("%w: m=%d above %d", errMalformedHash, p.Memory, maxArgon2Memory)
	}
	return nil
}
