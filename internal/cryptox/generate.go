package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

const (
	upperChars       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars       = "abcdefghijklmnopqrstuvwxyz"
	digitChars       = "0123456789"
	punctuationChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// MinPasswordLength is the shortest password GeneratePassword accepts.
	MinPasswordLength = 4
	// MaxPasswordLength caps generated password length.
	MaxPasswordLength = 1024
	// MinBackupKeyLength is the shortest backup key GenerateBackupKey produces.
	MinBackupKeyLength = 16
)

// CharClasses selects the alphabets a generated password draws from.
type CharClasses struct {
	Upper       bool
	Lower       bool
	Digits      bool
	Punctuation bool
}

// AllClasses enables every character class.
var AllClasses = CharClasses{Upper: true, Lower: true, Digits: true, Punctuation: true}

func (c CharClasses) alphabet() string {
	var b strings.Builder
	if c.Upper {
		b.WriteString(upperChars)
	}
	if c.Lower {
		b.WriteString(lowerChars)
	}
	if c.Digits {
		b.WriteString(digitChars)
	}
	if c.Punctuation {
		b.WriteString(punctuationChars)
	}
	return b.String()
}

// GeneratePassword returns a random password of the given length drawn
// uniformly from the selected classes.
func GeneratePassword(length int, classes CharClasses) (string, error) {
	var rules []string
	if length < MinPasswordLength {
		rules = append(rules, fmt.Sprintf("length must be at least %d", MinPasswordLength))
	}
	if length > MaxPasswordLength {
		rules = append(rules, fmt.Sprintf("length must be at most %d", MaxPasswordLength))
	}
	alphabet := classes.alphabet()
	if alphabet == "" {
		rules = append(rules, "at least one character class must be selected")
	}
	if err := common.NewValidationError(rules...); err != nil {
		return "", err
	}
	return randomString(length, alphabet)
}

// GenerateBackupKey returns a random letters+digits key. Lengths below
// MinBackupKeyLength are raised to the minimum.
func GenerateBackupKey(length int) (string, error) {
	if length < MinBackupKeyLength {
		length = MinBackupKeyLength
	}
	return randomString(length, upperChars+lowerChars+digitChars)
}

func randomString(n int, alphabet string) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("rand: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
