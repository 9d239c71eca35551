package cryptox

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePassword_RespectsClasses(t *testing.T) {
	p, err := GeneratePassword(64, CharClasses{Digits: true})
	require.NoError(t, err)
	require.Len(t, p, 64)
	for _, r := range p {
		assert.True(t, strings.ContainsRune(digitChars, r), "unexpected rune %q", r)
	}

	p, err = GeneratePassword(12, AllClasses)
	require.NoError(t, err)
	assert.Len(t, p, 12)
}

func TestGeneratePassword_Validation(t *testing.T) {
	_, err := GeneratePassword(3, AllClasses)
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = GeneratePassword(MaxPasswordLength+1, AllClasses)
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = GeneratePassword(12, CharClasses{})
	require.ErrorIs(t, err, common.ErrorValidation)

	var ve *common.ValidationError
	_, err = GeneratePassword(1, CharClasses{})
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Rules, 2)
}

func TestGenerateBackupKey(t *testing.T) {
	k, err := GenerateBackupKey(32)
	require.NoError(t, err)
	require.Len(t, k, 32)
	for _, r := range k {
		assert.True(t, strings.ContainsRune(upperChars+lowerChars+digitChars, r))
	}

	short, err := GenerateBackupKey(4)
	require.NoError(t, err)
	assert.Len(t, short, MinBackupKeyLength)

	other, err := GenerateBackupKey(32)
	require.NoError(t, err)
	assert.NotEqual(t, k, other)
}
