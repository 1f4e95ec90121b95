package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tk := NewTokens("0123456789abcdef0123456789abcdef", time.Hour)
	raw, exp, err := tk.Issue("u-alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	sub, err := tk.Subject(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-alice", sub)
}

func TestExpiredToken(t *testing.T) {
	tk := NewTokens("0123456789abcdef0123456789abcdef", time.Minute)
	past := time.Now().Add(-2 * time.Hour)
	tk.now = func() time.Time { return past }
	raw, _, err := tk.Issue("u-alice")
	require.NoError(t, err)

	tk.now = time.Now
	_, err = tk.Subject(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestWrongSecretRejected(t *testing.T) {
	raw, _, err := NewTokens("secret-one-secret-one-secret-one!", time.Hour).Issue("u-alice")
	require.NoError(t, err)

	_, err = NewTokens("secret-two-secret-two-secret-two!", time.Hour).Subject(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDisabledWithoutSecret(t *testing.T) {
	tk := NewTokens("", time.Hour)
	assert.False(t, tk.Enabled())
	_, _, err := tk.Issue("u-alice")
	assert.Error(t, err)
	_, err = tk.Subject("anything")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageRejected(t *testing.T) {
	tk := NewTokens("0123456789abcdef0123456789abcdef", time.Hour)
	_, err := tk.Subject("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
