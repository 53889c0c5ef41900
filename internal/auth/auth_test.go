package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
)

func newIssuer() *Issuer {
	return NewIssuer(config.AuthConfig{JWTSecret: "test-secret", AccessTTL: 5 * time.Minute, RefreshTTL: 24 * time.Hour})
}

func TestIssueAndParse(t *testing.T) {
	i := newIssuer()
	tokens, err := i.Issue(42)
	require.NoError(t, err)

	claims, err := i.Parse(tokens.Access, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.NotEmpty(t, claims.ID)

	_, err = i.Parse(tokens.Refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = i.Parse(tokens.Access, TokenRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignSecretAndExpiry(t *testing.T) {
	i := newIssuer()
	tokens, err := i.Issue(1)
	require.NoError(t, err)

	other := NewIssuer(config.AuthConfig{JWTSecret: "other", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	_, err = other.Parse(tokens.Access, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	i.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	_, err = i.Parse(tokens.Access, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = i.Parse("garbage", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh(t *testing.T) {
	i := newIssuer()
	tokens, err := i.Issue(7)
	require.NoError(t, err)

	access, err := i.Refresh(tokens.Refresh)
	require.NoError(t, err)
	claims, err := i.Parse(access, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)

	_, err = i.Refresh(tokens.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
