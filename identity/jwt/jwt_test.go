package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/schema"
)

func TestMintResolveRoundTrip(t *testing.T) {
	codec := New("test-secret", time.Hour)
	info := &schema.AuthInfo{
		Realm:       "acme",
		Username:    "alice",
		Admin:       false,
		Policies:    []string{"mod.x.reader"},
		ReadAllowed: map[string]struct{}{"mod.X": {}},
	}

	token, err := codec.Mint(info)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := codec.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "acme", resolved.Realm)
	assert.Equal(t, "alice", resolved.Username)
	assert.True(t, resolved.CanRead("mod.X"))
	assert.False(t, resolved.CanCreate("mod.X"))
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	codec := New("test-secret", -time.Minute)
	token, err := codec.Mint(&schema.AuthInfo{Username: "bob"})
	require.NoError(t, err)

	_, err = codec.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestResolveRejectsWrongSecret(t *testing.T) {
	codec := New("test-secret", time.Hour)
	token, err := codec.Mint(&schema.AuthInfo{Username: "carol"})
	require.NoError(t, err)

	other := New("different-secret", time.Hour)
	_, err = other.Resolve(context.Background(), token)
	require.Error(t, err)
}

func TestResolveRejectsMalformedToken(t *testing.T) {
	codec := New("test-secret", time.Hour)
	_, err := codec.Resolve(context.Background(), "not-a-jwt")
	require.Error(t, err)
}
