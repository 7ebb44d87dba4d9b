package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	return NewKeyring(filepath.Join(t.TempDir(), "session.toml"))
}

var ann = Principal{UID: "a1", DisplayName: "Ann", Email: "ann@example.com", PhotoURL: "https://example.com/a.png"}

func TestKeyringRoundTrip(t *testing.T) {
	k := testKeyring(t)

	p, tok, err := k.Load()
	require.NoError(t, err)
	require.Nil(t, p)
	require.Empty(t, tok)

	require.NoError(t, k.Save(ann, "tok"))
	p, tok, err = k.Load()
	require.NoError(t, err)
	require.Equal(t, ann, *p)
	require.Equal(t, "tok", tok)

	require.NoError(t, k.Clear())
	require.NoError(t, k.Clear(), "clearing twice is fine")
	p, _, err = k.Load()
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	sp := NewStaticProvider(ann, testKeyring(t))

	p, err := sp.Restore(ctx)
	require.NoError(t, err)
	require.Nil(t, p, "fresh profile has no session")

	got, err := sp.SignIn(ctx)
	require.NoError(t, err)
	require.Equal(t, ann, got)

	p, err = sp.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, "a1", p.UID)

	require.NoError(t, sp.SignOut(ctx))
	p, err = sp.Restore(ctx)
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestStaticProviderWithoutUID(t *testing.T) {
	sp := NewStaticProvider(Principal{}, testKeyring(t))
	_, err := sp.SignIn(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestSignInCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStaticProvider(ann, testKeyring(t)).SignIn(ctx)
	require.ErrorIs(t, err, ErrCancelled)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret")
	tok, err := tokens.Issue(ann, time.Hour)
	require.NoError(t, err)

	p, err := tokens.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, ann, p)
}

func TestTokensRejects(t *testing.T) {
	tokens := NewTokens("s3cret")

	expired, err := tokens.Issue(ann, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := NewTokens("other").Issue(ann, time.Hour)
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "x"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong key", wrongKey},
		{"no subject", noSub},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Parse(tt.token)
			if !errors.Is(err, ErrAuthFailed) {
				t.Fatalf("Parse() error = %v, want ErrAuthFailed", err)
			}
		})
	}

	_, err = NewTokens("").Parse(wrongKey)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestJWTProvider(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tokens := NewTokens("s3cret")
	tok, err := tokens.Issue(ann, time.Hour)
	require.NoError(t, err)
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte(tok+"\n"), 0o600))

	jp := NewJWTProvider(tokenFile, tokens, NewKeyring(filepath.Join(dir, "session.toml")))

	p, err := jp.SignIn(ctx)
	require.NoError(t, err)
	require.Equal(t, "a1", p.UID)

	restored, err := jp.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.Equal(t, ann, *restored)

	require.NoError(t, jp.SignOut(ctx))
	restored, err = jp.Restore(ctx)
	require.NoError(t, err)
	require.Nil(t, restored)
}

func TestJWTProviderMissingFile(t *testing.T) {
	jp := NewJWTProvider(filepath.Join(t.TempDir(), "absent"), NewTokens("k"), testKeyring(t))
	_, err := jp.SignIn(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)
}
