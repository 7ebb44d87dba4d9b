package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTProvider signs in with an HS256 token read from a file. The token's
// claims carry the principal: sub, name, email and picture.
type JWTProvider struct {
	tokenFile string
	tokens    *Tokens
	keyring   *Keyring
}

// NewJWTProvider returns a provider reading tokens from tokenFile.
func NewJWTProvider(tokenFile string, tokens *Tokens, keyring *Keyring) *JWTProvider {
	return &JWTProvider{tokenFile: tokenFile, tokens: tokens, keyring: keyring}
}

// Restore re-validates the stored token, so an expired session reads as signed out.
func (j *JWTProvider) Restore(ctx context.Context) (*Principal, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	_, token, err := j.keyring.Load()
	if err != nil || token == "" {
		return nil, err
	}
	p, err := j.tokens.Parse(token)
	if err != nil {
		return nil, nil
	}
	return &p, nil
}

func (j *JWTProvider) SignIn(ctx context.Context) (Principal, error) {
	if err := cancelled(ctx); err != nil {
		return Principal{}, err
	}
	raw, err := os.ReadFile(j.tokenFile)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: read token: %v", ErrAuthFailed, err)
	}
	token := strings.TrimSpace(string(raw))
	p, err := j.tokens.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	if err := j.keyring.Save(p, token); err != nil {
		return Principal{}, err
	}
	return p, nil
}

func (j *JWTProvider) SignOut(context.Context) error {
	return j.keyring.Clear()
}

// Tokens issues and validates HS256 identity tokens.
type Tokens struct {
	secret []byte
}

// NewTokens returns a token service using secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// Issue creates a token for p valid for ttl.
func (t *Tokens) Issue(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     p.UID,
		"name":    p.DisplayName,
		"email":   p.Email,
		"picture": p.PhotoURL,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates a token and returns its principal.
func (t *Tokens) Parse(tokenStr string) (Principal, error) {
	if len(t.secret) == 0 {
		return Principal{}, fmt.Errorf("%w: no token secret configured", ErrAuthFailed)
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return Principal{}, errors.Join(ErrAuthFailed, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %w", ErrAuthFailed, jwt.ErrTokenMalformed)
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", ErrAuthFailed)
	}
	return Principal{
		UID:         sub,
		DisplayName: stringClaim(claims, "name"),
		Email:       stringClaim(claims, "email"),
		PhotoURL:    stringClaim(claims, "picture"),
	}, nil
}

func stringClaim(c jwt.MapClaims, key string) string {
	s, _ := c[key].(string)
	return s
}
