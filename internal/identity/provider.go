// Package identity is the boundary to the sign-in provider. A provider turns
// an interactive or token based sign-in into a Principal and remembers it
// between runs through a Keyring.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrAuthFailed means the provider rejected the sign-in.
	ErrAuthFailed = errors.New("identity: authentication failed")
	// ErrCancelled means the sign-in was abandoned before completing.
	ErrCancelled = errors.New("identity: sign-in cancelled")
)

// Principal is the authenticated user as reported by the provider.
type Principal struct {
	UID         string `toml:"uid"`
	DisplayName string `toml:"display_name"`
	Email       string `toml:"email"`
	PhotoURL    string `toml:"photo_url"`
}

// Provider signs users in and out.
type Provider interface {
	// Restore reports the session left by a previous run, or nil if there is none.
	Restore(ctx context.Context) (*Principal, error)
	// SignIn runs the provider's sign-in flow.
	SignIn(ctx context.Context) (Principal, error)
	// SignOut forgets the current session.
	SignOut(ctx context.Context) error
}

func cancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.Join(ErrCancelled, ctx.Err())
	}
	return nil
}
