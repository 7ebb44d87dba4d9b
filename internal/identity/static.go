package identity

import (
	"context"
	"fmt"
)

// StaticProvider signs in as a principal fixed by configuration. It stands
// in for a real provider on local stores and in tests.
type StaticProvider struct {
	principal Principal
	keyring   *Keyring
}

// NewStaticProvider returns a provider that always signs in as p.
func NewStaticProvider(p Principal, keyring *Keyring) *StaticProvider {
	return &StaticProvider{principal: p, keyring: keyring}
}

func (s *StaticProvider) Restore(ctx context.Context) (*Principal, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	p, _, err := s.keyring.Load()
	return p, err
}

func (s *StaticProvider) SignIn(ctx context.Context) (Principal, error) {
	if err := cancelled(ctx); err != nil {
		return Principal{}, err
	}
	if s.principal.UID == "" {
		return Principal{}, fmt.Errorf("%w: no uid configured", ErrAuthFailed)
	}
	if err := s.keyring.Save(s.principal, ""); err != nil {
		return Principal{}, err
	}
	return s.principal, nil
}

func (s *StaticProvider) SignOut(context.Context) error {
	return s.keyring.Clear()
}
