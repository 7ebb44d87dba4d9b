// Package auth owns the identity session: the current principal, the
// SignedOut/Loading/SignedIn state machine and the presence side effects
// of signing in and out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/identity"
)

// ErrBusy is returned by SignIn while the session is still loading.
var ErrBusy = errors.New("auth: session is loading")

// PresenceWriter publishes the signed-in user's presence.
type PresenceWriter interface {
	Online(ctx context.Context, user chat.UserProfile) error
	Offline(ctx context.Context, uid string) error
}

// Session wraps an identity.Provider with the session state machine.
type Session struct {
	provider identity.Provider
	presence PresenceWriter
	machine  *Machine
	log      *zap.Logger

	mu   sync.RWMutex
	user *chat.UserProfile
}

// NewSession creates a session in the Loading state. Call Start once to
// resolve it.
func NewSession(provider identity.Provider, presence PresenceWriter, machine *Machine, log *zap.Logger) *Session {
	return &Session{
		provider: provider,
		presence: presence,
		machine:  machine,
		log:      log.Named("auth"),
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return s.machine.Current()
}

// CurrentUser returns the signed-in user, if any.
func (s *Session) CurrentUser() (chat.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return chat.UserProfile{}, false
	}
	return *s.user, true
}

// Start asks the provider for a session left by a previous run and leaves
// Loading accordingly.
func (s *Session) Start(ctx context.Context) error {
	p, err := s.provider.Restore(ctx)
	if err != nil {
		s.log.Warn("restore session failed", zap.Error(err))
		if terr := s.machine.Transition(SignedOut); terr != nil {
			return terr
		}
		return fmt.Errorf("restore session: %w", err)
	}
	if p == nil {
		return s.machine.Transition(SignedOut)
	}
	return s.enter(ctx, *p)
}

// SignIn runs the provider flow. On failure the session returns to
// SignedOut and the error is only logged and returned.
func (s *Session) SignIn(ctx context.Context) (chat.UserProfile, error) {
	switch s.machine.Current() {
	case SignedIn:
		u, _ := s.CurrentUser()
		return u, nil
	case Loading:
		return chat.UserProfile{}, ErrBusy
	}

	if err := s.machine.Transition(Loading); err != nil {
		return chat.UserProfile{}, err
	}
	p, err := s.provider.SignIn(ctx)
	if err != nil {
		s.log.Info("sign-in failed", zap.Error(err))
		if terr := s.machine.Transition(SignedOut); terr != nil {
			s.log.Error("leave loading", zap.Error(terr))
		}
		return chat.UserProfile{}, err
	}
	if err := s.enter(ctx, p); err != nil {
		return chat.UserProfile{}, err
	}
	u, _ := s.CurrentUser()
	return u, nil
}

// SignOut marks the user offline, clears the provider session and returns
// to SignedOut. Presence and provider failures are logged, never returned.
func (s *Session) SignOut(ctx context.Context) error {
	u, ok := s.CurrentUser()
	if !ok || s.machine.Current() != SignedIn {
		return nil
	}

	if err := s.presence.Offline(ctx, u.UID); err != nil {
		s.log.Warn("presence offline write failed", zap.String("uid", u.UID), zap.Error(err))
	}
	if err := s.provider.SignOut(ctx); err != nil {
		s.log.Warn("provider sign-out failed", zap.Error(err))
	}

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.log.Info("signed out", zap.String("uid", u.UID))
	return s.machine.Transition(SignedOut)
}

func (s *Session) enter(ctx context.Context, p identity.Principal) error {
	u := chat.UserProfile{
		UID:         p.UID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		PhotoURL:    p.PhotoURL,
		Presence:    chat.Online,
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	if err := s.machine.Transition(SignedIn); err != nil {
		return err
	}
	s.log.Info("signed in", zap.String("uid", u.UID))

	if err := s.presence.Online(ctx, u); err != nil {
		s.log.Warn("presence upsert failed", zap.String("uid", u.UID), zap.Error(err))
	}
	return nil
}
