package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/identity"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Restore(ctx context.Context) (*identity.Principal, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*identity.Principal)
	return p, args.Error(1)
}

func (m *mockProvider) SignIn(ctx context.Context) (identity.Principal, error) {
	args := m.Called(ctx)
	return args.Get(0).(identity.Principal), args.Error(1)
}

func (m *mockProvider) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// fakePresence records presence calls in order.
type fakePresence struct {
	mu         sync.Mutex
	calls      []string
	offlineErr error
	online     []chat.UserProfile
}

func (f *fakePresence) Online(_ context.Context, u chat.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "online:"+u.UID)
	f.online = append(f.online, u)
	return nil
}

func (f *fakePresence) Offline(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "offline:"+uid)
	return f.offlineErr
}

var ann = identity.Principal{UID: "a1", DisplayName: "Ann", Email: "ann@example.com"}

func newSession(p identity.Provider, pw PresenceWriter) *Session {
	return NewSession(p, pw, NewMachine(nil), zap.NewNop())
}

func TestStartWithoutSession(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(nil, nil)
	pw := &fakePresence{}
	s := newSession(p, pw)

	require.Equal(t, Loading, s.State())
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, SignedOut, s.State())
	_, ok := s.CurrentUser()
	require.False(t, ok)
	require.Empty(t, pw.calls)
}

func TestStartRestoresSession(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(&ann, nil)
	pw := &fakePresence{}
	s := newSession(p, pw)

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, SignedIn, s.State())
	u, ok := s.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "a1", u.UID)
	require.Equal(t, []string{"online:a1"}, pw.calls)
	require.Equal(t, chat.Online, pw.online[0].Presence)
}

func TestStartRestoreError(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(nil, errors.New("corrupt"))
	s := newSession(p, &fakePresence{})

	require.Error(t, s.Start(context.Background()))
	require.Equal(t, SignedOut, s.State())
}

func TestSignInSuccess(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(nil, nil)
	p.On("SignIn", mock.Anything).Return(ann, nil).Once()
	pw := &fakePresence{}
	s := newSession(p, pw)
	require.NoError(t, s.Start(context.Background()))

	u, err := s.SignIn(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ann", u.DisplayName)
	require.Equal(t, SignedIn, s.State())
	require.Equal(t, []string{"online:a1"}, pw.calls)

	// Signing in again while signed in is a no-op.
	_, err = s.SignIn(context.Background())
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestSignInFailureReturnsToSignedOut(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(nil, nil)
	p.On("SignIn", mock.Anything).Return(identity.Principal{}, identity.ErrCancelled)
	pw := &fakePresence{}
	s := newSession(p, pw)
	require.NoError(t, s.Start(context.Background()))

	_, err := s.SignIn(context.Background())
	require.ErrorIs(t, err, identity.ErrCancelled)
	require.Equal(t, SignedOut, s.State())
	require.Empty(t, pw.calls, "no presence write on failed sign-in")
}

func TestSignInWhileLoading(t *testing.T) {
	s := newSession(&mockProvider{}, &fakePresence{})
	_, err := s.SignIn(context.Background())
	require.ErrorIs(t, err, ErrBusy)
}

func TestSignOutOrder(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(&ann, nil)
	pw := &fakePresence{}
	s := newSession(p, pw)
	require.NoError(t, s.Start(context.Background()))

	p.On("SignOut", mock.Anything).Run(func(mock.Arguments) {
		pw.mu.Lock()
		defer pw.mu.Unlock()
		require.Equal(t, []string{"online:a1", "offline:a1"}, pw.calls, "offline must be written before the provider session is cleared")
	}).Return(nil)

	require.NoError(t, s.SignOut(context.Background()))
	require.Equal(t, SignedOut, s.State())
	_, ok := s.CurrentUser()
	require.False(t, ok)
	p.AssertCalled(t, "SignOut", mock.Anything)
}

func TestSignOutProceedsWhenPresenceFails(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(&ann, nil)
	p.On("SignOut", mock.Anything).Return(nil)
	pw := &fakePresence{offlineErr: errors.New("network down")}
	s := newSession(p, pw)
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.SignOut(context.Background()))
	require.Equal(t, SignedOut, s.State())
	p.AssertCalled(t, "SignOut", mock.Anything)
}

func TestSignOutWhenSignedOut(t *testing.T) {
	p := &mockProvider{}
	p.On("Restore", mock.Anything).Return(nil, nil)
	s := newSession(p, &fakePresence{})
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.SignOut(context.Background()))
	p.AssertNotCalled(t, "SignOut", mock.Anything)
}
