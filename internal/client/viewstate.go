package client

import (
	"maps"
	"slices"
	"sync"

	"github.com/matheus3301/pingme/internal/auth"
	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/roster"
)

// ViewState is the in-memory state the presentation layer renders. Every
// setter signals RefreshCh.
type ViewState struct {
	mu sync.RWMutex

	authState auth.State
	self      *chat.UserProfile
	peers     []chat.UserProfile
	unread    map[string]int
	active    string
	messages  []chat.Message
	input     string

	refreshCh chan struct{}
}

func NewViewState() *ViewState {
	return &ViewState{
		authState: auth.Loading,
		unread:    make(map[string]int),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (v *ViewState) RefreshCh() <-chan struct{} {
	return v.refreshCh
}

func (v *ViewState) signalRefresh() {
	select {
	case v.refreshCh <- struct{}{}:
	default:
	}
}

// SetAuth records the session state and user. Leaving SignedIn clears
// everything tied to the session.
func (v *ViewState) SetAuth(state auth.State, user *chat.UserProfile) {
	v.mu.Lock()
	v.authState = state
	v.self = user
	if state != auth.SignedIn {
		v.peers = nil
		v.unread = make(map[string]int)
		v.active = ""
		v.messages = nil
		v.input = ""
	}
	v.mu.Unlock()
	v.signalRefresh()
}

func (v *ViewState) Auth() auth.State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.authState
}

// Self returns the signed-in user.
func (v *ViewState) Self() (chat.UserProfile, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.self == nil {
		return chat.UserProfile{}, false
	}
	return *v.self, true
}

// SetRoster replaces the peer list and unread counts.
func (v *ViewState) SetRoster(u roster.Update) {
	v.mu.Lock()
	v.peers = u.Peers
	v.unread = maps.Clone(u.Unread)
	if v.unread == nil {
		v.unread = make(map[string]int)
	}
	v.mu.Unlock()
	v.signalRefresh()
}

func (v *ViewState) Peers() []chat.UserProfile {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.peers)
}

// Peer looks up a roster entry.
func (v *ViewState) Peer(uid string) (chat.UserProfile, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.peers {
		if p.UID == uid {
			return p, true
		}
	}
	return chat.UserProfile{}, false
}

func (v *ViewState) Unread(peer string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unread[peer]
}

// ZeroUnread clears the badge of peer.
func (v *ViewState) ZeroUnread(peer string) {
	v.mu.Lock()
	v.unread[peer] = 0
	v.mu.Unlock()
	v.signalRefresh()
}

// SetActive selects peer; "" deselects. Switching peers drops the thread.
func (v *ViewState) SetActive(peer string) {
	v.mu.Lock()
	if v.active != peer {
		v.messages = nil
	}
	v.active = peer
	v.mu.Unlock()
	v.signalRefresh()
}

func (v *ViewState) Active() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.active
}

// SetMessagesFor stores the thread of peer if peer is still active. It
// reports whether the thread was applied.
func (v *ViewState) SetMessagesFor(peer string, msgs []chat.Message) bool {
	v.mu.Lock()
	if v.active != peer {
		v.mu.Unlock()
		return false
	}
	v.messages = msgs
	v.mu.Unlock()
	v.signalRefresh()
	return true
}

func (v *ViewState) Messages() []chat.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.messages)
}

// SetInput replaces the composer buffer.
func (v *ViewState) SetInput(s string) {
	v.mu.Lock()
	v.input = s
	v.mu.Unlock()
}

func (v *ViewState) Input() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.input
}

func (v *ViewState) clearInput() {
	v.mu.Lock()
	v.input = ""
	v.mu.Unlock()
	v.signalRefresh()
}
