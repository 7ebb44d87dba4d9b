// Package client ties the session, roster, conversation and outbox
// components to one ViewState. It owns the two live subscriptions: the
// roster lives as long as the session, the thread as long as the selection.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/auth"
	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/conversation"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/outbox"
	"github.com/matheus3301/pingme/internal/roster"
)

// ErrSignedOut is returned by operations that need a signed-in user.
var ErrSignedOut = errors.New("client: not signed in")

// Client orchestrates the chat components.
type Client struct {
	session  *auth.Session
	roster   *roster.Subscriber
	thread   *conversation.Subscriber
	selector *conversation.Selector
	sender   *outbox.Sender
	view     *ViewState
	bus      *bus.Bus
	log      *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	rosterSub docstore.Subscription
	threadSub docstore.Subscription
	done      chan struct{}
}

// New creates a client. Call Start before use.
func New(
	session *auth.Session,
	rosterSub *roster.Subscriber,
	thread *conversation.Subscriber,
	selector *conversation.Selector,
	sender *outbox.Sender,
	view *ViewState,
	b *bus.Bus,
	log *zap.Logger,
) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		session:  session,
		roster:   rosterSub,
		thread:   thread,
		selector: selector,
		sender:   sender,
		view:     view,
		bus:      b,
		log:      log.Named("client"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// View returns the shared view state.
func (c *Client) View() *ViewState {
	return c.view
}

// Start mirrors session state changes into the view and resolves the
// session left by a previous run. A failed restore leaves the client
// signed out and is only logged.
func (c *Client) Start(ctx context.Context) error {
	events, unsub := c.bus.Subscribe("auth.", 16)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		defer unsub()
		for {
			select {
			case <-events:
				c.syncAuth()
			case <-c.ctx.Done():
				return
			}
		}
	}()

	if err := c.session.Start(ctx); err != nil {
		c.log.Warn("session restore failed", zap.Error(err))
	}
	c.syncAuth()
	return nil
}

// Close tears down both subscriptions.
func (c *Client) Close() {
	c.cancel()
	if c.done != nil {
		<-c.done
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopThreadLocked()
	c.stopRosterLocked()
}

// SignIn runs the provider sign-in. Failures leave the client signed out.
func (c *Client) SignIn(ctx context.Context) error {
	_, err := c.session.SignIn(ctx)
	c.syncAuth()
	return err
}

// SignOut writes presence offline, clears the provider session, then drops
// the selected conversation and the roster.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.session.SignOut(ctx)
	c.mu.Lock()
	c.stopThreadLocked()
	c.view.SetActive("")
	c.mu.Unlock()
	c.syncAuth()
	return err
}

// syncAuth brings subscriptions and view in line with the session state.
func (c *Client) syncAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.session.State()
	user, ok := c.session.CurrentUser()
	if state != auth.SignedIn || !ok {
		c.stopThreadLocked()
		c.stopRosterLocked()
		c.view.SetAuth(state, nil)
		return
	}

	c.view.SetAuth(state, &user)
	if c.rosterSub != nil || c.ctx.Err() != nil {
		return
	}
	sub, err := c.roster.Subscribe(c.ctx, user.UID, func(u roster.Update) {
		c.view.SetRoster(u)
		c.bus.Emit(bus.KindRosterUpdated, u)
	})
	if err != nil {
		c.log.Warn("roster subscribe failed", zap.Error(err))
		return
	}
	c.rosterSub = sub
}

// Select opens the conversation with peer: the selector marks pending
// messages seen and zeroes the badge, then the thread subscription for
// peer replaces any previous one.
func (c *Client) Select(ctx context.Context, peer string) error {
	self, ok := c.view.Self()
	if !ok {
		return ErrSignedOut
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() != auth.SignedIn {
		return ErrSignedOut
	}
	c.stopThreadLocked()

	if _, err := c.selector.Select(ctx, c.view, self.UID, peer); err != nil {
		c.log.Warn("mark seen failed", zap.String("peer", peer), zap.Error(err))
	}

	sub, err := c.thread.Subscribe(c.ctx, self.UID, peer, func(msgs []chat.Message) {
		if c.view.SetMessagesFor(peer, msgs) {
			c.bus.Emit(bus.KindThreadUpdated, ThreadUpdate{Peer: peer, Messages: msgs})
		}
	})
	if err != nil {
		return fmt.Errorf("open conversation %s: %w", peer, err)
	}
	c.threadSub = sub
	return nil
}

// Deselect closes the active conversation. The roster is unaffected.
func (c *Client) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopThreadLocked()
	c.view.SetActive("")
}

// Submit sends the composer buffer to the active conversation. The buffer
// is cleared before the write is acknowledged; a rejected submission
// leaves it untouched.
func (c *Client) Submit(ctx context.Context) error {
	self, ok := c.view.Self()
	if !ok {
		return ErrSignedOut
	}
	peer, text := c.view.Active(), c.view.Input()
	if err := outbox.Validate(peer, text); err != nil {
		return err
	}
	c.view.clearInput()
	_, err := c.sender.Send(ctx, self.UID, peer, text)
	return err
}

// Send appends text to the conversation with peer without touching the
// composer.
func (c *Client) Send(ctx context.Context, peer, text string) (docstore.Ref, error) {
	self, ok := c.view.Self()
	if !ok {
		return docstore.Ref{}, ErrSignedOut
	}
	return c.sender.Send(ctx, self.UID, peer, text)
}

// Open selects peer and waits for the first thread snapshot.
func (c *Client) Open(ctx context.Context, peer string) ([]chat.Message, error) {
	events, unsub := c.bus.Subscribe(bus.KindThreadUpdated, 16)
	defer unsub()

	if err := c.Select(ctx, peer); err != nil {
		return nil, err
	}
	for {
		select {
		case evt := <-events:
			if u, ok := evt.Payload.(ThreadUpdate); ok && u.Peer == peer {
				return u.Messages, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Roster waits for the next roster update.
func (c *Client) Roster(ctx context.Context) (roster.Update, error) {
	self, ok := c.view.Self()
	if !ok {
		return roster.Update{}, ErrSignedOut
	}
	ch := make(chan roster.Update, 1)
	sub, err := c.roster.Subscribe(ctx, self.UID, func(u roster.Update) {
		select {
		case ch <- u:
		default:
		}
	})
	if err != nil {
		return roster.Update{}, err
	}
	defer sub.Stop()

	select {
	case u := <-ch:
		return u, nil
	case <-ctx.Done():
		return roster.Update{}, ctx.Err()
	}
}

// ThreadUpdate is the payload of conversation.updated events.
type ThreadUpdate struct {
	Peer     string
	Messages []chat.Message
}

func (c *Client) stopThreadLocked() {
	if c.threadSub != nil {
		c.threadSub.Stop()
		c.threadSub = nil
	}
}

func (c *Client) stopRosterLocked() {
	if c.rosterSub != nil {
		c.rosterSub.Stop()
		c.rosterSub = nil
	}
}
