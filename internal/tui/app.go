// Package tui is the terminal front end. It renders client.ViewState and
// turns key presses into client calls; store I/O always runs off the draw
// loop.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/auth"
	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/client"
	"github.com/matheus3301/pingme/internal/outbox"
	"github.com/matheus3301/pingme/internal/tui/keys"
	"github.com/matheus3301/pingme/internal/tui/ui"
	"github.com/matheus3301/pingme/internal/tui/views"
)

const (
	pageAuth    = "auth"
	pageRoster  = "roster"
	pageThread  = "thread"
	pageDetails = "details"
	pageHelp    = "help"
)

const headerHeight = 6

// Options describes what the shell shows besides the view state.
type Options struct {
	Profile  string
	Identity string // who the configured provider signs in as
}

// App is the main TUI application shell.
type App struct {
	app     *tview.Application
	theme   *ui.Theme
	client  *client.Client
	view    *client.ViewState
	log     *zap.Logger
	opts    Options
	started time.Time

	pages    *ui.Pages
	registry *keys.Registry
	flash    *ui.FlashModel
	info     *ui.IdentityInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	body     *tview.Flex

	authView *views.AuthView
	roster   *views.Roster
	thread   *views.Thread
	details  *views.PeerInfo
	help     *views.HelpView
	byPage   map[string]ui.Component

	// draw loop only
	signingIn bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp creates the TUI application for c.
func NewApp(c *client.Client, opts Options, log *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		client:   c,
		view:     c.View(),
		log:      log.Named("tui"),
		opts:     opts,
		started:  time.Now(),
		pages:    ui.NewPages(),
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		info:     ui.NewIdentityInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		authView: views.NewAuthView(theme),
		roster:   views.NewRoster(theme),
		thread:   views.NewThread(theme),
		details:  views.NewPeerInfo(theme),
		help:     views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.byPage = map[string]ui.Component{
		pageAuth:    a.authView,
		pageRoster:  a.roster,
		pageThread:  a.thread,
		pageDetails: a.details,
		pageHelp:    a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	r := a.registry
	r.Add(keys.Global, &keys.Action{Key: tcell.KeyRune, Rune: ':', Label: "Command", Handler: func() { a.showPrompt(ui.PromptCommand) }})
	r.Add(keys.Global, &keys.Action{Key: tcell.KeyRune, Rune: '?', Label: "Help", Handler: func() { a.push(pageHelp) }})
	r.Add(keys.Global, &keys.Action{Key: tcell.KeyRune, Rune: 'q', Label: "Quit", Handler: a.back})

	r.Add(pageAuth, &keys.Action{Key: tcell.KeyEnter, Label: "Sign in", Handler: a.signIn})

	r.Add(pageRoster, &keys.Action{Key: tcell.KeyEnter, Label: "Open", Handler: func() { a.open(a.roster.Selected()) }})
	r.Add(pageRoster, &keys.Action{Key: tcell.KeyRune, Rune: '/', Label: "Filter", Handler: func() { a.showPrompt(ui.PromptFilter) }})
	r.Add(pageRoster, &keys.Action{Key: tcell.KeyRune, Rune: 'L', Label: "Sign out", Handler: a.signOut})
	r.Add(pageRoster, &keys.Action{Key: tcell.KeyRune, Rune: '0', Handler: func() { a.roster.SetFilter("") }})
	r.Add(pageRoster, &keys.Action{Key: tcell.KeyEscape, Handler: func() { a.roster.SetFilter("") }})
	for n := 1; n <= 9; n++ {
		r.Add(pageRoster, &keys.Action{Key: tcell.KeyRune, Rune: rune('0' + n), Handler: func() { a.open(a.roster.ByIndex(n)) }})
	}

	r.Add(pageThread, &keys.Action{Key: tcell.KeyRune, Rune: 'i', Label: "Compose", Handler: func() { a.app.SetFocus(a.thread.Composer()) }})
	r.Add(pageThread, &keys.Action{Key: tcell.KeyRune, Rune: 'd', Label: "Details", Handler: func() { a.push(pageDetails) }})
	r.Add(pageThread, &keys.Action{Key: tcell.KeyEscape, Label: "Back", Handler: a.back})

	r.Add(pageDetails, &keys.Action{Key: tcell.KeyEscape, Label: "Back", Handler: a.back})
	r.Add(pageHelp, &keys.Action{Key: tcell.KeyEscape, Label: "Back", Handler: a.back})
}

func (a *App) setupCallbacks() {
	a.pages.SetOnChange(func([]string) { a.renderChrome() })

	a.thread.SetOnInput(func(text string) { a.view.SetInput(text) })
	a.thread.SetOnSubmit(func() {
		a.async("send", quietly(a.log, "send", func(ctx context.Context) error {
			err := a.client.Submit(ctx)
			if errors.Is(err, outbox.ErrEmptyText) {
				return nil
			}
			return err
		}))
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.roster.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
	a.prompt.SetCompleter(func(text string) []string {
		return ui.Complete(text, a.completions())
	})
}

// completions lists the command lines offered by Tab in the command prompt.
func (a *App) completions() []string {
	out := []string{"quit", "help", "signin", "signout"}
	for _, p := range a.view.Peers() {
		if p.DisplayName != "" {
			out = append(out, "open "+p.DisplayName)
		}
	}
	return out
}

func (a *App) setupLayout() {
	for name, c := range a.byPage {
		a.pages.AddPage(name, c, true, false)
	}
	a.pages.Reset(pageAuth)

	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 3, false).
		AddItem(ui.NewLogo(a.theme), 20, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.body, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlC {
			a.Stop()
			return nil
		}

		// Text inputs own their keys; Esc in the composer returns to the thread.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			if ev.Key() == tcell.KeyEscape && focused == a.thread.Composer() {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			return ev
		}

		if a.registry.HandleEvent(a.pages.Current(), ev) {
			return nil
		}
		return ev
	})
}

// Run draws the UI and blocks until Stop.
func (a *App) Run() error {
	a.sync()
	a.wg.Go(a.watch)
	err := a.app.Run()
	a.cancel()
	a.wg.Wait()
	return err
}

// Stop ends Run.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// watch redraws on view changes and flash messages, and once a second for
// the clock and flash expiry.
func (a *App) watch() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.view.RefreshCh():
			a.app.QueueUpdateDraw(a.sync)
		case <-a.flash.Watch():
			a.app.QueueUpdateDraw(a.renderChrome)
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.renderChrome)
		case <-a.ctx.Done():
			return
		}
	}
}

// sync brings pages and widgets in line with the view state. Draw loop only.
func (a *App) sync() {
	switch a.view.Auth() {
	case auth.Loading, auth.SignedOut:
		switch {
		case a.signingIn:
			a.authView.ShowSigningIn()
		case a.view.Auth() == auth.Loading:
			a.authView.ShowLoading()
		default:
			a.authView.ShowSignedOut(a.opts.Identity)
		}
		a.resetTo(pageAuth)
	case auth.SignedIn:
		if a.root() == pageAuth {
			a.resetTo(pageRoster)
		}
	}

	self, _ := a.view.Self()
	peers := a.view.Peers()
	unread := make(map[string]int, len(peers))
	for _, p := range peers {
		unread[p.UID] = a.view.Unread(p.UID)
	}
	a.roster.Update(peers, unread)

	if active := a.view.Active(); active != "" {
		peer, ok := a.view.Peer(active)
		if !ok {
			peer = chat.UserProfile{UID: active}
		}
		msgs := a.view.Messages()
		a.thread.SetPeer(peer)
		a.thread.Update(self.UID, msgs)
		a.thread.SetInput(a.view.Input())
		a.details.Update(self.UID, peer, msgs)
	} else if a.pages.Contains(pageThread) {
		a.pages.Push(pageRoster)
		a.focusCurrent()
	}

	a.renderChrome()
}

// renderChrome redraws header, crumbs, menu and flash bar.
func (a *App) renderChrome() {
	self, _ := a.view.Self()
	data := ui.IdentityData{
		Profile: a.opts.Profile,
		State:   string(a.view.Auth()),
		Name:    self.Name(),
		UID:     self.UID,
		Email:   self.Email,
		Uptime:  time.Since(a.started),
	}
	for _, p := range a.view.Peers() {
		data.Peers++
		data.Unread += a.view.Unread(p.UID)
	}
	a.info.Update(data)

	current := a.pages.Current()
	a.menu.Update(a.registry.Hints(current), headerHeight-1)

	var labels []string
	for _, name := range a.pages.Stack() {
		labels = append(labels, a.byPage[name].Title())
	}
	a.crumbs.Update(labels)
	a.flashBar.Update(a.flash.Current())
}

func (a *App) root() string {
	if stack := a.pages.Stack(); len(stack) > 0 {
		return stack[0]
	}
	return ""
}

// resetTo makes page the root unless it already is.
func (a *App) resetTo(page string) {
	if a.root() == page {
		return
	}
	a.pages.Reset(page)
	a.focusCurrent()
}

func (a *App) push(page string) {
	if a.root() == pageAuth && page != pageHelp {
		return
	}
	a.pages.Push(page)
	a.focusCurrent()
}

// back leaves the current page. Leaving the thread deselects the
// conversation; on a root page it quits.
func (a *App) back() {
	switch a.pages.Current() {
	case pageThread:
		a.async("back", func(context.Context) error {
			a.client.Deselect()
			return nil
		})
	case pageAuth, pageRoster:
		a.Stop()
	default:
		a.pages.Pop()
		a.focusCurrent()
	}
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	default:
		if c, ok := a.byPage[a.pages.Current()]; ok {
			a.app.SetFocus(c)
		}
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	if mode == ui.PromptFilter && a.pages.Current() != pageRoster {
		return
	}
	a.prompt.Activate(mode)
	a.body.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.focusCurrent()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "q", "quit":
		a.Stop()
	case "h", "help":
		a.push(pageHelp)
	case "signin":
		a.signIn()
	case "signout", "logout":
		a.signOut()
	case "open":
		uid, err := ResolvePeer(a.view.Peers(), cmd.Args)
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.open(uid)
	default:
		a.flash.Warn("unknown command: " + cmd.Name)
	}
}

func (a *App) signIn() {
	if a.signingIn || a.view.Auth() != auth.SignedOut {
		return
	}
	a.signingIn = true
	a.authView.ShowSigningIn()
	a.async("sign in", quietly(a.log, "sign in", func(ctx context.Context) error {
		err := a.client.SignIn(ctx)
		a.app.QueueUpdateDraw(func() {
			a.signingIn = false
			a.sync()
		})
		return err
	}))
}

func (a *App) signOut() {
	a.async("sign out", a.client.SignOut)
}

// open selects peer and shows its thread once the selection is in place.
func (a *App) open(peer string) {
	if peer == "" {
		return
	}
	a.async("open", func(ctx context.Context) error {
		if err := a.client.Select(ctx, peer); err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() {
			if a.view.Active() != peer {
				return
			}
			a.sync()
			a.push(pageThread)
		})
		return nil
	})
}

// quietly wraps fn so its failure is logged but never reaches the flash bar.
// Sign-in failures and dropped writes leave no user-visible trace.
func quietly(log *zap.Logger, what string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			log.Info("action failed quietly", zap.String("action", what), zap.Error(err))
		}
		return nil
	}
}

// async runs fn off the draw loop and flashes its error.
func (a *App) async(what string, fn func(ctx context.Context) error) {
	a.wg.Go(func() {
		if err := fn(a.ctx); err != nil && a.ctx.Err() == nil {
			a.log.Warn("action failed", zap.String("action", what), zap.Error(err))
			a.flash.Err(err)
		}
	})
}
