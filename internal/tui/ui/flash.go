package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel is the severity of a notification.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

const flashKeep = 8

// FlashMessage is one notification. Pending counts the older notifications
// still live behind it.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
	Pending int
}

// FlashModel keeps the last few notifications, newest last. Writers are
// worker goroutines; the draw loop reads.
type FlashModel struct {
	mu     sync.Mutex
	recent []FlashMessage
	now    func() time.Time
	notify chan struct{}
}

func NewFlashModel() *FlashModel {
	return &FlashModel{now: time.Now, notify: make(chan struct{}, 1)}
}

func (f *FlashModel) Info(msg string) { f.push(FlashInfo, msg) }

func (f *FlashModel) Warn(msg string) { f.push(FlashWarn, msg) }

func (f *FlashModel) Err(err error) { f.push(FlashErr, err.Error()) }

func (f *FlashModel) push(level FlashLevel, text string) {
	f.mu.Lock()
	f.recent = append(f.recent, FlashMessage{
		Text:    text,
		Level:   level,
		Expires: f.now().Add(flashTTL[level]),
	})
	if over := len(f.recent) - flashKeep; over > 0 {
		f.recent = f.recent[over:]
	}
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Current returns the newest live notification, or nil when all expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	live := f.recent[:0]
	for _, m := range f.recent {
		if !now.After(m.Expires) {
			live = append(live, m)
		}
	}
	f.recent = live
	if len(live) == 0 {
		return nil
	}
	m := live[len(live)-1]
	m.Pending = len(live) - 1
	return &m
}

// Watch is signalled after each new notification.
func (f *FlashModel) Watch() <-chan struct{} {
	return f.notify
}

// FlashBar renders the current notification on one line.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &FlashBar{TextView: tv, theme: theme}
}

func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}
	colors := map[FlashLevel]string{
		FlashInfo: Tag(fb.theme.FlashInfoColor),
		FlashWarn: Tag(fb.theme.FlashWarnColor),
		FlashErr:  Tag(fb.theme.FlashErrColor),
	}
	line := fmt.Sprintf(" %s%s[-]", colors[msg.Level], tview.Escape(msg.Text))
	if msg.Pending > 0 {
		line += fmt.Sprintf(" %s(+%d)[-]", Tag(fb.theme.BorderColor), msg.Pending)
	}
	fb.SetText(line)
}
