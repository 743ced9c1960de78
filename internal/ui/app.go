package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/chat"
	"github.com/saravenpi/haggle/internal/config"
	"github.com/saravenpi/haggle/internal/sellers"
	"github.com/saravenpi/haggle/internal/session"
)

// App carries what every screen needs. Screens are rebuilt on navigation; App is not.
type App struct {
	Ctx     context.Context
	Backend chat.Backend
	Auth    *session.Service
	Sellers *sellers.Book
	Inbox   *chat.Inbox
	Chat    config.ChatConfig
	Log     *zap.Logger

	notices *chat.Notices
	width   int
	height  int
}

func NewApp(ctx context.Context, backend chat.Backend, auth *session.Service, book *sellers.Book, inbox *chat.Inbox, cfg config.ChatConfig, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.NoticeTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &App{
		Ctx:     ctx,
		Backend: backend,
		Auth:    auth,
		Sellers: book,
		Inbox:   inbox,
		Chat:    cfg,
		Log:     logger,
		notices: chat.NewNotices(ttl),
		width:   80,
		height:  30,
	}
}

// SelfID is the signed-in user's id, or 0 when unknown.
func (a *App) SelfID() int64 {
	id, err := a.Auth.SelfID()
	if err != nil {
		return 0
	}
	return id
}

func (a *App) chatOptions() chat.Options {
	return chat.Options{
		PollInterval:  a.Chat.PollInterval,
		RecentLimit:   a.Chat.RecentLimit,
		PageSize:      a.Chat.PageSize,
		MaxImageBytes: a.Chat.MaxImageBytes,
		Logger:        a.Log,
	}
}

func (a *App) resize(msg tea.WindowSizeMsg) {
	a.width = msg.Width
	a.height = msg.Height
}

// switchTo initializes next and replays the current window size into it.
func (a *App) switchTo(next tea.Model) (tea.Model, tea.Cmd) {
	initCmd := next.Init()
	next, sizeCmd := next.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	return next, tea.Batch(initCmd, sizeCmd)
}

type noticeExpiredMsg struct {
	seq int
}

// showNoticeMsg asks whichever screen is active to display text.
type showNoticeMsg struct {
	text string
}

func (a *App) notify(text string) tea.Cmd {
	n := a.notices.Show(text)
	return tea.Tick(a.notices.TTL(), func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: n.Seq}
	})
}

func (a *App) notifyErr(err error) tea.Cmd {
	return a.notify(api.Describe(err))
}

func noticeCmd(text string) tea.Cmd {
	return func() tea.Msg { return showNoticeMsg{text: text} }
}

// handleNotice processes the notice messages shared by every screen. It also settles send
// answers for a conversation window that was already closed: a failure still reaches the
// user on whichever screen is showing.
func (a *App) handleNotice(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case showNoticeMsg:
		return a.notify(msg.text), true
	case noticeExpiredMsg:
		a.notices.Expire(msg.seq)
		return nil, true
	case messageSentMsg:
		if !msg.session.Closed() {
			return nil, false
		}
		if msg.err == nil {
			a.Log.Debug("send confirmed after leaving the conversation", zap.Int64("conversation_id", msg.session.ID))
			return nil, true
		}
		a.Log.Warn("send failed after leaving the conversation", zap.Int64("conversation_id", msg.session.ID), zap.Error(msg.err))
		return a.notify("Your message was not sent: " + api.Describe(msg.err)), true
	}
	return nil, false
}

func (a *App) noticeView() string {
	text, ok := a.notices.Current()
	if !ok {
		return ""
	}
	return noticeStyle.Render("⚠ "+text) + "\n"
}

// unauthenticated reports whether err means the session is gone and the user must sign in.
func unauthenticated(err error) bool {
	return errors.Is(err, api.ErrUnauthenticated)
}

func (a *App) toLogin() (tea.Model, tea.Cmd) {
	next, cmd := a.switchTo(NewLoginModel(a, nil))
	return next, tea.Batch(cmd, a.notify("Your session has expired. Please sign in again."))
}
