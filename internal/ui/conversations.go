package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/chat"
	"github.com/saravenpi/haggle/internal/models"
)

type summaryItem struct {
	summary models.ConversationSummary
	name    string
	selfID  int64
}

func (i summaryItem) Title() string {
	title := i.name
	if i.summary.OtherUser.IsVerified {
		title += " " + verifiedStyle.Render("✔")
	}
	if i.summary.Listing != nil {
		title += listingStyle.Render(" · " + i.summary.Listing.Title)
	}
	if i.summary.UnreadCount > 0 {
		title += selectedStyle.Render(fmt.Sprintf(" (%d)", i.summary.UnreadCount))
	}
	return title
}

func (i summaryItem) Description() string {
	last := i.summary.LastMessage
	if last == nil {
		return formatTimeAgo(i.summary.UpdatedAt) + " • no messages yet"
	}

	preview := "📷 Photo"
	if last.Type != models.MessageImage && last.Content != nil {
		preview = *last.Content
	}
	if i.selfID != 0 && last.SenderID == i.selfID {
		preview = "You: " + preview
	}
	if r := []rune(preview); len(r) > 50 {
		preview = string(r[:47]) + "..."
	}
	return fmt.Sprintf("%s • %s", formatTimeAgo(last.CreatedAt), preview)
}

func (i summaryItem) FilterValue() string {
	return i.name
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	}
	if duration < 2*time.Minute {
		return "1 min ago"
	}
	if duration < time.Hour {
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	}
	if duration < 2*time.Hour {
		return "1h ago"
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	if duration < 48*time.Hour {
		return "yesterday"
	}
	if duration < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("Jan 2")
}

// listSub is one run of the list poller; results from an older run are dropped.
type listSub struct {
	cancel  context.CancelFunc
	updates chan chat.ListResult
}

type summariesFetchedMsg struct {
	sub    *listSub
	res    chat.ListResult
	manual bool
}

type listClosedMsg struct {
	sub *listSub
}

func waitForList(sub *listSub) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-sub.updates
		if !ok {
			return listClosedMsg{sub: sub}
		}
		return summariesFetchedMsg{sub: sub, res: res}
	}
}

type ConversationsModel struct {
	app     *App
	list    list.Model
	loading bool
	err     error
	spinner spinner.Model
	sub     *listSub
	poller  *chat.ListPoller
}

func NewConversationsModel(app *App) ConversationsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("214")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, app.width, 20)
	l.Title = "Conversations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	m := ConversationsModel{
		app:     app,
		list:    l,
		spinner: s,
		sub:     &listSub{updates: make(chan chat.ListResult)},
		poller:  chat.NewListPoller(app.Backend, app.Chat.ListPollInterval, app.Log),
	}
	m.setItems()
	m.loading = len(app.Inbox.Summaries()) == 0
	return m
}

func (m ConversationsModel) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(m.app.Ctx)
	m.sub.cancel = cancel
	go m.poller.Run(ctx, m.sub.updates)
	return tea.Batch(m.spinner.Tick, m.fetchSummariesCmd(), waitForList(m.sub))
}

// fetchSummariesCmd runs one poll immediately instead of waiting a full interval.
func (m ConversationsModel) fetchSummariesCmd() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		return summariesFetchedMsg{sub: sub, res: m.poller.Poll(m.app.Ctx), manual: true}
	}
}

func (m *ConversationsModel) stop() {
	if m.sub != nil && m.sub.cancel != nil {
		m.sub.cancel()
	}
}

func (m *ConversationsModel) setItems() {
	summaries := m.app.Inbox.Summaries()
	selfID := m.app.SelfID()
	items := make([]list.Item, len(summaries))
	for i, s := range summaries {
		name := m.app.Sellers.NameFor(s.OtherUser.ID)
		if name == "" {
			name = s.OtherUser.Name
		}
		items[i] = summaryItem{summary: s, name: name, selfID: selfID}
	}
	m.list.SetItems(items)

	title := fmt.Sprintf("Conversations - %d chats", len(summaries))
	if unread := m.app.Inbox.UnreadTotal(); unread > 0 {
		title += fmt.Sprintf(" • %d unread", unread)
	}
	m.list.Title = title
}

func (m ConversationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.app.handleNotice(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 5)
		return m, nil

	case summariesFetchedMsg:
		if msg.sub != m.sub {
			return m, nil
		}
		m.loading = false
		var next tea.Cmd
		if !msg.manual {
			next = waitForList(m.sub)
		}
		if msg.res.Err != nil {
			if unauthenticated(msg.res.Err) {
				m.stop()
				return m.app.toLogin()
			}
			m.err = msg.res.Err
			if msg.manual {
				return m, tea.Batch(next, m.app.notifyErr(msg.res.Err))
			}
			return m, next
		}

		m.err = nil
		if err := m.app.Inbox.Replace(msg.res.Summaries); err != nil {
			m.app.Log.Warn("failed to cache conversations", zap.Error(err))
		}
		m.setItems()
		return m, next

	case listClosedMsg:
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.stop()
			return m, tea.Quit
		}
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "q":
			m.stop()
			return m, tea.Quit

		case "esc":
			m.stop()
			return m.app.switchTo(NewMenuModel(m.app))

		case "n":
			m.stop()
			return m.app.switchTo(NewNewConversationModel(m.app, NewConversationsModel(m.app)))

		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchSummariesCmd())

		case "enter":
			if item, ok := m.list.SelectedItem().(summaryItem); ok {
				m.stop()
				return m.app.switchTo(NewMessagesModel(m.app, item.summary.ID))
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ConversationsModel) View() string {
	if m.loading && len(m.app.Inbox.Summaries()) == 0 {
		return fmt.Sprintf("\n  %s Loading conversations...\n", m.spinner.View())
	}

	s := m.app.noticeView()

	if m.err != nil && len(m.app.Inbox.Summaries()) == 0 {
		s += titleStyle.Render("Conversations") + "\n\n"
		s += errorStyle.Render("Error: "+api.Describe(m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back • q: quit")
		return s
	}

	if len(m.app.Inbox.Summaries()) == 0 {
		s += titleStyle.Render("Conversations") + "\n\n"
		s += normalStyle.Render("  No conversations yet. Press 'n' to message a seller.") + "\n"
		s += "\n" + helpStyle.Render("n: new • r: refresh • esc: back • q: quit")
		return s
	}

	s += m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: open • n: new • /: search • r: refresh • esc: back • q: quit")
	return s
}
