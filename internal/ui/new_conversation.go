package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/chat"
	"github.com/saravenpi/haggle/internal/sellers"
)

type conversationStartedMsg struct {
	id  int64
	err error
}

type NewConversationModel struct {
	app         *App
	back        tea.Model
	sellerInput textinput.Model
	starting    bool
	pending     tea.Cmd
}

// NewNewConversationModel asks for a seller and starts (or reuses) the conversation with
// them. back is shown again if the user cancels or tries to message themselves.
func NewNewConversationModel(app *App, back tea.Model) NewConversationModel {
	sellerInput := textinput.New()
	sellerInput.Placeholder = "Seller user id or saved seller name"
	sellerInput.Focus()
	sellerInput.CharLimit = 100
	sellerInput.Width = 60

	return NewConversationModel{
		app:         app,
		back:        back,
		sellerInput: sellerInput,
	}
}

// NewStartModel is the new conversation screen with seller already submitted, backed by
// the menu.
func NewStartModel(app *App, seller string) NewConversationModel {
	m := NewNewConversationModel(app, NewMenuModel(app))
	m.sellerInput.SetValue(seller)
	m.pending = m.submit()
	return m
}

func (m NewConversationModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.pending)
}

// submit resolves the typed seller and returns the start request, or a notice when the
// seller is unknown.
func (m *NewConversationModel) submit() tea.Cmd {
	if m.starting || strings.TrimSpace(m.sellerInput.Value()) == "" {
		return nil
	}
	sellerID, err := resolveSeller(m.app.Sellers, m.sellerInput.Value())
	if err != nil {
		return noticeCmd(err.Error())
	}
	m.starting = true
	return startConversationCmd(m.app, sellerID)
}

// resolveSeller accepts a numeric user id or the name of a saved seller.
func resolveSeller(book *sellers.Book, input string) (int64, error) {
	input = strings.TrimSpace(input)
	if id, err := strconv.ParseInt(input, 10, 64); err == nil {
		return id, nil
	}
	s, err := book.Load(input)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a user id nor a saved seller", input)
	}
	return s.UserID, nil
}

func startConversationCmd(app *App, sellerID int64) tea.Cmd {
	return func() tea.Msg {
		id, err := chat.StartWith(app.Ctx, app.Backend, app.SelfID(), sellerID)
		return conversationStartedMsg{id: id, err: err}
	}
}

// afterStart routes the result of a start request: into the conversation on success, back
// to the previous screen with a notice when messaging yourself.
func afterStart(app *App, back tea.Model, msg conversationStartedMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case msg.err == nil:
		next, cmd := app.switchTo(NewMessagesModel(app, msg.id))
		return next, cmd, true
	case errors.Is(msg.err, api.ErrSelfConversation):
		next, cmd := app.switchTo(back)
		return next, tea.Batch(cmd, app.notifyErr(msg.err)), true
	case unauthenticated(msg.err):
		next, cmd := app.toLogin()
		return next, cmd, true
	}
	return nil, nil, false
}

func (m NewConversationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.app.handleNotice(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.sellerInput.Width = msg.Width - 20
		return m, nil

	case conversationStartedMsg:
		m.starting = false
		if next, cmd, ok := afterStart(m.app, m.back, msg); ok {
			return next, cmd
		}
		return m, m.app.notifyErr(msg.err)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return m.app.switchTo(m.back)

		case "enter":
			cmd := m.submit()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.sellerInput, cmd = m.sellerInput.Update(msg)
	return m, cmd
}

func (m NewConversationModel) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214"))

	content := m.app.noticeView()
	content += titleStyle.Render("New Conversation") + "\n\n"
	content += style.Render("> Seller:\n" + m.sellerInput.View())

	if m.starting {
		content += "\n\n" + statusStyle.Render("Starting conversation...")
	}

	content += "\n\n" + helpStyle.Render("enter: start • esc: back • ctrl+c: quit")

	return content
}
