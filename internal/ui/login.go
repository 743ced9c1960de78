package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type signedInMsg struct {
	err error
}

// LoginModel asks for an access token and stores it in the session file.
type LoginModel struct {
	app        *App
	next       func() tea.Model
	tokenInput textinput.Model
	err        error
}

// NewLoginModel creates the sign-in screen. next builds the screen shown after a
// successful sign-in; nil means the main menu.
func NewLoginModel(app *App, next func() tea.Model) LoginModel {
	tokenInput := textinput.New()
	tokenInput.Placeholder = "Paste your access token"
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.EchoCharacter = '•'
	tokenInput.CharLimit = 4096
	tokenInput.Width = 60
	tokenInput.Focus()

	if next == nil {
		next = func() tea.Model { return NewMenuModel(app) }
	}
	return LoginModel{app: app, next: next, tokenInput: tokenInput}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) signInCmd() tea.Cmd {
	auth := m.app.Auth
	token := strings.TrimSpace(m.tokenInput.Value())
	return func() tea.Msg {
		if token == "" {
			return signedInMsg{err: fmt.Errorf("token is required")}
		}
		return signedInMsg{err: auth.Save(token)}
	}
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.app.handleNotice(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.tokenInput.Width = min(msg.Width-20, 80)
		return m, nil

	case signedInMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m.app.switchTo(m.next())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m, m.signInCmd()
		}
	}

	var cmd tea.Cmd
	m.tokenInput, cmd = m.tokenInput.Update(msg)
	return m, cmd
}

func (m LoginModel) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214"))

	s := m.app.noticeView()
	s += titleStyle.Render("Sign in to Haggle") + "\n\n"
	s += style.Render("Token:\n" + m.tokenInput.View())

	if m.err != nil {
		s += "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	s += "\n\n" + helpStyle.Render("enter: sign in • esc: quit")
	return s
}
