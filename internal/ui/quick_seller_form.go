package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/haggle/internal/models"
	"github.com/saravenpi/haggle/internal/sellers"
)

type quickSellerSavedMsg struct {
	err error
}

// QuickSellerFormModel saves the other participant of an open conversation. The
// conversation keeps running underneath: everything but keys is forwarded to it.
type QuickSellerFormModel struct {
	app         *App
	back        MessagesModel
	participant models.Participant
	nameInput   textinput.Model
	err         error
}

func NewQuickSellerFormModel(app *App, back MessagesModel, participant models.Participant) QuickSellerFormModel {
	nameInput := textinput.New()
	nameInput.Placeholder = "Seller Name"
	nameInput.Focus()
	nameInput.CharLimit = 100
	nameInput.Width = 50
	nameInput.SetValue(participant.Name)

	return QuickSellerFormModel{
		app:         app,
		back:        back,
		participant: participant,
		nameInput:   nameInput,
	}
}

func (m QuickSellerFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m QuickSellerFormModel) returnToConversation() (tea.Model, tea.Cmd) {
	m.back.render()
	return m.back, nil
}

func (m QuickSellerFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.back.session.Close()
			return m, tea.Quit
		case "esc":
			return m.returnToConversation()
		case "enter", "ctrl+s":
			return m, m.saveSeller()
		}

		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd

	case quickSellerSavedMsg:
		if msg.err == nil {
			return m.returnToConversation()
		}
		m.err = msg.err
		return m, nil
	}

	next, cmd := m.back.Update(msg)
	back, ok := next.(MessagesModel)
	if !ok {
		return next, cmd
	}
	m.back = back
	return m, cmd
}

func (m QuickSellerFormModel) saveSeller() tea.Cmd {
	book := m.app.Sellers
	name := strings.TrimSpace(m.nameInput.Value())
	userID := m.participant.ID
	return func() tea.Msg {
		if name == "" {
			return quickSellerSavedMsg{err: fmt.Errorf("name is required")}
		}
		return quickSellerSavedMsg{err: book.Save(sellers.Seller{Name: name, UserID: userID})}
	}
}

func (m QuickSellerFormModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Save Seller") + "\n\n")
	b.WriteString(normalStyle.Render(fmt.Sprintf("User id: %d", m.participant.ID)) + "\n\n")

	focusedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	b.WriteString(focusedStyle.Render("Name:") + "\n")
	b.WriteString(m.nameInput.View() + "\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("enter/ctrl+s: save • esc: cancel"))

	return b.String()
}
