package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/haggle/internal/sellers"
)

type sellerSavedMsg struct {
	err error
}

const (
	fieldName = iota
	fieldUserID
	fieldNote
	fieldCount
)

type SellerFormModel struct {
	app            *App
	originalSeller *sellers.Seller
	inputs         [fieldCount]textinput.Model
	focusIndex     int
	err            error
}

// NewSellerFormModel creates a form for adding or editing a saved seller.
func NewSellerFormModel(app *App, seller *sellers.Seller) SellerFormModel {
	var inputs [fieldCount]textinput.Model
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 50
	}
	inputs[fieldName].Placeholder = "Seller Name"
	inputs[fieldName].CharLimit = 100
	inputs[fieldName].Focus()
	inputs[fieldUserID].Placeholder = "Marketplace user id"
	inputs[fieldUserID].CharLimit = 20
	inputs[fieldNote].Placeholder = "Note (optional)"
	inputs[fieldNote].CharLimit = 200

	m := SellerFormModel{
		app:            app,
		originalSeller: seller,
		inputs:         inputs,
	}

	if seller != nil {
		m.inputs[fieldName].SetValue(seller.Name)
		m.inputs[fieldUserID].SetValue(strconv.FormatInt(seller.UserID, 10))
		m.inputs[fieldNote].SetValue(seller.Note)
	}

	return m
}

func (m SellerFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SellerFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.app.handleNotice(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return m.app.switchTo(NewSellersListModel(m.app))

		case "tab", "down", "enter":
			if msg.String() == "enter" && m.focusIndex == fieldCount-1 {
				return m, m.saveSeller()
			}
			m.focusIndex = (m.focusIndex + 1) % fieldCount
			m.updateFocus()
			return m, nil

		case "shift+tab", "up":
			m.focusIndex = (m.focusIndex - 1 + fieldCount) % fieldCount
			m.updateFocus()
			return m, nil

		case "ctrl+s":
			return m, m.saveSeller()
		}

	case sellerSavedMsg:
		if msg.err == nil {
			return m.app.switchTo(NewSellersListModel(m.app))
		}
		m.err = msg.err
		return m, nil
	}

	cmds := make([]tea.Cmd, 0, fieldCount)
	for i := range m.inputs {
		var cmd tea.Cmd
		m.inputs[i], cmd = m.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *SellerFormModel) updateFocus() {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m SellerFormModel) saveSeller() tea.Cmd {
	book := m.app.Sellers
	name := strings.TrimSpace(m.inputs[fieldName].Value())
	rawID := strings.TrimSpace(m.inputs[fieldUserID].Value())
	note := strings.TrimSpace(m.inputs[fieldNote].Value())
	original := m.originalSeller

	return func() tea.Msg {
		if name == "" {
			return sellerSavedMsg{err: fmt.Errorf("name is required")}
		}
		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || userID <= 0 {
			return sellerSavedMsg{err: fmt.Errorf("user id must be a positive number")}
		}

		if original != nil && original.Name != name {
			if err := book.Delete(original.Name); err != nil {
				return sellerSavedMsg{err: fmt.Errorf("failed to delete old seller: %w", err)}
			}
		}

		return sellerSavedMsg{err: book.Save(sellers.Seller{Name: name, UserID: userID, Note: note})}
	}
}

func (m SellerFormModel) View() string {
	var b strings.Builder

	title := "Add Seller"
	if m.originalSeller != nil {
		title = "Edit Seller"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	focusedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	blurredStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	labels := [fieldCount]string{"Name (required):", "User id (required):", "Note:"}
	for i, input := range m.inputs {
		style := blurredStyle
		if i == m.focusIndex {
			style = focusedStyle
		}
		b.WriteString(style.Render(labels[i]) + "\n")
		b.WriteString(input.View() + "\n\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("tab/↑↓: navigate • ctrl+s: save • esc: cancel"))

	return b.String()
}
