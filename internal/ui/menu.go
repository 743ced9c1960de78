package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type menuAction int

const (
	menuConversations menuAction = iota
	menuNewConversation
	menuSellers
	menuSignOut
)

type menuItem struct {
	title  string
	desc   string
	action menuAction
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

type MenuModel struct {
	app  *App
	list list.Model
}

// NewMenuModel creates the main menu.
func NewMenuModel(app *App) MenuModel {
	items := []list.Item{
		menuItem{title: "💬 Conversations", desc: "Your conversations with buyers and sellers", action: menuConversations},
		menuItem{title: "✉️  New conversation", desc: "Message a seller by user id", action: menuNewConversation},
		menuItem{title: "🏷  Sellers", desc: "Manage saved sellers", action: menuSellers},
		menuItem{title: "🚪 Sign out", desc: "Forget the saved session", action: menuSignOut},
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("214")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New(items, delegate, app.width, 14)
	l.Title = "Haggle - Marketplace Chat"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return MenuModel{app: app, list: l}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.app.handleNotice(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 5)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

		if msg.String() == "enter" {
			item, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}

			switch item.action {
			case menuConversations:
				return m.app.switchTo(NewConversationsModel(m.app))
			case menuNewConversation:
				return m.app.switchTo(NewNewConversationModel(m.app, m))
			case menuSellers:
				return m.app.switchTo(NewSellersListModel(m.app))
			case menuSignOut:
				if err := m.app.Auth.Clear(); err != nil {
					return m, m.app.notify(err.Error())
				}
				_ = m.app.Inbox.Deselect()
				return m.app.switchTo(NewLoginModel(m.app, nil))
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m MenuModel) View() string {
	s := m.app.noticeView()
	s += m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: select • q: quit")
	return s
}
