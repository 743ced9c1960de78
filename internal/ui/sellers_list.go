package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/haggle/internal/sellers"
)

type sellerItem struct {
	seller sellers.Seller
}

func (i sellerItem) FilterValue() string { return i.seller.Name }
func (i sellerItem) Title() string       { return i.seller.Name }
func (i sellerItem) Description() string {
	desc := fmt.Sprintf("user #%d", i.seller.UserID)
	if i.seller.Note != "" {
		desc += " • " + i.seller.Note
	}
	return desc
}

type sellersLoadedMsg struct {
	sellers []sellers.Seller
	err     error
}

type SellersListModel struct {
	app            *App
	list           list.Model
	sellers        []sellers.Seller
	loading        bool
	starting       bool
	err            error
	confirmDelete  bool
	sellerToDelete *sellers.Seller
}

// NewSellersListModel creates the saved sellers view.
func NewSellersListModel(app *App) SellersListModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("214")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, app.width, 20)
	l.Title = "Sellers"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return SellersListModel{
		app:     app,
		list:    l,
		loading: true,
	}
}

func (m SellersListModel) Init() tea.Cmd {
	return m.loadSellersCmd()
}

func (m SellersListModel) loadSellersCmd() tea.Cmd {
	book := m.app.Sellers
	return func() tea.Msg {
		list, err := book.List()
		return sellersLoadedMsg{sellers: list, err: err}
	}
}

func (m SellersListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.app.handleNotice(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 5)
		return m, nil

	case sellersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.sellers = msg.sellers
		items := make([]list.Item, len(m.sellers))
		for i, s := range m.sellers {
			items[i] = sellerItem{seller: s}
		}
		m.list.SetItems(items)
		m.list.Title = fmt.Sprintf("Sellers - %d saved", len(m.sellers))
		return m, nil

	case conversationStartedMsg:
		m.starting = false
		if next, cmd, ok := afterStart(m.app, NewSellersListModel(m.app), msg); ok {
			return next, cmd
		}
		return m, m.app.notifyErr(msg.err)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.confirmDelete {
			switch msg.String() {
			case "y", "Y":
				if m.sellerToDelete != nil {
					if err := m.app.Sellers.Delete(m.sellerToDelete.Name); err != nil {
						m.err = err
					}
				}
				m.confirmDelete = false
				m.sellerToDelete = nil
				m.loading = true
				return m, m.loadSellersCmd()
			case "n", "N", "esc":
				m.confirmDelete = false
				m.sellerToDelete = nil
			}
			return m, nil
		}
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "esc", "q":
			return m.app.switchTo(NewMenuModel(m.app))

		case "n", "a":
			return m.app.switchTo(NewSellerFormModel(m.app, nil))

		case "r":
			m.loading = true
			m.app.Sellers.Invalidate()
			return m, m.loadSellersCmd()

		case "e":
			if item, ok := m.list.SelectedItem().(sellerItem); ok {
				return m.app.switchTo(NewSellerFormModel(m.app, &item.seller))
			}
			return m, nil

		case "enter":
			if item, ok := m.list.SelectedItem().(sellerItem); ok && !m.starting {
				m.starting = true
				return m, startConversationCmd(m.app, item.seller.UserID)
			}
			return m, nil

		case "d", "delete":
			if item, ok := m.list.SelectedItem().(sellerItem); ok {
				m.confirmDelete = true
				sellerCopy := item.seller
				m.sellerToDelete = &sellerCopy
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m SellersListModel) View() string {
	if m.confirmDelete && m.sellerToDelete != nil {
		s := titleStyle.Render("Delete Seller") + "\n\n"
		s += normalStyle.Render(fmt.Sprintf("Are you sure you want to delete '%s'?", m.sellerToDelete.Name)) + "\n\n"
		s += errorStyle.Render("This action cannot be undone.") + "\n\n"
		s += helpStyle.Render("y: confirm delete • n/esc: cancel")
		return s
	}

	if m.loading {
		return "\n  Loading sellers...\n"
	}

	s := m.app.noticeView()

	if m.err != nil {
		s += titleStyle.Render("Sellers") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back to menu")
		return s
	}

	if len(m.sellers) == 0 {
		s += titleStyle.Render("Sellers") + "\n\n"
		s += normalStyle.Render("  No saved sellers. Press 'n' to add one.") + "\n"
		s += "\n" + helpStyle.Render("n: new seller • esc: back")
		return s
	}

	s += m.list.View() + "\n"
	if m.starting {
		s += statusStyle.Render("Starting conversation...") + "\n"
	}
	s += helpStyle.Render("↑↓/jk: navigate • enter: message • e: edit • n: new • d: delete • /: search • r: refresh • esc: back")

	return s
}
