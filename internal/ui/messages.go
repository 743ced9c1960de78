package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/chat"
	"github.com/saravenpi/haggle/internal/models"
)

// Every message carries the session it belongs to; answers for a closed session are dropped.

type conversationLoadedMsg struct {
	session *chat.Session
	detail  *models.ConversationDetail
	err     error
}

type pollMsg struct {
	session *chat.Session
	res     chat.PollResult
}

type pollClosedMsg struct {
	session *chat.Session
}

type messageSentMsg struct {
	session   *chat.Session
	pending   *chat.Pending
	confirmed *models.Message
	err       error
}

type olderLoadedMsg struct {
	session *chat.Session
	before  int64
	older   []models.Message
	err     error
}

type messageDeletedMsg struct {
	session *chat.Session
	id      int64
	err     error
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeCompose
	modeAttach
	modeSelect
)

type MessagesModel struct {
	app     *App
	session *chat.Session

	viewport  viewport.Model
	textarea  textarea.Model
	pathInput textinput.Model
	spinner   spinner.Model

	mode    inputMode
	loading bool
	polling bool
	err     error

	// cursor indexes Store.Messages() in select mode.
	cursor  int
	replyTo *models.Message
	// lineStarts[i] is the viewport line where message i begins.
	lineStarts []int
}

// NewMessagesModel opens conversationID. The session it opens is closed when the
// model navigates away.
func NewMessagesModel(app *App, conversationID int64) MessagesModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	vp := viewport.New(app.width-4, 20)

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	pi := textinput.New()
	pi.Placeholder = "Path to an image (jpg, png)"
	pi.CharLimit = 512
	pi.Width = 60

	sess := chat.Open(app.Ctx, app.Backend, conversationID, app.SelfID(), app.chatOptions())
	if err := app.Inbox.Select(conversationID); err != nil {
		app.Log.Warn("failed to save location", zap.Error(err))
	}

	return MessagesModel{
		app:       app,
		session:   sess,
		viewport:  vp,
		textarea:  ta,
		pathInput: pi,
		spinner:   s,
		loading:   true,
	}
}

func (m MessagesModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m MessagesModel) loadCmd() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		detail, err := sess.Load(sess.Context())
		return conversationLoadedMsg{session: sess, detail: detail, err: err}
	}
}

func waitForPoll(sess *chat.Session, updates <-chan chat.PollResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-updates
		if !ok {
			return pollClosedMsg{session: sess}
		}
		return pollMsg{session: sess, res: res}
	}
}

func (m MessagesModel) markReadCmd() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		sess.MarkRead(sess.Context())
		return nil
	}
}

// deliverCmd sends on the app context; closing the session must not cancel a submitted
// message.
func (m MessagesModel) deliverCmd(p *chat.Pending) tea.Cmd {
	sess := m.session
	app := m.app
	return func() tea.Msg {
		confirmed, err := p.Deliver(app.Ctx, app.Backend)
		return messageSentMsg{session: sess, pending: p, confirmed: confirmed, err: err}
	}
}

func (m MessagesModel) loadOlderCmd(before int64) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		older, err := sess.LoadOlder(sess.Context(), before)
		return olderLoadedMsg{session: sess, before: before, older: older, err: err}
	}
}

func (m MessagesModel) deleteCmd(id int64) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		return messageDeletedMsg{session: sess, id: id, err: sess.Delete(sess.Context(), id)}
	}
}

// leave closes the session and forgets the location, then shows next.
func (m MessagesModel) leave(next tea.Model) (tea.Model, tea.Cmd) {
	m.session.Close()
	if err := m.app.Inbox.Deselect(); err != nil {
		m.app.Log.Warn("failed to clear location", zap.Error(err))
	}
	return m.app.switchTo(next)
}

func (m MessagesModel) toLogin() (tea.Model, tea.Cmd) {
	m.session.Close()
	return m.app.toLogin()
}

func (m MessagesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.app.handleNotice(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.layout()
		m.render()
		return m, nil

	case conversationLoadedMsg:
		if msg.session != m.session {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			if unauthenticated(msg.err) {
				return m.toLogin()
			}
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		atBottom := m.viewport.AtBottom()
		changed := m.session.ApplyLoad(msg.detail)
		m.layout()
		m.render()
		if !m.polling || (changed && atBottom) {
			m.viewport.GotoBottom()
		}
		if m.polling {
			return m, m.markReadCmd()
		}
		m.polling = true
		return m, tea.Batch(waitForPoll(m.session, m.session.StartPolling()), m.markReadCmd())

	case pollMsg:
		if msg.session != m.session {
			return m, nil
		}
		next := waitForPoll(m.session, m.session.StartPolling())
		if unauthenticated(msg.res.MessagesErr) {
			return m.toLogin()
		}

		out := m.session.ApplyPoll(msg.res, m.viewport.AtBottom())
		if !out.Changed && !out.ReceiptsChanged {
			return m, next
		}
		m.render()
		if out.ScrollToBottom {
			m.viewport.GotoBottom()
		}
		if out.MarkRead {
			return m, tea.Batch(next, m.markReadCmd())
		}
		return m, next

	case pollClosedMsg:
		return m, nil

	case messageSentMsg:
		if msg.session != m.session {
			return m, nil
		}
		err := m.session.Sender.Complete(msg.pending, msg.confirmed, msg.err)
		m.render()
		if err != nil {
			if unauthenticated(err) {
				return m.toLogin()
			}
			return m, m.app.notifyErr(err)
		}
		m.viewport.GotoBottom()
		return m, nil

	case olderLoadedMsg:
		if msg.session != m.session {
			return m, nil
		}
		before := m.viewport.TotalLineCount()
		added := m.session.Pager.Complete(msg.before, msg.older, msg.err)
		if msg.err != nil {
			return m, m.app.notifyErr(msg.err)
		}
		if added > 0 {
			m.cursor += added
			m.render()
			m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.TotalLineCount() - before)
		}
		return m, nil

	case messageDeletedMsg:
		if msg.session != m.session {
			return m, nil
		}
		err := m.session.ApplyDelete(msg.id, msg.err)
		m.render()
		if err != nil {
			if unauthenticated(err) {
				return m.toLogin()
			}
			return m, m.app.notifyErr(err)
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading || m.session.Pager.Loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, tea.Batch(cmd, m.maybeLoadOlder())
	}

	return m, nil
}

func (m MessagesModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.session.Close()
		return m, tea.Quit
	}

	switch m.mode {
	case modeCompose:
		return m.composeKey(msg)
	case modeAttach:
		return m.attachKey(msg)
	case modeSelect:
		return m.selectKey(msg)
	}

	if msg.String() == "esc" {
		return m.leave(NewConversationsModel(m.app))
	}
	if m.loading {
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.session.Close()
		return m, tea.Quit

	case "n", "c":
		if !m.session.CanSend() {
			return m, nil
		}
		return m.startCompose()

	case "i":
		if !m.session.CanSend() {
			return m, nil
		}
		m.mode = modeAttach
		m.pathInput.Reset()
		m.pathInput.Focus()
		m.layout()
		return m, textinput.Blink

	case "s":
		msgs := m.session.Store.Messages()
		if len(msgs) == 0 {
			return m, nil
		}
		m.mode = modeSelect
		m.cursor = len(msgs) - 1
		m.render()
		m.scrollToCursor()
		return m, nil

	case "a":
		if conv, ok := m.session.Conversation(); ok && m.app.Sellers.NameFor(conv.OtherUser.ID) == "" {
			return m.app.switchTo(NewQuickSellerFormModel(m.app, m, conv.OtherUser))
		}
		return m, nil

	case "r":
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, tea.Batch(cmd, m.maybeLoadOlder())
}

func (m MessagesModel) startCompose() (tea.Model, tea.Cmd) {
	m.mode = modeCompose
	m.textarea.Focus()
	m.layout()
	m.render()
	return m, textarea.Blink
}

func (m MessagesModel) composeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.replyTo = nil
		m.textarea.Reset()
		m.textarea.Blur()
		m.layout()
		m.render()
		return m, nil

	case "ctrl+s":
		p, err := m.session.Sender.BeginText(m.textarea.Value(), m.replyTo)
		if errors.Is(err, chat.ErrSendDisabled) || errors.Is(err, chat.ErrEmptyMessage) {
			return m, nil
		}
		if err != nil {
			return m, m.app.notifyErr(err)
		}

		m.mode = modeBrowse
		m.replyTo = nil
		m.textarea.Reset()
		m.textarea.Blur()
		m.layout()
		m.render()
		m.viewport.GotoBottom()
		return m, m.deliverCmd(p)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m MessagesModel) attachKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.pathInput.Blur()
		m.layout()
		return m, nil

	case "enter":
		p, err := m.session.Sender.BeginImage(expandHome(m.pathInput.Value()))
		if errors.Is(err, chat.ErrSendDisabled) || errors.Is(err, chat.ErrEmptyMessage) {
			return m, nil
		}
		if err != nil {
			return m, m.app.notify(err.Error())
		}

		m.mode = modeBrowse
		m.pathInput.Blur()
		m.layout()
		m.render()
		m.viewport.GotoBottom()
		return m, m.deliverCmd(p)
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m MessagesModel) selectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	msgs := m.session.Store.Messages()
	if len(msgs) == 0 {
		m.mode = modeBrowse
		return m, nil
	}
	m.cursor = min(max(m.cursor, 0), len(msgs)-1)
	selected := msgs[m.cursor]

	switch msg.String() {
	case "esc", "s":
		m.mode = modeBrowse
		m.render()
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.render()
		m.scrollToCursor()
		return m, m.maybeLoadOlder()

	case "down", "j":
		if m.cursor < len(msgs)-1 {
			m.cursor++
		}
		m.render()
		m.scrollToCursor()
		return m, nil

	case "r", "enter":
		if selected.Temporary || selected.IsDeleted || !m.session.CanSend() {
			return m, nil
		}
		m.replyTo = &selected
		return m.startCompose()

	case "d":
		if selected.Temporary || selected.IsDeleted || selected.SenderID != m.session.SelfID {
			return m, nil
		}
		m.mode = modeBrowse
		m.render()
		return m, m.deleteCmd(selected.ID)
	}

	return m, nil
}

// maybeLoadOlder starts a page load when the viewport is scrolled near the top.
func (m MessagesModel) maybeLoadOlder() tea.Cmd {
	if !m.session.Pager.NearTop(m.viewport.YOffset) || m.viewport.TotalLineCount() == 0 {
		return nil
	}
	before, ok := m.session.Pager.Begin()
	if !ok {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.loadOlderCmd(before))
}

// scrollToCursor moves the viewport just enough to show the selected message.
func (m *MessagesModel) scrollToCursor() {
	if m.cursor < 0 || m.cursor >= len(m.lineStarts) {
		return
	}
	top := m.lineStarts[m.cursor]
	end := m.viewport.TotalLineCount()
	if m.cursor+1 < len(m.lineStarts) {
		end = m.lineStarts[m.cursor+1] - 1
	}

	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case end > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(max(end-m.viewport.Height, top))
	}
}

func (m *MessagesModel) layout() {
	headerHeight := 5
	helpHeight := 2
	inputHeight := 0
	switch m.mode {
	case modeCompose:
		inputHeight = 6
	case modeAttach:
		inputHeight = 3
	}
	if m.replyTo != nil {
		inputHeight++
	}

	m.viewport.Width = m.app.width - 4
	m.viewport.Height = max(m.app.height-headerHeight-helpHeight-inputHeight, 3)
	m.textarea.SetWidth(m.app.width - 4)
	m.pathInput.Width = m.app.width - 8
}

func (m MessagesModel) senderName(msg models.Message) string {
	if msg.SenderID == m.session.SelfID {
		return "You"
	}
	if name := m.app.Sellers.NameFor(msg.SenderID); name != "" {
		return name
	}
	if msg.SenderName != "" {
		return msg.SenderName
	}
	if conv, ok := m.session.Conversation(); ok && conv.OtherUser.Name != "" {
		return conv.OtherUser.Name
	}
	return "Unknown"
}

func statusMark(msg models.Message) string {
	if msg.Temporary {
		return pendingStyle.Render("sending…")
	}
	switch msg.Status {
	case models.StatusRead:
		return statusStyle.Render("✓✓ read")
	case models.StatusDelivered:
		return "✓✓"
	default:
		return "✓"
	}
}

// render rebuilds the viewport content from the Store.
func (m *MessagesModel) render() {
	msgs := m.session.Store.Messages()
	if len(msgs) == 0 {
		m.lineStarts = nil
		m.viewport.SetContent("")
		return
	}

	wrapWidth := m.viewport.Width
	if wrapWidth <= 0 {
		wrapWidth = 80
	}
	right := lipgloss.NewStyle().Align(lipgloss.Right).Width(wrapWidth)

	var content strings.Builder
	starts := make([]int, 0, len(msgs))
	row := 0
	for i, msg := range msgs {
		if i > 0 {
			content.WriteString("\n")
			row++
		}
		starts = append(starts, row)
		mine := msg.SenderID == m.session.SelfID
		selected := m.mode == modeSelect && i == m.cursor

		header := fmt.Sprintf("%s • %s", m.senderName(msg), msg.CreatedAt.Local().Format("Jan 2 3:04 PM"))
		if msg.IsEdited && !msg.IsDeleted {
			header += " • edited"
		}
		if mine {
			header += " • " + statusMark(msg)
		}
		header = messageHeaderStyle.Render(header)
		if selected {
			header = selectedStyle.Render("▶ ") + header
		}

		var lines []string
		lines = append(lines, header)
		if msg.ReplyTo != nil && !msg.IsDeleted {
			lines = append(lines, replyStyle.Render(replyPreview(*msg.ReplyTo, wrapWidth-14)))
		}
		lines = append(lines, m.body(msg, mine, wrapWidth-10))

		for _, line := range lines {
			if mine {
				line = right.Render(line)
			}
			content.WriteString(line + "\n")
			row += strings.Count(line, "\n") + 1
		}
	}

	m.lineStarts = starts
	m.viewport.SetContent(content.String())
}

func (m MessagesModel) body(msg models.Message, mine bool, width int) string {
	if msg.IsDeleted {
		return deletedStyle.Render(models.DeletedPlaceholder)
	}

	style := messageFromOtherStyle
	if mine {
		style = messageFromMeStyle
	}
	if msg.Temporary {
		style = pendingStyle
	}

	var parts []string
	if msg.Type == models.MessageImage && msg.ImageURL != nil {
		parts = append(parts, style.Render("🖼  [Image: "+*msg.ImageURL+"]"))
	}
	if text := msg.Text(); text != "" {
		parts = append(parts, style.Render(wordwrap.String(text, width)))
	}
	return strings.Join(parts, "\n")
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func replyPreview(r models.ReplyTo, width int) string {
	text := "📷 Photo"
	if r.Type != models.MessageImage && r.Content != nil {
		text = *r.Content
	}
	if runes := []rune(text); width > 0 && len(runes) > width {
		text = string(runes[:width-1]) + "…"
	}
	if r.SenderName != "" {
		return "↪ " + r.SenderName + ": " + text
	}
	return "↪ " + text
}

func (m MessagesModel) header() string {
	conv, ok := m.session.Conversation()
	if !ok {
		return titleStyle.Render("💬 Conversation")
	}

	name := m.app.Sellers.NameFor(conv.OtherUser.ID)
	if name == "" {
		name = conv.OtherUser.Name
	}
	title := "💬 " + name
	if conv.OtherUser.IsVerified {
		title += " " + verifiedStyle.Render("✔ verified")
	}

	s := titleStyle.Render(title)
	if l := conv.Listing; l != nil {
		s += "\n" + listingStyle.Render(fmt.Sprintf("%s • %s %s", l.Title, humanize.CommafWithDigits(l.Price, 2), l.Currency))
	}
	return s
}

func (m MessagesModel) View() string {
	if m.loading && m.session.Store.Len() == 0 {
		return fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View())
	}

	s := m.header() + "\n"
	s += m.app.noticeView()

	if m.err != nil {
		s += errorStyle.Render("Error: "+api.Describe(m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back • q: quit")
		return s
	}

	if m.session.Pager.Loading() {
		s += fmt.Sprintf("  %s Loading older messages...\n", m.spinner.View())
	} else if m.session.Pager.Exhausted() {
		s += helpStyle.Render("  Beginning of conversation") + "\n"
	}

	if m.session.Store.Len() == 0 {
		s += normalStyle.Render("  No messages yet. Say hello!") + "\n"
	} else {
		s += m.viewport.View() + "\n"
	}

	if !m.session.CanSend() {
		s += blockedStyle.Render("You can't send messages in this conversation.") + "\n"
	}

	switch m.mode {
	case modeCompose:
		label := "New Message:"
		if m.replyTo != nil {
			label = "Reply:"
			s += "\n" + replyStyle.Render(replyPreview(*m.replyTo.Preview(), m.app.width-12))
		}
		s += "\n" + inputStyle.Render(label) + "\n"
		s += m.textarea.View() + "\n"
		s += helpStyle.Render("ctrl+s: send • esc: cancel")

	case modeAttach:
		s += "\n" + inputStyle.Render("Send image:") + "\n"
		s += m.pathInput.View() + "\n"
		s += helpStyle.Render("enter: send • esc: cancel")

	case modeSelect:
		s += "\n" + helpStyle.Render("↑↓/jk: select • r/enter: reply • d: delete • esc: done")

	default:
		scrollPercent := int(m.viewport.ScrollPercent() * 100)
		help := "↑↓/jk: scroll • n: new message • i: image • s: select • r: refresh"
		if conv, ok := m.session.Conversation(); ok && m.app.Sellers.NameFor(conv.OtherUser.ID) == "" {
			help += " • a: save seller"
		}
		help += fmt.Sprintf(" • esc: back • q: quit • %d%%", scrollPercent)
		if pending := m.session.Sender.InFlight(); pending > 0 {
			help += fmt.Sprintf(" • %s", pendingStyle.Render(fmt.Sprintf("%d sending", pending)))
		}
		s += "\n" + helpStyle.Render(help)
	}

	return s
}
