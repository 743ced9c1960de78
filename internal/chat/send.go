package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saravenpi/haggle/internal/models"
)

var (
	ErrSendDisabled = errors.New("messaging is disabled for this conversation")
	ErrEmptyMessage = errors.New("message is empty")
)

type SendKind int

const (
	SendText SendKind = iota
	SendImage
)

// Pending is one optimistic send in flight, identified by its temporary id.
type Pending struct {
	TempID         int64
	ConversationID int64
	Kind           SendKind
	Content        string
	ReplyToID      *int64
	ImagePath      string
	PreviewPath    string
}

// Deliver performs the network request for p. It reads only p, so it may run on any
// goroutine; the result goes back to Coordinator.Complete on the owning one.
func (p *Pending) Deliver(ctx context.Context, backend Backend) (*models.Message, error) {
	switch p.Kind {
	case SendImage:
		return backend.SendImage(ctx, p.ConversationID, p.ImagePath)
	default:
		return backend.SendMessage(ctx, p.ConversationID, p.Content, p.ReplyToID)
	}
}

// Coordinator puts locally-authored messages in the Store before the server confirms them
// and reconciles or rolls them back once it answers.
type Coordinator struct {
	store          *Store
	conversationID int64
	selfID         int64
	maxImageBytes  int64
	disabled       func() bool
	now            func() time.Time

	pending  map[int64]*Pending
	lastTemp int64
}

func NewCoordinator(store *Store, conversationID, selfID int64, maxImageBytes int64, disabled func() bool) *Coordinator {
	if disabled == nil {
		disabled = func() bool { return false }
	}
	return &Coordinator{
		store:          store,
		conversationID: conversationID,
		selfID:         selfID,
		maxImageBytes:  maxImageBytes,
		disabled:       disabled,
		now:            time.Now,
		pending:        make(map[int64]*Pending),
	}
}

// InFlight returns the number of sends awaiting a server answer.
func (c *Coordinator) InFlight() int {
	return len(c.pending)
}

// BeginText inserts an optimistic text message. replyTo may be nil.
func (c *Coordinator) BeginText(content string, replyTo *models.Message) (*Pending, error) {
	if c.disabled() {
		return nil, ErrSendDisabled
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	p := &Pending{
		TempID:         c.nextTempID(),
		ConversationID: c.conversationID,
		Kind:           SendText,
		Content:        content,
	}
	msg := c.draft(p.TempID, models.MessageText)
	msg.Content = &p.Content
	if replyTo != nil && !replyTo.Temporary {
		id := replyTo.ID
		p.ReplyToID = &id
		msg.ReplyTo = replyTo.Preview()
	}

	c.pending[p.TempID] = p
	c.store.InsertOptimistic(msg)
	return p, nil
}

// BeginImage builds a local preview of path and inserts an optimistic image message
// pointing at it.
func (c *Coordinator) BeginImage(path string) (*Pending, error) {
	if c.disabled() {
		return nil, ErrSendDisabled
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyMessage
	}

	preview, err := makePreview(path, c.maxImageBytes)
	if err != nil {
		return nil, err
	}

	p := &Pending{
		TempID:         c.nextTempID(),
		ConversationID: c.conversationID,
		Kind:           SendImage,
		ImagePath:      path,
		PreviewPath:    preview,
	}
	msg := c.draft(p.TempID, models.MessageImage)
	ref := "file://" + preview
	msg.ImageURL = &ref

	c.pending[p.TempID] = p
	c.store.InsertOptimistic(msg)
	return p, nil
}

// Complete settles p with the server's answer. On success the temporary entry is replaced
// by confirmed; on failure it is removed and err is returned for display. The preview file
// is released on every path.
func (c *Coordinator) Complete(p *Pending, confirmed *models.Message, err error) error {
	releasePreview(p.PreviewPath)

	if _, ok := c.pending[p.TempID]; !ok {
		return err
	}
	delete(c.pending, p.TempID)

	if err == nil && confirmed == nil {
		err = fmt.Errorf("failed to send message: empty response")
	}
	if err != nil {
		c.store.RemoveOptimistic(p.TempID)
		return err
	}
	c.store.ResolveOptimistic(p.TempID, *confirmed)
	return nil
}

// Abandon drops every in-flight send and releases their previews. Answers that arrive
// afterwards are ignored by Complete.
func (c *Coordinator) Abandon() {
	for id, p := range c.pending {
		releasePreview(p.PreviewPath)
		c.store.RemoveOptimistic(id)
		delete(c.pending, id)
	}
}

func (c *Coordinator) draft(tempID int64, kind models.MessageType) models.Message {
	return models.Message{
		ID:             tempID,
		ConversationID: c.conversationID,
		SenderID:       c.selfID,
		Type:           kind,
		Status:         models.StatusSent,
		CreatedAt:      c.now(),
		Temporary:      true,
	}
}

// nextTempID derives an id from the clock, bumped when two sends share a tick.
func (c *Coordinator) nextTempID() int64 {
	id := c.now().UnixNano()
	if id <= c.lastTemp {
		id = c.lastTemp + 1
	}
	c.lastTemp = id
	return id
}
