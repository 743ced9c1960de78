package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/models"
)

type Options struct {
	PollInterval  time.Duration
	RecentLimit   int
	PageSize      int
	NearTopRows   int
	MaxImageBytes int64
	Logger        *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 50
	}
	if o.PageSize <= 0 {
		o.PageSize = 20
	}
	if o.NearTopRows <= 0 {
		o.NearTopRows = 2
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Session is the scope of one open conversation: its Store, Pager, Coordinator and
// Poller. Closing it cancels the poller and drops in-flight sends.
type Session struct {
	ID     int64
	SelfID int64

	Store  *Store
	Pager  *Pager
	Sender *Coordinator

	backend      Backend
	poller       *Poller
	conversation *models.Conversation
	loaded       bool
	log          *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	updates   chan PollResult
}

func Open(parent context.Context, backend Backend, conversationID, selfID int64, opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(parent)
	store := NewStore()

	s := &Session{
		ID:      conversationID,
		SelfID:  selfID,
		Store:   store,
		Pager:   NewPager(store, opts.PageSize, opts.NearTopRows),
		backend: backend,
		poller:  NewPoller(backend, conversationID, opts.PollInterval, opts.RecentLimit, opts.Logger),
		log:     opts.Logger.With(zap.Int64("conversation_id", conversationID)),
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan PollResult),
	}
	s.Sender = NewCoordinator(store, conversationID, selfID, opts.MaxImageBytes, func() bool { return !s.CanSend() })
	return s
}

// Context is cancelled when the session closes. Reads of the session use it; sends don't,
// so a message submitted just before leaving still reaches the server.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

func (s *Session) Load(ctx context.Context) (*models.ConversationDetail, error) {
	return s.backend.GetConversation(ctx, s.ID)
}

// ApplyLoad takes a full load. The conversation is always replaced; the message list is
// set by the first load only. Later loads (a refresh) merge into it, so paged history and
// sends still in flight are kept. It reports whether the list changed.
func (s *Session) ApplyLoad(detail *models.ConversationDetail) bool {
	conv := detail.Conversation
	s.conversation = &conv
	if !s.loaded {
		s.loaded = true
		s.Store.ReplaceAll(detail.Messages)
		return true
	}

	receipts := make([]models.Receipt, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		receipts = append(receipts, models.Receipt{ID: m.ID, Status: m.Status})
	}
	merged := s.Store.MergeIncoming(detail.Messages)
	statuses := s.Store.ApplyReceipts(receipts)
	return merged || statuses
}

func (s *Session) Conversation() (models.Conversation, bool) {
	if s.conversation == nil {
		return models.Conversation{}, false
	}
	return *s.conversation, true
}

// CanSend is false until the conversation is loaded and while either side blocks the other.
func (s *Session) CanSend() bool {
	return s.conversation != nil && !s.conversation.Blocked()
}

// StartPolling starts the poller once and returns its channel, which is closed when the
// session closes.
func (s *Session) StartPolling() <-chan PollResult {
	s.startOnce.Do(func() {
		go s.poller.Run(s.ctx, s.updates)
	})
	return s.updates
}

// PollOutcome tells the view what a poll tick changed.
type PollOutcome struct {
	Changed         bool
	ReceiptsChanged bool
	ScrollToBottom  bool
	MarkRead        bool
}

// ApplyPoll merges a tick into the Store. atBottom is whether the reader is at the end of
// the list; a new message from the other side only scrolls the view when they are.
func (s *Session) ApplyPoll(res PollResult, atBottom bool) PollOutcome {
	var out PollOutcome
	if res.ConversationID != s.ID {
		return out
	}

	if res.MessagesErr == nil && s.Store.MergeIncoming(res.Messages) {
		out.Changed = true
		out.MarkRead = true
		if newest, ok := s.Store.Newest(); ok {
			out.ScrollToBottom = newest.SenderID == s.SelfID || atBottom
		}
	}
	if res.ReceiptsErr == nil && s.Store.ApplyReceipts(res.Receipts) {
		out.ReceiptsChanged = true
	}
	return out
}

// MarkRead is best-effort; failures are logged and dropped.
func (s *Session) MarkRead(ctx context.Context) {
	if err := s.backend.MarkRead(ctx, s.ID); err != nil {
		s.log.Debug("mark read failed", zap.Error(err))
	}
}

func (s *Session) LoadOlder(ctx context.Context, before int64) ([]models.Message, error) {
	return s.backend.OlderMessages(ctx, s.ID, before, s.Pager.PageSize())
}

func (s *Session) Delete(ctx context.Context, messageID int64) error {
	return s.backend.DeleteMessage(ctx, messageID)
}

// ApplyDelete settles a delete. A message that was already gone is tombstoned as well,
// and the not-found error is still returned so the reader learns about it.
func (s *Session) ApplyDelete(messageID int64, err error) error {
	if err == nil || errors.Is(err, api.ErrNotFound) {
		s.Store.Tombstone(messageID)
	}
	return err
}

// Close cancels the poller and every request made with Context, and drops in-flight sends.
func (s *Session) Close() {
	s.cancel()
	s.Sender.Abandon()
}
