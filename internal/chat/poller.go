package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/models"
)

// PollResult is one tick of the conversation poller. Errors are carried, not returned:
// the owner ignores failed halves and waits for the next tick.
type PollResult struct {
	ConversationID int64
	Messages       []models.Message
	MessagesErr    error
	Receipts       []models.Receipt
	ReceiptsErr    error
}

// Poller fetches the newest messages and read receipts of one conversation.
type Poller struct {
	backend        Backend
	conversationID int64
	interval       time.Duration
	limit          int
	log            *zap.Logger
}

func NewPoller(backend Backend, conversationID int64, interval time.Duration, limit int, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		backend:        backend,
		conversationID: conversationID,
		interval:       interval,
		limit:          limit,
		log:            logger,
	}
}

// Poll runs a single tick.
func (p *Poller) Poll(ctx context.Context) PollResult {
	res := PollResult{ConversationID: p.conversationID}

	res.Messages, res.MessagesErr = p.backend.RecentMessages(ctx, p.conversationID, p.limit)
	if res.MessagesErr != nil {
		p.log.Debug("message poll failed", zap.Int64("conversation_id", p.conversationID), zap.Error(res.MessagesErr))
	}

	res.Receipts, res.ReceiptsErr = p.backend.ReadReceipts(ctx, p.conversationID)
	if res.ReceiptsErr != nil {
		p.log.Debug("receipt poll failed", zap.Int64("conversation_id", p.conversationID), zap.Error(res.ReceiptsErr))
	}
	return res
}

// Run polls on a fixed interval until ctx is done, then closes out.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	every(ctx, p.interval, p.Poll, out)
}

// ListResult is one tick of the conversation list poller.
type ListResult struct {
	Summaries []models.ConversationSummary
	Err       error
}

// ListPoller refreshes the conversation summaries, independent of any open conversation.
type ListPoller struct {
	backend  Backend
	interval time.Duration
	log      *zap.Logger
}

func NewListPoller(backend Backend, interval time.Duration, logger *zap.Logger) *ListPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListPoller{backend: backend, interval: interval, log: logger}
}

func (p *ListPoller) Poll(ctx context.Context) ListResult {
	summaries, err := p.backend.ListConversations(ctx)
	if err != nil {
		p.log.Debug("conversation list poll failed", zap.Error(err))
	}
	return ListResult{Summaries: summaries, Err: err}
}

func (p *ListPoller) Run(ctx context.Context, out chan<- ListResult) {
	every(ctx, p.interval, p.Poll, out)
}

// every calls fetch once per interval and delivers each result on out. It never drops a
// result while ctx is live and stops its ticker and closes out when ctx ends.
func every[T any](ctx context.Context, interval time.Duration, fetch func(context.Context) T, out chan<- T) {
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v := fetch(ctx)
		select {
		case out <- v:
		case <-ctx.Done():
			return
		}
	}
}
