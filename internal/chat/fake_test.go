package chat

import (
	"context"
	"sync"
	"time"

	"github.com/saravenpi/haggle/internal/models"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id int64, sender int64, text string) models.Message {
	return models.Message{
		ID:             id,
		ConversationID: 1,
		SenderID:       sender,
		Content:        &text,
		Type:           models.MessageText,
		Status:         models.StatusSent,
		CreatedAt:      epoch.Add(time.Duration(id) * time.Minute),
	}
}

func msgs(sender int64, ids ...int64) []models.Message {
	out := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, msg(id, sender, "m"))
	}
	return out
}

func ids(messages []models.Message) []int64 {
	out := make([]int64, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

type fakeBackend struct {
	mu sync.Mutex

	summaries []models.ConversationSummary
	detail    *models.ConversationDetail
	recent    []models.Message
	receipts  []models.Receipt
	older     map[int64][]models.Message
	sent      *models.Message
	err       error
	deleteErr error

	startCalls   int
	recentCalls  int
	markCalls    int
	lastReply    *int64
	lastImage    string
	olderBefores []int64
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries, f.err
}

func (f *fakeBackend) StartConversation(ctx context.Context, sellerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.err != nil {
		return 0, f.err
	}
	return 100 + sellerID, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, id int64) (*models.ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detail, f.err
}

func (f *fakeBackend) MarkRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	return f.err
}

func (f *fakeBackend) ReadReceipts(ctx context.Context, id int64) ([]models.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts, f.err
}

func (f *fakeBackend) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentCalls++
	return f.recent, f.err
}

func (f *fakeBackend) OlderMessages(ctx context.Context, conversationID, before int64, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.olderBefores = append(f.olderBefores, before)
	return f.older[before], f.err
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID int64, content string, replyToID *int64) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReply = replyToID
	if f.err != nil {
		return nil, f.err
	}
	return f.sent, nil
}

func (f *fakeBackend) SendImage(ctx context.Context, conversationID int64, path string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastImage = path
	if f.err != nil {
		return nil, f.err
	}
	return f.sent, nil
}

func (f *fakeBackend) DeleteMessage(ctx context.Context, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}
