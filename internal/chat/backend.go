package chat

import (
	"context"

	"github.com/saravenpi/haggle/internal/models"
)

// Backend is the slice of the marketplace API the chat client consumes.
// *api.Client implements it.
type Backend interface {
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
	StartConversation(ctx context.Context, sellerID int64) (int64, error)
	GetConversation(ctx context.Context, id int64) (*models.ConversationDetail, error)
	MarkRead(ctx context.Context, id int64) error
	ReadReceipts(ctx context.Context, id int64) ([]models.Receipt, error)
	RecentMessages(ctx context.Context, conversationID int64, limit int) ([]models.Message, error)
	OlderMessages(ctx context.Context, conversationID, before int64, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID int64, content string, replyToID *int64) (*models.Message, error)
	SendImage(ctx context.Context, conversationID int64, path string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error
}
