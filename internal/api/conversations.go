package api

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/models"
)

// ListConversations returns the summaries shown in the conversation list.
func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	err := c.sendJSON(ctx, request{route: RouteListConversations, method: http.MethodGet, path: "/conversations"}, nil, &summaries)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

type startConversationResponse struct {
	Conversation *struct {
		ID int64 `json:"id"`
	} `json:"conversation"`
	// ConversationID is the older response shape, still sent by some deployments.
	ConversationID *int64 `json:"conversationId"`
}

// StartConversation creates or reuses the conversation with sellerID and returns its id.
func (c *Client) StartConversation(ctx context.Context, sellerID int64) (int64, error) {
	in := struct {
		SellerID int64 `json:"sellerId"`
	}{SellerID: sellerID}

	var out startConversationResponse
	if err := c.sendJSON(ctx, request{route: RouteStartConversation, method: http.MethodPost, path: "/conversations"}, in, &out); err != nil {
		return 0, err
	}

	switch {
	case out.Conversation != nil && out.Conversation.ID != 0:
		return out.Conversation.ID, nil
	case out.ConversationID != nil && *out.ConversationID != 0:
		c.log.Debug("legacy response shape", zap.String("route", string(RouteStartConversation)))
		return *out.ConversationID, nil
	}
	return 0, fmt.Errorf("failed to start conversation: response carried no conversation id")
}

func (c *Client) GetConversation(ctx context.Context, id int64) (*models.ConversationDetail, error) {
	var detail models.ConversationDetail
	path := fmt.Sprintf("/conversations/%d", id)
	if err := c.sendJSON(ctx, request{route: RouteGetConversation, method: http.MethodGet, path: path}, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// MarkRead is idempotent; callers treat its failure as harmless.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/conversations/%d/read", id)
	return c.sendJSON(ctx, request{route: RouteMarkRead, method: http.MethodPut, path: path}, nil, nil)
}

func (c *Client) ReadReceipts(ctx context.Context, id int64) ([]models.Receipt, error) {
	var out struct {
		Receipts []models.Receipt `json:"receipts"`
	}
	path := fmt.Sprintf("/conversations/%d/read-receipts", id)
	if err := c.sendJSON(ctx, request{route: RouteReadReceipts, method: http.MethodGet, path: path}, nil, &out); err != nil {
		return nil, err
	}
	return out.Receipts, nil
}
