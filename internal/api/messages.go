package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/models"
	"github.com/saravenpi/haggle/internal/session"
)

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
}

// RecentMessages returns the newest limit messages of a conversation.
func (c *Client) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]models.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return c.listMessages(ctx, RouteRecentMessages, conversationID, q)
}

// OlderMessages returns up to limit messages with ids strictly below before.
func (c *Client) OlderMessages(ctx context.Context, conversationID, before int64, limit int) ([]models.Message, error) {
	q := url.Values{}
	q.Set("before", strconv.FormatInt(before, 10))
	q.Set("limit", strconv.Itoa(limit))
	return c.listMessages(ctx, RouteOlderMessages, conversationID, q)
}

func (c *Client) listMessages(ctx context.Context, route session.Route, conversationID int64, q url.Values) ([]models.Message, error) {
	var out messagesResponse
	path := fmt.Sprintf("/conversations/%d/messages?%s", conversationID, q.Encode())
	if err := c.sendJSON(ctx, request{route: route, method: http.MethodGet, path: path}, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

type sendMessageRequest struct {
	Content   string `json:"content"`
	ReplyToID *int64 `json:"replyToId,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, conversationID int64, content string, replyToID *int64) (*models.Message, error) {
	path := fmt.Sprintf("/conversations/%d/messages", conversationID)
	var raw json.RawMessage
	in := sendMessageRequest{Content: content, ReplyToID: replyToID}
	if err := c.sendJSON(ctx, request{route: RouteSendMessage, method: http.MethodPost, path: path}, in, &raw); err != nil {
		return nil, err
	}
	return c.decodeMessage(RouteSendMessage, raw)
}

// SendImage uploads the file at path as the multipart field "image".
func (c *Client) SendImage(ctx context.Context, conversationID int64, path string) (*models.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	data, err := c.send(ctx, request{
		route:       RouteSendImage,
		method:      http.MethodPost,
		path:        fmt.Sprintf("/conversations/%d/images", conversationID),
		body:        &body,
		contentType: w.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	return c.decodeMessage(RouteSendImage, data)
}

// DeleteMessage soft-deletes a message. Later reads show it as deleted.
func (c *Client) DeleteMessage(ctx context.Context, messageID int64) error {
	path := fmt.Sprintf("/messages/%d", messageID)
	return c.sendJSON(ctx, request{route: RouteDeleteMessage, method: http.MethodDelete, path: path}, nil, nil)
}

// decodeMessage reads the canonical {"message": {...}} envelope. A bare message object is
// the older shape and is accepted until every deployment sends the envelope.
func (c *Client) decodeMessage(route session.Route, data []byte) (*models.Message, error) {
	var envelope struct {
		Message *models.Message `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	if envelope.Message != nil {
		return envelope.Message, nil
	}

	var bare models.Message
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	if bare.ID == 0 {
		return nil, fmt.Errorf("failed to decode %s response: no message in body", route)
	}
	c.log.Debug("legacy response shape", zap.String("route", string(route)))
	return &bare, nil
}
