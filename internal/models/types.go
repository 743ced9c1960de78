package models

import "time"

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// DeletedPlaceholder replaces the content of soft-deleted messages.
const DeletedPlaceholder = "This message was deleted"

type Participant struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

type Listing struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Image    string  `json:"image,omitempty"`
}

// ReplyTo is the denormalized preview of the message being answered.
type ReplyTo struct {
	ID         int64       `json:"id"`
	Content    *string     `json:"content"`
	Type       MessageType `json:"type"`
	SenderName string      `json:"sender_name"`
}

type Message struct {
	ID             int64          `json:"id"`
	ConversationID int64          `json:"conversation_id"`
	SenderID       int64          `json:"sender_id"`
	Content        *string        `json:"content"`
	Type           MessageType    `json:"type"`
	ImageURL       *string        `json:"image_url"`
	Status         DeliveryStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	SenderName     string         `json:"sender_name"`
	SenderAvatar   string         `json:"sender_avatar,omitempty"`
	IsEdited       bool           `json:"is_edited"`
	IsDeleted      bool           `json:"is_deleted"`
	ReplyTo        *ReplyTo       `json:"reply_to,omitempty"`

	// Temporary marks a locally-authored message whose ID is not yet server-assigned.
	Temporary bool `json:"-"`
}

// Text returns the message content, or "" when it has none.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// Preview builds the reply preview that points at m.
func (m Message) Preview() *ReplyTo {
	return &ReplyTo{
		ID:         m.ID,
		Content:    m.Content,
		Type:       m.Type,
		SenderName: m.SenderName,
	}
}

type Conversation struct {
	ID               int64       `json:"id"`
	OtherUser        Participant `json:"other_user"`
	Listing          *Listing    `json:"listing,omitempty"`
	Status           string      `json:"status"`
	IsBlockedByMe    bool        `json:"is_blocked_by_me"`
	IsBlockedByOther bool        `json:"is_blocked_by_other"`
}

// Blocked reports whether outbound messages are disabled in either direction.
func (c Conversation) Blocked() bool {
	return c.IsBlockedByMe || c.IsBlockedByOther
}

type LastMessage struct {
	Content   *string     `json:"content"`
	Type      MessageType `json:"type"`
	SenderID  int64       `json:"sender_id"`
	CreatedAt time.Time   `json:"created_at"`
}

type ConversationSummary struct {
	ID          int64        `json:"id"`
	OtherUser   Participant  `json:"other_user"`
	Listing     *Listing     `json:"listing,omitempty"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Receipt struct {
	ID     int64          `json:"id"`
	Status DeliveryStatus `json:"status"`
}

// ConversationDetail is the full load of one conversation.
type ConversationDetail struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}
