package chat

import (
	"context"
	"fmt"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/models"
)

// LocationStore persists which conversation is open and the last summary list, so a
// restart can restore the view.
type LocationStore interface {
	SaveLocation(conversationID int64) error
	LoadLocation() (int64, error)
	SaveSummaries(summaries []models.ConversationSummary) error
	LoadSummaries() ([]models.ConversationSummary, error)
}

// Inbox is the conversation list. Every successful poll replaces it wholesale.
type Inbox struct {
	summaries []models.ConversationSummary
	selected  int64
	loc       LocationStore
}

// NewInbox builds an inbox; loc may be nil.
func NewInbox(loc LocationStore) *Inbox {
	return &Inbox{loc: loc}
}

// Warm fills the list from the cached copy, if one exists.
func (i *Inbox) Warm() bool {
	if i.loc == nil {
		return false
	}
	cached, err := i.loc.LoadSummaries()
	if err != nil || len(cached) == 0 {
		return false
	}
	i.summaries = cached
	return true
}

// Replace swaps in a fresh list. The list is replaced even when caching it fails; the
// cache error is returned for logging.
func (i *Inbox) Replace(summaries []models.ConversationSummary) error {
	i.summaries = summaries
	if i.loc == nil {
		return nil
	}
	if err := i.loc.SaveSummaries(summaries); err != nil {
		return fmt.Errorf("failed to cache conversations: %w", err)
	}
	return nil
}

func (i *Inbox) Summaries() []models.ConversationSummary {
	return i.summaries
}

func (i *Inbox) UnreadTotal() int {
	total := 0
	for _, s := range i.summaries {
		total += s.UnreadCount
	}
	return total
}

// Select marks id as the open conversation and records the location.
func (i *Inbox) Select(id int64) error {
	i.selected = id
	if i.loc == nil {
		return nil
	}
	if err := i.loc.SaveLocation(id); err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

// Deselect forgets the open conversation, so the next start lands on the list.
func (i *Inbox) Deselect() error {
	return i.Select(0)
}

func (i *Inbox) Selected() int64 {
	return i.selected
}

// Restore returns the conversation that was open when the client last ran.
func (i *Inbox) Restore() (int64, bool) {
	if i.loc == nil {
		return 0, false
	}
	id, err := i.loc.LoadLocation()
	if err != nil || id == 0 {
		return 0, false
	}
	i.selected = id
	return id, true
}

// StartWith creates or reuses the conversation with sellerID. Messaging yourself is
// refused locally when selfID is known, and by the backend otherwise.
func StartWith(ctx context.Context, backend Backend, selfID, sellerID int64) (int64, error) {
	if sellerID <= 0 {
		return 0, fmt.Errorf("invalid seller id %d", sellerID)
	}
	if selfID != 0 && selfID == sellerID {
		return 0, api.ErrSelfConversation
	}
	id, err := backend.StartConversation(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	return id, nil
}
