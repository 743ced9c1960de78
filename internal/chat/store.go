package chat

import (
	"cmp"
	"slices"

	"github.com/saravenpi/haggle/internal/models"
)

// Store is the ordered, deduplicated message list of the active conversation.
//
// Every mutation builds a new slice from (current state, new data), so a slice returned by
// Messages is never modified afterwards. A Store is owned by a single goroutine.
type Store struct {
	messages  []models.Message
	watermark int64
}

func NewStore() *Store {
	return &Store{}
}

// Messages returns the current list sorted by (created at, id). Do not modify it.
func (s *Store) Messages() []models.Message {
	return s.messages
}

func (s *Store) Len() int {
	return len(s.messages)
}

// Watermark is the highest server-assigned id seen. Temporary ids never count.
func (s *Store) Watermark() int64 {
	return s.watermark
}

func (s *Store) Find(id int64) (models.Message, bool) {
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// Newest returns the message that set the watermark.
func (s *Store) Newest() (models.Message, bool) {
	if s.watermark == 0 {
		return models.Message{}, false
	}
	return s.Find(s.watermark)
}

// OldestID returns the smallest server id held, the cursor for older pages.
func (s *Store) OldestID() (int64, bool) {
	var oldest int64
	for _, m := range s.messages {
		if m.Temporary {
			continue
		}
		if oldest == 0 || m.ID < oldest {
			oldest = m.ID
		}
	}
	return oldest, oldest != 0
}

// PendingCount returns how many temporary messages are held.
func (s *Store) PendingCount() int {
	n := 0
	for _, m := range s.messages {
		if m.Temporary {
			n++
		}
	}
	return n
}

// ReplaceAll sets the list from a full load.
func (s *Store) ReplaceAll(messages []models.Message) {
	s.messages = union(nil, messages)
	s.watermark = maxServerID(messages)
}

// MergeIncoming folds a poll payload into the list. It returns false, leaving the list
// untouched, when the payload holds no id the store does not already have. The watermark
// only moves forward, so a late response carrying older content cannot regress it.
func (s *Store) MergeIncoming(incoming []models.Message) bool {
	if !s.hasUnknown(incoming) {
		return false
	}
	s.messages = union(s.messages, incoming)
	if top := maxServerID(incoming); top > s.watermark {
		s.watermark = top
	}
	return true
}

// Prepend folds an older page into the list and returns how many messages were new.
func (s *Store) Prepend(older []models.Message) int {
	before := len(s.messages)
	s.messages = union(s.messages, older)
	return len(s.messages) - before
}

func (s *Store) InsertOptimistic(m models.Message) {
	m.Temporary = true
	s.messages = union(s.messages, []models.Message{m})
}

func (s *Store) RemoveOptimistic(tempID int64) bool {
	next := slices.DeleteFunc(slices.Clone(s.messages), func(m models.Message) bool {
		return m.Temporary && m.ID == tempID
	})
	if len(next) == len(s.messages) {
		return false
	}
	s.messages = next
	return true
}

// ResolveOptimistic swaps the temporary entry for the confirmed one in a single update.
func (s *Store) ResolveOptimistic(tempID int64, confirmed models.Message) {
	confirmed.Temporary = false
	rest := slices.DeleteFunc(slices.Clone(s.messages), func(m models.Message) bool {
		return m.Temporary && m.ID == tempID
	})
	s.messages = union(rest, []models.Message{confirmed})
	if confirmed.ID > s.watermark {
		s.watermark = confirmed.ID
	}
}

// ApplyReceipts updates delivery status and reports whether anything changed.
func (s *Store) ApplyReceipts(receipts []models.Receipt) bool {
	if len(receipts) == 0 {
		return false
	}
	status := make(map[int64]models.DeliveryStatus, len(receipts))
	for _, r := range receipts {
		status[r.ID] = r.Status
	}

	var next []models.Message
	for i, m := range s.messages {
		st, ok := status[m.ID]
		if !ok || m.Temporary || st == m.Status || st == "" {
			continue
		}
		if next == nil {
			next = slices.Clone(s.messages)
		}
		next[i].Status = st
	}
	if next == nil {
		return false
	}
	s.messages = next
	return true
}

// Tombstone marks a message deleted and replaces its content with the placeholder.
func (s *Store) Tombstone(id int64) bool {
	for i, m := range s.messages {
		if m.ID != id || m.Temporary {
			continue
		}
		next := slices.Clone(s.messages)
		placeholder := models.DeletedPlaceholder
		next[i].IsDeleted = true
		next[i].Content = &placeholder
		next[i].ImageURL = nil
		s.messages = next
		return true
	}
	return false
}

func (s *Store) hasUnknown(incoming []models.Message) bool {
	held := make(map[int64]struct{}, len(s.messages))
	for _, m := range s.messages {
		held[m.ID] = struct{}{}
	}
	for _, m := range incoming {
		if _, ok := held[m.ID]; !ok {
			return true
		}
	}
	return false
}

// union merges b into a by id (b wins) and returns a new sorted slice.
func union(a, b []models.Message) []models.Message {
	out := make([]models.Message, 0, len(a)+len(b))
	pos := make(map[int64]int, len(a)+len(b))
	for _, list := range [][]models.Message{a, b} {
		for _, m := range list {
			if i, ok := pos[m.ID]; ok {
				out[i] = m
				continue
			}
			pos[m.ID] = len(out)
			out = append(out, m)
		}
	}
	sortMessages(out)
	return out
}

func sortMessages(messages []models.Message) {
	slices.SortStableFunc(messages, func(a, b models.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func maxServerID(messages []models.Message) int64 {
	var top int64
	for _, m := range messages {
		if !m.Temporary && m.ID > top {
			top = m.ID
		}
	}
	return top
}
