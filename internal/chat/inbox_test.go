package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/models"
)

type memLocation struct {
	location  int64
	summaries []models.ConversationSummary
	saveErr   error
}

func (m *memLocation) SaveLocation(id int64) error { m.location = id; return nil }
func (m *memLocation) LoadLocation() (int64, error) { return m.location, nil }

func (m *memLocation) SaveSummaries(s []models.ConversationSummary) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.summaries = s
	return nil
}

func (m *memLocation) LoadSummaries() ([]models.ConversationSummary, error) {
	return m.summaries, nil
}

func TestInboxReplaceAndRestore(t *testing.T) {
	loc := &memLocation{}
	inbox := NewInbox(loc)
	if inbox.Warm() {
		t.Fatal("Warm succeeded with an empty cache")
	}

	if err := inbox.Replace([]models.ConversationSummary{{ID: 1, UnreadCount: 2}, {ID: 2, UnreadCount: 3}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if inbox.UnreadTotal() != 5 {
		t.Fatalf("unread = %d, want 5", inbox.UnreadTotal())
	}
	if err := inbox.Select(2); err != nil {
		t.Fatalf("Select: %v", err)
	}

	next := NewInbox(loc)
	if !next.Warm() || len(next.Summaries()) != 2 {
		t.Fatal("cached summaries not restored")
	}
	if id, ok := next.Restore(); !ok || id != 2 || next.Selected() != 2 {
		t.Fatalf("Restore = %d, %v", id, ok)
	}

	if err := next.Deselect(); err != nil {
		t.Fatalf("Deselect: %v", err)
	}
	if _, ok := NewInbox(loc).Restore(); ok {
		t.Fatal("Restore after Deselect returned a conversation")
	}
}

func TestInboxReplaceReportsCacheFailure(t *testing.T) {
	diskFull := errors.New("database or disk is full")
	inbox := NewInbox(&memLocation{saveErr: diskFull})

	err := inbox.Replace([]models.ConversationSummary{{ID: 3, UnreadCount: 1}})
	if !errors.Is(err, diskFull) {
		t.Fatalf("Replace error = %v", err)
	}
	if len(inbox.Summaries()) != 1 || inbox.UnreadTotal() != 1 {
		t.Fatal("list not replaced when caching failed")
	}
}

func TestStartWithSelf(t *testing.T) {
	backend := &fakeBackend{}
	_, err := StartWith(context.Background(), backend, 7, 7)
	if !errors.Is(err, api.ErrSelfConversation) {
		t.Fatalf("StartWith error = %v", err)
	}
	if backend.startCalls != 0 {
		t.Fatal("self conversation reached the backend")
	}

	id, err := StartWith(context.Background(), backend, 7, 9)
	if err != nil || id != 109 {
		t.Fatalf("StartWith = %d, %v", id, err)
	}
}

func TestListPollerDeliversAndStops(t *testing.T) {
	backend := &fakeBackend{summaries: []models.ConversationSummary{{ID: 4}}}
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan ListResult)
	go NewListPoller(backend, 5*time.Millisecond, nil).Run(ctx, out)

	select {
	case res := <-out:
		if res.Err != nil || len(res.Summaries) != 1 {
			t.Fatalf("unexpected list result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("no list result")
	}

	cancel()
	for range out {
	}
}

func TestNoticesExpireInOrder(t *testing.T) {
	n := NewNotices(time.Second)
	first := n.Show("one")
	second := n.Show("two")

	if n.Expire(first.Seq) {
		t.Fatal("stale expiry cleared a newer notice")
	}
	if text, ok := n.Current(); !ok || text != "two" {
		t.Fatalf("current = %q, %v", text, ok)
	}
	if !n.Expire(second.Seq) {
		t.Fatal("expiry of current notice failed")
	}
	if _, ok := n.Current(); ok {
		t.Fatal("notice still shown")
	}
}
