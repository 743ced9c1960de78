package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/models"
)

func openSession(t *testing.T, backend *fakeBackend, conv models.Conversation) *Session {
	t.Helper()
	backend.detail = &models.ConversationDetail{Conversation: conv, Messages: msgs(2, 1, 2)}
	s := Open(context.Background(), backend, 1, 7, Options{PollInterval: 5 * time.Millisecond})
	t.Cleanup(s.Close)

	detail, err := s.Load(s.Context())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.ApplyLoad(detail)
	return s
}

func TestSessionApplyPollScrolling(t *testing.T) {
	backend := &fakeBackend{}
	s := openSession(t, backend, models.Conversation{ID: 1})

	out := s.ApplyPoll(PollResult{ConversationID: 1, Messages: msgs(2, 1, 2, 3)}, false)
	if !out.Changed || !out.MarkRead {
		t.Fatalf("new message not applied: %+v", out)
	}
	if out.ScrollToBottom {
		t.Fatal("scrolled a reader who was reading history")
	}

	out = s.ApplyPoll(PollResult{ConversationID: 1, Messages: append(msgs(2, 3), msg(4, 7, "mine"))}, false)
	if !out.ScrollToBottom {
		t.Fatal("own message did not scroll to bottom")
	}

	out = s.ApplyPoll(PollResult{ConversationID: 1, Messages: msgs(2, 5)}, true)
	if !out.ScrollToBottom {
		t.Fatal("reader at bottom was not kept there")
	}

	out = s.ApplyPoll(PollResult{ConversationID: 1, Messages: msgs(2, 5)}, true)
	if out.Changed || out.MarkRead {
		t.Fatalf("repeat poll reported a change: %+v", out)
	}
}

func TestSessionApplyPollIgnoresOtherConversation(t *testing.T) {
	s := openSession(t, &fakeBackend{}, models.Conversation{ID: 1})
	out := s.ApplyPoll(PollResult{ConversationID: 2, Messages: msgs(2, 9)}, true)
	if out.Changed || s.Store.Len() != 2 {
		t.Fatal("stale result was applied")
	}
}

func TestSessionApplyPollFailedHalf(t *testing.T) {
	s := openSession(t, &fakeBackend{}, models.Conversation{ID: 1})
	out := s.ApplyPoll(PollResult{
		ConversationID: 1,
		MessagesErr:    api.ErrNetwork,
		Receipts:       []models.Receipt{{ID: 2, Status: models.StatusRead}},
	}, true)
	if out.Changed || !out.ReceiptsChanged {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestSessionBlockedCannotSend(t *testing.T) {
	s := openSession(t, &fakeBackend{}, models.Conversation{ID: 1, IsBlockedByOther: true})
	if s.CanSend() {
		t.Fatal("blocked conversation allows sending")
	}
	if _, err := s.Sender.BeginText("hello", nil); !errors.Is(err, ErrSendDisabled) {
		t.Fatalf("BeginText error = %v", err)
	}
	if s.Store.Len() != 2 {
		t.Fatal("blocked send touched the store")
	}
}

func TestSessionPollingStopsOnClose(t *testing.T) {
	backend := &fakeBackend{recent: msgs(2, 1, 2, 3)}
	s := openSession(t, backend, models.Conversation{ID: 1})

	updates := s.StartPolling()
	if s.StartPolling() != updates {
		t.Fatal("StartPolling started a second poller")
	}
	select {
	case res := <-updates:
		if res.ConversationID != 1 || len(res.Messages) != 3 {
			t.Fatalf("unexpected poll result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("no poll result")
	}

	s.Close()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("poller channel not closed after Close")
		}
	}
}

func TestSessionDeleteNotFoundTombstones(t *testing.T) {
	backend := &fakeBackend{deleteErr: fmt.Errorf("%w: message 2", api.ErrNotFound)}
	s := openSession(t, backend, models.Conversation{ID: 1})

	err := s.ApplyDelete(2, s.Delete(s.Context(), 2))
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("ApplyDelete error = %v", err)
	}
	if m, _ := s.Store.Find(2); !m.IsDeleted {
		t.Fatal("missing message was not tombstoned")
	}

	backend.deleteErr = api.ErrServer
	if err := s.ApplyDelete(1, s.Delete(s.Context(), 1)); !errors.Is(err, api.ErrServer) {
		t.Fatalf("ApplyDelete error = %v", err)
	}
	if m, _ := s.Store.Find(1); m.IsDeleted {
		t.Fatal("failed delete tombstoned the message")
	}
}

func TestSessionMarkReadBestEffort(t *testing.T) {
	backend := &fakeBackend{}
	s := openSession(t, backend, models.Conversation{ID: 1})
	backend.err = api.ErrServer
	s.MarkRead(context.Background())
	if backend.markCalls != 1 {
		t.Fatalf("mark read calls = %d", backend.markCalls)
	}
}

func TestSessionRefreshKeepsHistoryAndPendingSends(t *testing.T) {
	backend := &fakeBackend{older: map[int64][]models.Message{}}
	s := Open(context.Background(), backend, 1, 7, Options{})
	t.Cleanup(s.Close)

	backend.detail = &models.ConversationDetail{Conversation: models.Conversation{ID: 1}, Messages: msgs(2, 10, 11, 12)}
	detail, _ := s.Load(s.Context())
	s.ApplyLoad(detail)

	backend.older[10] = msgs(2, 7, 8, 9)
	before, _ := s.Pager.Begin()
	older, err := s.LoadOlder(s.Context(), before)
	s.Pager.Complete(before, older, err)
	before, _ = s.Pager.Begin()
	older, err = s.LoadOlder(s.Context(), before)
	s.Pager.Complete(before, older, err)
	if !s.Pager.Exhausted() {
		t.Fatal("history not exhausted")
	}

	p, err := s.Sender.BeginText("hello", nil)
	if err != nil {
		t.Fatalf("BeginText: %v", err)
	}

	refreshed := msg(12, 2, "m")
	refreshed.Status = models.StatusRead
	backend.detail = &models.ConversationDetail{
		Conversation: models.Conversation{ID: 1, IsBlockedByOther: true},
		Messages:     append(msgs(2, 11), refreshed, msg(13, 2, "new")),
	}
	detail, _ = s.Load(s.Context())
	if !s.ApplyLoad(detail) {
		t.Fatal("refresh with a new message reported no change")
	}

	got := ids(s.Store.Messages())
	if want := []int64{7, 8, 9, 10, 11, 12, 13, p.TempID}; !slices.Equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if s.Store.PendingCount() != 1 || s.Sender.InFlight() != 1 {
		t.Fatal("pending send lost on refresh")
	}
	if m, _ := s.Store.Find(12); m.Status != models.StatusRead {
		t.Fatalf("status = %q, want read", m.Status)
	}
	if s.CanSend() {
		t.Fatal("refreshed conversation flags not applied")
	}
	if s.Store.Watermark() != 13 {
		t.Fatalf("watermark = %d, want 13", s.Store.Watermark())
	}
}
