package chat

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/models"
)

func newCoordinator(store *Store) *Coordinator {
	c := NewCoordinator(store, 1, 7, 1<<20, nil)
	c.now = func() time.Time { return epoch.Add(time.Hour) }
	return c
}

func TestSendRoundTrip(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(msgs(2, 1, 2))
	c := newCoordinator(store)

	p, err := c.BeginText("  hello  ", nil)
	if err != nil {
		t.Fatalf("BeginText: %v", err)
	}
	if store.Len() != 3 || store.PendingCount() != 1 {
		t.Fatalf("optimistic message not inserted: %v", ids(store.Messages()))
	}
	if tmp, _ := store.Find(p.TempID); tmp.Text() != "hello" || tmp.SenderID != 7 {
		t.Fatalf("unexpected optimistic message %+v", tmp)
	}

	confirmed := msg(42, 7, "hello")
	backend := &fakeBackend{sent: &confirmed}
	got, sendErr := p.Deliver(context.Background(), backend)
	if err := c.Complete(p, got, sendErr); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if store.PendingCount() != 0 || c.InFlight() != 0 {
		t.Fatal("temporary entry survived the confirmation")
	}
	if _, ok := store.Find(42); !ok {
		t.Fatal("confirmed message missing")
	}
	if store.Len() != 3 {
		t.Fatalf("len = %d, want 3", store.Len())
	}
	if store.Watermark() != 42 {
		t.Fatalf("watermark = %d, want 42", store.Watermark())
	}
}

func TestSendFailureRollsBack(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(msgs(2, 1))
	c := newCoordinator(store)

	p, err := c.BeginText("hello", nil)
	if err != nil {
		t.Fatalf("BeginText: %v", err)
	}
	backend := &fakeBackend{err: api.ErrNetwork}
	got, sendErr := p.Deliver(context.Background(), backend)

	err = c.Complete(p, got, sendErr)
	if !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("Complete error = %v, want network error", err)
	}
	if store.Len() != 1 || store.PendingCount() != 0 {
		t.Fatalf("rollback left %v", ids(store.Messages()))
	}
	if store.Watermark() != 1 {
		t.Fatalf("watermark = %d, want 1", store.Watermark())
	}
}

func TestSendReplyCarriesTarget(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(msgs(2, 5))
	c := newCoordinator(store)
	target, _ := store.Find(5)

	p, err := c.BeginText("sure", &target)
	if err != nil {
		t.Fatalf("BeginText: %v", err)
	}
	if p.ReplyToID == nil || *p.ReplyToID != 5 {
		t.Fatalf("reply id = %v, want 5", p.ReplyToID)
	}
	tmp, _ := store.Find(p.TempID)
	if tmp.ReplyTo == nil || tmp.ReplyTo.ID != 5 {
		t.Fatalf("optimistic reply preview = %+v", tmp.ReplyTo)
	}

	backend := &fakeBackend{sent: &models.Message{ID: 6, CreatedAt: epoch}}
	if _, err := p.Deliver(context.Background(), backend); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if backend.lastReply == nil || *backend.lastReply != 5 {
		t.Fatalf("backend saw reply id %v", backend.lastReply)
	}
}

func TestSendRejected(t *testing.T) {
	store := NewStore()
	blocked := true
	c := NewCoordinator(store, 1, 7, 0, func() bool { return blocked })

	if _, err := c.BeginText("hello", nil); !errors.Is(err, ErrSendDisabled) {
		t.Fatalf("blocked send error = %v", err)
	}
	blocked = false
	if _, err := c.BeginText("   ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty send error = %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("rejected send touched the store")
	}
}

func TestTempIDsStayUnique(t *testing.T) {
	store := NewStore()
	c := newCoordinator(store)

	a, _ := c.BeginText("one", nil)
	b, _ := c.BeginText("two", nil)
	if a.TempID == b.TempID {
		t.Fatal("two sends in the same tick share a temp id")
	}
	if store.PendingCount() != 2 {
		t.Fatalf("pending = %d, want 2", store.PendingCount())
	}
}

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, x%48, color.RGBA{R: 200, A: 255})
	}
	path := filepath.Join(dir, "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSendImageReleasesPreview(t *testing.T) {
	for _, fail := range []bool{false, true} {
		store := NewStore()
		c := newCoordinator(store)
		path := writePNG(t, t.TempDir())

		p, err := c.BeginImage(path)
		if err != nil {
			t.Fatalf("BeginImage: %v", err)
		}
		if _, err := os.Stat(p.PreviewPath); err != nil {
			t.Fatalf("preview not written: %v", err)
		}
		tmp, _ := store.Find(p.TempID)
		if tmp.ImageURL == nil || !strings.HasSuffix(*tmp.ImageURL, p.PreviewPath) {
			t.Fatalf("optimistic image url = %v", tmp.ImageURL)
		}

		backend := &fakeBackend{}
		if fail {
			backend.err = api.ErrServer
		} else {
			backend.sent = &models.Message{ID: 9, Type: models.MessageImage, CreatedAt: epoch}
		}
		got, sendErr := p.Deliver(context.Background(), backend)
		c.Complete(p, got, sendErr)

		if backend.lastImage != path {
			t.Fatalf("backend got %q, want %q", backend.lastImage, path)
		}
		if _, err := os.Stat(p.PreviewPath); !os.IsNotExist(err) {
			t.Fatalf("preview not released (fail=%v): %v", fail, err)
		}
	}
}

func TestSendImageTooLarge(t *testing.T) {
	store := NewStore()
	c := NewCoordinator(store, 1, 7, 10, nil)
	path := writePNG(t, t.TempDir())

	if _, err := c.BeginImage(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("BeginImage error = %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("oversized image touched the store")
	}
}

func TestAbandonDropsLateAnswers(t *testing.T) {
	store := NewStore()
	c := newCoordinator(store)
	p, _ := c.BeginText("hello", nil)

	c.Abandon()
	if store.Len() != 0 {
		t.Fatal("Abandon left the optimistic message")
	}

	confirmed := msg(42, 7, "hello")
	if err := c.Complete(p, &confirmed, nil); err != nil {
		t.Fatalf("Complete after Abandon: %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("late answer was applied")
	}
}
