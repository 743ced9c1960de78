package chat

import (
	"errors"
	"slices"
	"testing"
)

func TestPagerPrependsOlderPage(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(msgs(2, 13, 14, 15))
	p := NewPager(store, 20, 2)

	before, ok := p.Begin()
	if !ok || before != 13 {
		t.Fatalf("Begin = %d, %v", before, ok)
	}
	if _, ok := p.Begin(); ok {
		t.Fatal("second Begin while loading succeeded")
	}

	added := p.Complete(before, msgs(2, 7, 8, 9, 10, 11, 12), nil)
	if added != 6 {
		t.Fatalf("added = %d, want 6", added)
	}
	if got, want := ids(store.Messages()), []int64{7, 8, 9, 10, 11, 12, 13, 14, 15}; !slices.Equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if store.Watermark() != 15 {
		t.Fatalf("watermark = %d, want 15", store.Watermark())
	}
	if p.Loading() || p.Exhausted() {
		t.Fatal("pager state not released")
	}
}

func TestPagerExhausts(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(msgs(2, 3))
	p := NewPager(store, 20, 2)

	before, _ := p.Begin()
	if p.Complete(before, nil, nil) != 0 {
		t.Fatal("empty page added messages")
	}
	if !p.Exhausted() {
		t.Fatal("empty page did not exhaust history")
	}
	if _, ok := p.Begin(); ok {
		t.Fatal("Begin succeeded after exhaustion")
	}
}

func TestPagerFailureAllowsRetry(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(msgs(2, 3))
	p := NewPager(store, 20, 2)

	before, _ := p.Begin()
	p.Complete(before, nil, errors.New("boom"))
	if p.Exhausted() || p.Loading() {
		t.Fatal("failure changed pager state")
	}
	if _, ok := p.Begin(); !ok {
		t.Fatal("retry after failure refused")
	}
}

func TestPagerNothingToPage(t *testing.T) {
	p := NewPager(NewStore(), 20, 2)
	if _, ok := p.Begin(); ok {
		t.Fatal("Begin on empty store succeeded")
	}
	if !p.NearTop(0) || !p.NearTop(2) || p.NearTop(3) {
		t.Fatal("NearTop threshold wrong")
	}
}

func TestPagerPageWithNothingNewExhausts(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(msgs(2, 5, 6))
	p := NewPager(store, 20, 2)

	before, _ := p.Begin()
	if added := p.Complete(before, msgs(2, 5, 6, 7), nil); added != 0 {
		t.Fatalf("added = %d, want 0", added)
	}
	if !p.Exhausted() {
		t.Fatal("page without older messages did not exhaust history")
	}
	if _, ok := p.Begin(); ok {
		t.Fatal("Begin refetched the same cursor")
	}
}
