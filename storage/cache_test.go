package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kanban-api/board"
	"kanban-api/domain"
)

type stubBackend struct {
	columns      []domain.Column
	cards        []domain.Card
	columnCalls  int
	cardCalls    int
	applyErr     error
	appliedPlans int
	deletedCards []string
}

func (s *stubBackend) FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	return domain.Workspace{ID: workspaceID}, nil
}

func (s *stubBackend) FetchColumns(ctx context.Context, workspaceID string) ([]domain.Column, error) {
	s.columnCalls++
	return s.columns, nil
}

func (s *stubBackend) FetchCards(ctx context.Context, workspaceID string) ([]domain.Card, error) {
	s.cardCalls++
	return s.cards, nil
}

func (s *stubBackend) FetchUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	return map[string]domain.User{}, nil
}

func (s *stubBackend) ApplyPlan(ctx context.Context, workspaceID string, plan board.Plan) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.appliedPlans++
	return nil
}

func (s *stubBackend) DeleteCard(ctx context.Context, workspaceID, cardID string) error {
	s.deletedCards = append(s.deletedCards, cardID)
	return nil
}

func newTestCache(t *testing.T, base *stubBackend) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(base, client, 5*time.Minute), mr
}

func TestCacheFetchColumnsCachesSecondRead(t *testing.T) {
	base := &stubBackend{columns: []domain.Column{
		{ID: "c1", WorkspaceID: "ws-1", Title: "Todo", Order: 0},
		{ID: "c2", WorkspaceID: "ws-1", Title: "Done", Order: 1},
	}}
	cache, _ := newTestCache(t, base)
	ctx := context.Background()

	first, err := cache.FetchColumns(ctx, "ws-1")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := cache.FetchColumns(ctx, "ws-1")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if base.columnCalls != 1 {
		t.Fatalf("expected a single backend read, got %d", base.columnCalls)
	}
	if len(first) != 2 || len(second) != 2 || second[1].Title != "Done" {
		t.Fatalf("cached columns do not match: %+v", second)
	}
}

func TestCacheFetchCardsCachesSecondRead(t *testing.T) {
	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	base := &stubBackend{cards: []domain.Card{
		{ID: "a", ColumnID: "c1", Title: "write docs", DueDate: &due, Order: 0},
	}}
	cache, _ := newTestCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchCards(ctx, "ws-1"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	cards, err := cache.FetchCards(ctx, "ws-1")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if base.cardCalls != 1 {
		t.Fatalf("expected a single backend read, got %d", base.cardCalls)
	}
	if len(cards) != 1 || cards[0].DueDate == nil || !cards[0].DueDate.Equal(due) {
		t.Fatalf("cached cards do not round-trip: %+v", cards)
	}
}

func TestCacheApplyPlanEvicts(t *testing.T) {
	base := &stubBackend{columns: []domain.Column{{ID: "c1", WorkspaceID: "ws-1"}}}
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchColumns(ctx, "ws-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if !mr.Exists("columns:ws-1") {
		t.Fatal("expected columns cache entry after fetch")
	}

	if err := cache.ApplyPlan(ctx, "ws-1", board.Plan{Deletes: []string{"a"}}); err != nil {
		t.Fatalf("apply plan: %v", err)
	}
	if mr.Exists("columns:ws-1") || mr.Exists("cards:ws-1") {
		t.Fatal("expected cache eviction after apply")
	}
	if base.appliedPlans != 1 {
		t.Fatalf("expected plan to reach the backend, got %d", base.appliedPlans)
	}
}

func TestCacheApplyPlanPartialFailureStillEvicts(t *testing.T) {
	base := &stubBackend{
		columns:  []domain.Column{{ID: "c1", WorkspaceID: "ws-1"}},
		applyErr: &partialApplyError{err: errors.New("batch 2 rejected")},
	}
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchColumns(ctx, "ws-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	err := cache.ApplyPlan(ctx, "ws-1", board.Plan{Deletes: []string{"a"}})
	var pae board.PartialApplyError
	if !errors.As(err, &pae) {
		t.Fatalf("expected partial apply error, got %v", err)
	}
	if mr.Exists("columns:ws-1") {
		t.Fatal("expected eviction even when apply was partial")
	}
}

func TestCacheApplyPlanOtherFailureKeepsEntries(t *testing.T) {
	base := &stubBackend{
		columns:  []domain.Column{{ID: "c1", WorkspaceID: "ws-1"}},
		applyErr: errors.New("connection refused"),
	}
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchColumns(ctx, "ws-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := cache.ApplyPlan(ctx, "ws-1", board.Plan{Deletes: []string{"a"}}); err == nil {
		t.Fatal("expected apply failure")
	}
	if !mr.Exists("columns:ws-1") {
		t.Fatal("cache must stay intact when nothing was applied")
	}
}

func TestCacheDeleteCardEvicts(t *testing.T) {
	base := &stubBackend{cards: []domain.Card{{ID: "a", ColumnID: "c1"}}}
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchCards(ctx, "ws-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := cache.DeleteCard(ctx, "ws-1", "a"); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if mr.Exists("cards:ws-1") {
		t.Fatal("expected cards cache eviction after delete")
	}
	if len(base.deletedCards) != 1 || base.deletedCards[0] != "a" {
		t.Fatalf("delete did not reach the backend: %v", base.deletedCards)
	}
}

func TestCacheCorruptEntryFallsBackToStorage(t *testing.T) {
	base := &stubBackend{columns: []domain.Column{{ID: "c1", WorkspaceID: "ws-1"}}}
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	if err := mr.Set("columns:ws-1", "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	columns, err := cache.FetchColumns(ctx, "ws-1")
	if err != nil {
		t.Fatalf("fetch with corrupt cache: %v", err)
	}
	if base.columnCalls != 1 || len(columns) != 1 {
		t.Fatalf("expected backend fallback, calls=%d columns=%+v", base.columnCalls, columns)
	}
}

func TestCacheNilRedisIsPassthrough(t *testing.T) {
	base := &stubBackend{columns: []domain.Column{{ID: "c1", WorkspaceID: "ws-1"}}}
	cache := NewCache(base, nil, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.FetchColumns(ctx, "ws-1"); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if base.columnCalls != 2 {
		t.Fatalf("expected every read to hit storage, got %d", base.columnCalls)
	}
}
