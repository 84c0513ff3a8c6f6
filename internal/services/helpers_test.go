package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/anidl-backend/internal/repo"
)

// newTestStore opens a migrated SQLite store in a temp dir.
func newTestStore(t *testing.T) *repo.Store {
	t.Helper()
	s, err := repo.Open(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
