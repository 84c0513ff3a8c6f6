package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/anidl-backend/internal/domain"
)

func TestCommentService_SaveAndGet(t *testing.T) {
	svc := NewCommentService(newTestStore(t))
	ctx := context.Background()

	ref, err := svc.SaveAnime(ctx, " Naruto (TV) ", 100)
	if err != nil {
		t.Fatalf("SaveAnime: %v", err)
	}
	if ref.Title != "Naruto (TV)" || ref.MessageID != 100 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if _, err := svc.SaveAnime(ctx, "Naruto (TV)", 101); !errors.Is(err, ErrCommentExists) {
		t.Fatalf("expected ErrCommentExists, got %v", err)
	}

	got, found, err := svc.GetAnime(ctx, "Naruto (TV)")
	if err != nil || !found || got.MessageID != 100 {
		t.Fatalf("GetAnime: %+v found=%v err=%v", got, found, err)
	}
	got, found, err = svc.GetEpisode(ctx, "Naruto (TV)")
	if err != nil || found || got != nil {
		t.Fatalf("episode registry should be empty: %+v found=%v err=%v", got, found, err)
	}

	if _, err := svc.SaveEpisode(ctx, "Naruto (TV) Episode 1", 200); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}
	if got, found, _ := svc.GetEpisode(ctx, "Naruto (TV) Episode 1"); !found || got.MessageID != 200 {
		t.Fatalf("GetEpisode: %+v found=%v", got, found)
	}
}

func TestCommentService_Validation(t *testing.T) {
	svc := NewCommentService(newTestStore(t))
	ctx := context.Background()

	if _, err := svc.Save(ctx, "manga", "x", 1); !errors.Is(err, ErrUnknownCommentKind) {
		t.Fatalf("expected ErrUnknownCommentKind, got %v", err)
	}
	if _, _, err := svc.Get(ctx, "manga", "x"); !errors.Is(err, ErrUnknownCommentKind) {
		t.Fatalf("expected ErrUnknownCommentKind, got %v", err)
	}
	if _, err := svc.Save(ctx, domain.CommentAnime, "   ", 1); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, found, err := svc.Get(ctx, domain.CommentAnime, ""); found || err != nil {
		t.Fatalf("blank lookup: found=%v err=%v", found, err)
	}
}

// erroringComments fails every lookup.
type erroringComments struct{ err error }

func (e erroringComments) CreateComment(context.Context, domain.CommentKind, int64, string, time.Time) (*domain.CommentRef, error) {
	return nil, e.err
}

func (e erroringComments) GetComment(context.Context, domain.CommentKind, string) (*domain.CommentRef, error) {
	return nil, e.err
}

func TestCommentService_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	svc := NewCommentService(erroringComments{err: boom})
	if _, _, err := svc.GetAnime(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := svc.SaveEpisode(context.Background(), "x", 1); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
