// Package services – CommentService
//
// CommentService maps catalog titles to the message id of the discussion
// thread posted for them. There are two independent registries, one for
// whole series and one for single episodes. A title is registered once and
// looked up thereafter.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/anidl-backend/internal/domain"
	"github.com/tbourn/anidl-backend/internal/repo"
)

// CommentStore defines the persistence contract required by CommentService.
type CommentStore interface {
	CreateComment(ctx context.Context, kind domain.CommentKind, messageID int64, title string, now time.Time) (*domain.CommentRef, error)
	GetComment(ctx context.Context, kind domain.CommentKind, title string) (*domain.CommentRef, error)
}

// CommentService implements the discussion-thread registries.
type CommentService struct {
	Store CommentStore

	now func() time.Time
}

// NewCommentService constructs a CommentService over store.
func NewCommentService(store CommentStore) *CommentService {
	return &CommentService{Store: store, now: time.Now}
}

// Save registers messageID as the thread for title in the kind registry.
func (s *CommentService) Save(ctx context.Context, kind domain.CommentKind, title string, messageID int64) (*domain.CommentRef, error) {
	ctx, span := otel.Tracer("services/CommentService").Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("comment.kind", string(kind)),
			attribute.Int64("message.id", messageID),
		))
	defer span.End()

	if !kind.Valid() {
		return nil, ErrUnknownCommentKind
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	ref, err := s.Store.CreateComment(ctx, kind, messageID, title, now().UTC())
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrCommentExists
	}
	return ref, err
}

// Get looks up the thread for title. A miss is reported as (nil, false, nil).
func (s *CommentService) Get(ctx context.Context, kind domain.CommentKind, title string) (*domain.CommentRef, bool, error) {
	ctx, span := otel.Tracer("services/CommentService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("comment.kind", string(kind))))
	defer span.End()

	if !kind.Valid() {
		return nil, false, ErrUnknownCommentKind
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, false, nil
	}
	ref, err := s.Store.GetComment(ctx, kind, title)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return ref, true, nil
}

// SaveAnime registers the series-level thread for title.
func (s *CommentService) SaveAnime(ctx context.Context, title string, messageID int64) (*domain.CommentRef, error) {
	return s.Save(ctx, domain.CommentAnime, title, messageID)
}

// GetAnime looks up the series-level thread for title.
func (s *CommentService) GetAnime(ctx context.Context, title string) (*domain.CommentRef, bool, error) {
	return s.Get(ctx, domain.CommentAnime, title)
}

// SaveEpisode registers the episode-level thread for title.
func (s *CommentService) SaveEpisode(ctx context.Context, title string, messageID int64) (*domain.CommentRef, error) {
	return s.Save(ctx, domain.CommentEpisode, title, messageID)
}

// GetEpisode looks up the episode-level thread for title.
func (s *CommentService) GetEpisode(ctx context.Context, title string) (*domain.CommentRef, bool, error) {
	return s.Get(ctx, domain.CommentEpisode, title)
}
