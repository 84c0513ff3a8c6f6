// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the two
// discussion-thread registries (anime-level and episode-level). Both share
// the CommentRef shape and differ only in table.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// commentTable maps a registry kind to its table name.
func commentTable(kind domain.CommentKind) (string, error) {
	switch kind {
	case domain.CommentAnime:
		return domain.AnimeComment{}.TableName(), nil
	case domain.CommentEpisode:
		return domain.EpisodeComment{}.TableName(), nil
	}
	return "", fmt.Errorf("unknown comment kind %q", kind)
}

// CreateComment registers messageID as the discussion thread for title.
// Returns ErrDuplicate when the title is already registered.
func CreateComment(ctx context.Context, db *gorm.DB, kind domain.CommentKind, messageID int64, title string, now time.Time) (*domain.CommentRef, error) {
	table, err := commentTable(kind)
	if err != nil {
		return nil, err
	}
	ref := &domain.CommentRef{
		ID:        uuid.NewString(),
		MessageID: messageID,
		Title:     title,
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Table(table).Create(ref).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return ref, nil
}

// GetComment looks up the thread registered for title, or ErrNotFound.
func GetComment(ctx context.Context, db *gorm.DB, kind domain.CommentKind, title string) (*domain.CommentRef, error) {
	table, err := commentTable(kind)
	if err != nil {
		return nil, err
	}
	var ref domain.CommentRef
	if err := db.WithContext(ctx).Table(table).Where("title = ?", title).First(&ref).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}
