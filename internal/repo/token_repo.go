// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for verification
// tokens, their short-link bindings, and the used-token ledger.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Concurrency:
//   - IssueToken claims the user's single active slot (verification_tokens.active_key,
//     unique) with INSERT ... ON CONFLICT DO NOTHING inside one transaction, so
//     concurrent callers for the same user converge on one token.
//   - BindToken upserts bindings with ON CONFLICT(token_id, key) DO UPDATE.
//     A record it has to create is never issued and never validates.
//   - MarkTokenUsed is a single conditional UPDATE and is idempotent; the
//     affected row count tells concurrent callers which one flipped the flag.
//
// Error semantics:
//   - FindValidToken returns ErrNotFound when nothing matches.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// IssueToken returns the user's active token, creating it from candidate when
// the user has none. A token is active while unused and created at or after
// now-ttl. The boolean reports whether candidate was inserted.
func IssueToken(ctx context.Context, db *gorm.DB, userID int64, candidate string, now time.Time, ttl time.Duration) (*domain.VerificationToken, bool, error) {
	var (
		out     domain.VerificationToken
		created bool
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Release a slot held by an expired token so a fresh one can claim it.
		if err := tx.Model(&domain.VerificationToken{}).
			Where("active_key = ? AND created_at < ?", userID, now.Add(-ttl)).
			Update("active_key", nil).Error; err != nil {
			return err
		}

		slot := userID
		tok := &domain.VerificationToken{
			ID:        uuid.NewString(),
			UserID:    userID,
			Token:     candidate,
			ActiveKey: &slot,
			Issued:    true,
			CreatedAt: now,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "active_key"}},
			DoNothing: true,
		}).Create(tok)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1

		return tx.Preload("Bindings").
			Where("active_key = ? AND issued = ?", userID, true).
			First(&out).Error
	})
	if err != nil {
		return nil, false, err
	}
	out.MetadataFromBindings()
	return &out, created, nil
}

// BindToken attaches metadata to the token matching (userID, token) created at
// or after since. When no such token exists a record is created for it first;
// that record is not issued, so FindValidToken never returns it. Keys already
// bound are overwritten.
func BindToken(ctx context.Context, db *gorm.DB, userID int64, token string, metadata map[string]string, since, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tok domain.VerificationToken
		err := tx.Where("user_id = ? AND token = ? AND created_at >= ?", userID, token, since).
			Order("created_at DESC").
			First(&tok).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			tok = domain.VerificationToken{
				ID:        uuid.NewString(),
				UserID:    userID,
				Token:     token,
				CreatedAt: now,
			}
			if err := tx.Create(&tok).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if len(metadata) == 0 {
			return nil
		}
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rows := make([]domain.TokenBinding, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, domain.TokenBinding{
				ID:      uuid.NewString(),
				TokenID: tok.ID,
				Key:     k,
				Value:   metadata[k],
			})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&rows).Error
	})
}

// FindValidToken fetches the issued, unused token matching (userID, token)
// created at or after since, with its bindings. Returns ErrNotFound when none
// matches.
func FindValidToken(ctx context.Context, db *gorm.DB, userID int64, token string, since time.Time) (*domain.VerificationToken, error) {
	var tok domain.VerificationToken
	err := db.WithContext(ctx).
		Preload("Bindings").
		Where("user_id = ? AND token = ? AND issued = ? AND used = ? AND created_at >= ?", userID, token, true, false, since).
		First(&tok).Error
	if err != nil {
		return nil, err
	}
	tok.MetadataFromBindings()
	return &tok, nil
}

// MarkTokenUsed flags every unused record carrying token as used at the given
// time and releases its active slot. Already-used records are left untouched,
// so repeated calls are no-ops that report zero rows.
func MarkTokenUsed(ctx context.Context, db *gorm.DB, token string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.VerificationToken{}).
		Where("token = ? AND used = ?", token, false).
		Updates(map[string]any{
			"used":       true,
			"used_at":    at,
			"active_key": nil,
		})
	return res.RowsAffected, res.Error
}

// TokenMarkedUsed reports whether any record carrying token has used=true.
func TokenMarkedUsed(ctx context.Context, db *gorm.DB, token string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.VerificationToken{}).
		Where("token = ? AND used = ?", token, true).
		Count(&n).Error
	return n > 0, err
}

// DeleteTokensCreatedBefore removes every token (used or not) created before
// cutoff together with its bindings, returning the number of tokens deleted.
func DeleteTokensCreatedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&domain.VerificationToken{}).Select("id").Where("created_at < ?", cutoff)
		if err := tx.Where("token_id IN (?)", stale).Delete(&domain.TokenBinding{}).Error; err != nil {
			return err
		}
		res := tx.Where("created_at < ?", cutoff).Delete(&domain.VerificationToken{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

// RecordUsedToken appends a ledger entry for token.
func RecordUsedToken(ctx context.Context, db *gorm.DB, token string, userID int64, at time.Time) error {
	rec := &domain.UsedToken{
		ID:     uuid.NewString(),
		Token:  token,
		UserID: userID,
		UsedAt: at,
	}
	return db.WithContext(ctx).Create(rec).Error
}

// UsedTokenRecorded reports whether the ledger holds at least one entry for token.
func UsedTokenRecorded(ctx context.Context, db *gorm.DB, token string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UsedToken{}).
		Where("token = ?", token).
		Count(&n).Error
	return n > 0, err
}
