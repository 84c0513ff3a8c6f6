// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Flag setters (SetUserBanned,
// SetUserVerified, UpdateSearchCount) are single upserts keyed on the user id
// so a missing user is created with defaults rather than reported.
//
// Error semantics:
//   - GetUser / DeleteUser return ErrNotFound when the user does not exist.
//   - CreateUser returns ErrDuplicate when the id is already taken.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// newUser returns a user row populated with the registration defaults.
func newUser(id int64, username string, now time.Time) *domain.User {
	return &domain.User{
		ID:        id,
		Username:  username,
		LastReset: now,
		CreatedAt: now,
	}
}

// UserExists reports whether a user row with id exists.
func UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// CreateUser inserts a user with search_count=0, verified=false, banned=false
// and last_reset=created_at=now.
func CreateUser(ctx context.Context, db *gorm.DB, id int64, username string, now time.Time) (*domain.User, error) {
	u := newUser(id, username, now)
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUser fetches the full user row, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes the user row. Returns ErrNotFound if nothing was deleted.
func DeleteUser(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUserIDs returns every user id in ascending order.
func ListUserIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	ids := []int64{}
	err := db.WithContext(ctx).Model(&domain.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// UpdateSearchCount sets search_count and, when lastReset is non-nil,
// last_reset. A missing user is created with defaults plus these values.
func UpdateSearchCount(ctx context.Context, db *gorm.DB, id int64, count int, lastReset *time.Time, now time.Time) error {
	u := newUser(id, "", now)
	u.SearchCount = count
	cols := []string{"search_count"}
	if lastReset != nil {
		u.LastReset = *lastReset
		cols = append(cols, "last_reset")
	}
	return upsertUser(ctx, db, u, cols...)
}

// SetUserVerified sets verified=true, creating the user if absent.
func SetUserVerified(ctx context.Context, db *gorm.DB, id int64, now time.Time) error {
	u := newUser(id, "", now)
	u.Verified = true
	return upsertUser(ctx, db, u, "verified")
}

// SetUserBanned sets the banned flag, creating the user if absent.
func SetUserBanned(ctx context.Context, db *gorm.DB, id int64, banned bool, now time.Time) error {
	u := newUser(id, "", now)
	u.Banned = banned
	return upsertUser(ctx, db, u, "banned")
}

// upsertUser inserts u or, on id conflict, overwrites only cols.
func upsertUser(ctx context.Context, db *gorm.DB, u *domain.User, cols ...string) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(u).Error
}
