package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// Store adapts the repository free functions to the store contracts expected
// by the services package. It owns the GORM handle; callers construct it with
// Open (or wrap an existing handle with NewStore) and release it with Close.
type Store struct {
	DB *gorm.DB
}

// NewStore wraps an already opened and migrated handle.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// Open opens the SQLite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close(context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ---- tokens ----

// IssueToken proxies IssueToken.
func (s *Store) IssueToken(ctx context.Context, userID int64, candidate string, now time.Time, ttl time.Duration) (*domain.VerificationToken, bool, error) {
	return IssueToken(ctx, s.DB, userID, candidate, now, ttl)
}

// BindToken proxies BindToken.
func (s *Store) BindToken(ctx context.Context, userID int64, token string, metadata map[string]string, since, now time.Time) error {
	return BindToken(ctx, s.DB, userID, token, metadata, since, now)
}

// FindValidToken proxies FindValidToken.
func (s *Store) FindValidToken(ctx context.Context, userID int64, token string, since time.Time) (*domain.VerificationToken, error) {
	return FindValidToken(ctx, s.DB, userID, token, since)
}

// MarkTokenUsed proxies MarkTokenUsed.
func (s *Store) MarkTokenUsed(ctx context.Context, token string, at time.Time) (int64, error) {
	return MarkTokenUsed(ctx, s.DB, token, at)
}

// TokenMarkedUsed proxies TokenMarkedUsed.
func (s *Store) TokenMarkedUsed(ctx context.Context, token string) (bool, error) {
	return TokenMarkedUsed(ctx, s.DB, token)
}

// DeleteTokensCreatedBefore proxies DeleteTokensCreatedBefore.
func (s *Store) DeleteTokensCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return DeleteTokensCreatedBefore(ctx, s.DB, cutoff)
}

// RecordUsedToken proxies RecordUsedToken.
func (s *Store) RecordUsedToken(ctx context.Context, token string, userID int64, at time.Time) error {
	return RecordUsedToken(ctx, s.DB, token, userID, at)
}

// UsedTokenRecorded proxies UsedTokenRecorded.
func (s *Store) UsedTokenRecorded(ctx context.Context, token string) (bool, error) {
	return UsedTokenRecorded(ctx, s.DB, token)
}

// ---- users ----

// UserExists proxies UserExists.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return UserExists(ctx, s.DB, id)
}

// CreateUser proxies CreateUser.
func (s *Store) CreateUser(ctx context.Context, id int64, username string, now time.Time) (*domain.User, error) {
	return CreateUser(ctx, s.DB, id, username, now)
}

// GetUser proxies GetUser.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return GetUser(ctx, s.DB, id)
}

// DeleteUser proxies DeleteUser.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return DeleteUser(ctx, s.DB, id)
}

// ListUserIDs proxies ListUserIDs.
func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	return ListUserIDs(ctx, s.DB)
}

// UsersStats proxies UsersStats.
func (s *Store) UsersStats(ctx context.Context) (int64, *time.Time, error) {
	return UsersStats(ctx, s.DB)
}

// UpdateSearchCount proxies UpdateSearchCount.
func (s *Store) UpdateSearchCount(ctx context.Context, id int64, count int, lastReset *time.Time, now time.Time) error {
	return UpdateSearchCount(ctx, s.DB, id, count, lastReset, now)
}

// SetUserVerified proxies SetUserVerified.
func (s *Store) SetUserVerified(ctx context.Context, id int64, now time.Time) error {
	return SetUserVerified(ctx, s.DB, id, now)
}

// SetUserBanned proxies SetUserBanned.
func (s *Store) SetUserBanned(ctx context.Context, id int64, banned bool, now time.Time) error {
	return SetUserBanned(ctx, s.DB, id, banned, now)
}

// ---- comments ----

// CreateComment proxies CreateComment.
func (s *Store) CreateComment(ctx context.Context, kind domain.CommentKind, messageID int64, title string, now time.Time) (*domain.CommentRef, error) {
	return CreateComment(ctx, s.DB, kind, messageID, title, now)
}

// GetComment proxies GetComment.
func (s *Store) GetComment(ctx context.Context, kind domain.CommentKind, title string) (*domain.CommentRef, error) {
	return GetComment(ctx, s.DB, kind, title)
}
