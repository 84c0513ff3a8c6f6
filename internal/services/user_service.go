// Package services – UserService
//
// This file implements UserService, which owns bot user accounts: first-time
// registration, lookups, search-count bookkeeping, verification and the
// moderation ban flag. Ban, unban and verify are upserts at the store level so
// they work for users that never interacted with the bot.
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

// UserStore defines the persistence contract required by UserService.
type UserStore interface {
	// UserExists reports whether a user document exists.
	UserExists(ctx context.Context, id int64) (bool, error)
	// CreateUser inserts a user with defaults; repo.ErrDuplicate when taken.
	CreateUser(ctx context.Context, id int64, username string, now time.Time) (*domain.User, error)
	// GetUser fetches a user or repo.ErrNotFound.
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// DeleteUser removes a user or returns repo.ErrNotFound.
	DeleteUser(ctx context.Context, id int64) error
	// ListUserIDs returns every user id.
	ListUserIDs(ctx context.Context) ([]int64, error)
	// UsersStats returns the user count and the latest registration time.
	UsersStats(ctx context.Context) (int64, *time.Time, error)
	// UpdateSearchCount writes search_count and optionally last_reset.
	UpdateSearchCount(ctx context.Context, id int64, count int, lastReset *time.Time, now time.Time) error
	// SetUserVerified upserts verified=true.
	SetUserVerified(ctx context.Context, id int64, now time.Time) error
	// SetUserBanned upserts the banned flag.
	SetUserBanned(ctx context.Context, id int64, banned bool, now time.Time) error
}

// UserStats summarizes the user collection for the admin surface.
type UserStats struct {
	Total          int64      `json:"total"`
	LastRegistered *time.Time `json:"last_registered,omitempty"`
}

// UserService implements user account use-cases.
type UserService struct {
	Store UserStore

	now func() time.Time
}

// NewUserService constructs a UserService over store.
func NewUserService(store UserStore) *UserService {
	return &UserService{Store: store, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

func (s *UserService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func userSpan(ctx context.Context, name string, id int64) (context.Context, trace.Span) {
	return otel.Tracer("services/UserService").Start(ctx, name,
		trace.WithAttributes(attribute.Int64("user.id", id)))
}

// Exists reports whether the user is known.
func (s *UserService) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, span := userSpan(ctx, "Exists", id)
	defer span.End()
	return s.Store.UserExists(ctx, id)
}

// Register creates a user with default counters. It returns ErrUserExists
// when the id is already registered.
func (s *UserService) Register(ctx context.Context, id int64, username string) (*domain.User, error) {
	ctx, span := userSpan(ctx, "Register", id)
	defer span.End()

	if id <= 0 {
		return nil, ErrInvalidUserID
	}
	u, err := s.Store.CreateUser(ctx, id, strings.TrimSpace(username), s.clock())
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrUserExists
	}
	return u, err
}

// EnsureRegistered returns the user, creating it first when absent.
func (s *UserService) EnsureRegistered(ctx context.Context, id int64, username string) (*domain.User, bool, error) {
	u, err := s.Get(ctx, id)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}
	u, err = s.Register(ctx, id, username)
	if errors.Is(err, ErrUserExists) {
		// lost a registration race; the winner's row is authoritative
		u, err = s.Get(ctx, id)
		return u, false, err
	}
	return u, err == nil, err
}

// Get fetches the user or returns ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := userSpan(ctx, "Get", id)
	defer span.End()

	u, err := s.Store.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Delete removes the user or returns ErrUserNotFound.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	ctx, span := userSpan(ctx, "Delete", id)
	defer span.End()

	err := s.Store.DeleteUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ListIDs returns every known user id.
func (s *UserService) ListIDs(ctx context.Context) ([]int64, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "ListIDs")
	defer span.End()
	return s.Store.ListUserIDs(ctx)
}

// Stats returns the total user count and the latest registration time.
func (s *UserService) Stats(ctx context.Context) (UserStats, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Stats")
	defer span.End()

	total, last, err := s.Store.UsersStats(ctx)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{Total: total, LastRegistered: last}, nil
}

// UpdateSearchCount sets the user's search counter. When resetWindow is true
// last_reset is moved to now.
func (s *UserService) UpdateSearchCount(ctx context.Context, id int64, count int, resetWindow bool) error {
	ctx, span := userSpan(ctx, "UpdateSearchCount", id)
	defer span.End()

	if count < 0 {
		return ErrNegativeCount
	}
	now := s.clock()
	var lastReset *time.Time
	if resetWindow {
		lastReset = &now
	}
	return s.Store.UpdateSearchCount(ctx, id, count, lastReset, now)
}

// Verify marks the user verified, creating the user when absent.
func (s *UserService) Verify(ctx context.Context, id int64) error {
	ctx, span := userSpan(ctx, "Verify", id)
	defer span.End()
	return s.Store.SetUserVerified(ctx, id, s.clock())
}

// Ban sets the ban flag, creating the user when absent.
func (s *UserService) Ban(ctx context.Context, id int64) error {
	ctx, span := userSpan(ctx, "Ban", id)
	defer span.End()

	if id <= 0 {
		return ErrInvalidUserID
	}
	return s.Store.SetUserBanned(ctx, id, true, s.clock())
}

// Unban clears the ban flag, creating the user when absent.
func (s *UserService) Unban(ctx context.Context, id int64) error {
	ctx, span := userSpan(ctx, "Unban", id)
	defer span.End()

	if id <= 0 {
		return ErrInvalidUserID
	}
	return s.Store.SetUserBanned(ctx, id, false, s.clock())
}

// IsBanned reports the ban flag. A user that does not exist is not banned.
func (s *UserService) IsBanned(ctx context.Context, id int64) (bool, error) {
	ctx, span := userSpan(ctx, "IsBanned", id)
	defer span.End()

	u, err := s.Store.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Banned, nil
}
