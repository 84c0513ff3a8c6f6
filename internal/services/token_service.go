// Package services – TokenService
//
// This file implements the verification-token lifecycle: issuance with
// reuse of the user's active token, short-link binding, validation,
// idempotent consumption, the stale-record sweep, and the append-only usage
// ledger. A token is valid while it is unused and younger than TTL; the sweep
// independently removes every record older than CleanupAge.
//
// All read-modify-write sequences are delegated to single atomic store
// operations (see TokenStore) so concurrent callers cannot create two active
// tokens for the same user.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/anidl-backend/internal/domain"
	"github.com/tbourn/anidl-backend/internal/repo"
)

const (
	// DefaultTokenLength is the number of characters in an issued token.
	DefaultTokenLength = 16
	// DefaultTokenTTL is how long an unused token stays valid.
	DefaultTokenTTL = 24 * time.Hour
	// DefaultCleanupAge is the age after which the sweep deletes a record.
	DefaultCleanupAge = time.Hour

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// TokenStore is the persistence contract required by TokenService. Both the
// relational store (repo.Store) and the document store (mongostore.Store)
// implement it.
type TokenStore interface {
	// IssueToken returns the user's active token or atomically creates one
	// from candidate. The boolean reports whether candidate was stored.
	IssueToken(ctx context.Context, userID int64, candidate string, now time.Time, ttl time.Duration) (*domain.VerificationToken, bool, error)
	// BindToken upserts metadata onto the (userID, token) record created at
	// or after since, creating the record when absent.
	BindToken(ctx context.Context, userID int64, token string, metadata map[string]string, since, now time.Time) error
	// FindValidToken returns the issued, unused record created at or after
	// since, or repo.ErrNotFound. Records created by BindToken are not issued.
	FindValidToken(ctx context.Context, userID int64, token string, since time.Time) (*domain.VerificationToken, error)
	// MarkTokenUsed flags unused records carrying token as used in one
	// conditional update and returns how many it flipped. Idempotent.
	MarkTokenUsed(ctx context.Context, token string, at time.Time) (int64, error)
	// TokenMarkedUsed reports whether any record carrying token is used.
	TokenMarkedUsed(ctx context.Context, token string) (bool, error)
	// DeleteTokensCreatedBefore removes records created before cutoff.
	DeleteTokensCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// RecordUsedToken appends a ledger entry.
	RecordUsedToken(ctx context.Context, token string, userID int64, at time.Time) error
	// UsedTokenRecorded reports whether the ledger contains token.
	UsedTokenRecorded(ctx context.Context, token string) (bool, error)
}

// TokenVerifier is the slice of UserStore that Redeem needs.
type TokenVerifier interface {
	SetUserVerified(ctx context.Context, id int64, now time.Time) error
}

var tokenEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "verification_token_events_total",
		Help: "Verification token lifecycle events.",
	},
	[]string{"event"},
)

func init() {
	prometheus.MustRegister(tokenEvents)
}

// TokenService implements the verification-token use-cases.
type TokenService struct {
	Store TokenStore
	Users TokenVerifier

	// Length is the number of characters in a generated token.
	Length int
	// TTL bounds validity of an unused token.
	TTL time.Duration
	// CleanupAge is the creation age beyond which Cleanup deletes a record.
	CleanupAge time.Duration

	now func() time.Time
}

// NewTokenService constructs a TokenService with the default length, TTL and
// cleanup age.
func NewTokenService(store TokenStore, users TokenVerifier) *TokenService {
	return &TokenService{
		Store:      store,
		Users:      users,
		Length:     DefaultTokenLength,
		TTL:        DefaultTokenTTL,
		CleanupAge: DefaultCleanupAge,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *TokenService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTokenTTL
	}
	return s.TTL
}

func tokenTracer() trace.Tracer { return otel.Tracer("services/TokenService") }

// Issue returns the user's active token together with any metadata already
// bound to it, or creates a fresh random token when the user has none.
func (s *TokenService) Issue(ctx context.Context, userID int64) (*domain.VerificationToken, error) {
	ctx, span := tokenTracer().Start(ctx, "Issue",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	candidate, err := GenerateToken(s.Length)
	if err != nil {
		return nil, err
	}
	tok, created, err := s.Store.IssueToken(ctx, userID, candidate, s.clock(), s.ttl())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("token.created", created))
	if created {
		tokenEvents.WithLabelValues("issued").Inc()
	} else {
		tokenEvents.WithLabelValues("reused").Inc()
	}
	return tok, nil
}

// Bind attaches short-link metadata to the user's token. Keys already bound
// are overwritten; a missing record is created.
func (s *TokenService) Bind(ctx context.Context, userID int64, token string, metadata map[string]string) error {
	ctx, span := tokenTracer().Start(ctx, "Bind",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int("metadata.keys", len(metadata)),
		))
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if userID <= 0 {
		return ErrInvalidUserID
	}
	for k := range metadata {
		if k == "" || strings.Contains(k, ".") || strings.HasPrefix(k, "$") {
			return ErrInvalidMetadataKey
		}
	}
	now := s.clock()
	if err := s.Store.BindToken(ctx, userID, token, metadata, now.Add(-s.ttl()), now); err != nil {
		return err
	}
	tokenEvents.WithLabelValues("bound").Inc()
	return nil
}

// Validate reports whether an unused token created within TTL matches
// (userID, token). Store failures are returned as errors; a miss is false.
func (s *TokenService) Validate(ctx context.Context, userID int64, token string) (bool, error) {
	ctx, span := tokenTracer().Start(ctx, "Validate",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if _, err := s.lookup(ctx, userID, token); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Lookup returns the valid record for (userID, token) with its metadata, or
// ErrInvalidToken.
func (s *TokenService) Lookup(ctx context.Context, userID int64, token string) (*domain.VerificationToken, error) {
	tok, err := s.lookup(ctx, userID, token)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return tok, err
}

func (s *TokenService) lookup(ctx context.Context, userID int64, token string) (*domain.VerificationToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, repo.ErrNotFound
	}
	return s.Store.FindValidToken(ctx, userID, token, s.clock().Add(-s.ttl()))
}

// Consume marks token as used. Consuming an already used or unknown token is
// a no-op.
func (s *TokenService) Consume(ctx context.Context, token string) error {
	ctx, span := tokenTracer().Start(ctx, "Consume")
	defer span.End()

	if _, err := s.Store.MarkTokenUsed(ctx, token, s.clock()); err != nil {
		return err
	}
	tokenEvents.WithLabelValues("consumed").Inc()
	return nil
}

// Cleanup deletes every token record created more than CleanupAge ago,
// used or not, and returns the number removed.
func (s *TokenService) Cleanup(ctx context.Context) (int64, error) {
	ctx, span := tokenTracer().Start(ctx, "Cleanup")
	defer span.End()

	age := s.CleanupAge
	if age <= 0 {
		age = DefaultCleanupAge
	}
	n, err := s.Store.DeleteTokensCreatedBefore(ctx, s.clock().Add(-age))
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("tokens.deleted", n))
	tokenEvents.WithLabelValues("swept").Add(float64(n))
	return n, nil
}

// RecordUsed appends token to the usage ledger.
func (s *TokenService) RecordUsed(ctx context.Context, token string, userID int64) error {
	return s.Store.RecordUsedToken(ctx, token, userID, s.clock())
}

// IsConsumed reports whether token was consumed through the token flag or
// recorded in the usage ledger. Both sources are always consulted.
func (s *TokenService) IsConsumed(ctx context.Context, token string) (bool, error) {
	ctx, span := tokenTracer().Start(ctx, "IsConsumed")
	defer span.End()

	flagged, err := s.Store.TokenMarkedUsed(ctx, token)
	if err != nil {
		return false, err
	}
	recorded, err := s.Store.UsedTokenRecorded(ctx, token)
	if err != nil {
		return false, err
	}
	return flagged || recorded, nil
}

// Redeem completes verification for userID: the token must be valid and not
// consumed. It is then consumed, recorded in the ledger and the user is
// marked verified. Only the caller whose update flips the used flag
// succeeds; a concurrent redeem of the same token gets ErrTokenConsumed.
func (s *TokenService) Redeem(ctx context.Context, userID int64, token string) error {
	ctx, span := tokenTracer().Start(ctx, "Redeem",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	token = strings.TrimSpace(token)
	ok, err := s.Validate(ctx, userID, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	consumed, err := s.IsConsumed(ctx, token)
	if err != nil {
		return err
	}
	if consumed {
		return ErrTokenConsumed
	}

	flipped, err := s.Store.MarkTokenUsed(ctx, token, s.clock())
	if err != nil {
		return err
	}
	if flipped == 0 {
		return ErrTokenConsumed
	}
	tokenEvents.WithLabelValues("consumed").Inc()
	if err := s.RecordUsed(ctx, token, userID); err != nil {
		return err
	}
	if s.Users != nil {
		if err := s.Users.SetUserVerified(ctx, userID, s.clock()); err != nil {
			return err
		}
	}
	tokenEvents.WithLabelValues("redeemed").Inc()
	return nil
}

// GenerateToken returns a cryptographically random alphanumeric string of n
// characters (DefaultTokenLength when n <= 0).
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenLength
	}
	max := big.NewInt(int64(len(tokenAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tokenAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
