// Package repo implements the relational store for users, verification
// tokens, the used-token ledger and the comment registries, backed by GORM on
// a pure-Go SQLite driver.
package repo

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// sqlitePragmas are applied on every pooled connection through the DSN.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
}

// slowQuery is the threshold above which statements are logged at warn.
const slowQuery = 200 * time.Millisecond

// sqliteDSN appends the pragma parameters to path.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// OpenSQLite opens (or creates) the database at path. The parent directory
// must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger: zerologGorm{slow: slowQuery},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	// Query spans; metrics are exported through Prometheus instead.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates every table the bot needs.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.VerificationToken{},
		&domain.TokenBinding{},
		&domain.UsedToken{},
		&domain.AnimeComment{},
		&domain.EpisodeComment{},
	)
}

// zerologGorm sends GORM's logging to the global zerolog logger. Statements
// are traced at debug and slow ones at warn. Failures are logged at error
// unless they are a miss or a unique-key conflict, which callers handle.
type zerologGorm struct {
	slow  time.Duration
	level logger.LogLevel
}

func (l zerologGorm) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l zerologGorm) silent() bool { return l.level == logger.Silent }

func (l zerologGorm) Info(ctx context.Context, msg string, args ...any) {
	if !l.silent() {
		logFor(ctx).Info().Msgf(msg, args...)
	}
}

func (l zerologGorm) Warn(ctx context.Context, msg string, args ...any) {
	if !l.silent() {
		logFor(ctx).Warn().Msgf(msg, args...)
	}
}

func (l zerologGorm) Error(ctx context.Context, msg string, args ...any) {
	if !l.silent() {
		logFor(ctx).Error().Msgf(msg, args...)
	}
}

func (l zerologGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.silent() {
		return
	}
	elapsed := time.Since(begin)
	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !isDuplicate(err):
		ev = logFor(ctx).Error().Err(err)
	case l.slow > 0 && elapsed > l.slow:
		ev = logFor(ctx).Warn().Bool("slow", true)
	default:
		ev = logFor(ctx).Debug()
	}
	if !ev.Enabled() {
		return
	}
	sql, rows := fc()
	ev.Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("gorm")
}

// logFor returns the context logger, falling back to the global one.
func logFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
