// Package mongostore is the MongoDB implementation of the store contracts used
// by the services package. It mirrors internal/repo: misses are reported as
// repo.ErrNotFound and unique-key violations as repo.ErrDuplicate.
//
// Collections: users, verification_tokens, used_tokens, anicomments,
// epcomments.
//
// Concurrency: every read-modify-write is a single server-side operation.
// A user's active token occupies active_key, which has a partial unique index,
// so concurrent issues for one user converge on one document.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/tbourn/anidl-backend/internal/domain"
	"github.com/tbourn/anidl-backend/internal/repo"
)

const (
	colUsers          = "users"
	colTokens         = "verification_tokens"
	colUsedTokens     = "used_tokens"
	colAnimeComments  = "anicomments"
	colEpisodeComment = "epcomments"
)

// Store holds an explicitly connected client and the database it serves.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks that the primary answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// EnsureIndexes creates the indexes the store relies on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colTokens: {
			{
				Keys: bson.D{{Key: "active_key", Value: 1}},
				Options: options.Index().
					SetName("ux_token_active").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"active_key": bson.M{"$exists": true}}),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "token", Value: 1}}},
			{Keys: bson.D{{Key: "token", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colUsedTokens: {
			{Keys: bson.D{{Key: "token", Value: 1}}},
		},
		colAnimeComments: {
			{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colEpisodeComment: {
			{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for col, models := range specs {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo indexes %s: %w", col, err)
		}
	}
	return nil
}

// mapErr translates driver errors into the repo sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repo.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repo.ErrDuplicate
	}
	return err
}

func countLimit1(ctx context.Context, col *mongo.Collection, filter bson.M) (bool, error) {
	n, err := col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

// ---- comments ----

func commentCollection(kind domain.CommentKind) (string, error) {
	switch kind {
	case domain.CommentAnime:
		return colAnimeComments, nil
	case domain.CommentEpisode:
		return colEpisodeComment, nil
	}
	return "", fmt.Errorf("unknown comment kind %q", kind)
}

// CreateComment registers messageID for title. repo.ErrDuplicate when taken.
func (s *Store) CreateComment(ctx context.Context, kind domain.CommentKind, messageID int64, title string, now time.Time) (*domain.CommentRef, error) {
	name, err := commentCollection(kind)
	if err != nil {
		return nil, err
	}
	ref := &domain.CommentRef{MessageID: messageID, Title: title, CreatedAt: now}
	if _, err := s.db.Collection(name).InsertOne(ctx, ref); err != nil {
		return nil, mapErr(err)
	}
	return ref, nil
}

// GetComment looks up the thread for title, or repo.ErrNotFound.
func (s *Store) GetComment(ctx context.Context, kind domain.CommentKind, title string) (*domain.CommentRef, error) {
	name, err := commentCollection(kind)
	if err != nil {
		return nil, err
	}
	var ref domain.CommentRef
	if err := s.db.Collection(name).FindOne(ctx, bson.M{"title": title}).Decode(&ref); err != nil {
		return nil, mapErr(err)
	}
	return &ref, nil
}
