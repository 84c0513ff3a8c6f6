package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tbourn/anidl-backend/internal/domain"
	"github.com/tbourn/anidl-backend/internal/repo"
)

func (s *Store) users() *mongo.Collection { return s.db.Collection(colUsers) }

// userDefaults are the fields written when an upsert creates a user.
func userDefaults(now time.Time) bson.M {
	return bson.M{
		"username":     "",
		"search_count": 0,
		"last_reset":   now,
		"verified":     false,
		"banned":       false,
		"created_at":   now,
	}
}

// upsertUser applies set to the user, creating it with defaults for every
// field that set does not touch.
func (s *Store) upsertUser(ctx context.Context, id int64, set bson.M, now time.Time) error {
	onInsert := userDefaults(now)
	for k := range set {
		delete(onInsert, k)
	}
	_, err := s.users().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$setOnInsert": onInsert},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// UserExists reports whether a user document exists.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return countLimit1(ctx, s.users(), bson.M{"_id": id})
}

// CreateUser inserts a user with defaults; repo.ErrDuplicate when taken.
func (s *Store) CreateUser(ctx context.Context, id int64, username string, now time.Time) (*domain.User, error) {
	u := &domain.User{ID: id, Username: username, LastReset: now, CreatedAt: now}
	if _, err := s.users().InsertOne(ctx, u); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// GetUser fetches the user or repo.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// DeleteUser removes the user or returns repo.ErrNotFound.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ListUserIDs returns every user id in ascending order.
func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	cur, err := s.users().Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := []int64{}
	for cur.Next(ctx) {
		var row struct {
			ID int64 `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// UsersStats returns the user count and the latest created_at.
func (s *Store) UsersStats(ctx context.Context) (int64, *time.Time, error) {
	n, err := s.users().CountDocuments(ctx, bson.M{})
	if err != nil || n == 0 {
		return n, nil, err
	}
	var u domain.User
	err = s.users().FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return n, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	last := u.CreatedAt
	return n, &last, nil
}

// UpdateSearchCount sets search_count and, when lastReset is non-nil,
// last_reset.
func (s *Store) UpdateSearchCount(ctx context.Context, id int64, count int, lastReset *time.Time, now time.Time) error {
	set := bson.M{"search_count": count}
	if lastReset != nil {
		set["last_reset"] = *lastReset
	}
	return s.upsertUser(ctx, id, set, now)
}

// SetUserVerified upserts verified=true.
func (s *Store) SetUserVerified(ctx context.Context, id int64, now time.Time) error {
	return s.upsertUser(ctx, id, bson.M{"verified": true}, now)
}

// SetUserBanned upserts the banned flag.
func (s *Store) SetUserBanned(ctx context.Context, id int64, banned bool, now time.Time) error {
	return s.upsertUser(ctx, id, bson.M{"banned": banned}, now)
}
