package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// tokenDoc is the stored shape of a verification token.
type tokenDoc struct {
	ID        bson.ObjectID     `bson:"_id,omitempty"`
	UserID    int64             `bson:"user_id"`
	Token     string            `bson:"token"`
	ActiveKey *int64            `bson:"active_key,omitempty"`
	Issued    bool              `bson:"issued"`
	Used      bool              `bson:"used"`
	UsedAt    *time.Time        `bson:"used_at,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
}

func (d *tokenDoc) toDomain() *domain.VerificationToken {
	return &domain.VerificationToken{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Token:     d.Token,
		ActiveKey: d.ActiveKey,
		Issued:    d.Issued,
		Used:      d.Used,
		UsedAt:    d.UsedAt,
		CreatedAt: d.CreatedAt,
		Metadata:  d.Metadata,
	}
}

func (s *Store) tokens() *mongo.Collection { return s.db.Collection(colTokens) }

// IssueToken returns the user's active token or creates one from candidate
// with a single upsert on the active slot.
func (s *Store) IssueToken(ctx context.Context, userID int64, candidate string, now time.Time, ttl time.Duration) (*domain.VerificationToken, bool, error) {
	col := s.tokens()

	// Release a slot held by an expired token.
	if _, err := col.UpdateMany(ctx,
		bson.M{"active_key": userID, "created_at": bson.M{"$lt": now.Add(-ttl)}},
		bson.M{"$unset": bson.M{"active_key": ""}},
	); err != nil {
		return nil, false, err
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	update := bson.M{"$setOnInsert": bson.M{
		"user_id":    userID,
		"token":      candidate,
		"used":       false,
		"created_at": now,
	}}

	// Both equality fields are copied into an upserted document.
	slot := bson.M{"active_key": userID, "issued": true}
	var doc tokenDoc
	err := col.FindOneAndUpdate(ctx, slot, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert claimed the slot first; read the winner.
		err = col.FindOne(ctx, slot).Decode(&doc)
	}
	if err != nil {
		return nil, false, mapErr(err)
	}
	// candidate is random, so a match means this call inserted the document.
	return doc.toDomain(), doc.Token == candidate, nil
}

// BindToken sets metadata.<key> on the (userID, token) document created at or
// after since, inserting an unissued one when absent.
func (s *Store) BindToken(ctx context.Context, userID int64, token string, metadata map[string]string, since, now time.Time) error {
	set := bson.M{}
	for k, v := range metadata {
		set["metadata."+k] = v
	}
	update := bson.M{"$setOnInsert": bson.M{"issued": false, "used": false, "created_at": now}}
	if len(set) > 0 {
		update["$set"] = set
	}
	_, err := s.tokens().UpdateOne(ctx,
		bson.M{"user_id": userID, "token": token, "created_at": bson.M{"$gte": since}},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	return mapErr(err)
}

// FindValidToken returns the issued, unused document created at or after since.
func (s *Store) FindValidToken(ctx context.Context, userID int64, token string, since time.Time) (*domain.VerificationToken, error) {
	var doc tokenDoc
	err := s.tokens().FindOne(ctx, bson.M{
		"user_id":    userID,
		"token":      token,
		"issued":     true,
		"used":       false,
		"created_at": bson.M{"$gte": since},
	}).Decode(&doc)
	if err != nil {
		return nil, mapErr(err)
	}
	return doc.toDomain(), nil
}

// MarkTokenUsed flags unused documents carrying token and frees their slot.
// It returns how many documents it flipped.
func (s *Store) MarkTokenUsed(ctx context.Context, token string, at time.Time) (int64, error) {
	res, err := s.tokens().UpdateMany(ctx,
		bson.M{"token": token, "used": false},
		bson.M{
			"$set":   bson.M{"used": true, "used_at": at},
			"$unset": bson.M{"active_key": ""},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// TokenMarkedUsed reports whether any document carrying token is used.
func (s *Store) TokenMarkedUsed(ctx context.Context, token string) (bool, error) {
	return countLimit1(ctx, s.tokens(), bson.M{"token": token, "used": true})
}

// DeleteTokensCreatedBefore removes documents created before cutoff.
func (s *Store) DeleteTokensCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.tokens().DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RecordUsedToken appends a ledger entry.
func (s *Store) RecordUsedToken(ctx context.Context, token string, userID int64, at time.Time) error {
	_, err := s.db.Collection(colUsedTokens).InsertOne(ctx, domain.UsedToken{
		Token:  token,
		UserID: userID,
		UsedAt: at,
	})
	return err
}

// UsedTokenRecorded reports whether the ledger contains token.
func (s *Store) UsedTokenRecorded(ctx context.Context, token string) (bool, error) {
	return countLimit1(ctx, s.db.Collection(colUsedTokens), bson.M{"token": token})
}
