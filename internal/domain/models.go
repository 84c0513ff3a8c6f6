// Package domain defines the persistence models for bot users, verification
// tokens, the used-token ledger, and discussion-thread references. These types
// are mapped with GORM (relational store) and carry bson tags so the same
// structs round-trip through the document store.
package domain

import "time"

// User represents a chat user known to the bot. The primary key is the chat
// platform's numeric user id.
//
// Fields:
//   - ID: chat user id (not auto-incremented).
//   - Username: last known handle, may be empty.
//   - SearchCount: searches performed in the current window (>= 0).
//   - LastReset: start of the current search window.
//   - Verified: set once a verification token has been redeemed.
//   - Banned: moderation flag.
//   - CreatedAt: first interaction time.
type User struct {
	ID          int64     `json:"id"           gorm:"primaryKey;autoIncrement:false" bson:"_id"`
	Username    string    `json:"username"     gorm:"type:varchar(255);not null;default:''" bson:"username"`
	SearchCount int       `json:"search_count" gorm:"not null;default:0;check:search_count >= 0" bson:"search_count"`
	LastReset   time.Time `json:"last_reset"   bson:"last_reset"`
	Verified    bool      `json:"verified"     gorm:"not null;default:false" bson:"verified"`
	Banned      bool      `json:"banned"       gorm:"not null;default:false;index" bson:"banned"`
	CreatedAt   time.Time `json:"created_at"   bson:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// VerificationToken is a short-lived credential issued to a user. A token is
// the user's active one while it is unused and younger than the token TTL.
//
// ActiveKey holds the owning user id while the row occupies the user's single
// active slot and is NULL otherwise; the unique index on it prevents two
// concurrent issues from creating two active tokens for one user.
//
// Issued is set only when the token was handed out by an issue call. Records
// created by an out-of-order bind stay unissued and never validate.
//
// Metadata is the flattened view of Bindings (short-link identifiers keyed by
// provider name). The relational store keeps it in the token_bindings table,
// the document store embeds it.
type VerificationToken struct {
	ID        string            `json:"-"                 gorm:"type:char(36);primaryKey" bson:"-"`
	UserID    int64             `json:"user_id"           gorm:"not null;index:idx_token_user" bson:"user_id"`
	Token     string            `json:"token"             gorm:"type:varchar(64);not null;index:idx_token_value" bson:"token"`
	ActiveKey *int64            `json:"-"                 gorm:"uniqueIndex:ux_token_active" bson:"-"`
	Issued    bool              `json:"-"                 gorm:"not null;default:false" bson:"issued"`
	Used      bool              `json:"used"              gorm:"not null;default:false" bson:"used"`
	UsedAt    *time.Time        `json:"used_at,omitempty" bson:"used_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"        gorm:"index" bson:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty" gorm:"-" bson:"metadata,omitempty"`

	// Bindings are cascade-deleted with the token.
	Bindings []TokenBinding `json:"-" gorm:"foreignKey:TokenID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" bson:"-"`
}

// TableName returns the database table name for VerificationToken.
func (VerificationToken) TableName() string { return "verification_tokens" }

// MetadataFromBindings rebuilds Metadata from the loaded Bindings.
func (t *VerificationToken) MetadataFromBindings() {
	if len(t.Bindings) == 0 {
		return
	}
	t.Metadata = make(map[string]string, len(t.Bindings))
	for _, b := range t.Bindings {
		t.Metadata[b.Key] = b.Value
	}
}

// TokenBinding is one short-URL identifier attached to a verification token.
// (token_id, key) is unique so re-binding a key overwrites its value.
type TokenBinding struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	TokenID string `gorm:"type:char(36);not null;uniqueIndex:ux_binding_token_key,priority:1"`
	Key     string `gorm:"type:varchar(64);not null;uniqueIndex:ux_binding_token_key,priority:2"`
	Value   string `gorm:"type:text;not null"`
}

// TableName returns the database table name for TokenBinding.
func (TokenBinding) TableName() string { return "token_bindings" }

// UsedToken is an append-only ledger entry recording that a token value was
// consumed. It is keyed by token value only and is independent of the
// VerificationToken.Used flag.
type UsedToken struct {
	ID     string    `json:"-"       gorm:"type:char(36);primaryKey" bson:"-"`
	Token  string    `json:"token"   gorm:"type:varchar(64);not null;index" bson:"token"`
	UserID int64     `json:"user_id" gorm:"not null" bson:"user_id"`
	UsedAt time.Time `json:"used_at" bson:"used_at"`
}

// TableName returns the database table name for UsedToken.
func (UsedToken) TableName() string { return "used_tokens" }

// CommentKind selects which discussion-thread registry a CommentRef lives in.
type CommentKind string

const (
	CommentAnime   CommentKind = "anime"
	CommentEpisode CommentKind = "episode"
)

// Valid reports whether k names a known registry.
func (k CommentKind) Valid() bool {
	return k == CommentAnime || k == CommentEpisode
}

// CommentRef maps a catalog title to the message id of the discussion thread
// posted for it. Titles are unique within a registry.
type CommentRef struct {
	ID        string    `json:"-"          gorm:"type:char(36);primaryKey" bson:"-"`
	MessageID int64     `json:"message_id" gorm:"not null" bson:"msg_id"`
	Title     string    `json:"title"      gorm:"type:varchar(512);not null;uniqueIndex" bson:"title"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// AnimeComment is a CommentRef in the anime-level registry.
type AnimeComment struct {
	CommentRef `bson:",inline"`
}

// TableName returns the database table name for AnimeComment.
func (AnimeComment) TableName() string { return "anime_comments" }

// EpisodeComment is a CommentRef in the episode-level registry.
type EpisodeComment struct {
	CommentRef `bson:",inline"`
}

// TableName returns the database table name for EpisodeComment.
func (EpisodeComment) TableName() string { return "episode_comments" }
