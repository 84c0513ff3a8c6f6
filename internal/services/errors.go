// Package services defines the business logic for verification tokens, bot
// users, discussion-thread registries and catalog browsing. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Token-related errors.
var (
	// ErrInvalidToken is returned by Redeem when no unused, unexpired token
	// matches the user and value.
	ErrInvalidToken = errors.New("token is invalid or expired")

	// ErrTokenConsumed is returned by Redeem when the token value was already
	// consumed through either the token flag or the usage ledger.
	ErrTokenConsumed = errors.New("token already used")

	// ErrEmptyToken is returned when a token value is blank.
	ErrEmptyToken = errors.New("token is empty")

	// ErrInvalidMetadataKey is returned by Bind for a blank key, a key that
	// contains '.', or one that starts with '$'.
	ErrInvalidMetadataKey = errors.New("invalid metadata key")
)

// User-related errors.
var (
	// ErrUserNotFound indicates that no user document exists for the id.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned by Register when the id is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidUserID is returned for non-positive chat user ids.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrNegativeCount is returned when a search count below zero is written.
	ErrNegativeCount = errors.New("search count must be >= 0")
)

// Comment registry errors.
var (
	// ErrCommentExists is returned when a title already has a thread.
	ErrCommentExists = errors.New("comment thread already registered")

	// ErrEmptyTitle is returned when a registry title is blank.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrUnknownCommentKind is returned for a registry other than anime or episode.
	ErrUnknownCommentKind = errors.New("unknown comment kind")
)

// Catalog errors.
var (
	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrForeignURL is returned when a target URL is not on the upstream host.
	ErrForeignURL = errors.New("url is not on the catalog host")

	// ErrFetchFailed means the upstream page could not be retrieved; the
	// caller should ask the user to try again.
	ErrFetchFailed = errors.New("upstream fetch failed")
)
