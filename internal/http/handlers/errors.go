// Package handlers defines the error codes returned in API error envelopes
// and the mapping from service errors to HTTP statuses.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP semantics; the
// domain codes let the bot branch on outcomes the status alone cannot carry
// (an expired token and a consumed one are both client errors, but the bot
// answers them differently).
package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/anidl-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeTokenUsed    = "token_used"
	ErrCodeFetchFailed  = "fetch_failed"
	ErrCodeForeignURL   = "foreign_url"
)

// serviceErrors maps service sentinels to (status, code).
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrInvalidToken, http.StatusNotFound, ErrCodeInvalidToken},
	{services.ErrTokenConsumed, http.StatusConflict, ErrCodeTokenUsed},
	{services.ErrEmptyToken, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidMetadataKey, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrUserExists, http.StatusConflict, ErrCodeConflict},
	{services.ErrInvalidUserID, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNegativeCount, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrCommentExists, http.StatusConflict, ErrCodeConflict},
	{services.ErrEmptyTitle, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrUnknownCommentKind, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrEmptyQuery, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrForeignURL, http.StatusBadRequest, ErrCodeForeignURL},
	{services.ErrFetchFailed, http.StatusBadGateway, ErrCodeFetchFailed},
}

// classify returns the HTTP status and code for err. Unknown errors are 500.
func classify(err error) (int, string) {
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
