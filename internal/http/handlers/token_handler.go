// Verification token HTTP handlers.
//
//   - POST /tokens                   (issue or reuse the active token)
//   - PUT  /tokens/{token}/bindings  (attach short-link ids)
//   - GET  /tokens/{token}           (validity and consumed flag)
//   - POST /tokens/{token}/redeem    (consume and verify the user)
//
// All routes act on behalf of the X-User-ID user.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/anidl-backend/internal/http/middleware"
	"github.com/tbourn/anidl-backend/internal/services"
)

// TokenResponse is the issued token as seen by the bot.
type TokenResponse struct {
	Token     string            `json:"token" example:"a8Kx0PqR3sTuVw12"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// BindTokenRequest carries the short-link ids to attach to a token.
type BindTokenRequest struct {
	Metadata map[string]string `json:"metadata" binding:"required" example:"ouo:Xy12ab"`
}

// TokenStatusResponse reports whether a token can still be redeemed.
type TokenStatusResponse struct {
	Token    string            `json:"token"`
	Valid    bool              `json:"valid"`
	Consumed bool              `json:"consumed"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IssueToken godoc
// @ID          issueToken
// @Summary     Issue a verification token
// @Description Returns the user's active token, or creates one when the user has none within the TTL.
// @Tags        Tokens
// @Produce     json
// @Param       X-User-ID  header  int  true  "Chat user id"  example(123456789)
// @Success     200  {object}  handlers.TokenResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tokens [post]
func (h *Handlers) IssueToken(c *gin.Context) {
	uid, okUser := actingUser(c)
	if !okUser {
		return
	}
	tok, err := h.tokens.Issue(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TokenResponse{Token: tok.Token, CreatedAt: tok.CreatedAt, Metadata: tok.Metadata})
}

// BindToken godoc
// @ID          bindToken
// @Summary     Attach short-link ids to a token
// @Description Overwrites the given keys on the user's token, creating the record when missing.
// @Tags        Tokens
// @Accept      json
// @Param       X-User-ID  header  int     true  "Chat user id"
// @Param       token      path    string  true  "Token value"
// @Param       body       body    handlers.BindTokenRequest  true  "Bindings"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tokens/{token}/bindings [put]
func (h *Handlers) BindToken(c *gin.Context) {
	uid, okUser := actingUser(c)
	if !okUser {
		return
	}
	var req BindTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "metadata object required")
		return
	}
	if err := h.tokens.Bind(c.Request.Context(), uid, c.Param("token"), req.Metadata); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// GetToken godoc
// @ID          getToken
// @Summary     Check a token
// @Description Reports whether the token is valid for the user and whether its value was already consumed.
// @Tags        Tokens
// @Produce     json
// @Param       X-User-ID  header  int     true  "Chat user id"
// @Param       token      path    string  true  "Token value"
// @Success     200  {object}  handlers.TokenStatusResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tokens/{token} [get]
func (h *Handlers) GetToken(c *gin.Context) {
	uid, okUser := actingUser(c)
	if !okUser {
		return
	}
	ctx := c.Request.Context()
	value := c.Param("token")

	resp := TokenStatusResponse{Token: value}
	tok, err := h.tokens.Lookup(ctx, uid, value)
	switch {
	case err == nil:
		resp.Valid = true
		resp.Metadata = tok.Metadata
	case !errors.Is(err, services.ErrInvalidToken):
		failErr(c, err)
		return
	}
	if resp.Consumed, err = h.tokens.IsConsumed(ctx, value); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// RedeemToken godoc
// @ID          redeemToken
// @Summary     Redeem a token
// @Description Consumes the token, records it in the usage ledger and marks the user verified.
// @Tags        Tokens
// @Param       X-User-ID  header  int     true  "Chat user id"
// @Param       token      path    string  true  "Token value"
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     404  {object}  handlers.ErrorResponse  "Invalid or expired token"
// @Failure     409  {object}  handlers.ErrorResponse  "Token already used"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tokens/{token}/redeem [post]
func (h *Handlers) RedeemToken(c *gin.Context) {
	uid, okUser := actingUser(c)
	if !okUser {
		return
	}
	if err := h.tokens.Redeem(c.Request.Context(), uid, c.Param("token")); err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Msg("token redeemed")
	noContent(c)
}
