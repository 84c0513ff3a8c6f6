// User HTTP handlers.
//
//   - POST /users                    (register the X-User-ID user)
//   - GET  /users/{id}
//   - PUT  /users/{id}/search-count
//   - GET  /users/{id}/ban
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterUserRequest is the optional payload of POST /users.
type RegisterUserRequest struct {
	Username string `json:"username" binding:"max=255" example:"naruto_fan"`
}

// UpdateSearchCountRequest sets the search counter. Reset also restarts the
// search window at the current time.
type UpdateSearchCountRequest struct {
	Count *int `json:"count" binding:"required" example:"3"`
	Reset bool `json:"reset" example:"false"`
}

// BanStatusResponse reports a user's ban flag.
type BanStatusResponse struct {
	UserID int64 `json:"user_id"`
	Banned bool  `json:"banned"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register the acting user
// @Description Creates the user with default counters on first contact. Returns 201 when created and 200 when the user already existed.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  int  true   "Chat user id"
// @Param       body       body    handlers.RegisterUserRequest  false  "Username"
// @Success     201  {object}  domain.User
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	uid, okUser := actingUser(c)
	if !okUser {
		return
	}
	var req RegisterUserRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	u, created, err := h.users.EnsureRegistered(c.Request.Context(), uid, strings.TrimSpace(req.Username))
	if err != nil {
		failErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Param       id         path    int  true   "Chat user id"
// @Param       X-User-ID  header  int  false  "Acting user; must equal id unless admin"
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     403  {object}  handlers.ErrorResponse  "Another user's record"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, okID := pathUserID(c)
	if !okID {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateSearchCount godoc
// @ID          updateSearchCount
// @Summary     Set a user's search counter
// @Description Writes search_count; with reset=true last_reset moves to now. A missing user is created.
// @Tags        Users
// @Accept      json
// @Param       id         path    int  true   "Chat user id"
// @Param       X-User-ID  header  int  false  "Acting user; must equal id unless admin"
// @Param       body       body    handlers.UpdateSearchCountRequest  true  "Counter"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     403  {object}  handlers.ErrorResponse  "Another user's record"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id}/search-count [put]
func (h *Handlers) UpdateSearchCount(c *gin.Context) {
	id, okID := pathUserID(c)
	if !okID {
		return
	}
	var req UpdateSearchCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count required")
		return
	}
	if err := h.users.UpdateSearchCount(c.Request.Context(), id, *req.Count, req.Reset); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// GetBanStatus godoc
// @ID          getBanStatus
// @Summary     Check whether a user is banned
// @Description Unknown users are reported as not banned.
// @Tags        Users
// @Produce     json
// @Param       id  path  int  true  "Chat user id"
// @Success     200  {object}  handlers.BanStatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id}/ban [get]
func (h *Handlers) GetBanStatus(c *gin.Context) {
	id, okID := pathUserID(c)
	if !okID {
		return
	}
	banned, err := h.users.IsBanned(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, BanStatusResponse{UserID: id, Banned: banned})
}
