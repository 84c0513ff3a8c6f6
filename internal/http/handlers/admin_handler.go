// Admin HTTP handlers. The router mounts them behind middleware.RequireAdmin.
//
//   - GET    /admin/users            (paginated ids, weak ETag)
//   - DELETE /admin/users/{id}
//   - PUT    /admin/users/{id}/ban
//   - DELETE /admin/users/{id}/ban
//   - POST   /admin/tokens/cleanup
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/anidl-backend/internal/http/middleware"
	"github.com/tbourn/anidl-backend/internal/utils"
)

// ListUsersResponse is a page of user ids, e.g. for broadcast fan-out.
type ListUsersResponse struct {
	UserIDs    []int64    `json:"user_ids"`
	Pagination Pagination `json:"pagination"`
}

// CleanupResponse reports how many token records a sweep removed.
type CleanupResponse struct {
	Deleted int64 `json:"deleted" example:"12"`
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List user ids (paginated)
// @Description Returns user ids in ascending order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  true   "Admin secret"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListUsersResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Admin token required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if st, err := h.users.Stats(ctx); err == nil {
		var ts int64
		if st.LastRegistered != nil {
			ts = st.LastRegistered.UnixNano()
		}
		etag := fmt.Sprintf(`W/"users:%d:%d:%d:%d"`, st.Total, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	ids, err := h.users.ListIDs(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	lo, hi := utils.PageBounds(len(ids), page, pageSize)
	pageIDs := ids[lo:hi]
	if pageIDs == nil {
		pageIDs = []int64{}
	}
	ok(c, http.StatusOK, ListUsersResponse{
		UserIDs:    pageIDs,
		Pagination: newPagination(page, pageSize, int64(len(ids))),
	})
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Tags        Admin
// @Param       X-Admin-Token  header  string  true  "Admin secret"
// @Param       id             path    int     true  "Chat user id"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Admin token required"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, okID := pathUserID(c)
	if !okID {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Int64("target_user", id).Msg("user deleted")
	noContent(c)
}

// BanUser godoc
// @ID          banUser
// @Summary     Ban a user
// @Description Sets the ban flag; an unknown user is created already banned.
// @Tags        Admin
// @Param       X-Admin-Token  header  string  true  "Admin secret"
// @Param       id             path    int     true  "Chat user id"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Admin token required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users/{id}/ban [put]
func (h *Handlers) BanUser(c *gin.Context) {
	h.setBan(c, true)
}

// UnbanUser godoc
// @ID          unbanUser
// @Summary     Unban a user
// @Tags        Admin
// @Param       X-Admin-Token  header  string  true  "Admin secret"
// @Param       id             path    int     true  "Chat user id"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Admin token required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users/{id}/ban [delete]
func (h *Handlers) UnbanUser(c *gin.Context) {
	h.setBan(c, false)
}

func (h *Handlers) setBan(c *gin.Context, banned bool) {
	id, okID := pathUserID(c)
	if !okID {
		return
	}
	set := h.users.Unban
	if banned {
		set = h.users.Ban
	}
	if err := set(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Int64("target_user", id).Bool("banned", banned).Msg("ban flag set")
	noContent(c)
}

// CleanupTokens godoc
// @ID          cleanupTokens
// @Summary     Sweep old verification tokens
// @Description Deletes token records older than the cleanup age, used or not.
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  true  "Admin secret"
// @Success     200  {object}  handlers.CleanupResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Admin token required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/tokens/cleanup [post]
func (h *Handlers) CleanupTokens(c *gin.Context) {
	n, err := h.tokens.Cleanup(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CleanupResponse{Deleted: n})
}
