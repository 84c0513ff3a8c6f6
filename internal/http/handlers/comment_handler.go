// Discussion-thread registry handlers.
//
//   - GET /comments/{kind}?title=   (look up a thread)
//   - PUT /comments/{kind}          (register a thread)
//
// kind is "anime" or "episode".
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// SaveCommentRequest registers the message id of a title's thread.
type SaveCommentRequest struct {
	Title     string `json:"title" binding:"required,max=512" example:"One Piece"`
	MessageID int64  `json:"message_id" binding:"required" example:"4821"`
}

// GetComment godoc
// @ID          getComment
// @Summary     Look up a discussion thread
// @Tags        Comments
// @Produce     json
// @Param       kind   path   string  true  "Registry"  Enums(anime, episode)
// @Param       title  query  string  true  "Catalog title"
// @Success     200  {object}  domain.CommentRef
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No thread for title"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /comments/{kind} [get]
func (h *Handlers) GetComment(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title query parameter required")
		return
	}
	kind := domain.CommentKind(c.Param("kind"))
	ref, found, err := h.comments.Get(c.Request.Context(), kind, title)
	if err != nil {
		failErr(c, err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no thread registered for title")
		return
	}
	ok(c, http.StatusOK, ref)
}

// SaveComment godoc
// @ID          saveComment
// @Summary     Register a discussion thread
// @Description A title can be registered once per registry; a second registration is a conflict.
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Param       kind  path  string  true  "Registry"  Enums(anime, episode)
// @Param       body  body  handlers.SaveCommentRequest  true  "Thread"
// @Success     201  {object}  domain.CommentRef
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /comments/{kind} [put]
func (h *Handlers) SaveComment(c *gin.Context) {
	var req SaveCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and message_id required")
		return
	}
	kind := domain.CommentKind(c.Param("kind"))
	ref, err := h.comments.Save(c.Request.Context(), kind, req.Title, req.MessageID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ref)
}
