// Package handlers exposes the bot backend over HTTP.
//
// Handlers are transport-thin: they validate input, call the services and
// translate results into JSON (see response.go for the envelope). The acting
// chat user comes from middleware.UserIdentity; admin routes are guarded by
// middleware.RequireAdmin in the router.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/anidl-backend/internal/domain"
	"github.com/tbourn/anidl-backend/internal/http/middleware"
	"github.com/tbourn/anidl-backend/internal/services"
	"github.com/tbourn/anidl-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// TokenService is the verification-token lifecycle.
type TokenService interface {
	Issue(ctx context.Context, userID int64) (*domain.VerificationToken, error)
	Bind(ctx context.Context, userID int64, token string, metadata map[string]string) error
	Lookup(ctx context.Context, userID int64, token string) (*domain.VerificationToken, error)
	IsConsumed(ctx context.Context, token string) (bool, error)
	Redeem(ctx context.Context, userID int64, token string) error
	Cleanup(ctx context.Context) (int64, error)
}

// UserService is the bot user registry and moderation flags.
type UserService interface {
	EnsureRegistered(ctx context.Context, id int64, username string) (*domain.User, bool, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	ListIDs(ctx context.Context) ([]int64, error)
	Stats(ctx context.Context) (services.UserStats, error)
	UpdateSearchCount(ctx context.Context, id int64, count int, resetWindow bool) error
	Ban(ctx context.Context, id int64) error
	Unban(ctx context.Context, id int64) error
	IsBanned(ctx context.Context, id int64) (bool, error)
}

// CommentService is the pair of discussion-thread registries.
type CommentService interface {
	Save(ctx context.Context, kind domain.CommentKind, title string, messageID int64) (*domain.CommentRef, error)
	Get(ctx context.Context, kind domain.CommentKind, title string) (*domain.CommentRef, bool, error)
}

// CatalogService browses the upstream catalog.
type CatalogService interface {
	Search(ctx context.Context, query string) ([]domain.EpisodeEntry, error)
	Episodes(ctx context.Context, target string) ([]domain.EpisodeEntry, error)
	Downloads(ctx context.Context, target string) (*domain.DownloadPage, error)
}

// TitleCodec converts between display titles and the catalog's encoded form.
// *textnorm.Replacer implements it.
type TitleCodec interface {
	Encode(s string) string
	ConvertTitle(s string) string
	ConvertDownloadTitle(s string) string
}

//
// Handler wiring
//

// Deps bundles the services the handlers depend on. Titles may be nil, in
// which case the title endpoints return the input unchanged.
type Deps struct {
	Tokens   TokenService
	Users    UserService
	Comments CommentService
	Catalog  CatalogService
	Titles   TitleCodec
}

// Handlers groups every HTTP endpoint of the API.
type Handlers struct {
	tokens   TokenService
	users    UserService
	comments CommentService
	catalog  CatalogService
	titles   TitleCodec
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		tokens:   d.Tokens,
		users:    d.Users,
		comments: d.Comments,
		catalog:  d.Catalog,
		titles:   d.Titles,
	}
}

//
// Helpers
//

// actingUser returns the X-User-ID identity or writes a 401.
func actingUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserIDFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID header must be a positive integer")
	}
	return id, ok
}

// pathUserID parses the :id path parameter or writes a 400.
func pathUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return 0, false
	}
	return id, true
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page and page_size, bounding them to [1, 100].
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
