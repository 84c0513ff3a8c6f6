// Catalog HTTP handlers.
//
//   - GET /catalog/search?q=
//   - GET /catalog/episodes?url=
//   - GET /catalog/downloads?url=
//   - GET /catalog/titles/decode?value=&download=
//   - GET /catalog/titles/encode?title=
//
// Upstream failures are reported as 502 fetch_failed so the bot can ask the
// user to retry.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// EntriesResponse wraps a catalog or episode listing.
type EntriesResponse struct {
	Entries []domain.EpisodeEntry `json:"entries"`
	Count   int                   `json:"count"`
}

// TitleResponse carries a converted title.
type TitleResponse struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func entries(rows []domain.EpisodeEntry) EntriesResponse {
	if rows == nil {
		rows = []domain.EpisodeEntry{}
	}
	return EntriesResponse{Entries: rows, Count: len(rows)}
}

// SearchCatalog godoc
// @ID          searchCatalog
// @Summary     Search the catalog
// @Description Rewrites the query with the search table and returns the matching series.
// @Tags        Catalog
// @Produce     json
// @Param       q  query  string  true  "Search text"  example(one piece)
// @Success     200  {object}  handlers.EntriesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty query"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream fetch failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /catalog/search [get]
func (h *Handlers) SearchCatalog(c *gin.Context) {
	rows, err := h.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, entries(rows))
}

// ListEpisodes godoc
// @ID          listEpisodes
// @Summary     List the episodes of a series page
// @Tags        Catalog
// @Produce     json
// @Param       url  query  string  true  "Series page URL on the catalog host"
// @Success     200  {object}  handlers.EntriesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Foreign or missing URL"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream fetch failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /catalog/episodes [get]
func (h *Handlers) ListEpisodes(c *gin.Context) {
	rows, err := h.catalog.Episodes(c.Request.Context(), strings.TrimSpace(c.Query("url")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, entries(rows))
}

// ListDownloads godoc
// @ID          listDownloads
// @Summary     List the downloads of an episode page
// @Tags        Catalog
// @Produce     json
// @Param       url  query  string  true  "Episode page URL on the catalog host"
// @Success     200  {object}  domain.DownloadPage
// @Failure     400  {object}  handlers.ErrorResponse  "Foreign or missing URL"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream fetch failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /catalog/downloads [get]
func (h *Handlers) ListDownloads(c *gin.Context) {
	page, err := h.catalog.Downloads(c.Request.Context(), strings.TrimSpace(c.Query("url")))
	if err != nil {
		failErr(c, err)
		return
	}
	if page.Downloads == nil {
		page.Downloads = []domain.DownloadEntry{}
	}
	ok(c, http.StatusOK, page)
}

// DecodeTitle godoc
// @ID          decodeTitle
// @Summary     Decode a callback title
// @Description Turns the encoded form carried in bot callbacks back into a display title. download=true keeps the episode label.
// @Tags        Catalog
// @Produce     json
// @Param       value     query  string  true   "Encoded title"
// @Param       download  query  bool    false  "Episode payload"
// @Success     200  {object}  handlers.TitleResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing value"
// @Router      /catalog/titles/decode [get]
func (h *Handlers) DecodeTitle(c *gin.Context) {
	value := c.Query("value")
	if value == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value query parameter required")
		return
	}
	out := value
	if h.titles != nil {
		if download, _ := strconv.ParseBool(c.Query("download")); download {
			out = h.titles.ConvertDownloadTitle(value)
		} else {
			out = h.titles.ConvertTitle(value)
		}
	}
	ok(c, http.StatusOK, TitleResponse{Input: value, Output: out})
}

// EncodeTitle godoc
// @ID          encodeTitle
// @Summary     Encode a title for a bot callback
// @Tags        Catalog
// @Produce     json
// @Param       title  query  string  true  "Display title"
// @Success     200  {object}  handlers.TitleResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing title"
// @Router      /catalog/titles/encode [get]
func (h *Handlers) EncodeTitle(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title query parameter required")
		return
	}
	out := title
	if h.titles != nil {
		out = h.titles.Encode(title)
	}
	ok(c, http.StatusOK, TitleResponse{Input: title, Output: out})
}
