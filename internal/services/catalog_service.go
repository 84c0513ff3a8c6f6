// Package services – CatalogService
//
// CatalogService fetches upstream catalog pages and parses them into search
// results, episode listings and download pages. Target URLs must live on the
// configured upstream host. A failed fetch surfaces as ErrFetchFailed so the
// caller can ask the user to try again; a malformed row is dropped by the
// parser without failing the page.
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/anidl-backend/internal/domain"
	"github.com/tbourn/anidl-backend/internal/scraper"
	"github.com/tbourn/anidl-backend/internal/textnorm"
)

// DefaultSearchPath is the upstream search endpoint; %s is the escaped query.
const DefaultSearchPath = "/anime/search?k=%s"

// CatalogService implements catalog browsing.
type CatalogService struct {
	Fetcher scraper.Fetcher
	// BaseURL is the upstream site root, e.g. https://www.tokyoinsider.com.
	BaseURL string
	// SearchPath is appended to BaseURL; it must contain one %s.
	SearchPath string
	// Replacer, when set, rewrites user queries before searching.
	Replacer *textnorm.Replacer
}

// NewCatalogService constructs a CatalogService with the default search path.
func NewCatalogService(f scraper.Fetcher, baseURL string, r *textnorm.Replacer) *CatalogService {
	if baseURL == "" {
		baseURL = scraper.DefaultBaseURL
	}
	return &CatalogService{
		Fetcher:    f,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SearchPath: DefaultSearchPath,
		Replacer:   r,
	}
}

func catalogSpan(ctx context.Context, name, target string) (context.Context, trace.Span) {
	return otel.Tracer("services/CatalogService").Start(ctx, name,
		trace.WithAttributes(attribute.String("catalog.url", target)))
}

// SearchURL returns the upstream search URL for query.
func (s *CatalogService) SearchURL(query string) string {
	path := s.SearchPath
	if path == "" {
		path = DefaultSearchPath
	}
	return s.BaseURL + fmt.Sprintf(path, url.QueryEscape(query))
}

// Search returns the catalog rows matching query.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.EpisodeEntry, error) {
	query = textnorm.CleanText(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.Replacer != nil {
		query = s.Replacer.Search(query)
	}
	target := s.SearchURL(query)
	ctx, span := catalogSpan(ctx, "Search", target)
	defer span.End()

	page, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	rows, err := scraper.ParseListing(page, target)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.rows", len(rows)))
	return rows, nil
}

// Episodes returns the episode rows of the series page at target.
func (s *CatalogService) Episodes(ctx context.Context, target string) ([]domain.EpisodeEntry, error) {
	ctx, span := catalogSpan(ctx, "Episodes", target)
	defer span.End()

	if err := s.checkURL(target); err != nil {
		return nil, err
	}
	page, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	rows, err := scraper.ParseEpisodes(page, target)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.rows", len(rows)))
	return rows, nil
}

// Downloads returns the download entries and navigation of the episode page
// at target.
func (s *CatalogService) Downloads(ctx context.Context, target string) (*domain.DownloadPage, error) {
	ctx, span := catalogSpan(ctx, "Downloads", target)
	defer span.End()

	if err := s.checkURL(target); err != nil {
		return nil, err
	}
	page, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	res, err := scraper.ParseDownloads(page, s.BaseURL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.rows", len(res.Downloads)))
	return res, nil
}

func (s *CatalogService) fetch(ctx context.Context, target string) (string, error) {
	page, err := s.Fetcher.Fetch(ctx, target)
	if err != nil {
		if scraper.IsFetchError(err) {
			return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		return "", err
	}
	return page, nil
}

// checkURL requires target to be an absolute http(s) URL on the upstream host.
func (s *CatalogService) checkURL(target string) error {
	tu, err := url.Parse(target)
	if err != nil || (tu.Scheme != "http" && tu.Scheme != "https") {
		return ErrForeignURL
	}
	bu, err := url.Parse(s.BaseURL)
	if err != nil || !strings.EqualFold(tu.Hostname(), bu.Hostname()) {
		return ErrForeignURL
	}
	return nil
}
