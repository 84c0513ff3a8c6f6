// Package scraper retrieves catalog pages from the upstream anime site and
// turns their markup into typed records.
//
// The Fetcher performs a GET with a randomized browser header set, optionally
// through a relay that takes the target as a query parameter, and always
// decodes the body as UTF-8. Failures are reported as *FetchError values so
// callers can treat them as "no data" rather than fatal.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
)

// DefaultBaseURL is the upstream catalog site.
const DefaultBaseURL = "https://www.tokyoinsider.com"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// DefaultUserAgents is the fallback User-Agent pool.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Fetcher retrieves the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// FetchError reports a failed fetch. Status is zero for network failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

var (
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_fetch_total",
			Help: "Upstream page fetches by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "Upstream page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(fetchTotal, fetchDuration)
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	Client *http.Client
	// BaseURL is sent as the Referer.
	BaseURL string
	// WorkerURL, when set, relays every request as WorkerURL?url=<target>.
	WorkerURL  string
	UserAgents []string
}

// NewHTTPFetcher builds a fetcher with the given request timeout. A timeout
// of zero or less is rejected.
func NewHTTPFetcher(baseURL, workerURL string, userAgents []string, timeout time.Duration) (*HTTPFetcher, error) {
	if timeout <= 0 {
		return nil, errors.New("scraper: fetch timeout must be > 0")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	return &HTTPFetcher{
		Client:     &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		WorkerURL:  workerURL,
		UserAgents: userAgents,
	}, nil
}

// Fetch GETs target and returns its body decoded as UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	start := time.Now()
	body, err := f.fetch(ctx, target)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchTotal.WithLabelValues("error").Inc()
		ev := log.Warn().Err(err).Str("url", target)
		var fe *FetchError
		if errors.As(err, &fe) && fe.Status != 0 {
			ev = ev.Int("status", fe.Status)
		}
		ev.Msg("upstream fetch failed")
		return "", err
	}
	fetchTotal.WithLabelValues("ok").Inc()
	return body, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(target), nil)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}
	f.setHeaders(req)

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{URL: target, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	// The declared charset is ignored; upstream pages are UTF-8.
	dec := unicode.UTF8.NewDecoder().Reader(io.LimitReader(resp.Body, maxBodyBytes))
	raw, err := io.ReadAll(dec)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}
	return string(raw), nil
}

func (f *HTTPFetcher) requestURL(target string) string {
	if f.WorkerURL == "" {
		return target
	}
	sep := "?"
	if strings.Contains(f.WorkerURL, "?") {
		sep = "&"
	}
	return f.WorkerURL + sep + "url=" + url.QueryEscape(target)
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", f.BaseURL+"/")
	req.Header.Set("DNT", "1")
}

func (f *HTTPFetcher) userAgent() string {
	pool := f.UserAgents
	if len(pool) == 0 {
		pool = DefaultUserAgents
	}
	return pool[rand.IntN(len(pool))]
}
