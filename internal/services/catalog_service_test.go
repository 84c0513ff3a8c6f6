package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/anidl-backend/internal/scraper"
	"github.com/tbourn/anidl-backend/internal/textnorm"
)

const catalogBase = "https://www.tokyoinsider.com"

// fakeFetcher serves canned pages keyed by URL and records requests.
type fakeFetcher struct {
	pages map[string]string
	err   error
	urls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, target string) (string, error) {
	f.urls = append(f.urls, target)
	if f.err != nil {
		return "", f.err
	}
	page, ok := f.pages[target]
	if !ok {
		return "", &scraper.FetchError{URL: target, Status: 404, Err: errors.New("Not Found")}
	}
	return page, nil
}

func TestCatalogService_SearchURL(t *testing.T) {
	svc := NewCatalogService(&fakeFetcher{}, catalogBase+"/", nil)
	if got, want := svc.SearchURL("one piece&x"), catalogBase+"/anime/search?k=one+piece%26x"; got != want {
		t.Fatalf("SearchURL = %q; want %q", got, want)
	}
	svc.SearchPath = "/search/%s"
	if got, want := svc.SearchURL("a b"), catalogBase+"/search/a+b"; got != want {
		t.Fatalf("SearchURL custom = %q; want %q", got, want)
	}
}

func TestCatalogService_Search(t *testing.T) {
	page := `<table><tr><td class="c_h2"><a href="/anime/S/Shingeki_no_Kyojin_(TV)">Shingeki no Kyojin (TV)</a></td></tr></table>`
	f := &fakeFetcher{pages: map[string]string{
		catalogBase + "/anime/search?k=Shingeki+no+Kyojin": page,
	}}
	r := textnorm.NewReplacer(nil, nil, []textnorm.Pair{{From: "attack on titan", To: "Shingeki no Kyojin"}})
	svc := NewCatalogService(f, catalogBase, r)

	rows, err := svc.Search(context.Background(), "  Attack   on\nTitan ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 || rows[0].URL != catalogBase+"/anime/S/Shingeki_no_Kyojin_(TV)" {
		t.Fatalf("rows = %+v (requested %v)", rows, f.urls)
	}

	if _, err := svc.Search(context.Background(), " \n "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestCatalogService_EpisodesAndDownloads(t *testing.T) {
	series := catalogBase + "/anime/N/Naruto_(TV)"
	episode := catalogBase + "/anime/N/Naruto_(TV)/episode/1"
	f := &fakeFetcher{pages: map[string]string{
		series: `<div class="episode c_h2"><a href="/anime/N/Naruto_(TV)/episode/1">Episode 1</a></div>`,
		episode: `<div class="c_h2"><div><a href="/download/naruto-01.mkv">[Group] Naruto 01.mkv</a></div>
<div class="finfo"><span class="lang_en"></span> Size: 350 MB | Added On: 2024-01-01</div></div>`,
	}}
	svc := NewCatalogService(f, catalogBase, nil)
	ctx := context.Background()

	eps, err := svc.Episodes(ctx, series)
	if err != nil {
		t.Fatalf("Episodes: %v", err)
	}
	if len(eps) != 1 || eps[0].URL != episode {
		t.Fatalf("episodes = %+v", eps)
	}

	dl, err := svc.Downloads(ctx, episode)
	if err != nil {
		t.Fatalf("Downloads: %v", err)
	}
	if len(dl.Downloads) != 1 || dl.Downloads[0].DownloadLink != catalogBase+"/download/naruto-01.mkv" {
		t.Fatalf("downloads = %+v", dl)
	}
}

func TestCatalogService_RejectsForeignURL(t *testing.T) {
	f := &fakeFetcher{}
	svc := NewCatalogService(f, catalogBase, nil)
	ctx := context.Background()

	for _, target := range []string{
		"https://evil.example.com/anime/N/Naruto_(TV)",
		"ftp://www.tokyoinsider.com/x",
		"/anime/N/Naruto_(TV)",
		"::not a url",
	} {
		if _, err := svc.Episodes(ctx, target); !errors.Is(err, ErrForeignURL) {
			t.Fatalf("Episodes(%q): expected ErrForeignURL, got %v", target, err)
		}
		if _, err := svc.Downloads(ctx, target); !errors.Is(err, ErrForeignURL) {
			t.Fatalf("Downloads(%q): expected ErrForeignURL, got %v", target, err)
		}
	}
	if len(f.urls) != 0 {
		t.Fatalf("foreign URLs must not be fetched, got %v", f.urls)
	}
}

func TestCatalogService_FetchFailure(t *testing.T) {
	svc := NewCatalogService(&fakeFetcher{pages: map[string]string{}}, catalogBase, nil)
	_, err := svc.Episodes(context.Background(), catalogBase+"/anime/missing")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}

	other := errors.New("context canceled")
	svc = NewCatalogService(&fakeFetcher{err: other}, catalogBase, nil)
	if _, err := svc.Search(context.Background(), "naruto"); !errors.Is(err, other) || errors.Is(err, ErrFetchFailed) {
		t.Fatalf("non-fetch errors pass through unchanged, got %v", err)
	}
}
