package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/tbourn/anidl-backend/internal/domain"
)

// Upstream markup selectors.
const (
	selListingRow  = "td.c_h2, td.c_h2b"
	selEpisodeRow  = "div.episode.c_h2, div.episode.c_h2b"
	selDownloadRow = ".c_h2, .c_h2b"
	selFileInfo    = ".finfo"
	selNavigation  = "div.fsplit"
	selNavPrev     = "a.nfl"
	selNavNext     = "a.nfr"

	commentSuffix = "/comment"
	uploadMarker  = "upload"
	sizeLabel     = "Size:"
	addedOnLabel  = "Added On:"
	infoSeparator = "|"
)

func newDocument(page string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

// ParseListing extracts {title, url} rows from a catalog search/listing page.
// Each row's first linked anchor must carry non-empty text; its href is
// resolved against pageURL. Page order is preserved and rows are not
// deduplicated.
func ParseListing(page, pageURL string) ([]domain.EpisodeEntry, error) {
	doc, err := newDocument(page)
	if err != nil {
		return nil, err
	}
	out := []domain.EpisodeEntry{}
	doc.Find(selListingRow).Each(func(_ int, row *goquery.Selection) {
		title, href, ok := firstLinkedAnchor(row)
		if !ok {
			return
		}
		out = append(out, domain.EpisodeEntry{Title: title, URL: joinURL(pageURL, href)})
	})
	return out, nil
}

// ParseEpisodes extracts the episode rows of a series page. Rows whose title
// starts with "upload" are administrative and skipped. A non-empty italic
// label is appended as "<title> - <label>" after dropping a leading colon.
func ParseEpisodes(page, pageURL string) ([]domain.EpisodeEntry, error) {
	doc, err := newDocument(page)
	if err != nil {
		return nil, err
	}
	out := []domain.EpisodeEntry{}
	doc.Find(selEpisodeRow).Each(func(_ int, row *goquery.Selection) {
		title, href, ok := firstLinkedAnchor(row)
		if !ok || strings.HasPrefix(title, uploadMarker) {
			return
		}
		if label := row.Find("i").First(); label.Length() > 0 {
			sub := strings.TrimSpace(label.Text())
			sub = strings.TrimSpace(strings.TrimPrefix(sub, ":"))
			if sub != "" {
				title = title + " - " + sub
			}
		}
		out = append(out, domain.EpisodeEntry{Title: title, URL: joinURL(pageURL, href)})
	})
	return out, nil
}

// ParseDownloads extracts the download entries and the prev/next navigation
// of an episode page. Relative links are resolved against baseURL. A row
// without a usable download anchor is dropped; missing file metadata becomes
// domain.NotAvailable.
func ParseDownloads(page, baseURL string) (*domain.DownloadPage, error) {
	doc, err := newDocument(page)
	if err != nil {
		return nil, err
	}
	res := &domain.DownloadPage{Downloads: []domain.DownloadEntry{}}
	doc.Find(selDownloadRow).Each(func(_ int, row *goquery.Selection) {
		if entry, ok := parseDownloadRow(row, baseURL); ok {
			res.Downloads = append(res.Downloads, entry)
		}
	})
	res.Navigation = parseNavigation(doc.Selection, baseURL)
	return res, nil
}

func parseDownloadRow(row *goquery.Selection, baseURL string) (domain.DownloadEntry, bool) {
	container := row.Find("div").First()
	if container.Length() == 0 {
		return domain.DownloadEntry{}, false
	}
	link := container.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		return href != "" && !strings.HasSuffix(href, commentSuffix)
	}).First()
	if link.Length() == 0 {
		return domain.DownloadEntry{}, false
	}
	href, _ := link.Attr("href")

	entry := domain.DownloadEntry{
		Title:        strings.TrimSpace(link.Text()),
		DownloadLink: ResolveURL(baseURL, href),
		Size:         domain.NotAvailable,
		Language:     domain.NotAvailable,
		AddedOn:      domain.NotAvailable,
	}

	finfo := row.Find(selFileInfo).First()
	if finfo.Length() == 0 {
		return entry, true
	}
	if span := finfo.Find("span").First(); span.Length() > 0 {
		if class, ok := span.Attr("class"); ok {
			if fields := strings.Fields(class); len(fields) > 0 {
				entry.Language = fields[0]
			}
		}
	}
	entry.Size, entry.AddedOn = fileInfoFields(textSegments(finfo))
	return entry, true
}

func parseNavigation(doc *goquery.Selection, baseURL string) domain.PageNavigation {
	var nav domain.PageNavigation
	box := doc.Find(selNavigation).First()
	if box.Length() == 0 {
		return nav
	}
	if href, ok := box.Find(selNavPrev).First().Attr("href"); ok && href != "" {
		nav.PreviousURL = ResolveURL(baseURL, href)
	}
	if href, ok := box.Find(selNavNext).First().Attr("href"); ok && href != "" {
		nav.NextURL = ResolveURL(baseURL, href)
	}
	return nav
}

// ParseFileInfo reads size and upload date from a file-info text whose
// fields are separated by "|", e.g. "Size:|250MB|Added On:|2024-01-01".
func ParseFileInfo(text string) (size, addedOn string) {
	return fileInfoFields(splitSegments(text))
}

// fileInfoFields returns the items following the "Size:" and "Added On:"
// labels, or domain.NotAvailable for each one that is missing.
func fileInfoFields(items []string) (size, addedOn string) {
	size, addedOn = domain.NotAvailable, domain.NotAvailable
	for i, item := range items {
		switch {
		case strings.HasPrefix(item, sizeLabel):
			size = itemAfter(items, i)
		case strings.HasPrefix(item, addedOnLabel):
			addedOn = itemAfter(items, i)
		}
	}
	return size, addedOn
}

func itemAfter(items []string, i int) string {
	if i+1 < len(items) {
		return items[i+1]
	}
	return domain.NotAvailable
}

// textSegments joins every text node under sel with the separator and
// splits it back into trimmed, non-empty items.
func textSegments(sel *goquery.Selection) []string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return splitSegments(strings.Join(parts, infoSeparator))
}

func splitSegments(text string) []string {
	out := []string{}
	for _, s := range strings.Split(text, infoSeparator) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstLinkedAnchor returns the trimmed text and href of the first anchor
// with an href inside row. ok is false when there is none or its text is
// blank.
func firstLinkedAnchor(row *goquery.Selection) (title, href string, ok bool) {
	a := row.Find("a[href]").First()
	if a.Length() == 0 {
		return "", "", false
	}
	title = strings.TrimSpace(a.Text())
	if title == "" {
		return "", "", false
	}
	href, _ = a.Attr("href")
	return title, href, true
}

// ResolveURL makes href absolute on base. Hrefs that already start with
// "http" are returned unchanged.
func ResolveURL(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return joinURL(strings.TrimRight(base, "/")+"/", href)
}

// joinURL resolves ref against page the way a browser would.
func joinURL(page, ref string) string {
	pu, err := url.Parse(page)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return pu.ResolveReference(ru).String()
}
