package domain

// NotAvailable is the placeholder used for file metadata that could not be
// read from a download row.
const NotAvailable = "N/A"

// EpisodeEntry is one row of a catalog listing or an episode listing.
type EpisodeEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DownloadEntry is one downloadable file listed on an episode page.
type DownloadEntry struct {
	Title        string `json:"title"`
	DownloadLink string `json:"download_link"`
	Size         string `json:"size"`
	Language     string `json:"language"`
	AddedOn      string `json:"added_on"`
}

// PageNavigation holds the absolute previous/next links of a paginated page.
// Empty strings mean the link is absent.
type PageNavigation struct {
	PreviousURL string `json:"previous_url,omitempty"`
	NextURL     string `json:"next_url,omitempty"`
}

// DownloadPage is the parsed result of an episode download page.
type DownloadPage struct {
	Downloads  []DownloadEntry `json:"downloads"`
	Navigation PageNavigation  `json:"navigation"`
}
