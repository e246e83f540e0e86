package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
)

const (
	googleBooksBaseURL  = "https://www.googleapis.com/books/v1"
	openLibraryBaseURL  = "https://covers.openlibrary.org"
	searchMaxResults    = 20
	coverMinContentSize = 1000
)

// Volume is a normalized catalog search hit.
type Volume struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Publisher     string `json:"publisher"`
	ISBN          string `json:"isbn"`
	CoverURL      string `json:"cover_url"`
	Description   string `json:"description"`
	PublishedDate string `json:"published_date"`
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			Publisher           string   `json:"publisher"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Client talks to the external book catalog and cover services.
type Client struct {
	httpClient *http.Client
	booksURL   string
	coversURL  string
	apiKey     string
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		booksURL:   googleBooksBaseURL,
		coversURL:  openLibraryBaseURL,
		apiKey:     apiKey,
	}
}

// Configured reports whether the client has an API key for catalog search.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search queries the catalog by title and returns up to 20 normalized hits.
// ISBN-13 identifiers win over ISBN-10, and cover URLs are upgraded to https.
func (c *Client) Search(ctx context.Context, query string) ([]Volume, error) {
	u := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d&key=%s",
		c.booksURL,
		url.QueryEscape("intitle:"+query),
		searchMaxResults,
		url.QueryEscape(c.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errcodes.Upstream("The book catalog could not be reached.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errcodes.Upstream("The book catalog returned an unexpected response.")
	}

	body := volumesResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errcodes.Upstream("The book catalog returned an unexpected response.")
	}

	volumes := make([]Volume, 0, len(body.Items))
	for _, item := range body.Items {
		info := item.VolumeInfo

		isbn := ""
		for _, id := range info.IndustryIdentifiers {
			if id.Type == "ISBN_13" {
				isbn = id.Identifier
				break
			}
			if id.Type == "ISBN_10" && isbn == "" {
				isbn = id.Identifier
			}
		}

		coverURL := info.ImageLinks.Thumbnail
		if coverURL != "" {
			coverURL = strings.Replace(coverURL, "http://", "https://", 1)
		}

		volumes = append(volumes, Volume{
			ID:            item.ID,
			Title:         info.Title,
			Author:        strings.Join(info.Authors, ", "),
			Publisher:     info.Publisher,
			ISBN:          isbn,
			CoverURL:      coverURL,
			Description:   info.Description,
			PublishedDate: info.PublishedDate,
		})
	}

	return volumes, nil
}

// CoverForISBN probes the cover service for an image matching the ISBN. The
// service returns 200 with a tiny placeholder when it has no cover, so
// anything under about 1KB counts as missing. Probe failures are treated as
// missing rather than fatal.
func (c *Client) CoverForISBN(ctx context.Context, isbn string) (string, bool) {
	clean := strings.ReplaceAll(isbn, "-", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.coverURL(clean, "M"), nil)
	if err != nil {
		return "", false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	size, err := strconv.Atoi(resp.Header.Get("Content-Length"))
	if err != nil || size <= coverMinContentSize {
		return "", false
	}

	return c.coverURL(clean, "L"), true
}

func (c *Client) coverURL(isbn, size string) string {
	return fmt.Sprintf("%s/b/isbn/%s-%s.jpg", c.coversURL, isbn, size)
}
