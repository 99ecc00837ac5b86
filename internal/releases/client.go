package releases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"

	"tfvm/internal/config"
	"tfvm/internal/version"
)

// maxBodyBytes caps how much of a listing page is read.
const maxBodyBytes = 8 << 20

// UserAgent is sent with every request; the CLI sets it from the build version.
var UserAgent = "tfvm/dev"

var ErrNoReleases = errors.New("no releases found")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

// Client reads the published versions of one tool from its release index and
// its downloads page.
type Client struct {
	// ReleasesURL is the release index; entries look like "<tool>_1.2.3".
	ReleasesURL string
	// DownloadsURL links the newest release as "<ReleasesURL>/1.2.3".
	DownloadsURL string

	// ReleasePattern extracts versions from the release index. The first
	// capture group is the version.
	ReleasePattern *regexp.Regexp
	// DownloadPattern extracts versions from the downloads page.
	DownloadPattern *regexp.Regexp

	HTTPClient *http.Client
}

// NewClient builds a client from cfg's URLs, tool name and timeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		ReleasesURL:     cfg.ReleasesURL,
		DownloadsURL:    cfg.DownloadsURL,
		ReleasePattern:  ReleasePattern(cfg.Tool),
		DownloadPattern: DownloadPattern(cfg.ReleasesURL),
		HTTPClient:      &http.Client{Timeout: cfg.Timeout},
	}
}

// ReleasePattern matches "<tool>_X.Y.Z" with an optional prerelease tag.
func ReleasePattern(tool string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(tool) + `_(\d+\.\d+\.\d+(?:-[0-9A-Za-z]+)?)`)
}

// DownloadPattern matches "<releasesURL>/X.Y.Z".
func DownloadPattern(releasesURL string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(releasesURL) + `/(\d+\.\d+\.\d+)`)
}

// Versions fetches the release index and returns every published version,
// prereleases included, as an ascending catalog.
func (c *Client) Versions(ctx context.Context) (version.Catalog, error) {
	body, err := c.fetch(ctx, c.ReleasesURL)
	if err != nil {
		return nil, err
	}
	raw := extract(c.ReleasePattern, body)
	catalog := version.NewCatalog(raw)
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w at %s", ErrNoReleases, c.ReleasesURL)
	}
	return catalog, nil
}

// Latest fetches the downloads page and returns the highest version it links.
func (c *Client) Latest(ctx context.Context) (string, error) {
	body, err := c.fetch(ctx, c.DownloadsURL)
	if err != nil {
		return "", err
	}
	catalog := version.NewCatalog(extract(c.DownloadPattern, body))
	latest, ok := catalog.Last()
	if !ok {
		return "", fmt.Errorf("%w at %s", ErrNoReleases, c.DownloadsURL)
	}
	return latest.String(), nil
}

func extract(pattern *regexp.Regexp, body []byte) []string {
	var out []string
	for _, m := range pattern.FindAllSubmatch(body, -1) {
		if len(m) < 2 {
			continue
		}
		out = append(out, string(m[1]))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, Status: resp.Status, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
