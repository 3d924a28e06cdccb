package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// DefaultAPIBase is the GitHub REST endpoint.
const DefaultAPIBase = "https://api.github.com"

// DefaultRequestTimeout bounds each metadata request.
const DefaultRequestTimeout = 20 * time.Second

var (
	hexDigest  = regexp.MustCompile(`[a-fA-F0-9]{64}`)
	bodyDigest = regexp.MustCompile(`(?i)sha256\s*[:=]\s*([a-fA-F0-9]{64})`)
)

// Info describes a release that can be installed. It is not persisted.
type Info struct {
	Version     string
	AssetName   string
	DownloadURL string
	// SHA256 is lower-case hex, or empty when the release publishes none.
	SHA256 string
	Notes  string
}

type release struct {
	TagName string  `json:"tag_name"`
	Body    string  `json:"body"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// Checker queries the release provider. Release lookups share a circuit
// breaker so an unreachable provider is not hammered by periodic checks;
// checksum downloads bypass it.
type Checker struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	apiBase   string
	timeout   time.Duration
	userAgent string
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHTTPClient sets the HTTP client used for metadata requests.
func WithHTTPClient(c *http.Client) CheckerOption {
	return func(ch *Checker) { ch.client = c }
}

// WithAPIBase points the checker at another API root, e.g. a test server.
func WithAPIBase(base string) CheckerOption {
	return func(ch *Checker) { ch.apiBase = strings.TrimRight(base, "/") }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) CheckerOption {
	return func(ch *Checker) { ch.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) CheckerOption {
	return func(ch *Checker) { ch.userAgent = ua }
}

// NewChecker creates a Checker for the GitHub API.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		client:    http.DefaultClient,
		apiBase:   DefaultAPIBase,
		timeout:   DefaultRequestTimeout,
		userAgent: "zoomauto",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "release-provider",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return c
}

// CheckLatest fetches the latest release and picks the first asset matching
// cfg.AssetRegex. It returns ErrNoUpdate when cfg is disabled or nothing
// matches, and an error wrapping ErrCheckFailed when the provider fails.
func (c *Checker) CheckLatest(ctx context.Context, cfg Config) (*Info, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: updates are not configured", ErrNoUpdate)
	}
	rx, err := cfg.assetPattern()
	if err != nil {
		return nil, fmt.Errorf("%w: asset_regex: %v", ErrCheckFailed, err)
	}
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, strings.TrimSpace(cfg.Repo))
	data, err := c.get(ctx, url, "application/vnd.github+json")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckFailed, err)
	}
	var rel release
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, fmt.Errorf("%w: decode release: %v", ErrCheckFailed, err)
	}
	var picked *asset
	for i := range rel.Assets {
		if rx.MatchString(rel.Assets[i].Name) {
			picked = &rel.Assets[i]
			break
		}
	}
	if picked == nil {
		return nil, fmt.Errorf("%w: no asset matches %q in release %s", ErrNoUpdate, rx.String(), rel.TagName)
	}
	return &Info{
		Version:     NormalizeVersion(rel.TagName),
		AssetName:   picked.Name,
		DownloadURL: picked.DownloadURL,
		SHA256:      c.checksum(ctx, rel, picked.Name),
		Notes:       rel.Body,
	}, nil
}

// checksum looks for a sibling "<asset>.sha256" file, then for a
// "sha256: <hex>" line in the release notes.
func (c *Checker) checksum(ctx context.Context, rel release, assetName string) string {
	want := assetName + ".sha256"
	for _, a := range rel.Assets {
		if a.Name != want || a.DownloadURL == "" {
			continue
		}
		data, err := c.fetch(ctx, a.DownloadURL, "")
		if err != nil {
			continue
		}
		if m := hexDigest.Find(data); m != nil {
			return strings.ToLower(string(m))
		}
	}
	if m := bodyDigest.FindStringSubmatch(rel.Body); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// get fetches url through the breaker.
func (c *Checker) get(ctx context.Context, url, accept string) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, url, accept)
	})
}

func (c *Checker) fetch(ctx context.Context, url, accept string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
