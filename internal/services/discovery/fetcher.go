package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the document source origin.
	DefaultBaseURL = "https://www.screener.in"

	// DefaultUserAgent matches a current desktop browser; the source
	// serves a reduced page to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultPageTimeout bounds the disclosure page fetch.
	DefaultPageTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 8
)

// Fetcher retrieves company disclosure pages from the source site.
type Fetcher struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// FetcherOption configures the Fetcher.
type FetcherOption func(*Fetcher)

// WithBaseURL sets a custom source origin.
func WithBaseURL(baseURL string) FetcherOption {
	return func(f *Fetcher) {
		f.baseURL = baseURL
	}
}

// WithUserAgent sets a custom outbound User-Agent.
func WithUserAgent(userAgent string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) FetcherOption {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewFetcher creates a new disclosure page fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultPageTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// BaseURL returns the configured source origin.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// PageURL returns the disclosure page URL for a symbol.
func (f *Fetcher) PageURL(symbol string) string {
	return fmt.Sprintf("%s/company/%s/", f.baseURL, url.PathEscape(symbol))
}

// FetchPage retrieves the disclosure page HTML for a symbol.
func (f *Fetcher) FetchPage(ctx context.Context, symbol string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", &DiscoveryError{Symbol: symbol, Op: "fetch", Err: err}
	}

	pageURL := f.PageURL(symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &DiscoveryError{Symbol: symbol, Op: "fetch", Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	if f.logger != nil {
		f.logger.Debug().
			Str("url", pageURL).
			Msg("Fetching disclosure page")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &DiscoveryError{Symbol: symbol, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &DiscoveryError{Symbol: symbol, Op: "fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &DiscoveryError{Symbol: symbol, Op: "fetch", Err: err}
	}

	return string(body), nil
}
