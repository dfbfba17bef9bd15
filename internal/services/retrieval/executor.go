package retrieval

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultFileTimeout bounds one document download, body included.
	DefaultFileTimeout = 60 * time.Second

	// DefaultMinFileSize is the byte threshold below which a 200
	// response is treated as a failure. Login and redirect pages served
	// with a success status fall under it.
	DefaultMinFileSize = 1000

	// DefaultRateLimit is the default per-host rate limit (requests
	// per second).
	DefaultRateLimit = 8
)

// Executor downloads one planned document per call. Success requires a
// 200 status and a body larger than the minimum size; anything else
// leaves no file behind.
type Executor struct {
	baseURL     string
	userAgent   string
	minFileSize int
	httpClient  *http.Client
	logger      arbor.ILogger
	rateLimit   int

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// ExecutorOption configures the Executor.
type ExecutorOption func(*Executor)

// WithBaseURL sets the source origin used to resolve relative URLs
// and as the fallback referrer.
func WithBaseURL(baseURL string) ExecutorOption {
	return func(e *Executor) {
		e.baseURL = baseURL
	}
}

// WithUserAgent sets a custom outbound User-Agent.
func WithUserAgent(userAgent string) ExecutorOption {
	return func(e *Executor) {
		e.userAgent = userAgent
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ExecutorOption {
	return func(e *Executor) {
		e.httpClient = httpClient
	}
}

// WithMinFileSize sets the success size threshold in bytes.
func WithMinFileSize(minFileSize int) ExecutorOption {
	return func(e *Executor) {
		e.minFileSize = minFileSize
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithRateLimit sets the per-host rate limit.
func WithRateLimit(requestsPerSecond int) ExecutorOption {
	return func(e *Executor) {
		e.rateLimit = requestsPerSecond
	}
}

// NewExecutor creates a new download executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		baseURL:     "https://www.screener.in",
		userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		minFileSize: DefaultMinFileSize,
		httpClient: &http.Client{
			Timeout: DefaultFileTimeout,
		},
		rateLimit: DefaultRateLimit,
		limiters:  make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute downloads one task to its destination. A nil return is the
// only success; the error carries the failure reason for diagnostics
// but callers aggregate it into a count, never retry.
func (e *Executor) Execute(ctx context.Context, task *models.DocumentTask) error {
	fullURL, err := e.resolveURL(task.SourceURL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}

	if err := e.waitForHost(ctx, fullURL.Host); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Referer", e.refererFor(fullURL.Host))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	size, err := e.writeAtomic(task.Destination, resp.Body)
	if err != nil {
		return err
	}

	if e.logger != nil {
		e.logger.Debug().
			Str("url", fullURL.String()).
			Str("destination", task.Destination).
			Int64("bytes", size).
			Msg("Document retrieved")
	}

	return nil
}

// resolveURL resolves a possibly-relative source URL against the
// source origin.
func (e *Executor) resolveURL(sourceURL string) (*url.URL, error) {
	base, err := url.Parse(e.baseURL)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

// refererFor maps known document hosts to the referrer they expect;
// everything else gets the source origin.
func (e *Executor) refererFor(host string) string {
	switch {
	case strings.Contains(host, "bseindia"):
		return "https://www.bseindia.com/"
	case strings.Contains(host, "nseindia"):
		return "https://www.nseindia.com/"
	}
	return e.baseURL
}

// waitForHost applies the per-host rate limit.
func (e *Executor) waitForHost(ctx context.Context, host string) error {
	e.limiterMu.Lock()
	limiter, ok := e.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(e.rateLimit), e.rateLimit)
		e.limiters[host] = limiter
	}
	e.limiterMu.Unlock()

	return limiter.Wait(ctx)
}

// writeAtomic streams the body to a temp file next to the destination
// and renames it into place only when the size threshold passes. A
// failed download leaves nothing at the destination path.
func (e *Executor) writeAtomic(destination string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	partPath := destination + ".part"
	part, err := os.Create(partPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	size, err := io.Copy(part, body)
	if closeErr := part.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("failed to write body: %w", err)
	}

	if size <= int64(e.minFileSize) {
		os.Remove(partPath)
		return 0, fmt.Errorf("body too small (%d bytes)", size)
	}

	if err := os.Rename(partPath, destination); err != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("failed to finalize file: %w", err)
	}

	return size, nil
}
