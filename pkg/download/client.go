// Package download fetches remote resources over HTTP with manual redirect handling,
// bounded retries and atomic placement of downloaded files.
package download

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/avast/retry-go"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/auth"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/fsutil"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

const (
	// DefaultMaxRedirects is the hop limit used when Config.MaxRedirects is zero.
	DefaultMaxRedirects = 20
	// DefaultTimeout bounds every request when Config.Timeout is zero.
	DefaultTimeout = 60 * time.Second
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "coupler-launcher/1.0"
	// DefaultRetryDelay is the first backoff step between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
	// MaxDocumentSize caps the size of documents read by Fetch.
	MaxDocumentSize = 16 << 20
	// TempPattern names in-flight downloads next to their destination.
	TempPattern = "dl-*.tmp"

	chunkSize = 32 * 1024
)

// Config holds the transport settings of a Client.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxRedirects int
	// MaxRetries is the number of additional attempts for transient failures.
	MaxRetries int
	RetryDelay time.Duration
	// Auth decorates every request, redirect hops included. Nil sends no credentials.
	Auth auth.Authenticator
}

// Client implements Fetcher and Manager on top of net/http.
type Client struct {
	http         *http.Client
	userAgent    string
	maxRedirects int
	maxRetries   int
	retryDelay   time.Duration
	auth         auth.Authenticator
}

// NewClient creates a client. Automatic redirect following is disabled on the
// underlying http.Client; redirects are walked by the client itself.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:    cfg.UserAgent,
		maxRedirects: cfg.MaxRedirects,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		auth:         cfg.Auth,
	}
}

// Resolve implements Fetcher.
func (c *Client) Resolve(ctx context.Context, rawURL string) (model.RedirectResolution, error) {
	resp, final, hops, err := c.follow(ctx, http.MethodHead, rawURL)
	if err != nil {
		return model.RedirectResolution{}, err
	}
	drainAndClose(resp.Body)
	return model.RedirectResolution{FinalURL: final, ETag: resp.Header.Get("ETag"), Hops: hops}, nil
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, final, _, err := c.follow(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize))
	if err != nil {
		return nil, c.classify(ctx, final, err)
	}
	return data, nil
}

// Download implements Fetcher.
func (c *Client) Download(ctx context.Context, rawURL, dest string, onProgress ProgressFunc) error {
	return c.DownloadVerified(ctx, rawURL, dest, onProgress, nil)
}

// DownloadVerified implements Fetcher.
func (c *Client) DownloadVerified(ctx context.Context, rawURL, dest string, onProgress ProgressFunc, check CheckFunc) error {
	logger.Info("DOWNLOADING", logger.Fields{"url": rawURL, "dest": dest})

	resp, final, _, err := c.follow(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, err := c.writeBodyToTemp(ctx, resp, final, dest, onProgress)
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(tmpPath); err != nil {
			_ = os.Remove(tmpPath)
			return err
		}
	}
	return finalizeFile(tmpPath, dest)
}

// follow issues method against rawURL and walks redirects until a non-redirect response.
// The returned response has a 2xx status and an open body.
func (c *Client) follow(ctx context.Context, method, rawURL string) (*http.Response, string, int, error) {
	current := rawURL
	for hops := 0; ; hops++ {
		resp, err := c.do(ctx, method, current)
		if err != nil {
			return nil, current, hops, err
		}

		switch {
		case isRedirect(resp.StatusCode):
			location := resp.Header.Get("Location")
			drainAndClose(resp.Body)
			if location == "" {
				return nil, current, hops, &errors.UnexpectedRemoteResponseError{URL: current, Status: resp.StatusCode}
			}
			if hops >= c.maxRedirects {
				return nil, current, hops, &errors.TooManyRedirectsError{URL: current, Hops: hops}
			}
			next, err := resolveReference(current, location)
			if err != nil {
				return nil, current, hops, errors.Wrapf(errors.ErrDownloadFailed, "invalid redirect location %q: %v", location, err)
			}
			logger.Debug("Following redirect", logger.Fields{"from": current, "to": next, "status": resp.StatusCode})
			current = next
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, current, hops, nil
		default:
			drainAndClose(resp.Body)
			return nil, current, hops, &errors.UnexpectedRemoteResponseError{URL: current, Status: resp.StatusCode}
		}
	}
}

// do sends one request, retrying transient failures. Retries never cover a body that
// was already handed to the caller.
func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	var resp *http.Response
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
			if err != nil {
				return errors.Wrap(err, "failed to create request")
			}
			req.Header.Set("User-Agent", c.userAgent)
			if c.auth != nil {
				if err := c.auth.Apply(req); err != nil {
					return errors.Wrap(err, "failed to apply credentials")
				}
			}
			r, err := c.http.Do(req)
			if err != nil {
				return err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				drainAndClose(r.Body)
				return &errors.UnexpectedRemoteResponseError{URL: rawURL, Status: r.StatusCode}
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return ctx.Err() == nil && isTransient(err) }),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("Retrying request", logger.Fields{"url": rawURL, "attempt": n + 1, "error": err})
		}),
	)
	if err != nil {
		return nil, c.classify(ctx, rawURL, err)
	}
	return resp, nil
}

func (c *Client) writeBodyToTemp(ctx context.Context, resp *http.Response, final, dest string, onProgress ProgressFunc) (string, error) {
	if err := fsutil.EnsureFileDir(dest); err != nil {
		return "", errors.Wrap(err, "could not create download dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), TempPattern)
	if err != nil {
		return "", errors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}

	total := resp.ContentLength
	if total < 0 {
		total = UnknownTotal
	}

	written, err := copyWithProgress(ctx, tmp, resp.Body, total, onProgress)
	if err != nil {
		return fail(c.classify(ctx, final, err))
	}
	if total != UnknownTotal && written != total {
		return fail(errors.Wrapf(errors.ErrDownloadFailed, "short body from %s: got %d of %d bytes", final, written, total))
	}
	if err := tmp.Sync(); err != nil {
		return fail(errors.Wrap(err, "could not sync file"))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, total)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func finalizeFile(tmpPath, absPath string) error {
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "could not set permissions")
	}
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "could not finalize file")
	}
	return nil
}

// classify maps transport failures onto the error taxonomy. Cancellation is returned unchanged.
func (c *Client) classify(ctx context.Context, rawURL string, err error) error {
	if goerrors.Is(err, context.Canceled) || (ctx.Err() != nil && goerrors.Is(ctx.Err(), context.Canceled)) {
		return err
	}
	if isTimeout(err) {
		return &errors.NetworkTimeoutError{URL: rawURL, Err: err}
	}

	var unexpected *errors.UnexpectedRemoteResponseError
	if goerrors.As(err, &unexpected) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", errors.ErrDownloadFailed, rawURL, err)
}

func isTimeout(err error) bool {
	if goerrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return goerrors.As(err, &netErr) && netErr.Timeout()
}

func isTransient(err error) bool {
	if isTimeout(err) {
		return true
	}
	var unexpected *errors.UnexpectedRemoteResponseError
	if goerrors.As(err, &unexpected) {
		return unexpected.Status >= http.StatusInternalServerError
	}
	if goerrors.Is(err, syscall.ECONNREFUSED) || goerrors.Is(err, syscall.ECONNRESET) ||
		goerrors.Is(err, io.ErrUnexpectedEOF) || goerrors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	return goerrors.As(err, &opErr)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveReference(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, chunkSize))
	_ = body.Close()
}
