package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/livesrc/pkg/urlutil"
)

// HTTPOptions tunes the HTTP fetcher. Zero values fall back to defaults.
type HTTPOptions struct {
	Timeout         time.Duration // per request; default 5s
	UserAgent       string
	MaxTextBytes    int64   // manifest size cap; default 2 MiB
	RatePerHost     float64 // requests/s per host; 0 disables
	RateBurst       int
	BreakerFailures uint32        // consecutive failures that open a host breaker; 0 disables
	BreakerCooldown time.Duration // open → half-open; default 30s
}

func (o *HTTPOptions) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "livesrc/1.0"
	}
	if o.MaxTextBytes <= 0 {
		o.MaxTextBytes = 2 << 20
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limits   *hostLimiter
	breakers *breakerSet[*http.Response]
	log      *zap.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher builds a fetcher around client (nil = a fresh client).
func NewHTTPFetcher(log *zap.Logger, client *http.Client, opts HTTPOptions) *HTTPFetcher {
	opts.setDefaults()
	if client == nil {
		client = &http.Client{}
	}
	log = log.Named("probe_http")
	return &HTTPFetcher{
		client:   client,
		opts:     opts,
		limits:   newHostLimiter(opts.RatePerHost, opts.RateBurst),
		breakers: newBreakerSet[*http.Response](log, opts.BreakerFailures, opts.BreakerCooldown),
		log:      log,
	}
}

// do sends req through the host's limiter and breaker. 5xx responses and
// transport errors count against the breaker; the body of a 5xx response is
// closed and a *StatusError returned.
func (f *HTTPFetcher) do(req *http.Request) (*http.Response, error) {
	host := urlutil.Host(req.URL.String())
	method := req.Method
	req.Header.Set("User-Agent", f.opts.UserAgent)

	if err := f.limits.wait(req.Context(), host); err != nil {
		RequestsTotal.WithLabelValues(method, "rejected").Inc()
		return nil, err
	}

	start := time.Now()
	resp, err := f.breakers.execute(host, func() (*http.Response, error) {
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode}
		}
		return resp, nil
	})
	RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrBreakerOpen):
		RequestsTotal.WithLabelValues(method, "rejected").Inc()
	case err != nil:
		RequestsTotal.WithLabelValues(method, "error").Inc()
	case resp.StatusCode >= 300:
		RequestsTotal.WithLabelValues(method, "status").Inc()
	default:
		RequestsTotal.WithLabelValues(method, "ok").Inc()
	}
	return resp, err
}

func (f *HTTPFetcher) newRequest(ctx context.Context, method, url string) (*http.Request, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	return req, cancel, nil
}

// FetchHead issues a HEAD request. Non-2xx statuses below 500 are reported
// in Head, not as errors.
func (f *HTTPFetcher) FetchHead(ctx context.Context, url string) (Head, error) {
	req, cancel, err := f.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return Head{}, err
	}
	defer cancel()

	resp, err := f.do(req)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return Head{Status: se.Code, ContentLength: -1}, nil
		}
		return Head{}, fmt.Errorf("head %s: %w", url, err)
	}
	resp.Body.Close()

	h := Head{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), ContentLength: -1}
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			h.ContentLength = n
		}
	}
	return h, nil
}

// FetchBytes returns up to the first n bytes of the body.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string, n int) ([]byte, error) {
	req, cancel, err := f.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer cancel()
	req.Header.Set("Range", "bytes=0-"+strconv.Itoa(n-1))

	resp, err := f.do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get %s: %w", url, &StatusError{Code: resp.StatusCode})
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return buf, nil
}

// FetchText returns the body as text. Bodies over limit (MaxTextBytes when
// limit <= 0) are rejected rather than truncated.
func (f *HTTPFetcher) FetchText(ctx context.Context, url string, limit int64) (string, error) {
	if limit <= 0 {
		limit = f.opts.MaxTextBytes
	}
	req, cancel, err := f.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return "", err
	}
	defer cancel()

	resp, err := f.do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("get %s: %w", url, &StatusError{Code: resp.StatusCode})
	}

	if resp.ContentLength > limit {
		return "", fmt.Errorf("get %s: %d bytes: %w", url, resp.ContentLength, ErrTooLarge)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > limit {
		return "", fmt.Errorf("read %s: over %d bytes: %w", url, limit, ErrTooLarge)
	}
	return string(body), nil
}
