package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"wallharvest/pkg/config"
	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/logger"
)

// HTTPTransport streams remote assets over HTTP
type HTTPTransport struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewHTTPTransport creates a transport using the download settings
func NewHTTPTransport(cfg config.DownloadConfig, log logger.Logger) *HTTPTransport {
	if log == nil {
		log = logger.NewNopLogger()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultConfig().Download.UserAgent
	}

	return &HTTPTransport{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		logger: log,
	}
}

// StreamTo copies the body at url into w and returns the bytes copied
func (c *HTTPTransport) StreamTo(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeNetwork, "invalid request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errs.Wrap(errs.ErrorTypeNetwork, fmt.Sprintf("stream interrupted after %d bytes", n), err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("truncated body: got %d of %d bytes", n, resp.ContentLength))
	}

	return n, nil
}

// ProbeSize asks for the resource size with a HEAD request.
// It returns nil when the server does not report a positive length.
func (c *HTTPTransport) ProbeSize(ctx context.Context, url string) (*int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "invalid request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	raw := resp.Header.Get("Content-Length")
	if raw == "" {
		return nil, nil
	}
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size <= 0 {
		return nil, nil
	}
	return &size, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *HTTPTransport) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, req.Method+" "+req.URL.String(), err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func (c *HTTPTransport) checkResponseStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "access denied", Code: code}
	case code == http.StatusNotFound || code == http.StatusGone:
		return &errs.Error{Type: errs.ErrorTypeNotFound, Message: "resource not found", Code: code}
	case code == http.StatusTooManyRequests:
		return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: code}
	case code >= 500:
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "server error", Code: code}
	default:
		return &errs.Error{Type: errs.ErrorTypeUnknown, Message: fmt.Sprintf("unexpected status code: %d", code), Code: code}
	}
}
