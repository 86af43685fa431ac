// Package fetch retrieves remote documents for providers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/selector"
)

// maxBody is the largest response body accepted.
const maxBody = 16 << 20

var errBodyTooLarge = errors.New("response body too large")

// Request names a document and the properties sent with it. Provider,
// Operation and Category describe the request for caching and metrics.
type Request struct {
	URL    string
	Header http.Header
	Locale media.Locale

	Provider  string
	Operation string
	Category  string
}

// Response is a fetched document body.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Redirected reports whether the final URL differs from requested.
func (r *Response) Redirected(requested string) bool {
	return r.URL != "" && r.URL != requested
}

// Document parses the body as HTML.
func (r *Response) Document() (*selector.Document, error) {
	doc, err := selector.ParseBytes(r.Body, r.ContentType)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, URL: r.URL, Err: err}
	}
	return doc, nil
}

// Fetcher retrieves one document.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (*Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPFetcher fetches over HTTP.
type HTTPFetcher struct {
	client *http.Client
	limit  int64
}

// NewHTTPFetcher wraps client. A nil client gets NewClient defaults.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client, _ = NewClient(ClientOptions{})
	}
	return &HTTPFetcher{client: client, limit: maxBody}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, URL: req.URL, Err: err}
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Locale != "" && httpReq.Header.Get("Accept-Language") == "" {
		httpReq.Header.Set("Accept-Language", req.Locale.AcceptLanguage())
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, classify(req.URL, err)
	}
	defer resp.Body.Close()

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &Error{
			Kind:       KindStatus,
			URL:        final,
			StatusCode: resp.StatusCode,
			Location:   resp.Header.Get("Location"),
		}
	}

	// One byte past the limit tells a full body from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.limit+1))
	if err != nil {
		return nil, classify(final, err)
	}
	if int64(len(body)) > f.limit {
		return nil, &Error{Kind: KindMalformed, URL: final, Err: fmt.Errorf("%w: over %d bytes", errBodyTooLarge, f.limit)}
	}
	return &Response{
		URL:         final,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Kind classifies fetch failures.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindStatus     Kind = "status"
	KindMalformed  Kind = "malformed"
)

// Error describes a failed fetch.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Location   string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Location != "" {
			return fmt.Sprintf("fetch %s: http %d (location=%s)", e.URL, e.StatusCode, e.Location)
		}
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.StatusCode)
	default:
		if e.Err == nil {
			return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
		}
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a 404 or 410 status.
func (e *Error) NotFound() bool {
	return e.Kind == KindStatus && (e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindStatus {
		return fe.StatusCode
	}
	return 0
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTimeout
}

func classify(url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}
	if strings.Contains(err.Error(), "unexpected EOF") {
		return &Error{Kind: KindMalformed, URL: url, Err: err}
	}
	return &Error{Kind: KindConnection, URL: url, Err: err}
}
