package fetch

import (
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRetryMax = 2
)

// Transport applies the user agent policy and bounded retries to every
// outgoing request.
type Transport struct {
	Base http.RoundTripper

	// UserAgent overrides the rotating pool when set.
	UserAgent string

	// RetryMax is the number of retries after the first attempt. Only GET and
	// HEAD requests without a body are retried.
	RetryMax int

	// DisableKeepAlives marks each request Close.
	DisableKeepAlives bool

	ua *uaPool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.userAgent())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (t *Transport) userAgent() string {
	if t.UserAgent != "" {
		return t.UserAgent
	}
	if t.ua == nil {
		return globalUA.random()
	}
	return t.ua.random()
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Proxy     string
	Timeout   time.Duration
	UserAgent string
	RetryMax  int
}

// NewClient builds the HTTP client used for provider documents. A proxy
// forces a fresh connection per request.
func NewClient(opts ClientOptions) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   4,
	}

	disableKeepAlives := false
	if proxy := strings.TrimSpace(opts.Proxy); proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy must be an absolute URL")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := opts.RetryMax
	if retries == 0 {
		retries = defaultRetryMax
	}

	return &http.Client{
		Transport: &Transport{
			Base:              base,
			UserAgent:         strings.TrimSpace(opts.UserAgent),
			RetryMax:          retries,
			DisableKeepAlives: disableKeepAlives,
			ua:                globalUA,
		},
		Timeout: timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
