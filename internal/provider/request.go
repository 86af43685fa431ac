package provider

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/metrics"
	"github.com/Digital-Shane/title-scout/internal/tracing"
)

// RequestProperties returns the headers sent with every provider request
// made in locale.
func RequestProperties(locale media.Locale) http.Header {
	h := make(http.Header)
	h.Set("Accept-Language", locale.AcceptLanguage())
	return h
}

// NewRequest builds a fetch request tagged for caching and metrics.
func NewRequest(provider, operation, url string, locale media.Locale) fetch.Request {
	return fetch.Request{
		URL:       url,
		Header:    RequestProperties(locale),
		Locale:    locale,
		Provider:  provider,
		Operation: operation,
		Category:  "documents",
	}
}

// Get runs req through f, mapping failures onto the provider taxonomy.
func Get(ctx context.Context, f fetch.Fetcher, req fetch.Request) (*fetch.Response, error) {
	ctx, span := tracing.StartSpan(ctx, "provider."+req.Operation,
		attribute.String("provider", req.Provider),
		attribute.String("url", req.URL),
	)
	start := time.Now()

	resp, err := f.Fetch(ctx, req)
	err = FromFetch(req.Provider, err)

	outcome := "ok"
	if err != nil {
		outcome = string(CodeOf(err))
	}
	metrics.RecordProvider(req.Provider, req.Operation, outcome, start)
	tracing.End(span, err)
	return resp, err
}

// IMDbIDPattern matches an IMDb title id and captures its digits.
var IMDbIDPattern = regexp.MustCompile(`tt(\d{7,8})`)

// ExtractID returns the first submatch of re in s as an integer.
func ExtractID(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// WithLocaleFallback calls fn in locale and, when the result is not usable
// and locale differs from the provider default, once more in the default.
func WithLocaleFallback[T any](ctx context.Context, p Provider, locale media.Locale,
	fn func(context.Context, media.Locale) (T, error), usable func(T) bool) (T, error) {
	v, err := fn(ctx, locale)
	if err == nil && usable(v) {
		return v, nil
	}
	def := p.DefaultLocale()
	if locale == def || (err != nil && !IsNotFound(err) && CodeOf(err) != CodeSchema) {
		return v, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return v, ctxErr
	}
	return fn(ctx, def)
}

// HasTitle reports whether a details result is usable.
func HasTitle(r *media.DetailRecord) bool {
	return r != nil && r.Title() != ""
}

// NumericID returns the numeric form of id, which must belong to src.
func NumericID(provider string, id media.Identifier, src media.Source) (int, error) {
	if id.Source != src {
		return 0, IdentifierParse(provider, id.String())
	}
	n, err := id.Int()
	if err != nil {
		return 0, IdentifierParse(provider, id.String())
	}
	return n, nil
}

// Call runs one SDK call with metrics and tracing, mapping its error onto the
// provider taxonomy.
func Call[T any](ctx context.Context, name, op string, call func() (T, error)) (T, error) {
	_, span := tracing.StartSpan(ctx, "provider."+op, attribute.String("provider", name))
	start := time.Now()

	v, err := call()
	outcome := "ok"
	if err != nil {
		err = MapSDKError(name, err)
		outcome = string(CodeOf(err))
	}
	metrics.RecordProvider(name, op, outcome, start)
	tracing.End(span, err)
	return v, err
}
