// Package fanarttv lists movie artwork from the fanart.tv v3 API.
package fanarttv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

const (
	providerName = "fanarttv"
	defaultHost  = "webservice.fanart.tv"
)

// categories maps API keys onto image categories, in listing order.
var categories = []struct {
	key      string
	category media.ImageCategory
}{
	{"hdmovielogo", media.CategoryLogo},
	{"movielogo", media.CategoryLogo},
	{"movieposter", media.CategoryThumb},
	{"moviebackground", media.CategoryFanart},
	{"moviedisc", media.CategoryCDArt},
	{"hdmovieclearart", media.CategoryClearArt},
	{"movieart", media.CategoryClearArt},
	{"moviebanner", media.CategoryBanner},
	{"moviethumb", media.CategoryThumb},
}

type artwork struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Lang  string `json:"lang"`
	Likes string `json:"likes"`
}

// Provider implements the fanart.tv adapter.
type Provider struct {
	host    string
	apiKey  string
	fetcher fetch.Fetcher
	limiter *provider.RateLimiter
	log     logrus.FieldLogger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(l logrus.FieldLogger) Option { return func(p *Provider) { p.log = l } }

// WithRateLimiter replaces the default limiter.
func WithRateLimiter(rl *provider.RateLimiter) Option { return func(p *Provider) { p.limiter = rl } }

// New creates a fanart.tv provider. The "fanarttv.apikey" setting is required.
func New(f fetch.Fetcher, settings provider.Settings, opts ...Option) (*Provider, error) {
	key, ok := provider.Setting(settings, "fanarttv.apikey")
	if !ok {
		return nil, provider.MissingSetting(providerName, "fanarttv.apikey")
	}
	p := &Provider{
		host:    defaultHost,
		apiKey:  key,
		fetcher: f,
		limiter: provider.NewRateLimiter(10, time.Second),
		log:     logrus.StandardLogger(),
	}
	if h, ok := provider.Setting(settings, "fanarttv.host"); ok {
		p.host = h
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Kinds() []media.Kind { return []media.Kind{media.KindMovie} }

func (p *Provider) DefaultLocale() media.Locale { return media.DefaultLocale }

// resource returns the path segment fanart.tv accepts for id: a TMDb id or
// an IMDb title id.
func resource(id media.Identifier) (string, error) {
	switch id.Source {
	case media.SourceTMDB:
		n, err := provider.NumericID(providerName, id, media.SourceTMDB)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(n), nil
	case media.SourceIMDB:
		n, err := provider.NumericID(providerName, id, media.SourceIMDB)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("tt%07d", n), nil
	}
	return "", provider.IdentifierParse(providerName, id.String())
}

// Accepts reports whether id is a TMDb or IMDb identifier.
func (p *Provider) Accepts(id media.Identifier) bool {
	_, err := resource(id)
	return err == nil
}

// Images lists every artwork of the movie, grouped by category.
func (p *Provider) Images(ctx context.Context, id media.Identifier) ([]media.ImageRecord, error) {
	res, err := resource(id)
	if err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := url.URL{
		Scheme:   "https",
		Host:     p.host,
		Path:     "/v3/movies/" + res,
		RawQuery: url.Values{"api_key": {p.apiKey}}.Encode(),
	}
	req := provider.NewRequest(providerName, "images", u.String(), p.DefaultLocale())
	req.Category = "images"
	resp, err := provider.Get(ctx, p.fetcher, req)
	if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeSchema, Message: "malformed image listing", Err: err}
	}
	if msg, ok := doc["error message"]; ok {
		return nil, provider.NotFound(providerName, "movie %s: %s", res, strings.Trim(string(msg), `"`))
	}

	var out []media.ImageRecord
	for _, c := range categories {
		raw, ok := doc[c.key]
		if !ok {
			continue
		}
		var list []artwork
		if err := json.Unmarshal(raw, &list); err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{"provider": providerName, "category": c.key}).Debug("skipping malformed category")
			continue
		}
		for _, a := range list {
			img := media.NewImage(len(out), c.category, media.ImageURLs{
				Small: preview(a.URL),
				Big:   a.URL,
			})
			if img.Empty() {
				continue
			}
			if a.Lang != "" && a.Lang != "00" {
				img.Language = a.Lang
			}
			out = append(out, img)
		}
	}
	return out, nil
}

// preview returns the downscaled variant served under /preview/.
func preview(u string) string {
	if !strings.Contains(u, "/fanart/") {
		return ""
	}
	return strings.Replace(u, "/fanart/", "/preview/", 1)
}
