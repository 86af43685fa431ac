// Package subscene lists subtitles from subscene.com search pages.
package subscene

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
	"github.com/Digital-Shane/title-scout/internal/selector"
)

const (
	providerName = "subscene"
	defaultHost  = "subscene.com"
)

var (
	titleLinks   = selector.MustCompile("div.search-result div.title a")
	subtitleRows = selector.MustCompile("table tbody tr")
	subtitleLink = selector.MustCompile("td.a1 a")
	linkSpans    = selector.MustCompile("span")
	trailingYear = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)
)

// Provider implements the Subscene adapter.
type Provider struct {
	host    string
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

// New creates a Subscene provider; "subscene.host" overrides the site host.
func New(f fetch.Fetcher, settings provider.Settings, opts ...Option) *Provider {
	p := &Provider{
		host:    defaultHost,
		fetcher: f,
		limiter: provider.NewRateLimiter(2, time.Second),
		log:     logrus.StandardLogger(),
	}
	if h, ok := provider.Setting(settings, "subscene.host"); ok {
		p.host = h
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Kinds() []media.Kind { return []media.Kind{media.KindMovie, media.KindEpisode} }

func (p *Provider) DefaultLocale() media.Locale { return media.DefaultLocale }

func (p *Provider) absolute(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return (&url.URL{Scheme: "https", Host: p.host}).ResolveReference(u).String()
}

func (p *Provider) document(ctx context.Context, op, u string, locale media.Locale) (*selector.Document, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := provider.Get(ctx, p.fetcher, provider.NewRequest(providerName, op, u, locale))
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, provider.FromFetch(providerName, err)
	}
	return doc, nil
}

// LanguageName returns the English name Subscene lists a locale's subtitles
// under, e.g. "French" for fr-FR.
func LanguageName(locale media.Locale) string {
	tag, err := language.Parse(locale.Language())
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}

// Subtitles searches titles matching query, picks the exact title match (or
// the first hit) and lists its subtitles in the locale's language.
func (p *Provider) Subtitles(ctx context.Context, query string, locale media.Locale) ([]media.Subtitle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	doc, err := p.document(ctx, "search", p.absolute("/subtitles/title?q="+url.QueryEscape(query)), locale)
	if err != nil {
		return nil, err
	}

	links := selector.SelectNodes(titleLinks, doc)
	if len(links) == 0 {
		return []media.Subtitle{}, nil
	}
	pick := links[0]
	for _, l := range links {
		if strings.EqualFold(trailingYear.ReplaceAllString(l.Text(), ""), query) {
			pick = l
			break
		}
	}
	name := pick.Text()

	page, err := p.document(ctx, "subtitles", p.absolute(selector.Attribute("href", pick)), locale)
	if err != nil {
		return nil, err
	}
	want := LanguageName(locale)
	out := []media.Subtitle{}
	for _, row := range selector.SelectNodes(subtitleRows, page) {
		link, ok := selector.SelectNode(subtitleLink, row)
		if !ok {
			continue
		}
		spans := selector.SelectNodes(linkSpans, link)
		if len(spans) < 2 {
			continue
		}
		lang := spans[0].Text()
		if want != "" && !strings.EqualFold(lang, want) {
			continue
		}
		out = append(out, media.Subtitle{
			Name:     name,
			Language: lang,
			Release:  spans[1].Text(),
			URL:      p.absolute(selector.Attribute("href", link)),
		})
	}
	p.log.WithFields(logrus.Fields{"provider": providerName, "title": name, "count": len(out)}).Debug("listed subtitles")
	return out, nil
}
