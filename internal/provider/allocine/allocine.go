// Package allocine resolves French movie and episode records from the
// Allocine REST XML feeds.
package allocine

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/feed"
	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

const (
	providerName = "allocine"
	defaultHost  = "api.allocine.fr"
	stripTags    = "synopsis,synopsisshort"
)

// Provider implements the Allocine adapter.
type Provider struct {
	host    string
	partner string
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

// New creates an Allocine provider. The "allocine.partner" key is required;
// "allocine.host" overrides the API host.
func New(f fetch.Fetcher, settings provider.Settings, opts ...Option) (*Provider, error) {
	partner, ok := provider.Setting(settings, "allocine.partner")
	if !ok {
		return nil, provider.MissingSetting(providerName, "allocine.partner")
	}
	p := &Provider{
		host:    defaultHost,
		partner: partner,
		fetcher: f,
		limiter: provider.NewRateLimiter(5, time.Second),
		log:     logrus.StandardLogger(),
	}
	if h, ok := provider.Setting(settings, "allocine.host"); ok {
		p.host = h
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Kinds() []media.Kind {
	return []media.Kind{media.KindMovie, media.KindEpisode}
}

func (p *Provider) DefaultLocale() media.Locale { return "fr" }

func (p *Provider) endpoint(resource string, params url.Values) string {
	params.Set("partner", p.partner)
	u := url.URL{Scheme: "http", Host: p.host, Path: "/rest/v3/" + resource, RawQuery: params.Encode()}
	return u.String()
}

// run fetches one feed and streams it through m.
func (p *Provider) run(ctx context.Context, op, u string, m feed.Machine) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	req := provider.NewRequest(providerName, op, u, p.DefaultLocale())
	req.Category = "feeds"
	resp, err := provider.Get(ctx, p.fetcher, req)
	if err != nil {
		return err
	}
	if err := feed.Run(ctx, bytes.NewReader(resp.Body), m); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeSchema, Message: "malformed " + op + " feed", Err: err}
	}
	return nil
}

// Search queries the movie search feed.
func (p *Provider) Search(ctx context.Context, query string, _ media.Locale) ([]media.SearchCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	u := p.endpoint("search", url.Values{
		"filter":    {"movie"},
		"striptags": {stripTags},
		"q":         {query},
	})
	m := &searchResults{}
	if err := p.run(ctx, "search", u, m); err != nil {
		return nil, err
	}
	if m.results == nil {
		return []media.SearchCandidate{}, nil
	}
	return m.results, nil
}

func (p *Provider) movie(ctx context.Context, id media.Identifier) (*movieInfo, error) {
	n, err := provider.NumericID(providerName, id, media.SourceAllocine)
	if err != nil {
		return nil, err
	}
	u := p.endpoint("movie", url.Values{
		"profile":   {"large"},
		"filter":    {"movie"},
		"striptags": {stripTags},
		"code":      {strconv.Itoa(n)},
	})
	m := newMovieInfo(id)
	if err := p.run(ctx, "movie", u, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Details fetches the large movie profile.
func (p *Provider) Details(ctx context.Context, id media.Identifier, _ media.Locale) (*media.DetailRecord, error) {
	m, err := p.movie(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := m.record.Build()
	if !provider.HasTitle(rec) {
		return nil, provider.NotFound(providerName, "movie %s", id.ID)
	}
	return rec, nil
}

// Cast lists the credited cast members of a movie.
func (p *Provider) Cast(ctx context.Context, id media.Identifier, _ media.Locale) ([]media.CastEntry, error) {
	m, err := p.movie(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.cast, nil
}

// Images lists the posters and stills of a movie.
func (p *Provider) Images(ctx context.Context, id media.Identifier) ([]media.ImageRecord, error) {
	m, err := p.movie(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.images, nil
}

// Episode walks show → season → episode: Allocine addresses episodes by their
// own code only.
func (p *Provider) Episode(ctx context.Context, show media.Identifier, season, episode int, _ media.Locale) (*media.DetailRecord, error) {
	n, err := provider.NumericID(providerName, show, media.SourceAllocine)
	if err != nil {
		return nil, err
	}

	seasons := newCodeIndex("season", "seasonnumber", "tvseries")
	u := p.endpoint("tvseries", url.Values{"profile": {"large"}, "code": {strconv.Itoa(n)}})
	if err := p.run(ctx, "tvseries", u, seasons); err != nil {
		return nil, err
	}
	seasonCode, ok := seasons.codes[season]
	if !ok {
		return nil, provider.NotFound(providerName, "show %d season %d", n, season)
	}

	episodes := newCodeIndex("episode", "episodenumberseason", "season")
	u = p.endpoint("season", url.Values{"profile": {"large"}, "code": {seasonCode}})
	if err := p.run(ctx, "season", u, episodes); err != nil {
		return nil, err
	}
	episodeCode, ok := episodes.codes[episode]
	if !ok {
		return nil, provider.NotFound(providerName, "show %d S%02dE%02d", n, season, episode)
	}

	info := newEpisodeInfo(show)
	u = p.endpoint("episode", url.Values{"profile": {"large"}, "striptags": {stripTags}, "code": {episodeCode}})
	if err := p.run(ctx, "episode", u, info); err != nil {
		return nil, err
	}
	b := info.record
	b.Set(media.PropShowTitle, seasons.title)
	b.Set(media.PropSeason, strconv.Itoa(season))
	b.SetDefault(media.PropEpisode, strconv.Itoa(episode))
	b.Add(media.MultiIdentifiers, show.String())
	rec := b.Build()
	if !provider.HasTitle(rec) {
		return nil, provider.NotFound(providerName, "episode %s", episodeCode)
	}
	return rec, nil
}
