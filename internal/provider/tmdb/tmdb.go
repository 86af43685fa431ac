// Package tmdb resolves movies and episodes against The Movie Database.
package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ryanbradynd05/go-tmdb"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/cache"
	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

const (
	providerName = "tmdb"

	// ImageBase prefixes poster and backdrop paths returned by the API.
	ImageBase       = "https://image.tmdb.org/t/p/"
	defaultFeedHost = "api.themoviedb.org"
)

// Client is the subset of *tmdb.TMDb the provider uses.
type Client interface {
	SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetMovieInfo(id int, options map[string]string) (*tmdb.Movie, error)
	GetTvInfo(id int, options map[string]string) (*tmdb.TV, error)
	GetTvEpisodeInfo(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error)
}

// Provider implements the TMDb adapter. API responses are cached under the
// records category; the XML movie feed used for cast and images goes through
// the document fetcher.
type Provider struct {
	client   Client
	apiKey   string
	feedHost string
	fetcher  fetch.Fetcher
	cache    *cache.Cache
	limiter  *provider.RateLimiter
	log      logrus.FieldLogger
}

// Option configures a Provider.
type Option func(*Provider)

// WithClient replaces the SDK client.
func WithClient(c Client) Option { return func(p *Provider) { p.client = c } }

// WithCache caches decoded API responses.
func WithCache(c *cache.Cache) Option { return func(p *Provider) { p.cache = c } }

// WithLogger sets the provider logger.
func WithLogger(l logrus.FieldLogger) Option { return func(p *Provider) { p.log = l } }

// WithRateLimiter replaces the default limiter.
func WithRateLimiter(rl *provider.RateLimiter) Option { return func(p *Provider) { p.limiter = rl } }

// New creates a TMDb provider. The "tmdb.apikey" setting is required.
func New(f fetch.Fetcher, settings provider.Settings, opts ...Option) (*Provider, error) {
	key, ok := provider.Setting(settings, "tmdb.apikey")
	if !ok {
		return nil, provider.MissingSetting(providerName, "tmdb.apikey")
	}
	p := &Provider{
		apiKey:   key,
		feedHost: defaultFeedHost,
		fetcher:  f,
		// TMDB allows ~40 requests per 10 seconds
		limiter: provider.NewRateLimiter(38, 10*time.Second),
		log:     logrus.StandardLogger(),
	}
	if h, ok := provider.Setting(settings, "tmdb.host"); ok {
		p.feedHost = h
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = tmdb.Init(tmdb.Config{APIKey: key})
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Kinds() []media.Kind {
	return []media.Kind{media.KindMovie, media.KindTVShow, media.KindEpisode}
}

// Accepts limits artwork fallbacks to TMDb identifiers.
func (p *Provider) Accepts(id media.Identifier) bool { return id.Source == media.SourceTMDB }

func (p *Provider) DefaultLocale() media.Locale { return media.DefaultLocale }

// cached runs call through the response cache when one is configured.
func cached[T any](ctx context.Context, p *Provider, op string, locale media.Locale, resource string, call func() (T, error)) (T, error) {
	return provider.Cached(ctx, p.cache, p.limiter, provider.SDKCall{
		Provider:  providerName,
		Operation: op,
		Locale:    locale,
		Resource:  resource,
	}, call)
}

func options(locale media.Locale) map[string]string {
	return map[string]string{"language": locale.String()}
}

// Search queries the movie search endpoint.
func (p *Provider) Search(ctx context.Context, query string, locale media.Locale) ([]media.SearchCandidate, error) {
	return p.SearchKind(ctx, query, media.KindMovie, locale)
}

// SearchKind queries the movie or the TV search endpoint. Movie and show ids
// share no namespace, so episodes must be found through the TV search.
func (p *Provider) SearchKind(ctx context.Context, query string, kind media.Kind, locale media.Locale) ([]media.SearchCandidate, error) {
	if kind == media.KindTVShow || kind == media.KindEpisode {
		return p.searchTV(ctx, query, locale)
	}
	res, err := cached(ctx, p, "search", locale, query, func() (*tmdb.MovieSearchResults, error) {
		return p.client.SearchMovie(query, options(locale))
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	out := make([]media.SearchCandidate, 0, len(res.Results))
	for _, m := range res.Results {
		out = append(out, searchCandidate(m.ID, m.Title, m.OriginalTitle, m.ReleaseDate, m.PosterPath))
	}
	return out, nil
}

func (p *Provider) searchTV(ctx context.Context, query string, locale media.Locale) ([]media.SearchCandidate, error) {
	res, err := cached(ctx, p, "search_tv", locale, query, func() (*tmdb.TvSearchResults, error) {
		return p.client.SearchTv(query, options(locale))
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	out := make([]media.SearchCandidate, 0, len(res.Results))
	for _, s := range res.Results {
		out = append(out, searchCandidate(s.ID, s.Name, s.OriginalName, s.FirstAirDate, s.PosterPath))
	}
	return out, nil
}

func searchCandidate(id int, title, original, date, poster string) media.SearchCandidate {
	c := media.NewCandidate(media.NewID(id, media.SourceTMDB), title)
	if original != title {
		c.OriginalName = original
	}
	c.Year = year(date)
	if poster != "" {
		c.Thumbnail = ImageBase + "original" + poster
	}
	return c
}

func year(date string) int {
	if len(date) < 4 {
		return media.UnknownYear
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return media.UnknownYear
	}
	return y
}

// Details fetches the movie record, falling back to English when the
// localized record has no title.
func (p *Provider) Details(ctx context.Context, id media.Identifier, locale media.Locale) (*media.DetailRecord, error) {
	n, err := provider.NumericID(providerName, id, media.SourceTMDB)
	if err != nil {
		return nil, err
	}
	return provider.WithLocaleFallback(ctx, p, locale, func(ctx context.Context, l media.Locale) (*media.DetailRecord, error) {
		m, err := cached(ctx, p, "details", l, id.ID, func() (*tmdb.Movie, error) {
			return p.client.GetMovieInfo(n, options(l))
		})
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, provider.NotFound(providerName, "movie %d", n)
		}
		return movieRecord(id, m, p.feedRecord(ctx, id, l)), nil
	}, provider.HasTitle)
}

// feedRecord reads the fields the API omits (trailer, certification, countries)
// from the movie feed. Failures only cost those fields.
func (p *Provider) feedRecord(ctx context.Context, id media.Identifier, locale media.Locale) *media.DetailRecord {
	m, err := p.info(ctx, id, locale)
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{"provider": providerName, "id": id.String()}).Debug("movie feed unavailable")
		return nil
	}
	return m.record.Build()
}

func movieRecord(id media.Identifier, m *tmdb.Movie, extra *media.DetailRecord) *media.DetailRecord {
	b := media.NewDetailBuilder(id, media.KindMovie)
	b.Set(media.PropTitle, m.Title)
	if m.OriginalTitle != m.Title {
		b.Set(media.PropOriginalTitle, m.OriginalTitle)
	}
	b.Set(media.PropOverview, m.Overview)
	b.Set(media.PropTagline, m.Tagline)
	b.Set(media.PropReleaseDate, m.ReleaseDate)
	if y := year(m.ReleaseDate); y > 0 {
		b.Set(media.PropYear, strconv.Itoa(y))
	}
	if m.Runtime > 0 {
		b.Set(media.PropRuntime, fmt.Sprint(m.Runtime))
	}
	if m.VoteCount > 0 {
		b.Set(media.PropRating, fmt.Sprint(m.VoteAverage))
		b.Set(media.PropVotes, fmt.Sprint(m.VoteCount))
	}
	b.Set(media.PropHomepage, m.Homepage)
	if m.PosterPath != "" {
		b.Set(media.PropThumbnail, ImageBase+"original"+m.PosterPath)
	}
	for _, g := range m.Genres {
		b.Add(media.MultiGenres, g.Name)
	}
	for _, c := range m.ProductionCompanies {
		b.Add(media.MultiStudios, c.Name)
	}
	b.Add(media.MultiIdentifiers, id.String())
	if imdb, ok := provider.ExtractID(provider.IMDbIDPattern, m.ImdbID); ok {
		b.Add(media.MultiIdentifiers, media.NewID(imdb, media.SourceIMDB).String())
	}
	if extra != nil {
		for _, prop := range extra.Properties() {
			b.SetDefault(prop, extra.Value(prop))
		}
		for _, mp := range []media.MultiProperty{media.MultiGenres, media.MultiStudios, media.MultiCountries, media.MultiIdentifiers} {
			b.Add(mp, extra.GetAll(mp)...)
		}
	}
	return b.Build()
}

// Episode fetches one episode and decorates it with the show name.
func (p *Provider) Episode(ctx context.Context, show media.Identifier, season, episode int, locale media.Locale) (*media.DetailRecord, error) {
	showID, err := provider.NumericID(providerName, show, media.SourceTMDB)
	if err != nil {
		return nil, err
	}
	resource := fmt.Sprintf("%d/%d/%d", showID, season, episode)
	ep, err := cached(ctx, p, "episode", locale, resource, func() (*tmdb.TvEpisode, error) {
		return p.client.GetTvEpisodeInfo(showID, season, episode, options(locale))
	})
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, provider.NotFound(providerName, "episode S%02dE%02d of show %d", season, episode, showID)
	}

	epID := media.Identifier{ID: fmt.Sprint(ep.ID), Source: media.SourceTMDB}
	if ep.ID == 0 {
		epID = show
	}
	b := media.NewDetailBuilder(epID, media.KindEpisode)
	b.Set(media.PropTitle, ep.Name)
	b.Set(media.PropReleaseDate, ep.AirDate)
	b.Set(media.PropOverview, ep.Overview)
	b.Set(media.PropSeason, strconv.Itoa(ep.SeasonNumber))
	b.Set(media.PropEpisode, strconv.Itoa(ep.EpisodeNumber))
	if ep.VoteCount > 0 {
		b.Set(media.PropRating, fmt.Sprint(ep.VoteAverage))
		b.Set(media.PropVotes, fmt.Sprint(ep.VoteCount))
	}
	b.Add(media.MultiIdentifiers, show.String())

	// The show name is decoration; a failure here keeps the episode.
	tv, err := cached(ctx, p, "show", locale, show.ID, func() (*tmdb.TV, error) {
		return p.client.GetTvInfo(showID, options(locale))
	})
	if err != nil {
		p.log.WithError(err).WithField("provider", providerName).Warn("show lookup failed")
	} else if tv != nil {
		b.Set(media.PropShowTitle, tv.Name)
		for _, n := range tv.Networks {
			b.Add(media.MultiNetworks, n.Name)
		}
	}
	return b.Build(), nil
}
