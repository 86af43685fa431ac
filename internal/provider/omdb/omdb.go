// Package omdb resolves movies, shows and episodes by IMDb id through the
// Open Movie Database.
package omdb

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/omdb"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

const providerName = "omdb"

// Provider implements the OMDb adapter. OMDb serves English records only, so
// the requested locale is ignored.
type Provider struct {
	client     *omdb.Client
	httpClient *http.Client
	limiter    *provider.RateLimiter
	log        logrus.FieldLogger
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client the SDK sends requests through.
func WithHTTPClient(hc *http.Client) Option { return func(p *Provider) { p.httpClient = hc } }

// WithLogger sets the provider logger.
func WithLogger(l logrus.FieldLogger) Option { return func(p *Provider) { p.log = l } }

// WithRateLimiter replaces the default limiter.
func WithRateLimiter(rl *provider.RateLimiter) Option { return func(p *Provider) { p.limiter = rl } }

// New creates an OMDb provider. The "omdb.apikey" setting is required.
func New(settings provider.Settings, opts ...Option) (*Provider, error) {
	key, ok := provider.Setting(settings, "omdb.apikey")
	if !ok || strings.TrimSpace(key) == "" {
		return nil, provider.MissingSetting(providerName, "omdb.apikey")
	}
	p := &Provider{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    provider.NewRateLimiter(10, time.Second),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = omdb.NewClient(strings.TrimSpace(key), p.httpClient)
	return p, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Kinds() []media.Kind {
	return []media.Kind{media.KindMovie, media.KindTVShow, media.KindEpisode}
}

func (p *Provider) DefaultLocale() media.Locale { return media.DefaultLocale }

func (p *Provider) call(ctx context.Context, op string, fn func() (any, error)) (any, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return provider.Call(ctx, providerName, op, fn)
}

// Search looks a title up by exact name. OMDb answers with the single best
// match; a miss is an empty list.
func (p *Provider) Search(ctx context.Context, query string, _ media.Locale) ([]media.SearchCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	result, err := p.call(ctx, "search", func() (any, error) {
		return p.client.SearchByTitle(omdb.QueryData{Title: query})
	})
	if provider.IsNotFound(err) {
		return []media.SearchCandidate{}, nil
	}
	if err != nil {
		return nil, err
	}

	var title, year, imdbID string
	switch r := result.(type) {
	case omdb.MovieResult:
		title, year, imdbID = r.Title, r.Year, r.ImdbID
	case *omdb.MovieResult:
		title, year, imdbID = r.Title, r.Year, r.ImdbID
	case omdb.SeriesResult:
		title, year, imdbID = r.Title, r.Year, r.ImdbID
	case *omdb.SeriesResult:
		title, year, imdbID = r.Title, r.Year, r.ImdbID
	default:
		return []media.SearchCandidate{}, nil
	}
	n, ok := provider.ExtractID(provider.IMDbIDPattern, imdbID)
	if !ok {
		return []media.SearchCandidate{}, nil
	}
	c := media.NewCandidate(media.NewID(n, media.SourceOMDB), title)
	if y, err := strconv.Atoi(omdb.FirstYear(year)); err == nil && y > 0 {
		c.Year = y
	}
	return []media.SearchCandidate{c}, nil
}

// imdbID accepts OMDb and IMDb identifiers; both carry the numeric IMDb id.
func imdbID(id media.Identifier) (string, error) {
	src := media.SourceOMDB
	if id.Source == media.SourceIMDB {
		src = media.SourceIMDB
	}
	n, err := provider.NumericID(providerName, id, src)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tt%07d", n), nil
}

// Details fetches a movie or series record with the full plot.
func (p *Provider) Details(ctx context.Context, id media.Identifier, _ media.Locale) (*media.DetailRecord, error) {
	tt, err := imdbID(id)
	if err != nil {
		return nil, err
	}
	result, err := p.call(ctx, "details", func() (any, error) {
		return p.client.SearchByImdbID(omdb.QueryData{ImdbID: tt, Plot: "full"})
	})
	if err != nil {
		return nil, err
	}
	var rec *media.DetailRecord
	switch r := result.(type) {
	case omdb.MovieResult:
		rec = movieRecord(id, &r)
	case *omdb.MovieResult:
		rec = movieRecord(id, r)
	case omdb.SeriesResult:
		rec = seriesRecord(id, &r)
	case *omdb.SeriesResult:
		rec = seriesRecord(id, r)
	}
	if rec == nil || !provider.HasTitle(rec) {
		return nil, provider.NotFound(providerName, "title %s", tt)
	}
	return rec, nil
}

// Episode fetches one episode of the show identified by show.
func (p *Provider) Episode(ctx context.Context, show media.Identifier, season, episode int, _ media.Locale) (*media.DetailRecord, error) {
	tt, err := imdbID(show)
	if err != nil {
		return nil, err
	}
	result, err := p.call(ctx, "episode", func() (any, error) {
		return p.client.SearchByImdbID(omdb.QueryData{
			ImdbID:  tt,
			Season:  strconv.Itoa(season),
			Episode: strconv.Itoa(episode),
			Plot:    "full",
		})
	})
	if err != nil {
		return nil, err
	}
	var ep *omdb.EpisodeResult
	switch r := result.(type) {
	case omdb.EpisodeResult:
		ep = &r
	case *omdb.EpisodeResult:
		ep = r
	}
	if ep == nil || ep.Title == "" {
		return nil, provider.NotFound(providerName, "episode %s S%02dE%02d", tt, season, episode)
	}

	b := media.NewDetailBuilder(show, media.KindEpisode)
	b.Set(media.PropTitle, ep.Title)
	b.Set(media.PropOverview, ep.Plot)
	b.Set(media.PropReleaseDate, ep.Released)
	b.Set(media.PropYear, omdb.FirstYear(ep.Released))
	b.Set(media.PropSeason, strconv.Itoa(season))
	b.Set(media.PropEpisode, strconv.Itoa(episode))
	setCommon(b, ep.Runtime, ep.ImdbRating, ep.Genre, ep.Country, ep.Language)
	b.Add(media.MultiIdentifiers, show.String())
	if n, ok := provider.ExtractID(provider.IMDbIDPattern, ep.ImdbID); ok {
		b.Add(media.MultiIdentifiers, media.NewID(n, media.SourceIMDB).String())
	}
	return b.Build(), nil
}

func movieRecord(id media.Identifier, r *omdb.MovieResult) *media.DetailRecord {
	b := media.NewDetailBuilder(id, media.KindMovie)
	b.Set(media.PropTitle, r.Title)
	b.Set(media.PropYear, omdb.FirstYear(r.Year))
	b.Set(media.PropOverview, r.Plot)
	setCommon(b, r.Runtime, r.ImdbRating, r.Genre, r.Country, r.Language)
	addIdentifiers(b, id, r.ImdbID)
	return b.Build()
}

func seriesRecord(id media.Identifier, r *omdb.SeriesResult) *media.DetailRecord {
	b := media.NewDetailBuilder(id, media.KindTVShow)
	b.Set(media.PropTitle, r.Title)
	b.Set(media.PropYear, omdb.FirstYear(r.Year))
	b.Set(media.PropOverview, r.Plot)
	setCommon(b, r.Runtime, r.ImdbRating, r.Genre, r.Country, r.Language)
	addIdentifiers(b, id, r.ImdbID)
	return b.Build()
}

func setCommon(b *media.DetailBuilder, runtime, rating, genre, country, language string) {
	if m := parseRuntime(runtime); m > 0 {
		b.Set(media.PropRuntime, strconv.Itoa(m))
	}
	if v := omdb.ParseRating(rating); v > 0 {
		b.Set(media.PropRating, fmt.Sprint(v))
	}
	b.Add(media.MultiGenres, omdb.SplitAndTrim(genre)...)
	b.Add(media.MultiCountries, omdb.SplitAndTrim(country)...)
	b.Add(media.MultiLanguages, omdb.SplitAndTrim(language)...)
}

func addIdentifiers(b *media.DetailBuilder, id media.Identifier, tt string) {
	b.Add(media.MultiIdentifiers, id.String())
	if n, ok := provider.ExtractID(provider.IMDbIDPattern, tt); ok {
		b.Add(media.MultiIdentifiers, media.NewID(n, media.SourceIMDB).String())
	}
}

// parseRuntime converts runtime strings such as "136 min" to minutes.
func parseRuntime(value string) int {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return minutes
}
