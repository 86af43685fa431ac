// Package tvdb resolves TV shows and episodes against TheTVDB v4 API.
package tvdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"
	"github.com/dashotv/tvdb/openapi/models/shared"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/cache"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

const providerName = "tvdb"

// Client captures the dashotv client methods used by this provider.
type Client interface {
	GetSearchResults(request operations.GetSearchResultsRequest) (*tvdbapi.GetSearchResultsResponse, error)
	GetSeriesExtended(id float64, meta *operations.GetSeriesExtendedQueryParamMeta, short *bool) (*tvdbapi.GetSeriesExtendedResponse, error)
	GetSeriesEpisodes(request operations.GetSeriesEpisodesRequest) (*tvdbapi.GetSeriesEpisodesResponse, error)
}

// Provider implements the TVDB adapter. The API client logs in lazily on the
// first request.
type Provider struct {
	apiKey  string
	login   func(apiKey string) (Client, error)
	cache   *cache.Cache
	limiter *provider.RateLimiter
	log     logrus.FieldLogger

	mu     sync.Mutex
	client Client
}

// Option configures a Provider.
type Option func(*Provider)

// WithClient uses c instead of logging in.
func WithClient(c Client) Option { return func(p *Provider) { p.client = c } }

// WithCache caches decoded API responses.
func WithCache(c *cache.Cache) Option { return func(p *Provider) { p.cache = c } }

// WithLogger sets the provider logger.
func WithLogger(l logrus.FieldLogger) Option { return func(p *Provider) { p.log = l } }

// WithRateLimiter replaces the default limiter.
func WithRateLimiter(rl *provider.RateLimiter) Option { return func(p *Provider) { p.limiter = rl } }

// New creates a TVDB provider. The "tvdb.apikey" setting is required.
func New(settings provider.Settings, opts ...Option) (*Provider, error) {
	key, ok := provider.Setting(settings, "tvdb.apikey")
	if !ok {
		return nil, provider.MissingSetting(providerName, "tvdb.apikey")
	}
	p := &Provider{
		apiKey: strings.TrimSpace(key),
		login: func(apiKey string) (Client, error) {
			return tvdbapi.Login(apiKey)
		},
		limiter: provider.NewRateLimiter(20, time.Second),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Kinds() []media.Kind {
	return []media.Kind{media.KindTVShow, media.KindEpisode}
}

func (p *Provider) DefaultLocale() media.Locale { return media.DefaultLocale }

func (p *Provider) api(ctx context.Context) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	c, err := provider.Call(ctx, providerName, "login", func() (Client, error) {
		return p.login(p.apiKey)
	})
	if err != nil {
		return nil, err
	}
	p.log.WithField("provider", providerName).Debug("logged in")
	p.client = c
	return c, nil
}

func cached[T any](ctx context.Context, p *Provider, op string, locale media.Locale, resource string, call func(Client) (T, error)) (T, error) {
	c, err := p.api(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return provider.Cached(ctx, p.cache, p.limiter, provider.SDKCall{
		Provider:  providerName,
		Operation: op,
		Locale:    locale,
		Resource:  resource,
	}, func() (T, error) { return call(c) })
}

// Search queries series by name. Results without a usable id are dropped.
func (p *Provider) Search(ctx context.Context, query string, locale media.Locale) ([]media.SearchCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	resp, err := cached(ctx, p, "search", locale, query, func(c Client) (*tvdbapi.GetSearchResultsResponse, error) {
		typeSeries := "series"
		return c.GetSearchResults(operations.GetSearchResultsRequest{Query: &query, Type: &typeSeries})
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	out := make([]media.SearchCandidate, 0, len(resp.Data))
	for _, r := range resp.Data {
		if t := str(r.Type); t != "" && !strings.EqualFold(t, "series") {
			continue
		}
		c, ok := candidate(r)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func candidate(r shared.SearchResult) (media.SearchCandidate, bool) {
	id := atoi(str(r.TvdbID))
	if id <= 0 {
		id = atoi(strings.TrimPrefix(str(r.ID), "series-"))
	}
	if id <= 0 {
		return media.SearchCandidate{}, false
	}
	c := media.NewCandidate(media.NewID(id, media.SourceTVDB), firstNonEmpty(str(r.Name), str(r.NameTranslated), str(r.Title)))
	if y := atoi(str(r.Year)); y > 0 {
		c.Year = y
	}
	return c, true
}

// Details fetches the extended series record.
func (p *Provider) Details(ctx context.Context, id media.Identifier, locale media.Locale) (*media.DetailRecord, error) {
	n, err := provider.NumericID(providerName, id, media.SourceTVDB)
	if err != nil {
		return nil, err
	}
	resp, err := cached(ctx, p, "details", locale, id.ID, func(c Client) (*tvdbapi.GetSeriesExtendedResponse, error) {
		meta := operations.GetSeriesExtendedQueryParamMetaTranslations
		return c.GetSeriesExtended(float64(n), &meta, nil)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil {
		return nil, provider.NotFound(providerName, "series %d", n)
	}
	s := resp.Data

	b := media.NewDetailBuilder(id, media.KindTVShow)
	b.Set(media.PropTitle, str(s.Name))
	b.Set(media.PropOverview, str(s.Overview))
	if y := atoi(str(s.Year)); y > 0 {
		b.Set(media.PropYear, strconv.Itoa(y))
	}
	if s.Score != nil && *s.Score > 0 {
		b.Set(media.PropRating, strconv.FormatFloat(*s.Score, 'f', -1, 64))
	}
	if s.AverageRuntime != nil && *s.AverageRuntime > 0 {
		b.Set(media.PropRuntime, strconv.FormatInt(*s.AverageRuntime, 10))
	}
	for _, g := range s.Genres {
		b.Add(media.MultiGenres, str(g.Name))
	}
	if s.OriginalNetwork != nil {
		b.Add(media.MultiNetworks, str(s.OriginalNetwork.Name))
	}
	if s.LatestNetwork != nil {
		b.Add(media.MultiNetworks, str(s.LatestNetwork.Name))
	}
	b.Add(media.MultiCountries, str(s.Country))
	b.Add(media.MultiLanguages, str(s.OriginalLanguage))
	b.Add(media.MultiIdentifiers, id.String())
	if imdb, ok := provider.ExtractID(provider.IMDbIDPattern, remoteID(s.RemoteIds, "imdb")); ok {
		b.Add(media.MultiIdentifiers, media.NewID(imdb, media.SourceIMDB).String())
	}
	return b.Build(), nil
}

// Episode fetches one episode from the official season order.
func (p *Provider) Episode(ctx context.Context, show media.Identifier, season, episode int, locale media.Locale) (*media.DetailRecord, error) {
	n, err := provider.NumericID(providerName, show, media.SourceTVDB)
	if err != nil {
		return nil, err
	}
	if season < 0 || episode <= 0 {
		return nil, provider.NotFound(providerName, "episode S%02dE%02d", season, episode)
	}
	resource := fmt.Sprintf("%d/%d/%d", n, season, episode)
	resp, err := cached(ctx, p, "episode", locale, resource, func(c Client) (*tvdbapi.GetSeriesEpisodesResponse, error) {
		s, e := int64(season), int64(episode)
		return c.GetSeriesEpisodes(operations.GetSeriesEpisodesRequest{
			ID:            float64(n),
			SeasonType:    "official",
			Season:        &s,
			EpisodeNumber: &e,
			Page:          0,
		})
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil || len(resp.Data.Episodes) == 0 {
		return nil, provider.NotFound(providerName, "episode %s", resource)
	}

	ep := resp.Data.Episodes[0]
	for _, e := range resp.Data.Episodes {
		if e.Number != nil && int(*e.Number) == episode {
			ep = e
			break
		}
	}

	b := media.NewDetailBuilder(show, media.KindEpisode)
	b.Set(media.PropTitle, str(ep.Name))
	if resp.Data.Series != nil {
		b.Set(media.PropShowTitle, str(resp.Data.Series.Name))
	}
	b.Set(media.PropOverview, str(ep.Overview))
	b.Set(media.PropSeason, strconv.Itoa(season))
	b.Set(media.PropEpisode, strconv.Itoa(episode))
	if y := atoi(str(ep.Year)); y > 0 {
		b.Set(media.PropYear, strconv.Itoa(y))
	}
	if ep.Runtime != nil && *ep.Runtime > 0 {
		b.Set(media.PropRuntime, strconv.FormatInt(*ep.Runtime, 10))
	}
	b.Add(media.MultiIdentifiers, show.String())
	return b.Build(), nil
}

func remoteID(ids []shared.RemoteID, source string) string {
	needle := strings.ToLower(source)
	for _, r := range ids {
		if strings.Contains(strings.ToLower(str(r.SourceName)), needle) {
			return str(r.ID)
		}
	}
	return ""
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
