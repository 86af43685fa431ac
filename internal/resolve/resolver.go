// Package resolve drives providers through search, details, cast and images
// for one media item, and through batches of files.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Digital-Shane/title-scout/internal/log"
	"github.com/Digital-Shane/title-scout/internal/match"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/metrics"
	"github.com/Digital-Shane/title-scout/internal/probe"
	"github.com/Digital-Shane/title-scout/internal/provider"
	"github.com/Digital-Shane/title-scout/internal/tracing"
)

// Prober reads technical tags from a local file.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Tags, error)
}

// Query is one search request.
type Query struct {
	Text     string
	Year     int // expected release year, 0 when unknown
	Kind     media.Kind
	Locale   media.Locale
	Provider string // empty selects the highest priority searcher
	Limit    int    // 0 uses the resolver default, negative means unlimited
}

// Result is everything assembled for one identifier. Sections that were not
// reached are empty.
type Result struct {
	ID         media.Identifier
	Details    *media.DetailRecord
	Cast       []media.CastEntry
	Images     []media.ImageRecord
	Candidates []media.SearchCandidate
	Tags       *probe.Tags
	State      State
	Canceled   bool
}

// Resolver runs resolutions against the providers of a registry. It holds
// no per-request state and is safe for concurrent use.
type Resolver struct {
	registry   *provider.Registry
	locale     media.Locale
	limit      int
	sortByYear bool
	prober     Prober
	log        logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLocale sets the locale used when a request carries none.
func WithLocale(l media.Locale) Option { return func(r *Resolver) { r.locale = l } }

// WithLimit caps search results after ranking. Non-positive disables the cap.
func WithLimit(n int) Option { return func(r *Resolver) { r.limit = n } }

// WithSortByYear enables ranking candidates by year distance.
func WithSortByYear(on bool) Option { return func(r *Resolver) { r.sortByYear = on } }

// WithProber attaches technical tag probing to file resolution.
func WithProber(p Prober) Option { return func(r *Resolver) { r.prober = p } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(r *Resolver) { r.log = l } }

// New creates a resolver over reg.
func New(reg *provider.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry:   reg,
		locale:     media.DefaultLocale,
		sortByYear: true,
		log:        log.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the provider registry the resolver queries.
func (r *Resolver) Registry() *provider.Registry { return r.registry }

func (r *Resolver) localeOr(l media.Locale) media.Locale {
	if l == "" {
		return r.locale
	}
	return l
}

// Search queries one provider and ranks the candidates. A provider reporting
// NotFound yields an empty list, not an error.
func (r *Resolver) Search(ctx context.Context, q Query) ([]media.SearchCandidate, error) {
	if q.Kind == "" {
		q.Kind = media.KindMovie
	}
	searcher, err := r.registry.Searcher(q.Provider, q.Kind)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseSearch, Provider: q.Provider, Query: q.Text, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []media.SearchCandidate
	err = r.phase(ctx, PhaseSearch, searcher.Name(), func(ctx context.Context) error {
		var err error
		if ks, ok := searcher.(provider.KindSearcher); ok {
			candidates, err = ks.SearchKind(ctx, q.Text, q.Kind, r.localeOr(q.Locale))
		} else {
			candidates, err = searcher.Search(ctx, q.Text, r.localeOr(q.Locale))
		}
		return err
	})
	if provider.IsNotFound(err) {
		return []media.SearchCandidate{}, nil
	}
	if err != nil {
		return nil, &PhaseError{Phase: PhaseSearch, Provider: searcher.Name(), Query: q.Text, Err: err}
	}

	if r.sortByYear && q.Year > 0 {
		Rank(candidates, q.Year)
	}
	limit := q.Limit
	if limit == 0 {
		limit = r.limit
	}
	return Cap(candidates, limit), nil
}

// Rank orders candidates by distance between their year and expected,
// closest first. Ties keep their original order.
func Rank(candidates []media.SearchCandidate, expected int) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return match.YearDistance(candidates[i].Year, expected) < match.YearDistance(candidates[j].Year, expected)
	})
}

// Cap truncates candidates to n entries. Non-positive n leaves them intact.
func Cap(candidates []media.SearchCandidate, n int) []media.SearchCandidate {
	if n > 0 && len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}

// Resolve fetches details for id, then cast and images in parallel.
// Cancellation observed before a phase starts returns the partial result
// with Canceled set and a nil error. A failing phase returns the partial
// result and a *PhaseError.
func (r *Resolver) Resolve(ctx context.Context, id media.Identifier, locale media.Locale) (*Result, error) {
	res := &Result{ID: id, State: StateIdle}
	p, ok := r.registry.Get(string(id.Source))
	if !ok {
		return res, &PhaseError{Phase: PhaseDetails, ID: id, Err: fmt.Errorf("no provider for source %s", id.Source)}
	}
	details, ok := p.(provider.DetailsFetcher)
	if !ok {
		return res, &PhaseError{Phase: PhaseDetails, Provider: p.Name(), ID: id, Err: errors.New("provider cannot fetch details")}
	}
	locale = r.localeOr(locale)

	if r.canceled(ctx, res) {
		return res, nil
	}
	res.State = StateFetchingDetails
	var rec *media.DetailRecord
	err := r.phase(ctx, PhaseDetails, p.Name(), func(ctx context.Context) error {
		var err error
		rec, err = details.Details(ctx, id, locale)
		return err
	})
	if err != nil {
		return r.fail(ctx, res, &PhaseError{Phase: PhaseDetails, Provider: p.Name(), ID: id, Err: err})
	}
	res.Details = rec

	return r.extras(ctx, res, p, id, rec.Kind(), locale)
}

// ResolveEpisode fetches one episode of show as the details phase. Cast and
// image lookups are keyed by movie identifiers, so an episode result carries
// details only.
func (r *Resolver) ResolveEpisode(ctx context.Context, show media.Identifier, season, episode int, locale media.Locale) (*Result, error) {
	res := &Result{ID: show, State: StateIdle}
	p, ok := r.registry.Get(string(show.Source))
	if !ok {
		return res, &PhaseError{Phase: PhaseDetails, ID: show, Err: fmt.Errorf("no provider for source %s", show.Source)}
	}
	ep, ok := p.(provider.EpisodeFetcher)
	if !ok {
		return res, &PhaseError{Phase: PhaseDetails, Provider: p.Name(), ID: show, Err: errors.New("provider cannot fetch episodes")}
	}
	locale = r.localeOr(locale)

	if r.canceled(ctx, res) {
		return res, nil
	}
	res.State = StateFetchingDetails
	var rec *media.DetailRecord
	err := r.phase(ctx, PhaseDetails, p.Name(), func(ctx context.Context) error {
		var err error
		rec, err = ep.Episode(ctx, show, season, episode, locale)
		return err
	})
	if err != nil {
		return r.fail(ctx, res, &PhaseError{Phase: PhaseDetails, Provider: p.Name(), ID: show, Err: err})
	}
	res.Details = rec

	if r.canceled(ctx, res) {
		return res, nil
	}
	res.State = StateComplete
	metrics.ResolutionsTotal.WithLabelValues("complete").Inc()
	return res, nil
}

// extras runs the cast and images phases. Each commits its portion only
// when it completes; NotFound commits an empty portion.
func (r *Resolver) extras(ctx context.Context, res *Result, p provider.Provider, id media.Identifier, kind media.Kind, locale media.Locale) (*Result, error) {
	if r.canceled(ctx, res) {
		return res, nil
	}
	res.State = StateFetchingExtras

	var (
		cast      []media.CastEntry
		images    []media.ImageRecord
		castDone  bool
		imageDone bool
	)
	var g errgroup.Group
	if cf, ok := p.(provider.CastFetcher); ok {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			err := r.phase(ctx, PhaseCast, cf.Name(), func(ctx context.Context) error {
				var err error
				cast, err = cf.Cast(ctx, id, locale)
				return err
			})
			if err != nil && !provider.IsNotFound(err) {
				return &PhaseError{Phase: PhaseCast, Provider: cf.Name(), ID: id, Err: err}
			}
			castDone = true
			return nil
		})
	} else {
		castDone = true
	}
	if imf := r.imageSource(p, id, kind); imf != nil {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			err := r.phase(ctx, PhaseImages, imf.Name(), func(ctx context.Context) error {
				var err error
				images, err = imf.Images(ctx, id)
				return err
			})
			if err != nil && !provider.IsNotFound(err) {
				return &PhaseError{Phase: PhaseImages, Provider: imf.Name(), ID: id, Err: err}
			}
			imageDone = true
			return nil
		})
	} else {
		imageDone = true
	}
	err := g.Wait()

	if castDone {
		res.Cast = cast
	}
	if imageDone {
		res.Images = images
	}
	if err != nil {
		return r.fail(ctx, res, err)
	}
	if !castDone || !imageDone {
		res.Canceled = true
		metrics.ResolutionsTotal.WithLabelValues("canceled").Inc()
		return res, nil
	}
	res.State = StateComplete
	metrics.ResolutionsTotal.WithLabelValues("complete").Inc()
	return res, nil
}

// imageSource picks the provider's own images, else the first enabled image
// provider accepting id's source.
func (r *Resolver) imageSource(p provider.Provider, id media.Identifier, kind media.Kind) provider.ImagesFetcher {
	if imf, ok := p.(provider.ImagesFetcher); ok {
		return imf
	}
	for _, imf := range r.registry.ImageSources(kind) {
		if a, ok := imf.(provider.Acceptor); ok && !a.Accepts(id) {
			continue
		}
		return imf
	}
	return nil
}

// canceled marks res when ctx is done before a phase starts.
func (r *Resolver) canceled(ctx context.Context, res *Result) bool {
	if ctx.Err() == nil {
		return false
	}
	res.Canceled = true
	metrics.ResolutionsTotal.WithLabelValues("canceled").Inc()
	return true
}

// fail records a phase failure. A failure caused by the caller canceling is
// reported as cancellation instead.
func (r *Resolver) fail(ctx context.Context, res *Result, err error) (*Result, error) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		res.Canceled = true
		metrics.ResolutionsTotal.WithLabelValues("canceled").Inc()
		return res, nil
	}
	res.State = StateFailed
	metrics.ResolutionsTotal.WithLabelValues("failed").Inc()
	return res, err
}

// phase runs fn inside a span with timing and logging.
func (r *Resolver) phase(ctx context.Context, ph Phase, providerName string, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "resolve."+string(ph),
		attribute.String("phase", string(ph)), attribute.String("provider", providerName))
	start := time.Now()
	err := fn(ctx)
	metrics.RecordPhase(string(ph), start)
	tracing.End(span, err)

	entry := r.log.WithFields(logrus.Fields{"phase": ph, "provider": providerName, "duration": time.Since(start)})
	if err != nil {
		entry.WithError(err).Debug("phase failed")
	} else {
		entry.Debug("phase complete")
	}
	return err
}

// Subtitles lists subtitles from the named provider, or the first enabled
// subtitle provider serving kind.
func (r *Resolver) Subtitles(ctx context.Context, name string, kind media.Kind, query string, locale media.Locale) ([]media.Subtitle, error) {
	var sf provider.SubtitleFetcher
	if name != "" {
		p, ok := r.registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("provider %s not found", name)
		}
		if sf, ok = p.(provider.SubtitleFetcher); !ok {
			return nil, fmt.Errorf("provider %s cannot list subtitles", name)
		}
	} else {
		for _, p := range r.registry.Enabled(kind) {
			if f, ok := p.(provider.SubtitleFetcher); ok {
				sf = f
				break
			}
		}
		if sf == nil {
			return nil, fmt.Errorf("no enabled %s subtitle provider", kind)
		}
	}
	subs, err := sf.Subtitles(ctx, query, r.localeOr(locale))
	if provider.IsNotFound(err) {
		return []media.Subtitle{}, nil
	}
	return subs, err
}
