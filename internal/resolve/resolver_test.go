package resolve

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/probe"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

// fakeProvider searches, fetches details, cast and episodes from tables.
type fakeProvider struct {
	name   string
	source media.Source
	kinds  []media.Kind

	candidates map[string][]media.SearchCandidate
	searchErr  error
	records    map[string]*media.DetailRecord
	detailsErr error
	cast       []media.CastEntry
	castErr    error

	onDetails func()

	mu       sync.Mutex
	queries  []string
	episodes [][2]int

	castCalls atomic.Int32
}

func (f *fakeProvider) Name() string                { return f.name }
func (f *fakeProvider) Kinds() []media.Kind         { return f.kinds }
func (f *fakeProvider) DefaultLocale() media.Locale { return media.DefaultLocale }

func (f *fakeProvider) Search(_ context.Context, query string, _ media.Locale) ([]media.SearchCandidate, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	c, ok := f.candidates[query]
	if !ok {
		return nil, provider.NotFound(f.name, "no results for %q", query)
	}
	return append([]media.SearchCandidate(nil), c...), nil
}

func (f *fakeProvider) Details(_ context.Context, id media.Identifier, _ media.Locale) (*media.DetailRecord, error) {
	if f.onDetails != nil {
		f.onDetails()
	}
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	rec, ok := f.records[id.String()]
	if !ok {
		return nil, provider.NotFound(f.name, "no record for %s", id)
	}
	return rec, nil
}

func (f *fakeProvider) Cast(context.Context, media.Identifier, media.Locale) ([]media.CastEntry, error) {
	f.castCalls.Add(1)
	return f.cast, f.castErr
}

func (f *fakeProvider) Episode(_ context.Context, show media.Identifier, season, episode int, _ media.Locale) (*media.DetailRecord, error) {
	f.mu.Lock()
	f.episodes = append(f.episodes, [2]int{season, episode})
	f.mu.Unlock()
	return media.NewDetailBuilder(show, media.KindEpisode).
		Set(media.PropTitle, "Pilot").
		Set(media.PropShowTitle, "Fringe").
		Set(media.PropSeason, "1").
		Set(media.PropEpisode, "1").
		Build(), nil
}

// withImages adds artwork to a fakeProvider.
type withImages struct {
	*fakeProvider
	images    []media.ImageRecord
	imagesErr error
	calls     atomic.Int32
}

func (w *withImages) Images(context.Context, media.Identifier) ([]media.ImageRecord, error) {
	w.calls.Add(1)
	return w.images, w.imagesErr
}

// artwork is a standalone image provider limited to one source.
type artwork struct {
	accepts media.Source
	images  []media.ImageRecord
}

func (a *artwork) Name() string                     { return "art" }
func (a *artwork) Kinds() []media.Kind              { return []media.Kind{media.KindMovie} }
func (a *artwork) DefaultLocale() media.Locale      { return media.DefaultLocale }
func (a *artwork) Accepts(id media.Identifier) bool { return id.Source == a.accepts }
func (a *artwork) Images(context.Context, media.Identifier) ([]media.ImageRecord, error) {
	return a.images, nil
}

var (
	leoneID    = media.NewID(64116, media.SourceIMDB)
	leoneImage = media.NewImage(1, media.CategoryThumb, media.ImageURLs{Big: "http://img.example/poster.jpg"})
)

func westernProvider() *withImages {
	rec := media.NewDetailBuilder(leoneID, media.KindMovie).
		Set(media.PropTitle, "Il était une fois dans l'Ouest").
		Set(media.PropYear, "1968").
		Build()
	c := media.NewCandidate(leoneID, "Il était une fois dans l'Ouest")
	c.Year = 1968
	return &withImages{
		fakeProvider: &fakeProvider{
			name:       "imdb",
			source:     media.SourceIMDB,
			kinds:      []media.Kind{media.KindMovie},
			candidates: map[string][]media.SearchCandidate{"il etait une fois dans l'ouest": {c}},
			records:    map[string]*media.DetailRecord{leoneID.String(): rec},
			cast:       []media.CastEntry{{Name: "Sergio Leone", Role: media.RoleDirector}},
		},
		images: []media.ImageRecord{leoneImage},
	}
}

func newResolver(t *testing.T, opts []Option, providers ...provider.Provider) *Resolver {
	t.Helper()
	reg := provider.NewRegistry()
	for i, p := range providers {
		if err := reg.Register(p.Name(), p, 100-i); err != nil {
			t.Fatalf("Register(%s) error = %v", p.Name(), err)
		}
	}
	return New(reg, opts...)
}

func candidate(id int, name string, year int) media.SearchCandidate {
	c := media.NewCandidate(media.NewID(id, media.SourceIMDB), name)
	c.Year = year
	return c
}

func TestSearchRanksByYearThenCaps(t *testing.T) {
	p := &fakeProvider{
		name:  "imdb",
		kinds: []media.Kind{media.KindMovie},
		candidates: map[string][]media.SearchCandidate{"transformers": {
			candidate(1, "Transformers: The Movie", 1986),
			candidate(2, "Transformers", 2007),
			candidate(3, "Transformers Unknown", media.UnknownYear),
			candidate(4, "Transformers: Rise", 2009),
			candidate(5, "Transformers One", 2005),
		}},
	}
	r := newResolver(t, []Option{WithLimit(3)}, p)

	got, err := r.Search(context.Background(), Query{Text: "transformers", Year: 2007})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	var ids []string
	for _, c := range got {
		ids = append(ids, c.ID.ID)
	}
	// 2009 and 2005 are both two years away and keep their input order.
	if diff := cmp.Diff([]string{"2", "4", "5"}, ids); diff != "" {
		t.Errorf("ranked ids mismatch (-want +got)\n%s", diff)
	}
}

func TestSearchWithoutYearKeepsOrder(t *testing.T) {
	p := &fakeProvider{
		name:  "imdb",
		kinds: []media.Kind{media.KindMovie},
		candidates: map[string][]media.SearchCandidate{"q": {
			candidate(1, "A", 2000), candidate(2, "B", 1990),
		}},
	}
	r := newResolver(t, nil, p)

	got, err := r.Search(context.Background(), Query{Text: "q", Limit: -1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got[0].ID.ID != "1" || len(got) != 2 {
		t.Errorf("Search() = %+v, want input order", got)
	}
}

func TestSearchNotFoundIsEmpty(t *testing.T) {
	r := newResolver(t, nil, &fakeProvider{name: "imdb", kinds: []media.Kind{media.KindMovie}})

	got, err := r.Search(context.Background(), Query{Text: "nothing"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search() = %#v, want empty non-nil list", got)
	}
}

func TestSearchFailureCarriesPhase(t *testing.T) {
	boom := provider.Schema("imdb", "layout changed")
	r := newResolver(t, nil, &fakeProvider{name: "imdb", kinds: []media.Kind{media.KindMovie}, searchErr: boom})

	_, err := r.Search(context.Background(), Query{Text: "x"})
	var pe *PhaseError
	if !errors.As(err, &pe) {
		t.Fatalf("Search() error = %v, want *PhaseError", err)
	}
	if pe.Phase != PhaseSearch || pe.Provider != "imdb" || pe.Query != "x" {
		t.Errorf("PhaseError = %+v", pe)
	}
	if !errors.Is(err, provider.ErrSchema) {
		t.Errorf("errors.Is(err, ErrSchema) = false for %v", err)
	}
}

func TestSearchScenarioFrenchTitle(t *testing.T) {
	r := newResolver(t, []Option{WithLocale("fr")}, westernProvider())

	got, err := r.Search(context.Background(), Query{Text: "il etait une fois dans l'ouest"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := media.SearchCandidate{ID: leoneID, Name: "Il était une fois dans l'Ouest", Year: 1968}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("first candidate mismatch (-want +got)\n%s", diff)
	}
}

func TestResolveAssemblesAllPhases(t *testing.T) {
	p := westernProvider()
	r := newResolver(t, nil, p)

	res, err := r.Resolve(context.Background(), leoneID, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.State != StateComplete || res.Canceled {
		t.Errorf("State = %s canceled=%v, want complete", res.State, res.Canceled)
	}
	if res.Details.Title() != "Il était une fois dans l'Ouest" {
		t.Errorf("title = %q", res.Details.Title())
	}
	directors := media.FilterRole(res.Cast, media.RoleDirector)
	if len(directors) != 1 || directors[0].Name != "Sergio Leone" {
		t.Errorf("directors = %+v", directors)
	}
	if diff := cmp.Diff([]string{"http://img.example/poster.jpg"}, []string{res.Images[0].URL(media.SizeBig)}); diff != "" {
		t.Errorf("images mismatch (-want +got)\n%s", diff)
	}
}

func TestResolveDetailsFailure(t *testing.T) {
	p := westernProvider()
	r := newResolver(t, nil, p)
	missing := media.NewID(1, media.SourceIMDB)

	res, err := r.Resolve(context.Background(), missing, "")
	if phase, ok := FailedPhase(err); !ok || phase != PhaseDetails {
		t.Fatalf("FailedPhase(%v) = %q, %v", err, phase, ok)
	}
	if !provider.IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if res.State != StateFailed || res.Details != nil {
		t.Errorf("result = %+v, want failed without details", res)
	}
	if p.castCalls.Load() != 0 || p.calls.Load() != 0 {
		t.Error("cast or images ran after details failed")
	}
}

func TestResolveCastFailureKeepsImages(t *testing.T) {
	p := westernProvider()
	p.castErr = provider.Schema("imdb", "credits table missing")
	r := newResolver(t, nil, p)

	res, err := r.Resolve(context.Background(), leoneID, "")
	if phase, _ := FailedPhase(err); phase != PhaseCast {
		t.Fatalf("FailedPhase(%v) = %q, want cast", err, phase)
	}
	if res.Details == nil || len(res.Images) != 1 || res.Cast != nil {
		t.Errorf("result = details:%v images:%d cast:%v", res.Details != nil, len(res.Images), res.Cast)
	}
}

func TestResolveNotFoundExtrasAreEmpty(t *testing.T) {
	p := westernProvider()
	p.castErr = provider.NotFound("imdb", "no credits")
	r := newResolver(t, nil, p)

	res, err := r.Resolve(context.Background(), leoneID, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.State != StateComplete {
		t.Errorf("State = %s, want complete", res.State)
	}
}

func TestResolveCanceledBeforeStart(t *testing.T) {
	r := newResolver(t, nil, westernProvider())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Resolve(ctx, leoneID, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Canceled || res.Details != nil {
		t.Errorf("result = %+v, want canceled and empty", res)
	}
}

func TestResolveCanceledAfterDetails(t *testing.T) {
	p := westernProvider()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.onDetails = cancel
	r := newResolver(t, nil, p)

	res, err := r.Resolve(ctx, leoneID, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Canceled || res.Details == nil {
		t.Errorf("result = %+v, want details and canceled", res)
	}
	if p.castCalls.Load() != 0 || p.calls.Load() != 0 || res.Cast != nil || res.Images != nil {
		t.Error("extras ran after cancellation")
	}
}

func TestResolveUsesImageSourceForSource(t *testing.T) {
	base := westernProvider().fakeProvider // no Images method
	art := &artwork{accepts: media.SourceIMDB, images: []media.ImageRecord{leoneImage}}
	other := &artwork{accepts: media.SourceTMDB}
	reg := provider.NewRegistry()
	for _, entry := range []struct {
		name string
		p    provider.Provider
		prio int
	}{{"imdb", base, 100}, {"tmdbart", other, 50}, {"art", art, 10}} {
		if err := reg.Register(entry.name, entry.p, entry.prio); err != nil {
			t.Fatal(err)
		}
	}
	r := New(reg)

	res, err := r.Resolve(context.Background(), leoneID, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Images) != 1 {
		t.Errorf("images = %d, want 1 from the accepting source", len(res.Images))
	}
}

func TestResolveUnknownSource(t *testing.T) {
	r := newResolver(t, nil, westernProvider())

	_, err := r.Resolve(context.Background(), media.NewID(5, media.SourceTVDB), "")
	if phase, ok := FailedPhase(err); !ok || phase != PhaseDetails {
		t.Errorf("FailedPhase(%v) = %q, %v", err, phase, ok)
	}
}

type fakeProber struct{ tags *probe.Tags }

func (f fakeProber) Probe(context.Context, string) (*probe.Tags, error) { return f.tags, nil }

func TestResolveFileMovie(t *testing.T) {
	p := westernProvider()
	matrixID := media.NewID(133093, media.SourceIMDB)
	p.candidates["The Matrix"] = []media.SearchCandidate{
		candidate(242, "The Matrix Reloaded", 2003),
		candidate(133093, "The Matrix", 1999),
	}
	p.records[matrixID.String()] = media.NewDetailBuilder(matrixID, media.KindMovie).Set(media.PropTitle, "The Matrix").Build()
	tags := &probe.Tags{Container: "matroska", Resolution: "1080p"}
	r := newResolver(t, []Option{WithProber(fakeProber{tags: tags})}, p)

	res, err := r.ResolveFile(context.Background(), FileRequest{Path: "/movies/The.Matrix.1999.1080p.BluRay.x264.mkv"})
	if err != nil {
		t.Fatalf("ResolveFile() error = %v", err)
	}
	if diff := cmp.Diff(matrixID, res.ID); diff != "" {
		t.Errorf("picked id mismatch (-want +got)\n%s", diff)
	}
	if len(res.Candidates) != 2 || res.Tags != tags {
		t.Errorf("candidates = %d tags = %v", len(res.Candidates), res.Tags)
	}
	if diff := cmp.Diff([]string{"The Matrix"}, p.queries); diff != "" {
		t.Errorf("queries mismatch (-want +got)\n%s", diff)
	}
}

func TestResolveFileEpisode(t *testing.T) {
	showID := media.NewID(82066, media.SourceTVDB)
	show := media.NewCandidate(showID, "Fringe")
	p := &fakeProvider{
		name:       "tvdb",
		kinds:      []media.Kind{media.KindTVShow, media.KindEpisode},
		candidates: map[string][]media.SearchCandidate{"Fringe": {show}},
	}
	r := newResolver(t, nil, p)

	res, err := r.ResolveFile(context.Background(), FileRequest{Path: "Fringe (2008)/Season 01/S01E01.mkv"})
	if err != nil {
		t.Fatalf("ResolveFile() error = %v", err)
	}
	if diff := cmp.Diff([][2]int{{1, 1}}, p.episodes); diff != "" {
		t.Errorf("episode calls mismatch (-want +got)\n%s", diff)
	}
	if res.Details.Value(media.PropShowTitle) != "Fringe" || res.State != StateComplete {
		t.Errorf("result = %+v", res)
	}
}

func TestResolveFileNoCandidates(t *testing.T) {
	r := newResolver(t, nil, westernProvider())

	res, err := r.ResolveFile(context.Background(), FileRequest{Path: "Unknown.Film.2020.mkv"})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("ResolveFile() error = %v, want ErrNoCandidates", err)
	}
	if res.State != StateNoCandidates {
		t.Errorf("State = %s", res.State)
	}
}

func TestResolveFileQueryOverride(t *testing.T) {
	p := westernProvider()
	r := newResolver(t, nil, p)

	res, err := r.ResolveFile(context.Background(), FileRequest{Path: "c'era una volta.mkv", Query: "il etait une fois dans l'ouest"})
	if err != nil {
		t.Fatalf("ResolveFile() error = %v", err)
	}
	if !res.ID.Equal(leoneID) {
		t.Errorf("ID = %v", res.ID)
	}
}

func TestPick(t *testing.T) {
	cs := []media.SearchCandidate{
		candidate(1, "Alien Resurrection", 1997),
		{ID: media.NewID(2, media.SourceIMDB), Name: "Der Pate", OriginalName: "The Godfather"},
	}
	if got := Pick(cs, "the godfather"); got.ID.ID != "2" {
		t.Errorf("Pick(original name) = %s", got.ID)
	}
	if got := Pick(cs, "nothing alike"); got.ID.ID != "1" {
		t.Errorf("Pick(no match) = %s, want first", got.ID)
	}
}

// showSearcher keeps separate movie and show indexes, like TMDb.
type showSearcher struct {
	*fakeProvider
	shows    map[string][]media.SearchCandidate
	searched []media.Kind
}

func (s *showSearcher) SearchKind(ctx context.Context, query string, kind media.Kind, locale media.Locale) ([]media.SearchCandidate, error) {
	s.mu.Lock()
	s.searched = append(s.searched, kind)
	s.mu.Unlock()
	if kind == media.KindTVShow {
		return s.shows[query], nil
	}
	return s.Search(ctx, query, locale)
}

func TestResolveFileEpisodeSearchesShows(t *testing.T) {
	showID := media.NewID(1396, media.SourceTMDB)
	p := &showSearcher{
		fakeProvider: &fakeProvider{
			name:       "tmdb",
			kinds:      []media.Kind{media.KindMovie, media.KindTVShow, media.KindEpisode},
			candidates: map[string][]media.SearchCandidate{"Fringe": {candidate(603, "Fringe", 1999)}},
		},
		shows: map[string][]media.SearchCandidate{"Fringe": {media.NewCandidate(showID, "Fringe")}},
	}
	r := newResolver(t, nil, p)

	res, err := r.ResolveFile(context.Background(), FileRequest{Path: "Fringe (2008)/Season 01/S01E01.mkv", Provider: "tmdb"})
	if err != nil {
		t.Fatalf("ResolveFile() error = %v", err)
	}
	if diff := cmp.Diff([]media.Kind{media.KindTVShow}, p.searched); diff != "" {
		t.Errorf("search kinds mismatch (-want +got)\n%s", diff)
	}
	if !res.ID.Equal(showID) || res.State != StateComplete {
		t.Errorf("result = %+v", res)
	}
	if p.castCalls.Load() != 0 || res.Cast != nil {
		t.Errorf("episode result ran the cast phase: calls=%d cast=%v", p.castCalls.Load(), res.Cast)
	}
}

func TestResolveFileNamedProviderKindMismatch(t *testing.T) {
	p := westernProvider() // movies only
	r := newResolver(t, nil, p)

	res, err := r.ResolveFile(context.Background(), FileRequest{Path: "Some.Show.S01E02.mkv", Provider: "imdb"})
	if !errors.Is(err, provider.ErrUnsupported) {
		t.Fatalf("ResolveFile() error = %v, want ErrUnsupported", err)
	}
	if res.State == StateComplete {
		t.Errorf("State = %s", res.State)
	}
	if len(p.queries) != 0 || len(p.episodes) != 0 {
		t.Errorf("provider was queried: searches=%v episodes=%v", p.queries, p.episodes)
	}
}

func TestSearchNamedDisabledProvider(t *testing.T) {
	r := newResolver(t, nil, westernProvider())
	if err := r.Registry().Disable("imdb"); err != nil {
		t.Fatal(err)
	}
	_, err := r.Search(context.Background(), Query{Text: "il etait une fois dans l'ouest", Provider: "imdb"})
	if !errors.Is(err, provider.ErrUnsupported) {
		t.Errorf("Search() error = %v, want ErrUnsupported", err)
	}
}
