package omdb

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func newTestProvider(t *testing.T, fn roundTripFunc) *Provider {
	t.Helper()
	p, err := New(provider.MapSettings{"omdb.apikey": "testing"},
		WithHTTPClient(newTestClient(fn)),
		WithRateLimiter(provider.NewRateLimiter(1000, 1)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func fields(rec *media.DetailRecord) map[media.Property]string {
	out := map[media.Property]string{}
	for _, p := range rec.Properties() {
		out[p] = rec.Value(p)
	}
	return out
}

const interstellar = `{
    "Title": "Interstellar",
    "Year": "2014",
    "Runtime": "169 min",
    "Genre": "Adventure, Drama, Sci-Fi",
    "Plot": "A team of explorers travel through a wormhole in space in an attempt to ensure humanity's survival.",
    "Language": "English",
    "Country": "USA, UK",
    "imdbRating": "8.6",
    "imdbID": "tt0816692",
    "Production": "Paramount Pictures",
    "Type": "movie",
    "Response": "True"
}`

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(provider.MapSettings{})
	if got := provider.CodeOf(err); got != provider.CodeConfiguration {
		t.Fatalf("New() code = %q, want %q", got, provider.CodeConfiguration)
	}
}

func TestDetailsMovie(t *testing.T) {
	var gotID string
	p := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		gotID = req.URL.Query().Get("i")
		return jsonResponse(200, interstellar), nil
	})

	rec, err := p.Details(context.Background(), media.Identifier{ID: "816692", Source: media.SourceIMDB}, "fr")
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	if gotID != "tt0816692" {
		t.Errorf("requested id = %q, want tt0816692", gotID)
	}
	if rec.Kind() != media.KindMovie {
		t.Errorf("Kind() = %q", rec.Kind())
	}
	want := map[media.Property]string{
		media.PropTitle:    "Interstellar",
		media.PropYear:     "2014",
		media.PropRuntime:  "169",
		media.PropRating:   "8.6",
		media.PropOverview: "A team of explorers travel through a wormhole in space in an attempt to ensure humanity's survival.",
	}
	if diff := cmp.Diff(want, fields(rec)); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Adventure", "Drama", "Sci-Fi"}, rec.GetAll(media.MultiGenres)); diff != "" {
		t.Errorf("genres mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"USA", "UK"}, rec.GetAll(media.MultiCountries)); diff != "" {
		t.Errorf("countries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"imdb:816692"}, rec.GetAll(media.MultiIdentifiers)); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestDetailsRejectsForeignIdentifier(t *testing.T) {
	p := newTestProvider(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})
	_, err := p.Details(context.Background(), media.Identifier{ID: "680", Source: media.SourceTMDB}, "en")
	if got := provider.CodeOf(err); got != provider.CodeIdentifierParse {
		t.Errorf("Details() code = %q, want %q", got, provider.CodeIdentifierParse)
	}
}

func TestSearch(t *testing.T) {
	calls := 0
	p := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls > 1 {
			return jsonResponse(200, `{"Response": "False", "Error": "Movie not found!"}`), nil
		}
		return jsonResponse(200, interstellar), nil
	})

	got, err := p.Search(context.Background(), "Interstellar", "en")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []media.SearchCandidate{{ID: media.Identifier{ID: "816692", Source: media.SourceOMDB}, Name: "Interstellar", Year: 2014}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}

	got, err = p.Search(context.Background(), "Nothing Like It", "en")
	if err != nil {
		t.Fatalf("Search() miss error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() miss = %v, want empty", got)
	}
}

func TestEpisode(t *testing.T) {
	p := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("Episode") == "1" {
			return jsonResponse(200, `{
                "Title": "Winter Is Coming",
                "Year": "2011",
                "Released": "17 Apr 2011",
                "Runtime": "62 min",
                "Genre": "Action, Adventure, Drama",
                "Plot": "Episode plot",
                "Language": "English",
                "Country": "United States",
                "imdbRating": "8.9",
                "imdbID": "tt1480055",
                "seriesID": "tt0944947",
                "Type": "episode",
                "Response": "True"
            }`), nil
		}
		return jsonResponse(200, `{"Response": "False", "Error": "Episode not found"}`), nil
	})
	show := media.Identifier{ID: "944947", Source: media.SourceOMDB}

	rec, err := p.Episode(context.Background(), show, 1, 1, "en")
	if err != nil {
		t.Fatalf("Episode() error = %v", err)
	}
	got := fields(rec)
	if got[media.PropTitle] != "Winter Is Coming" {
		t.Errorf("title = %q, want Winter Is Coming", got[media.PropTitle])
	}
	if got[media.PropSeason] != "1" || got[media.PropEpisode] != "1" {
		t.Errorf("unexpected season/episode numbers: %v", got)
	}
	if got[media.PropRating] != "8.9" {
		t.Errorf("rating = %q, want 8.9", got[media.PropRating])
	}
	if diff := cmp.Diff([]string{"omdb:944947", "imdb:1480055"}, rec.GetAll(media.MultiIdentifiers)); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}

	_, err = p.Episode(context.Background(), show, 1, 2, "en")
	if !provider.IsNotFound(err) {
		t.Errorf("Episode() missing error = %v, want not found", err)
	}
}
