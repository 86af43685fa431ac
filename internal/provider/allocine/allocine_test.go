package allocine

import (
	"context"
	"net/url"
	"path"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

const searchFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.allocine.net/v6/ns/" page="1" count="10" totalResults="2">
  <results type="movie" count="2"/>
  <movie code="5108">
    <originalTitle>C'era una volta il West</originalTitle>
    <title>Il était une fois dans l'Ouest</title>
    <productionYear>1968</productionYear>
    <release><releaseDate>1969-08-27</releaseDate></release>
    <castingShort><directors>Sergio Leone</directors></castingShort>
    <statistics><userRating>4.6</userRating></statistics>
    <poster path="/medias/nmedia/18/35/91/33/19255605.jpg" href="http://images.allocine.fr/medias/nmedia/18/35/91/33/19255605.jpg"/>
  </movie>
  <movie code="61281">
    <originalTitle>Il était une fois la révolution</originalTitle>
  </movie>
  <movie code="oops">
    <originalTitle>Skipped</originalTitle>
  </movie>
</feed>`

const movieFeed = `<?xml version="1.0" encoding="utf-8"?>
<movie xmlns="http://www.allocine.net/v6/ns/" code="5108">
  <movieType code="4002">Long-métrage</movieType>
  <originalTitle>C'era una volta il West</originalTitle>
  <title>Il était une fois dans l'Ouest</title>
  <productionYear>1968</productionYear>
  <nationalityList><nationality code="5004">Italie</nationality><nationality code="5025">U.S.A.</nationality></nationalityList>
  <genreList><genre code="13025">Western</genre></genreList>
  <release><releaseDate>1969-08-27</releaseDate></release>
  <runtime>9900</runtime>
  <synopsisShort>Le destin de Jill.</synopsisShort>
  <synopsis>Alors qu'il prépare une fête pour sa femme, Bet McBain est tué avec ses trois enfants.</synopsis>
  <castMember>
    <person code="1153">Sergio Leone</person>
    <activity code="8002">Réalisateur</activity>
  </castMember>
  <castMember>
    <person code="2006">Henry Fonda</person>
    <activity code="8001">Acteur</activity>
    <role>Frank</role>
    <picture path="/medias/fonda.jpg" href="http://images.allocine.fr/medias/fonda.jpg"/>
  </castMember>
  <castMember>
    <person code="9999">Bernardo Bertolucci</person>
    <activity code="8004">Scénariste</activity>
  </castMember>
  <castMember>
    <person code="777">Fulvio Morsella</person>
    <activity code="8029">Producteur</activity>
  </castMember>
  <poster path="/medias/nmedia/18/35/91/33/19255605.jpg" href="http://images.allocine.fr/medias/nmedia/18/35/91/33/19255605.jpg"/>
  <trailer code="19432" href="http://www.allocine.fr/blogvision/19432"/>
  <media class="picture" code="1">
    <type code="31001">Affiche</type>
    <title>Affiche</title>
    <thumbnail path="/medias/affiche.jpg" href="http://images.allocine.fr/medias/affiche.jpg"/>
  </media>
  <media class="picture" code="2">
    <type code="31006">Photo</type>
    <thumbnail path="/medias/photo.jpg" href="http://images.allocine.fr/medias/photo.jpg"/>
  </media>
  <media class="video" code="3">
    <type code="31003">Bande-annonce</type>
  </media>
  <statistics><pressRating>4.2</pressRating><userRating>4.6</userRating><userRatingCount>12345</userRatingCount></statistics>
</movie>`

const showFeed = `<?xml version="1.0" encoding="utf-8"?>
<tvseries xmlns="http://www.allocine.net/v6/ns/" code="3517">
  <originalTitle>Breaking Bad</originalTitle>
  <season code="12277"><seasonNumber>1</seasonNumber></season>
  <season code="14821"><seasonNumber>2</seasonNumber></season>
</tvseries>`

const seasonFeed = `<?xml version="1.0" encoding="utf-8"?>
<season xmlns="http://www.allocine.net/v6/ns/" code="12277">
  <seasonNumber>1</seasonNumber>
  <parentSeries code="3517" name="Breaking Bad"/>
  <episode code="233306"><episodeNumberSeason>1</episodeNumberSeason><title>Chute libre</title></episode>
  <episode code="233307"><episodeNumberSeason>2</episodeNumberSeason></episode>
</season>`

const episodeFeed = `<?xml version="1.0" encoding="utf-8"?>
<episode xmlns="http://www.allocine.net/v6/ns/" code="233306">
  <parentSeries code="3517" name="Breaking Bad"/>
  <originalTitle>Pilot</originalTitle>
  <title>Chute libre</title>
  <episodeNumberSeason>1</episodeNumberSeason>
  <synopsis>Walter White, professeur de chimie, apprend qu'il est atteint d'un cancer.</synopsis>
  <statistics><userRating>4,3</userRating><userRatingCount>210</userRatingCount></statistics>
</episode>`

// feeds serves documents keyed by "resource:code".
type feeds struct {
	docs map[string]string
	urls []*url.URL
}

func (f *feeds) Fetch(_ context.Context, req fetch.Request) (*fetch.Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	f.urls = append(f.urls, u)
	body, ok := f.docs[path.Base(u.Path)+":"+u.Query().Get("code")]
	if !ok {
		return nil, &fetch.Error{Kind: fetch.KindStatus, StatusCode: 404, URL: req.URL}
	}
	return &fetch.Response{URL: req.URL, StatusCode: 200, ContentType: "text/xml", Body: []byte(body)}, nil
}

func newTestProvider(t *testing.T, docs map[string]string) (*Provider, *feeds) {
	t.Helper()
	f := &feeds{docs: docs}
	p, err := New(f, provider.MapSettings{"allocine.partner": "partner-key"},
		WithRateLimiter(provider.NewRateLimiter(1000, 1)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, f
}

func fields(rec *media.DetailRecord) map[media.Property]string {
	out := map[media.Property]string{}
	for _, p := range rec.Properties() {
		out[p] = rec.Value(p)
	}
	return out
}

var westID = media.Identifier{ID: "5108", Source: media.SourceAllocine}

func TestNewRequiresPartnerKey(t *testing.T) {
	_, err := New(&feeds{}, provider.MapSettings{})
	if got := provider.CodeOf(err); got != provider.CodeConfiguration {
		t.Fatalf("New() code = %q, want %q", got, provider.CodeConfiguration)
	}
}

func TestSearch(t *testing.T) {
	p, f := newTestProvider(t, map[string]string{"search:": searchFeed})

	got, err := p.Search(context.Background(), "il était une fois", "fr")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []media.SearchCandidate{
		{
			ID:           westID,
			Name:         "Il était une fois dans l'Ouest",
			OriginalName: "C'era una volta il West",
			Year:         1968,
			Thumbnail:    "http://images.allocine.fr/medias/nmedia/18/35/91/33/19255605.jpg",
		},
		{ID: media.Identifier{ID: "61281", Source: media.SourceAllocine}, Name: "Il était une fois la révolution", Year: media.UnknownYear},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}

	q := f.urls[0].Query()
	if q.Get("partner") != "partner-key" || q.Get("filter") != "movie" || q.Get("q") != "il était une fois" {
		t.Errorf("search query = %v", q)
	}
}

func TestSearchNoResults(t *testing.T) {
	p, _ := newTestProvider(t, map[string]string{"search:": `<feed page="1" count="0" totalResults="0"/>`})
	got, err := p.Search(context.Background(), "nothing", "fr")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search() = %#v, want empty non-nil", got)
	}
}

func TestDetails(t *testing.T) {
	p, _ := newTestProvider(t, map[string]string{"movie:5108": movieFeed})

	rec, err := p.Details(context.Background(), westID, "fr")
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	want := map[media.Property]string{
		media.PropTitle:         "Il était une fois dans l'Ouest",
		media.PropOriginalTitle: "C'era una volta il West",
		media.PropYear:          "1968",
		media.PropReleaseDate:   "1969-08-27",
		media.PropRuntime:       "165",
		media.PropTagline:       "Le destin de Jill.",
		media.PropOverview:      "Alors qu'il prépare une fête pour sa femme, Bet McBain est tué avec ses trois enfants.",
		media.PropRating:        "4.6",
		media.PropVotes:         "12345",
		media.PropThumbnail:     "http://images.allocine.fr/medias/nmedia/18/35/91/33/19255605.jpg",
		media.PropTrailer:       "http://www.allocine.fr/blogvision/19432",
	}
	if diff := cmp.Diff(want, fields(rec)); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Western"}, rec.GetAll(media.MultiGenres)); diff != "" {
		t.Errorf("genres mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Italie", "U.S.A."}, rec.GetAll(media.MultiCountries)); diff != "" {
		t.Errorf("countries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"allocine:5108"}, rec.GetAll(media.MultiIdentifiers)); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestDetailsErrors(t *testing.T) {
	p, _ := newTestProvider(t, map[string]string{"movie:1": `<movie code="1"><title>Broken</movie>`})

	_, err := p.Details(context.Background(), media.Identifier{ID: "1", Source: media.SourceAllocine}, "fr")
	if got := provider.CodeOf(err); got != provider.CodeSchema {
		t.Errorf("malformed code = %q, want %q", got, provider.CodeSchema)
	}
	_, err = p.Details(context.Background(), media.Identifier{ID: "2", Source: media.SourceAllocine}, "fr")
	if !provider.IsNotFound(err) {
		t.Errorf("missing error = %v, want not found", err)
	}
	_, err = p.Details(context.Background(), media.Identifier{ID: "tt1", Source: media.SourceAllocine}, "fr")
	if got := provider.CodeOf(err); got != provider.CodeIdentifierParse {
		t.Errorf("bad id code = %q, want %q", got, provider.CodeIdentifierParse)
	}
}

func TestCast(t *testing.T) {
	p, _ := newTestProvider(t, map[string]string{"movie:5108": movieFeed})

	got, err := p.Cast(context.Background(), westID, "fr")
	if err != nil {
		t.Fatalf("Cast() error = %v", err)
	}
	want := []media.CastEntry{
		{PersonID: "1153", Name: "Sergio Leone", Role: media.RoleDirector},
		{PersonID: "2006", Name: "Henry Fonda", Role: media.RoleActor, Character: "Frank", Portrait: "http://images.allocine.fr/medias/fonda.jpg"},
		{PersonID: "9999", Name: "Bernardo Bertolucci", Role: media.RoleWriter},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cast() mismatch (-want +got):\n%s", diff)
	}
}

func TestImages(t *testing.T) {
	p, _ := newTestProvider(t, map[string]string{"movie:5108": movieFeed})

	got, err := p.Images(context.Background(), westID)
	if err != nil {
		t.Fatalf("Images() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Images() = %d records, want 2", len(got))
	}
	if got[0].Category != media.CategoryThumb || got[1].Category != media.CategoryFanart {
		t.Errorf("categories = %q, %q", got[0].Category, got[1].Category)
	}
	if u := got[0].URL(media.SizeBig); u != "http://images.allocine.fr/medias/affiche.jpg" {
		t.Errorf("big = %q", u)
	}
	if u := got[0].URL(media.SizeSmall); u != "http://images.allocine.fr/r_160_240/medias/affiche.jpg" {
		t.Errorf("small = %q", u)
	}
}

func TestEpisode(t *testing.T) {
	p, f := newTestProvider(t, map[string]string{
		"tvseries:3517":  showFeed,
		"season:12277":   seasonFeed,
		"episode:233306": episodeFeed,
	})
	show := media.Identifier{ID: "3517", Source: media.SourceAllocine}

	rec, err := p.Episode(context.Background(), show, 1, 1, "fr")
	if err != nil {
		t.Fatalf("Episode() error = %v", err)
	}
	want := map[media.Property]string{
		media.PropTitle:         "Chute libre",
		media.PropOriginalTitle: "Pilot",
		media.PropShowTitle:     "Breaking Bad",
		media.PropSeason:        "1",
		media.PropEpisode:       "1",
		media.PropOverview:      "Walter White, professeur de chimie, apprend qu'il est atteint d'un cancer.",
		media.PropRating:        "4.3",
		media.PropVotes:         "210",
	}
	if diff := cmp.Diff(want, fields(rec)); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	var paths []string
	for _, u := range f.urls {
		paths = append(paths, path.Base(u.Path))
	}
	if diff := cmp.Diff([]string{"tvseries", "season", "episode"}, paths); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}

	_, err = p.Episode(context.Background(), show, 3, 1, "fr")
	if !provider.IsNotFound(err) {
		t.Errorf("missing season error = %v, want not found", err)
	}
	_, err = p.Episode(context.Background(), show, 1, 5, "fr")
	if !provider.IsNotFound(err) {
		t.Errorf("missing episode error = %v, want not found", err)
	}
}

func TestResized(t *testing.T) {
	got := resized("http://images.allocine.fr/medias/a.jpg")
	want := media.ImageURLs{
		Small:  "http://images.allocine.fr/r_160_240/medias/a.jpg",
		Medium: "http://images.allocine.fr/r_640_x/medias/a.jpg",
		Big:    "http://images.allocine.fr/medias/a.jpg",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resized() mismatch (-want +got):\n%s", diff)
	}
}
