package tmdb

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Digital-Shane/title-scout/internal/feed"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

// movieInfo extracts one legacy Movie.getInfo XML document. A machine is
// built per parse and never reused.
type movieInfo struct {
	inMovie bool
	record  *media.DetailBuilder
	cast    []media.CastEntry
	people  map[string]int
	images  feed.Grouper[string, feedImage]
}

type feedImage struct {
	category media.ImageCategory
	urls     media.ImageURLs
}

func newMovieInfo(id media.Identifier) *movieInfo {
	return &movieInfo{
		record: media.NewDetailBuilder(id, media.KindMovie),
		people: make(map[string]int),
	}
}

func (m *movieInfo) Start(name string, a feed.Attrs) {
	switch name {
	case "movie":
		m.inMovie = true
	case "country":
		m.record.Add(media.MultiCountries, a.Get("name"))
	case "category":
		if a.Get("type") == "genre" {
			m.record.Add(media.MultiGenres, a.Get("name"))
		}
	case "studio":
		m.record.Add(media.MultiStudios, a.Get("name"))
	case "person":
		m.person(a)
	case "image":
		m.image(a)
	}
}

func (m *movieInfo) End(name, text string) {
	if name == "movie" {
		m.inMovie = false
		return
	}
	if !m.inMovie {
		return
	}
	switch name {
	case "name":
		m.record.Set(media.PropTitle, text)
	case "original_name":
		m.record.Set(media.PropOriginalTitle, text)
	case "trailer":
		m.record.Set(media.PropTrailer, text)
	case "overview":
		m.record.Set(media.PropOverview, text)
	case "tagline":
		m.record.Set(media.PropTagline, text)
	case "rating":
		m.record.Set(media.PropRating, feed.Decimal(text))
	case "runtime":
		m.record.Set(media.PropRuntime, feed.Digits(text))
	case "votes":
		m.record.Set(media.PropVotes, feed.Digits(text))
	case "certification":
		m.record.Set(media.PropCertification, text)
	case "released":
		m.record.Set(media.PropReleaseDate, text)
		year, _, _ := strings.Cut(text, "-")
		m.record.Set(media.PropYear, year)
	case "imdb_id":
		if n, ok := provider.ExtractID(provider.IMDbIDPattern, text); ok {
			m.record.Add(media.MultiIdentifiers, media.NewID(n, media.SourceIMDB).String())
		}
	}
}

func (m *movieInfo) person(a feed.Attrs) {
	role, ok := media.ParseRole(a.Get("job"))
	if !ok {
		return
	}
	name := a.Get("name")
	if name == "" {
		return
	}
	key := string(role) + "|" + name
	if i, seen := m.people[key]; seen {
		// Actors credited twice keep every character they played.
		if role == media.RoleActor {
			if c := a.Get("character"); c != "" && m.cast[i].Character != "" {
				m.cast[i].Character += " / " + c
			} else if c != "" {
				m.cast[i].Character = c
			}
		}
		return
	}
	entry := media.CastEntry{
		PersonID: a.Get("id"),
		Name:     name,
		Role:     role,
		Portrait: a.Get("thumb"),
	}
	if role == media.RoleActor {
		entry.Character = a.Get("character")
	}
	m.people[key] = len(m.cast)
	m.cast = append(m.cast, entry)
}

func (m *movieInfo) image(a feed.Attrs) {
	img := m.images.Next(a.Get("id"), func() feedImage {
		if a.Get("type") == "poster" {
			return feedImage{category: media.CategoryThumb}
		}
		return feedImage{category: media.CategoryFanart}
	})
	// The API lists .png paths for files served as .jpg.
	url := strings.Replace(a.Get("url"), ".png", ".jpg", 1)
	switch a.Get("size") {
	case "original":
		img.urls.Big = url
	case "thumb":
		img.urls.Small = url
	case "mid", "poster":
		img.urls.Medium = url
	}
}

func (m *movieInfo) Finish() error {
	m.images.Flush()
	return nil
}

func (m *movieInfo) imageRecords() []media.ImageRecord {
	var out []media.ImageRecord
	for _, fi := range m.images.Flush() {
		img := media.NewImage(len(out), fi.category, fi.urls)
		if !img.Empty() {
			out = append(out, img)
		}
	}
	return out
}

func (p *Provider) feedURL(n int, locale media.Locale) string {
	return fmt.Sprintf("https://%s/2.1/Movie.getInfo/%s/xml/%s/%d", p.feedHost, locale.Language(), p.apiKey, n)
}

// info fetches and parses the movie feed.
func (p *Provider) info(ctx context.Context, id media.Identifier, locale media.Locale) (*movieInfo, error) {
	n, err := provider.NumericID(providerName, id, media.SourceTMDB)
	if err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req := provider.NewRequest(providerName, "info", p.feedURL(n, locale), locale)
	req.Category = "feeds"
	resp, err := provider.Get(ctx, p.fetcher, req)
	if err != nil {
		return nil, err
	}
	m := newMovieInfo(id)
	if err := feed.Run(ctx, bytes.NewReader(resp.Body), m); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeSchema, Message: "malformed movie feed", Err: err}
	}
	return m, nil
}

// Cast lists directors, actors and writers from the movie feed.
func (p *Provider) Cast(ctx context.Context, id media.Identifier, locale media.Locale) ([]media.CastEntry, error) {
	m, err := p.info(ctx, id, locale)
	if err != nil {
		return nil, err
	}
	return m.cast, nil
}

// Images lists posters and backdrops from the movie feed.
func (p *Provider) Images(ctx context.Context, id media.Identifier) ([]media.ImageRecord, error) {
	m, err := p.info(ctx, id, p.DefaultLocale())
	if err != nil {
		return nil, err
	}
	return m.imageRecords(), nil
}
