// Package provider defines the capability contract metadata providers
// implement and the helpers they share.
package provider

import (
	"context"

	"github.com/Digital-Shane/title-scout/internal/media"
)

// Provider is implemented by every metadata source. Capabilities are
// discovered with type assertions against the interfaces below; a provider
// implements the subset that fits its media kinds.
type Provider interface {
	Name() string
	Kinds() []media.Kind
	DefaultLocale() media.Locale
}

// Searcher finds candidates for a free-text query.
type Searcher interface {
	Provider
	Search(ctx context.Context, query string, locale media.Locale) ([]media.SearchCandidate, error)
}

// KindSearcher is implemented by searchers whose index differs per media
// kind. Search is then the movie search.
type KindSearcher interface {
	Searcher
	SearchKind(ctx context.Context, query string, kind media.Kind, locale media.Locale) ([]media.SearchCandidate, error)
}

// URLSearcher resolves candidates from a direct search or detail URL. It
// covers searches that redirect straight to a detail page.
type URLSearcher interface {
	Provider
	SearchURL(ctx context.Context, url string, locale media.Locale) ([]media.SearchCandidate, error)
}

// DetailsFetcher fetches the full record of one identifier.
type DetailsFetcher interface {
	Provider
	Details(ctx context.Context, id media.Identifier, locale media.Locale) (*media.DetailRecord, error)
}

// CastFetcher fetches credits.
type CastFetcher interface {
	Provider
	Cast(ctx context.Context, id media.Identifier, locale media.Locale) ([]media.CastEntry, error)
}

// ImagesFetcher fetches artwork. Image listings are not localized.
type ImagesFetcher interface {
	Provider
	Images(ctx context.Context, id media.Identifier) ([]media.ImageRecord, error)
}

// SubtitleFetcher lists subtitles for a query.
type SubtitleFetcher interface {
	Provider
	Subtitles(ctx context.Context, query string, locale media.Locale) ([]media.Subtitle, error)
}

// EpisodeFetcher fetches one episode of a show.
type EpisodeFetcher interface {
	Provider
	Episode(ctx context.Context, show media.Identifier, season, episode int, locale media.Locale) (*media.DetailRecord, error)
}

// Acceptor is implemented by providers that only serve identifiers from
// some sources.
type Acceptor interface {
	Accepts(id media.Identifier) bool
}

// Settings is the read-only configuration lookup providers consult at
// construction.
type Settings interface {
	Lookup(key string) (string, bool)
}

// MapSettings is a Settings backed by a map.
type MapSettings map[string]string

func (m MapSettings) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok && v != ""
}

// Setting looks key up in s, treating a nil Settings as empty.
func Setting(s Settings, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.Lookup(key)
}

// Capabilities lists the capability names p implements.
func Capabilities(p Provider) []string {
	var caps []string
	if _, ok := p.(Searcher); ok {
		caps = append(caps, "search")
	}
	if _, ok := p.(URLSearcher); ok {
		caps = append(caps, "search_url")
	}
	if _, ok := p.(DetailsFetcher); ok {
		caps = append(caps, "details")
	}
	if _, ok := p.(CastFetcher); ok {
		caps = append(caps, "cast")
	}
	if _, ok := p.(ImagesFetcher); ok {
		caps = append(caps, "images")
	}
	if _, ok := p.(SubtitleFetcher); ok {
		caps = append(caps, "subtitles")
	}
	if _, ok := p.(EpisodeFetcher); ok {
		caps = append(caps, "episode")
	}
	return caps
}

// Supports reports whether p serves kind.
func Supports(p Provider, kind media.Kind) bool {
	for _, k := range p.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}
