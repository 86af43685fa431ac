package media

import (
	"sort"
	"strings"
)

// Kind distinguishes detail record variants.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindTVShow  Kind = "tvshow"
	KindEpisode Kind = "episode"
)

// Property keys the scalar fields of a DetailRecord.
type Property string

const (
	PropTitle         Property = "title"
	PropOriginalTitle Property = "original_title"
	PropShowTitle     Property = "show_title"
	PropOverview      Property = "overview"
	PropTagline       Property = "tagline"
	PropRuntime       Property = "runtime"
	PropRating        Property = "rating"
	PropVotes         Property = "votes"
	PropCertification Property = "certification"
	PropCertCode      Property = "certification_code"
	PropReleaseDate   Property = "release_date"
	PropYear          Property = "year"
	PropTrailer       Property = "trailer"
	PropThumbnail     Property = "thumbnail"
	PropSeason        Property = "season"
	PropEpisode       Property = "episode"
	PropHomepage      Property = "homepage"
)

// MultiProperty keys the multi-valued fields of a DetailRecord.
type MultiProperty string

const (
	MultiGenres      MultiProperty = "genres"
	MultiStudios     MultiProperty = "studios"
	MultiCountries   MultiProperty = "countries"
	MultiTags        MultiProperty = "tags"
	MultiIdentifiers MultiProperty = "identifiers"
	MultiLanguages   MultiProperty = "languages"
	MultiNetworks    MultiProperty = "networks"
)

// DetailRecord is the fetched metadata for one confirmed identifier. Fields the
// source document did not carry are absent rather than empty.
type DetailRecord struct {
	id     Identifier
	kind   Kind
	fields map[Property]string
	multi  map[MultiProperty][]string
}

// ID returns the identifier of the provider that produced the record.
func (r *DetailRecord) ID() Identifier { return r.id }

func (r *DetailRecord) Kind() Kind { return r.kind }

// Get returns a scalar field and whether it was present.
func (r *DetailRecord) Get(p Property) (string, bool) {
	v, ok := r.fields[p]
	return v, ok
}

// Value returns a scalar field or "" when absent.
func (r *DetailRecord) Value(p Property) string { return r.fields[p] }

// GetAll returns a copy of a multi-valued field.
func (r *DetailRecord) GetAll(p MultiProperty) []string {
	vals := r.multi[p]
	if len(vals) == 0 {
		return nil
	}
	return append([]string(nil), vals...)
}

// Title is shorthand for the title property.
func (r *DetailRecord) Title() string { return r.fields[PropTitle] }

// Properties lists the scalar keys present, sorted.
func (r *DetailRecord) Properties() []Property {
	keys := make([]Property, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Map flattens the record for serialization. Multi-valued fields are keyed by
// their name and hold slices.
func (r *DetailRecord) Map() map[string]any {
	out := make(map[string]any, len(r.fields)+len(r.multi)+2)
	out["id"] = r.id.String()
	out["kind"] = string(r.kind)
	for k, v := range r.fields {
		out[string(k)] = v
	}
	for k, v := range r.multi {
		out[string(k)] = append([]string(nil), v...)
	}
	return out
}

// DetailBuilder accumulates fields for a DetailRecord. A builder is owned by a
// single extraction and is not safe for concurrent use.
type DetailBuilder struct {
	rec DetailRecord
}

// NewDetailBuilder starts a record for id.
func NewDetailBuilder(id Identifier, kind Kind) *DetailBuilder {
	return &DetailBuilder{rec: DetailRecord{
		id:     id,
		kind:   kind,
		fields: make(map[Property]string),
		multi:  make(map[MultiProperty][]string),
	}}
}

// Set stores a trimmed value. Empty values are ignored.
func (b *DetailBuilder) Set(p Property, v string) *DetailBuilder {
	if v = strings.TrimSpace(v); v != "" {
		b.rec.fields[p] = v
	}
	return b
}

// SetDefault stores v only when p is not already set.
func (b *DetailBuilder) SetDefault(p Property, v string) *DetailBuilder {
	if _, ok := b.rec.fields[p]; !ok {
		b.Set(p, v)
	}
	return b
}

// Has reports whether p has been set.
func (b *DetailBuilder) Has(p Property) bool {
	_, ok := b.rec.fields[p]
	return ok
}

// Add appends values, skipping empties and duplicates.
func (b *DetailBuilder) Add(p MultiProperty, vals ...string) *DetailBuilder {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" || contains(b.rec.multi[p], v) {
			continue
		}
		b.rec.multi[p] = append(b.rec.multi[p], v)
	}
	return b
}

// Build returns the finished record. The builder must not be used afterwards.
func (b *DetailBuilder) Build() *DetailRecord {
	rec := b.rec
	b.rec = DetailRecord{}
	return &rec
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
