package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Source tags the provider namespace an identifier belongs to.
type Source string

const (
	SourceIMDB     Source = "imdb"
	SourceTMDB     Source = "tmdb"
	SourceTVDB     Source = "tvdb"
	SourceOMDB     Source = "omdb"
	SourceAllocine Source = "allocine"
	SourceFanartTV Source = "fanarttv"
	SourceSubscene Source = "subscene"
)

// ParseSource maps a case-insensitive name onto a known Source.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceIMDB, SourceTMDB, SourceTVDB, SourceOMDB, SourceAllocine, SourceFanartTV, SourceSubscene:
		return src, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Identifier names a title inside one provider's namespace. Identifiers from
// different sources never compare equal, even when the raw ids match.
type Identifier struct {
	ID     string
	Source Source
}

// NewID builds an identifier from a numeric id.
func NewID(id int, src Source) Identifier {
	return Identifier{ID: strconv.Itoa(id), Source: src}
}

// Int returns the numeric form of the id.
func (i Identifier) Int() (int, error) {
	n, err := strconv.Atoi(i.ID)
	if err != nil {
		return 0, fmt.Errorf("%s id %q is not numeric: %w", i.Source, i.ID, err)
	}
	return n, nil
}

// IsZero reports whether the identifier carries no id.
func (i Identifier) IsZero() bool { return i.ID == "" }

func (i Identifier) Equal(o Identifier) bool {
	return i.Source == o.Source && i.ID == o.ID
}

func (i Identifier) String() string {
	return string(i.Source) + ":" + i.ID
}

// ParseIdentifier accepts the "source:id" form produced by String.
func ParseIdentifier(s string) (Identifier, error) {
	src, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Identifier{}, fmt.Errorf("identifier %q: want source:id", s)
	}
	source, err := ParseSource(src)
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{ID: id, Source: source}, nil
}
