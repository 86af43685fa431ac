package media

// UnknownYear marks a candidate whose release year could not be extracted.
const UnknownYear = -1

// SearchCandidate is a tentative search hit awaiting selection.
type SearchCandidate struct {
	ID           Identifier
	Name         string
	OriginalName string
	Year         int
	Thumbnail    string
}

// NewCandidate returns a candidate with an unknown year.
func NewCandidate(id Identifier, name string) SearchCandidate {
	return SearchCandidate{ID: id, Name: name, Year: UnknownYear}
}

// HasYear reports whether the release year is known.
func (c SearchCandidate) HasYear() bool { return c.Year > 0 }
