package media

// Subtitle is one downloadable subtitle listing.
type Subtitle struct {
	Name     string
	Language string
	Release  string
	URL      string
}
