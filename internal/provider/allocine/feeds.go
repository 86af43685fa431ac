package allocine

import (
	"strconv"
	"strings"

	"github.com/Digital-Shane/title-scout/internal/feed"
	"github.com/Digital-Shane/title-scout/internal/media"
)

// stack tracks the open elements so fields can be matched on their parent.
type stack []string

func (s *stack) push(name string) { *s = append(*s, name) }

func (s *stack) pop() {
	if len(*s) > 0 {
		*s = (*s)[:len(*s)-1]
	}
}

func (s stack) top() string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

// searchResults collects movie and tvseries entries of a search feed.
type searchResults struct {
	open    stack
	current *media.SearchCandidate
	title   string
	results []media.SearchCandidate
}

func (m *searchResults) Start(name string, a feed.Attrs) {
	parent := m.open.top()
	m.open.push(name)
	switch {
	case (name == "movie" || name == "tvseries") && parent == "feed":
		code, err := strconv.Atoi(a.Get("code"))
		if err != nil {
			return
		}
		c := media.NewCandidate(media.NewID(code, media.SourceAllocine), "")
		m.current, m.title = &c, ""
	case name == "poster" && m.current != nil && (parent == "movie" || parent == "tvseries"):
		m.current.Thumbnail = a.Get("href")
	}
}

func (m *searchResults) End(name, text string) {
	m.open.pop()
	parent := m.open.top()
	if m.current == nil {
		return
	}
	if (name == "movie" || name == "tvseries") && parent == "feed" {
		c := *m.current
		if m.title != "" {
			if c.Name != m.title {
				c.OriginalName = c.Name
			}
			c.Name = m.title
		}
		if c.Name != "" {
			m.results = append(m.results, c)
		}
		m.current = nil
		return
	}
	if parent != "movie" && parent != "tvseries" {
		return
	}
	switch name {
	case "originaltitle":
		m.current.Name = text
	case "title":
		m.title = text
	case "productionyear":
		if y, err := strconv.Atoi(feed.Digits(text)); err == nil && y > 0 {
			m.current.Year = y
		}
	}
}

// Activity codes of castMember entries.
const (
	activityActor    = "8001"
	activityDirector = "8002"
	activityWriter   = "8004"
)

// Media type codes of picture entries.
const (
	picturePoster = "31001"
	pictureStill  = "31006"
)

// movieInfo extracts the large movie profile.
type movieInfo struct {
	open   stack
	record *media.DetailBuilder
	member *media.CastEntry
	cast   []media.CastEntry
	image  *media.ImageRecord
	urls   media.ImageURLs
	images []media.ImageRecord
}

func newMovieInfo(id media.Identifier) *movieInfo {
	m := &movieInfo{record: media.NewDetailBuilder(id, media.KindMovie)}
	m.record.Add(media.MultiIdentifiers, id.String())
	return m
}

func (m *movieInfo) Start(name string, a feed.Attrs) {
	parent := m.open.top()
	m.open.push(name)
	switch {
	case name == "poster" && parent == "movie":
		m.record.Set(media.PropThumbnail, a.Get("href"))
	case name == "trailer" && parent == "movie":
		m.record.Set(media.PropTrailer, a.Get("href"))
	case name == "castmember":
		m.member = &media.CastEntry{}
	case m.member != nil && name == "person":
		m.member.PersonID = a.Get("code")
	case m.member != nil && name == "activity":
		switch a.Get("code") {
		case activityActor:
			m.member.Role = media.RoleActor
		case activityDirector:
			m.member.Role = media.RoleDirector
		case activityWriter:
			m.member.Role = media.RoleWriter
		}
	case m.member != nil && name == "picture":
		m.member.Portrait = a.Get("href")
	case name == "media" && a.Get("class") == "picture":
		m.image = &media.ImageRecord{}
		m.urls = media.ImageURLs{}
	case m.image != nil && name == "type":
		switch a.Get("code") {
		case picturePoster:
			m.image.Category = media.CategoryThumb
		case pictureStill:
			m.image.Category = media.CategoryFanart
		}
	case m.image != nil && name == "thumbnail":
		m.urls = resized(a.Get("href"))
	}
}

func (m *movieInfo) End(name, text string) {
	m.open.pop()
	parent := m.open.top()
	switch {
	case name == "castmember":
		if m.member != nil && m.member.Role != "" && m.member.Name != "" {
			m.cast = append(m.cast, *m.member)
		}
		m.member = nil
	case m.member != nil && name == "person":
		m.member.Name = text
	case m.member != nil && name == "role" && m.member.Role == media.RoleActor:
		m.member.Character = text
	case name == "media" && m.image != nil:
		if m.image.Category != "" {
			img := media.NewImage(len(m.images), m.image.Category, m.urls)
			if !img.Empty() {
				m.images = append(m.images, img)
			}
		}
		m.image = nil
	case name == "genre" && parent == "genrelist":
		m.record.Add(media.MultiGenres, text)
	case name == "nationality" && parent == "nationalitylist":
		m.record.Add(media.MultiCountries, text)
	case name == "releasedate" && parent == "release":
		m.record.Set(media.PropReleaseDate, text)
	case parent == "statistics" && m.member == nil && m.image == nil:
		m.statistic(name, text)
	case parent == "movie":
		m.field(name, text)
	}
}

func (m *movieInfo) statistic(name, text string) {
	switch name {
	case "userrating":
		m.record.Set(media.PropRating, feed.Decimal(text))
	case "userratingcount":
		m.record.Set(media.PropVotes, feed.Digits(text))
	}
}

func (m *movieInfo) field(name, text string) {
	switch name {
	case "originaltitle":
		m.record.Set(media.PropOriginalTitle, text)
		m.record.SetDefault(media.PropTitle, text)
	case "title":
		m.record.Set(media.PropTitle, text)
	case "productionyear":
		m.record.Set(media.PropYear, feed.Digits(text))
	case "runtime":
		if secs, err := strconv.Atoi(feed.Digits(text)); err == nil && secs > 0 {
			m.record.Set(media.PropRuntime, strconv.Itoa(secs/60))
		}
	case "synopsis":
		m.record.Set(media.PropOverview, text)
	case "synopsisshort":
		m.record.Set(media.PropTagline, text)
	}
}

// resized derives the size variants of a picture from its original URL by
// inserting a resize step after the host.
func resized(href string) media.ImageURLs {
	urls := media.ImageURLs{Big: href}
	scheme, rest, ok := strings.Cut(href, "://")
	if !ok {
		return urls
	}
	host, path, ok := strings.Cut(rest, "/")
	if !ok {
		return urls
	}
	prefix := scheme + "://" + host + "/"
	urls.Medium = prefix + "r_640_x/" + path
	urls.Small = prefix + "r_160_240/" + path
	return urls
}

// codeIndex maps the numbers of child entities (seasons of a show, episodes
// of a season) to their codes.
type codeIndex struct {
	entity string
	number string
	root   string

	open    stack
	current string
	codes   map[int]string
	title   string
}

func newCodeIndex(entity, number, root string) *codeIndex {
	return &codeIndex{entity: entity, number: number, root: root, codes: make(map[int]string)}
}

func (m *codeIndex) Start(name string, a feed.Attrs) {
	m.open.push(name)
	if name == m.entity {
		m.current = a.Get("code")
	}
}

func (m *codeIndex) End(name, text string) {
	m.open.pop()
	parent := m.open.top()
	switch {
	case name == m.entity:
		m.current = ""
	case name == m.number && parent == m.entity && m.current != "":
		if n, err := strconv.Atoi(feed.Digits(text)); err == nil {
			if _, seen := m.codes[n]; !seen {
				m.codes[n] = m.current
			}
		}
	case name == "title" && parent == m.root:
		m.title = text
	case name == "originaltitle" && parent == m.root && m.title == "":
		m.title = text
	}
}

// episodeInfo extracts one episode document. The user rating is taken from
// the statistics block or the episode itself, whichever comes last.
type episodeInfo struct {
	inEpisode bool
	open      stack
	record    *media.DetailBuilder
}

func newEpisodeInfo(show media.Identifier) *episodeInfo {
	return &episodeInfo{record: media.NewDetailBuilder(show, media.KindEpisode)}
}

func (m *episodeInfo) Start(name string, _ feed.Attrs) {
	m.open.push(name)
	if name == "episode" {
		m.inEpisode = true
	}
}

func (m *episodeInfo) End(name, text string) {
	m.open.pop()
	parent := m.open.top()
	if name == "episode" {
		m.inEpisode = false
		return
	}
	if !m.inEpisode {
		return
	}
	switch name {
	case "userrating":
		m.record.Set(media.PropRating, feed.Decimal(text))
	case "userratingcount":
		m.record.Set(media.PropVotes, feed.Digits(text))
	case "episodenumberseason":
		if parent == "episode" {
			m.record.Set(media.PropEpisode, feed.Digits(text))
		}
	case "originaltitle":
		if parent == "episode" {
			m.record.Set(media.PropOriginalTitle, text)
			m.record.SetDefault(media.PropTitle, text)
		}
	case "title":
		if parent == "episode" {
			m.record.Set(media.PropTitle, text)
		}
	case "synopsis":
		if parent == "episode" {
			m.record.Set(media.PropOverview, text)
		}
	}
}
