// Package guess derives a search query from a media file path.
package guess

import (
	"path/filepath"
	"regexp"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"

	"github.com/Digital-Shane/title-scout/internal/media"
)

var resolutionRe = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|576p|480p)\b`)

// Guess is what a file path says about its content.
type Guess struct {
	Path       string     `json:"path"`
	Title      string     `json:"title"`
	Year       int        `json:"year,omitempty"`
	Kind       media.Kind `json:"kind"`
	Season     int        `json:"season,omitempty"`
	Episode    int        `json:"episode,omitempty"`
	Resolution string     `json:"resolution,omitempty"`
	Quality    string     `json:"quality,omitempty"`
	Group      string     `json:"group,omitempty"`
	Extension  string     `json:"extension,omitempty"`
}

// IsEpisode reports whether season and episode numbers were found.
func (g Guess) IsEpisode() bool { return g.Kind == media.KindEpisode }

// Parse guesses title, year, season and episode for path. Folder names
// supply the show name and season number when the filename lacks them.
// Release tags (resolution, quality, group) come from the torrent name parser.
func Parse(path string) Guess {
	base := filepath.Base(path)
	stem, ext := splitExtension(base)
	g := Guess{Path: path, Kind: media.KindMovie, Extension: ext}

	// Parse errors leave release tags empty; the heuristics below still run.
	release, err := ptn.Parse(base)
	if err == nil {
		g.Resolution = release.Resolution
		g.Quality = release.Quality
		g.Group = release.Group
	}
	if g.Resolution == "" {
		if m := resolutionRe.FindStringSubmatch(stem); m != nil {
			g.Resolution = strings.ToLower(m[1])
		}
	}

	if season, episode, ok := seasonEpisode(stem, path); ok {
		g.Kind = media.KindEpisode
		g.Season, g.Episode = season, episode
		g.Title, g.Year = showTitle(path, true)
	} else {
		g.Title, g.Year = titleAndYear(stem)
	}

	if err == nil {
		if g.Title == "" {
			g.Title = strings.TrimSpace(release.Title)
		}
		if g.Year == 0 && release.Year > 0 {
			g.Year = release.Year
		}
	}
	return g
}
