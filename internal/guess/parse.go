package guess

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// File kinds.
var (
	videoExt    = regexp.MustCompile(`(?i)\.(mp4|mkv|avi|mov|wmv|flv|webm|mpeg|mpg|m4v|3gp|vob|ts|mts|m2ts|rmvb|divx)$`)
	subtitleExt = regexp.MustCompile(`(?i)\.(srt|sub|idx|ass|ssa|smi|vtt|sbv|sami|usf|stl|dks|pjs|jss|psb|rt|scc|cap|sup|dfxp|ttml)$`)
	// subtitleLang is the ".en", ".eng" or ".en-US" before a subtitle extension.
	subtitleLang = regexp.MustCompile(`(\.[a-zA-Z]{2,3}(?:[-_][a-zA-Z]{2,4})?)$`)
)

// Episode numbering.
var (
	// S01E02, 1x02, s1e2
	seasonEpisodeTok = regexp.MustCompile(`(?i)[sx]?(\d+)[ex](\d+)`)
	// 1.04, 01.4, 10.12; the season is capped at two digits so 2024.05 is not read as one.
	dottedTok = regexp.MustCompile(`(?i)(?:^|[\s_\-\.])([0-9]{1,2})[\. _-]([0-9]{1,2})(?:[^0-9]|$)`)
	// a lone episode number, used when a season folder supplies the season
	looseEpisodeTok = regexp.MustCompile(`(?:^|[\s\.\-_]|[Ee])(\d+)(?:[\s\.\-_]|$)`)

	seasonTokens = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:s|season)\.? *(\d+)\b`),
		regexp.MustCompile(`(?i)(?:^|[\s\.\-_])(?:s|season)[\s\.\-_]+(\d+)`),
		regexp.MustCompile(`^(\d+)|[\s\.\-_](\d+)(?:[\s\.\-_]|$)`),
	}

	// numberingStart finds where the numbering begins in a release name.
	numberingStart = regexp.MustCompile(`(?i)[sx]?\d+[ex]\d+|\b(?:s|season)\.? *\d+\b|\b\d{1,2}[\. _-]\d{1,2}\b`)
	// seasonWord finds a "Season 2" or "S02" marker that follows a non-letter.
	seasonWord = regexp.MustCompile(`[^\p{L}]((?:Season|season|SEASON|S|s)[\d\s])`)
)

// Title cleanup.
var (
	// only the first year of a range such as 2016-2025 is kept
	yearTok = regexp.MustCompile(`\b((19|20)\d{2})(?:[\s\-–—]+(?:19|20)\d{2})?\b`)
	// releaseTags are codec, source and edition tags that never belong to a title.
	releaseTags = regexp.MustCompile(`(?i)\b(?:HD|HDR|DV|x265|x264|H\.?264|H\.?265|HEVC|AVC|AAC|AC3|DD|DTS|FLAC|MP3|WEB-?DL|BluRay|BDRip|DVDRip|HDTV|720p|1080p|2160p|4K|UHD|SDR|10bit|8bit|PROPER|REPACK|iNTERNAL|LiMiTED|UNRATED|EXTENDED|DiRECTORS?\.?CUT|THEATRICAL|COMPLETE|SEASON|SERIES|MULTI|DUAL|DUBBED|SUBBED|SUB|RETAIL|WS|FS|NTSC|PAL|R[1-6]|UNCUT|UNCENSORED)\b`)
	separators  = strings.NewReplacer(".", " ", "-", " ", "_", " ")
)

// maxParentDepth bounds how far up the tree a title is looked for.
const maxParentDepth = 3

// IsVideo reports whether name has a video extension.
func IsVideo(name string) bool { return videoExt.MatchString(name) }

// IsSubtitle reports whether name has a subtitle extension.
func IsSubtitle(name string) bool { return subtitleExt.MatchString(name) }

// IsSample reports whether name looks like a release sample clip.
func IsSample(name string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(name)), "sample")
}

// splitExtension separates the extension from name. Subtitles keep their
// language tag with the extension (".en.srt").
func splitExtension(name string) (stem, ext string) {
	if loc := subtitleExt.FindStringIndex(name); loc != nil {
		stem = name[:loc[0]]
		lang := subtitleLang.FindString(stem)
		return stem[:len(stem)-len(lang)], lang + name[loc[0]:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i:]
	}
	return name, ""
}

// firstInt returns the first non-empty numeric group matched by any of res,
// trying them in order.
func firstInt(s string, res ...*regexp.Regexp) (int, bool) {
	for _, re := range res {
		m := re.FindStringSubmatch(s)
		for _, g := range m[min(1, len(m)):] {
			if g == "" {
				continue
			}
			if n, err := strconv.Atoi(g); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// seasonNumber reads a season from a folder name such as "Season 02" or "s1".
func seasonNumber(name string) (int, bool) {
	return firstInt(name, seasonTokens...)
}

// seasonEpisode reads season and episode numbers from a file stem. A stem
// carrying only an episode number takes its season from the folder holding
// path; path may be empty.
func seasonEpisode(stem, path string) (season, episode int, ok bool) {
	// The dotted form is tried first; the loose episode fallback would
	// otherwise claim it.
	if m := dottedTok.FindStringSubmatch(stem); m != nil {
		s, _ := strconv.Atoi(m[1])
		e, _ := strconv.Atoi(m[2])
		if s > 0 && s <= 100 && e > 0 && e <= 300 {
			return s, e, true
		}
	}
	if m := seasonEpisodeTok.FindStringSubmatch(stem); m != nil {
		s, err1 := strconv.Atoi(m[1])
		e, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return s, e, true
		}
	}

	episode, ok = firstInt(stem, looseEpisodeTok)
	if !ok {
		return 0, 0, false
	}
	dir, ok := parent(path)
	if !ok {
		return 0, 0, false
	}
	if season, ok = seasonNumber(filepath.Base(dir)); !ok {
		return 0, 0, false
	}
	return season, episode, true
}

// parent returns the folder holding path, false at the top of the path.
func parent(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == path || dir == string(filepath.Separator) {
		return "", false
	}
	return dir, true
}

// showTitle finds the show name and year for an episode file or a show or
// season folder, walking up the tree when the name itself has none.
func showTitle(path string, isFile bool) (string, int) {
	if path == "" {
		return "", 0
	}
	name := filepath.Base(path)
	if isFile {
		name, _ = splitExtension(name)
	}

	if loc := numberingStart.FindStringIndex(name); loc != nil {
		if loc[0] == 0 {
			// "S01E01.mkv": the name lives in a folder above
			if dir, ok := parent(path); ok {
				return showTitle(dir, false)
			}
			return "", 0
		}
		if title, year := titleAndYear(strings.TrimRight(name[:loc[0]], ".-_ ")); title != "" {
			return title, year
		}
	}

	if _, ok := seasonNumber(name); ok {
		if m := seasonWord.FindStringSubmatchIndex(name); m != nil {
			if title, year := titleAndYear(strings.TrimRight(name[:m[2]], ".-_ ")); title != "" {
				return title, year
			}
		}
		if dir, ok := parent(path); ok {
			return showTitle(dir, false)
		}
		return "", 0
	}

	if title, year := titleAndYear(name); title != "" {
		return title, year
	}
	dir, ok := parent(path)
	for depth := 0; ok && depth < maxParentDepth; depth++ {
		if title, year := titleAndYear(filepath.Base(dir)); title != "" {
			return title, year
		}
		dir, ok = parent(dir)
	}
	return "", 0
}

// titleAndYear strips release tags and separators from name and splits off
// the year. Everything after the year is dropped.
func titleAndYear(name string) (string, int) {
	year := 0
	if m := yearTok.FindStringSubmatchIndex(name); m != nil {
		year, _ = strconv.Atoi(name[m[2]:m[3]])
		name = strings.TrimRight(name[:m[2]], " ([{-_")
	}
	name = releaseTags.ReplaceAllString(separators.Replace(name), "")
	return strings.Join(strings.Fields(name), " "), year
}
