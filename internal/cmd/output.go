package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/resolve"
	"github.com/Digital-Shane/title-scout/internal/server"
)

const maxCell = 48

func init() {
	runewidth.DefaultCondition.EastAsianWidth = false
	runewidth.DefaultCondition.StrictEmojiNeutral = true
}

// table renders rows as aligned columns measured in terminal cells, so
// accented and wide titles line up.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) write(w io.Writer) {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], min(maxCell, runewidth.StringWidth(c)))
			}
		}
	}
	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			c = runewidth.Truncate(c, maxCell, "…")
			if i == len(cells)-1 {
				parts[i] = c
				continue
			}
			parts[i] = runewidth.FillRight(c, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	line(t.header)
	for _, row := range t.rows {
		line(row)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCandidates(w io.Writer, cs []media.SearchCandidate) {
	if len(cs) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	t := &table{header: []string{"ID", "YEAR", "TITLE", "ORIGINAL TITLE"}}
	for _, c := range cs {
		year := ""
		if c.HasYear() {
			year = strconv.Itoa(c.Year)
		}
		original := ""
		if c.OriginalName != c.Name {
			original = c.OriginalName
		}
		t.add(c.ID.String(), year, c.Name, original)
	}
	t.write(w)
}

// printResult writes a resolution in a readable layout.
func printResult(w io.Writer, res *resolve.Result) {
	if res == nil {
		return
	}
	if res.Canceled {
		fmt.Fprintln(w, "(canceled, partial result)")
	}
	if res.Details != nil {
		d := res.Details
		fmt.Fprintf(w, "%s  %s\n", d.ID(), d.Title())
		t := &table{header: []string{"FIELD", "VALUE"}}
		for _, p := range d.Properties() {
			if p == media.PropTitle {
				continue
			}
			t.add(string(p), d.Value(p))
		}
		for _, mp := range []media.MultiProperty{media.MultiGenres, media.MultiStudios, media.MultiCountries, media.MultiLanguages, media.MultiNetworks, media.MultiTags, media.MultiIdentifiers} {
			if vals := d.GetAll(mp); len(vals) > 0 {
				t.add(string(mp), strings.Join(vals, ", "))
			}
		}
		t.write(w)
	}
	if len(res.Cast) > 0 {
		fmt.Fprintln(w)
		t := &table{header: []string{"ROLE", "NAME", "CHARACTER"}}
		for _, c := range res.Cast {
			t.add(string(c.Role), c.Name, c.Character)
		}
		t.write(w)
	}
	if len(res.Images) > 0 {
		fmt.Fprintln(w)
		t := &table{header: []string{"CATEGORY", "LANG", "URL"}}
		for _, img := range res.Images {
			t.add(string(img.Category), img.Language, img.URL(media.SizeBig))
		}
		t.write(w)
	}
	if res.Tags != nil {
		fmt.Fprintf(w, "\n%s %s, %s %s, audio %s %dch\n",
			res.Tags.Container, res.Tags.Resolution, res.Tags.VideoCodec, res.Tags.Definition,
			res.Tags.AudioCodec, res.Tags.AudioChannels)
	}
}

// emitResult prints res as JSON or text depending on --json.
func emitResult(w io.Writer, res *resolve.Result, err error) error {
	if jsonOutput {
		if werr := writeJSON(w, server.NewResultView(res, err)); werr != nil {
			return werr
		}
		return err
	}
	printResult(w, res)
	return err
}
