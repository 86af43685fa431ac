package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/title-scout/internal/config"
	"github.com/Digital-Shane/title-scout/internal/media"
)

// execute runs the root command with args against a private config file and
// returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, localeFlag, providerFlag, logLevel, cacheBackend = "", "", "", "", ""
	jsonOutput, fileGuess, configForce, instant = false, false, false, false
	fileQuery, fileYear = "", 0

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func tempConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    media.Kind
		wantErr bool
	}{
		{"", media.KindMovie, false},
		{"Movie", media.KindMovie, false},
		{"tv", media.KindTVShow, false},
		{"episode", media.KindEpisode, false},
		{"album", "", true},
	}
	for _, tc := range tests {
		got, err := parseKind(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseKind(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("parseKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTableAlignsWideText(t *testing.T) {
	var buf bytes.Buffer
	tb := &table{header: []string{"ID", "TITLE"}}
	tb.add("allocine:1", "Le Fabuleux Destin d'Amélie Poulain")
	tb.add("imdb:2", "Heat")
	tb.write(&buf)

	want := "ID          TITLE\n" +
		"allocine:1  Le Fabuleux Destin d'Amélie Poulain\n" +
		"imdb:2      Heat\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("table mismatch (-want +got)\n%s", diff)
	}
}

func TestVideoPaths(t *testing.T) {
	var skipped bytes.Buffer
	got := videoPaths([]string{"a.mkv", "notes.txt", "b.MP4", "c.srt", "Heat.1995.sample.mkv", "Samples/d.mkv"}, &skipped)
	if diff := cmp.Diff([]string{"a.mkv", "b.MP4", "Samples/d.mkv"}, got); diff != "" {
		t.Errorf("videoPaths mismatch (-want +got)\n%s", diff)
	}
	out := skipped.String()
	if !strings.Contains(out, "skipping notes.txt: not a video file") {
		t.Errorf("skipped output = %q", out)
	}
	if !strings.Contains(out, "skipping Heat.1995.sample.mkv: sample clip") {
		t.Errorf("sample clip not reported, output = %q", out)
	}
}

func TestMaskedHidesCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers.TMDBAPIKey = "secret"
	got := masked(cfg)
	if got.Providers.TMDBAPIKey != "********" || got.Providers.TVDBAPIKey != "" {
		t.Errorf("masked providers = %+v", got.Providers)
	}
	if cfg.Providers.TMDBAPIKey != "secret" {
		t.Error("masked() modified the original config")
	}
}

func TestPreferredOrder(t *testing.T) {
	providerFlag = "omdb"
	t.Cleanup(func() { providerFlag = "" })
	cfg := config.DefaultConfig()
	want := []string{"omdb", "imdb", "tvdb", "subscene", "fanarttv"}
	if diff := cmp.Diff(want, preferred(cfg)); diff != "" {
		t.Errorf("preferred mismatch (-want +got)\n%s", diff)
	}
}

func TestFileGuess(t *testing.T) {
	got, err := execute(t, "file", "--guess", "--json", "Fringe (2008)/Season 01/Fringe.S01E02.720p.mkv")
	if err != nil {
		t.Fatalf("file --guess error = %v", err)
	}
	var g struct {
		Title   string `json:"title"`
		Kind    string `json:"kind"`
		Season  int    `json:"season"`
		Episode int    `json:"episode"`
	}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, got)
	}
	if g.Title != "Fringe" || g.Kind != "episode" || g.Season != 1 || g.Episode != 2 {
		t.Errorf("guess = %+v", g)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := tempConfig(t)
	if _, err := execute(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := execute(t, "config", "init", "--config", path); err == nil {
		t.Error("second config init error = nil, want already exists")
	}

	got, err := execute(t, "config", "show", "--config", path, "--locale", "fr")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(got, "locale: fr") {
		t.Errorf("config show output missing locale override:\n%s", got)
	}
}

func TestCacheClearMemory(t *testing.T) {
	got, err := execute(t, "cache", "clear", "records", "--cache", "memory", "--config", tempConfig(t))
	if err != nil {
		t.Fatalf("cache clear error = %v", err)
	}
	if diff := cmp.Diff("Removed 0 cached entries (records)\n", got); diff != "" {
		t.Errorf("output mismatch (-want +got)\n%s", diff)
	}
	if _, err := execute(t, "cache", "clear", "bogus", "--cache", "memory", "--config", tempConfig(t)); err == nil {
		t.Error("cache clear bogus error = nil")
	}
}

func TestProvidersReportsMissingSettings(t *testing.T) {
	for _, k := range []string{"TMDB_APIKEY", "TVDB_APIKEY", "OMDB_APIKEY", "ALLOCINE_PARTNER", "FANARTTV_APIKEY"} {
		t.Setenv("TITLE_SCOUT_"+k, "")
	}
	got, err := execute(t, "providers", "--json", "--cache", "memory", "--config", tempConfig(t))
	if err != nil {
		t.Fatalf("providers error = %v", err)
	}
	var rows []providerStatus
	if err := json.Unmarshal([]byte(got), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, got)
	}
	enabled := map[string]bool{}
	missing := map[string]bool{}
	for _, r := range rows {
		if r.Missing != "" {
			missing[r.Name] = true
		} else if r.Enabled {
			enabled[r.Name] = true
		}
	}
	if diff := cmp.Diff(map[string]bool{"imdb": true, "subscene": true}, enabled); diff != "" {
		t.Errorf("enabled mismatch (-want +got)\n%s", diff)
	}
	if !missing["tmdb"] || !missing["fanarttv"] {
		t.Errorf("missing = %v", missing)
	}
}

func TestResolveRejectsBadIdentifier(t *testing.T) {
	if _, err := execute(t, "resolve", "nowhere:1"); err == nil {
		t.Error("resolve nowhere:1 error = nil")
	}
	if _, err := execute(t, "episode", "tvdb:1", "x", "1"); err == nil {
		t.Error("episode with bad season error = nil")
	}
}
