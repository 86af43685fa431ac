package media

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIdentifierRoundTrip(t *testing.T) {
	id := NewID(64116, SourceIMDB)
	got, err := ParseIdentifier(id.String())
	if err != nil {
		t.Fatalf("ParseIdentifier(%q) error = %v", id.String(), err)
	}
	if !got.Equal(id) {
		t.Fatalf("ParseIdentifier(%q) = %v, want %v", id.String(), got, id)
	}
	n, err := got.Int()
	if err != nil || n != 64116 {
		t.Fatalf("Int() = %d, %v, want 64116", n, err)
	}
}

func TestIdentifierAcrossSourcesNeverEqual(t *testing.T) {
	a := Identifier{ID: "680", Source: SourceTMDB}
	b := Identifier{ID: "680", Source: SourceTVDB}
	if a.Equal(b) {
		t.Fatalf("%v should not equal %v", a, b)
	}
}

func TestParseIdentifierErrors(t *testing.T) {
	for _, in := range []string{"", "imdb", "imdb:", "nope:12"} {
		if _, err := ParseIdentifier(in); err == nil {
			t.Errorf("ParseIdentifier(%q) expected error", in)
		}
	}
}

func TestDetailRecordOmitsEmptyFields(t *testing.T) {
	b := NewDetailBuilder(NewID(1858, SourceTMDB), KindMovie)
	b.Set(PropTitle, " Transformers ").Set(PropTagline, "   ").Set(PropRuntime, "144")
	b.Add(MultiGenres, "Action", "", "Action", "Science Fiction")
	rec := b.Build()

	if _, ok := rec.Get(PropTagline); ok {
		t.Fatalf("tagline should be absent")
	}
	if got := rec.Title(); got != "Transformers" {
		t.Fatalf("Title() = %q", got)
	}
	if diff := cmp.Diff([]string{"Action", "Science Fiction"}, rec.GetAll(MultiGenres)); diff != "" {
		t.Fatalf("genres mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Property{PropRuntime, PropTitle}, rec.Properties()); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestDetailRecordGetAllReturnsCopy(t *testing.T) {
	rec := NewDetailBuilder(NewID(1, SourceIMDB), KindMovie).Add(MultiCountries, "Italy").Build()
	got := rec.GetAll(MultiCountries)
	got[0] = "mutated"
	if rec.GetAll(MultiCountries)[0] != "Italy" {
		t.Fatalf("GetAll exposed internal storage")
	}
}

func TestSetDefaultKeepsExisting(t *testing.T) {
	b := NewDetailBuilder(NewID(1, SourceIMDB), KindMovie)
	b.Set(PropTitle, "first").SetDefault(PropTitle, "second").SetDefault(PropYear, "1968")
	rec := b.Build()
	if rec.Title() != "first" || rec.Value(PropYear) != "1968" {
		t.Fatalf("unexpected record %v", rec.Map())
	}
}

func TestImageURLFallback(t *testing.T) {
	tests := []struct {
		name string
		urls ImageURLs
		want [3]string
	}{
		{
			name: "all sizes",
			urls: ImageURLs{Small: "http://img/s.jpg", Medium: "http://img/m.jpg", Big: "http://img/b.jpg"},
			want: [3]string{"http://img/s.jpg", "http://img/m.jpg", "http://img/b.jpg"},
		},
		{
			name: "only big",
			urls: ImageURLs{Big: "http://img/b.jpg"},
			want: [3]string{"http://img/b.jpg", "http://img/b.jpg", "http://img/b.jpg"},
		},
		{
			name: "only small",
			urls: ImageURLs{Small: "http://img/s.jpg"},
			want: [3]string{"http://img/s.jpg", "http://img/s.jpg", "http://img/s.jpg"},
		},
		{
			name: "medium missing",
			urls: ImageURLs{Small: "http://img/s.jpg", Big: "http://img/b.jpg"},
			want: [3]string{"http://img/s.jpg", "http://img/b.jpg", "http://img/b.jpg"},
		},
		{
			name: "relative urls dropped",
			urls: ImageURLs{Small: "/s.jpg", Medium: "ftp://img/m.jpg", Big: "http://img/b.jpg"},
			want: [3]string{"http://img/b.jpg", "http://img/b.jpg", "http://img/b.jpg"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(1, CategoryThumb, tt.urls)
			got := [3]string{img.URL(SizeSmall), img.URL(SizeMedium), img.URL(SizeBig)}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("URL mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImageEmpty(t *testing.T) {
	img := NewImage(0, "", ImageURLs{Small: "not a url"})
	if !img.Empty() {
		t.Fatalf("expected empty image")
	}
	if img.Category != CategoryUnknown {
		t.Fatalf("Category = %q, want unknown", img.Category)
	}
}

func TestParseCategory(t *testing.T) {
	tests := map[string]ImageCategory{
		"poster": CategoryThumb,
		"Fanart": CategoryFanart,
		"logo":   CategoryLogo,
		"":       CategoryUnknown,
		"banner": CategoryBanner,
		"weird":  CategoryUnknown,
	}
	for in, want := range tests {
		if got := ParseCategory(in); got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("Director"); !ok || r != RoleDirector {
		t.Fatalf("ParseRole(Director) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("Producer"); ok {
		t.Fatalf("ParseRole(Producer) should not match")
	}
}

func TestLocale(t *testing.T) {
	tests := []struct {
		in, canonical, lang, accept string
	}{
		{"fr", "fr", "fr", "fr-FR"},
		{"fr_FR", "fr-FR", "fr", "fr-FR"},
		{"it", "it", "it", "it-IT"},
		{"en-GB", "en-GB", "en", "en-GB"},
		{"", "en", "en", "en-US"},
		{"!!", "en", "en", "en-US"},
	}
	for _, tt := range tests {
		l := ParseLocale(tt.in)
		if string(l) != tt.canonical || l.Language() != tt.lang || l.AcceptLanguage() != tt.accept {
			t.Errorf("ParseLocale(%q) = %q lang=%q accept=%q, want %q %q %q",
				tt.in, l, l.Language(), l.AcceptLanguage(), tt.canonical, tt.lang, tt.accept)
		}
	}
}
