package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The.Matrix.1999", "The Matrix 1999"},
		{"Pulp_Fiction-[x264]", "Pulp Fiction"},
		{"Transformers (2007)", "Transformers"},
		{"Hello, World!", "Hello World"},
		{"  lots   of\tspace ", "lots of space"},
		{"Le Bon; la Brute", "Le Bon la Brute"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"The.Matrix.1999",
		"[group] Show.Name.S01E02 (720p)",
		"a ] b [ c",
		"(x] [y)",
		"[a (b] c)",
		"   weird   spacing ",
		"il était une fois dans l'ouest",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCommonWords(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "parenthesized year dropped",
			input: []string{"Transformers (2007)", "Transformers"},
			want:  []string{"transformers"},
		},
		{
			name:  "singleton",
			input: []string{"The.Matrix"},
			want:  []string{"The Matrix"},
		},
		{
			name:  "singleton already normal",
			input: []string{"alien"},
			want:  []string{"alien"},
		},
		{
			name:  "empty input",
			input: []string{},
			want:  []string{},
		},
		{
			name:  "shared prefix",
			input: []string{"The Matrix Reloaded", "The Matrix Revolutions", "The Matrix"},
			want:  []string{"the matrix"},
		},
		{
			name:  "order follows first name",
			input: []string{"ouest dans il", "il etait une fois dans l'ouest"},
			want:  []string{"dans il", "il dans"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommonWords(tt.input)
			if got == nil {
				t.Fatalf("CommonWords(%q) = nil, want %q", tt.input, tt.want)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("CommonWords mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommonWordsNoReduction(t *testing.T) {
	tests := [][]string{
		{"alien", "alien"},
		{"alien", "heat"},
		{"alien heat", "heat alien"},
	}
	for _, in := range tests {
		if got := CommonWords(in); got != nil {
			t.Errorf("CommonWords(%q) = %q, want nil", in, got)
		}
	}
}

func TestCommonWordsDoesNotMutateInput(t *testing.T) {
	in := []string{"b title", "a title"}
	CommonWords(in)
	if diff := cmp.Diff([]string{"b title", "a title"}, in); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestSimilar(t *testing.T) {
	if !Similar("The.Matrix", "the matrix (1999)") {
		t.Errorf("expected similar")
	}
	if Similar("Heat", "Alien") {
		t.Errorf("expected not similar")
	}
	if Similar("", "Alien") {
		t.Errorf("empty title should not match")
	}
}

func TestYearDistance(t *testing.T) {
	if got := YearDistance(1966, 1968); got != 2 {
		t.Errorf("YearDistance = %d, want 2", got)
	}
	if got := YearDistance(-1, 1968); got <= 1000 {
		t.Errorf("unknown year should sort last, got %d", got)
	}
}
