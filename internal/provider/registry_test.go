package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/title-scout/internal/media"
)

// MockProvider is a test provider implementation
type MockProvider struct {
	name       string
	kinds      []media.Kind
	searchFunc func(context.Context, string, media.Locale) ([]media.SearchCandidate, error)
}

func (m *MockProvider) Name() string                { return m.name }
func (m *MockProvider) Kinds() []media.Kind         { return m.kinds }
func (m *MockProvider) DefaultLocale() media.Locale { return media.DefaultLocale }

// MockSearcher adds the search capability.
type MockSearcher struct{ MockProvider }

func (m *MockSearcher) Search(ctx context.Context, q string, l media.Locale) ([]media.SearchCandidate, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, q, l)
	}
	return nil, nil
}

func movieMock(name string) *MockProvider {
	return &MockProvider{name: name, kinds: []media.Kind{media.KindMovie}}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	mock := movieMock("test")

	if err := registry.Register("test", mock, 100); err != nil {
		t.Fatalf("Register() error = %v, want nil", err)
	}
	if err := registry.Register("test", mock, 100); err == nil {
		t.Error("Register() expected error for duplicate, got nil")
	}
	if err := registry.Register("kindless", &MockProvider{name: "kindless"}, 1); err == nil {
		t.Error("Register() expected error for provider without kinds, got nil")
	}
	if !registry.IsEnabled("test") {
		t.Error("IsEnabled(test) = false, want true after Register")
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	registry.Register("test", movieMock("test"), 100)

	p, exists := registry.Get("test")
	if !exists || p == nil {
		t.Fatalf("Get() = %v, %v, want provider", p, exists)
	}
	if _, exists = registry.Get("nonexistent"); exists {
		t.Error("Get() exists = true, want false")
	}
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	registry.Register("low", movieMock("low"), 50)
	registry.Register("high", movieMock("high"), 100)
	registry.Register("also-low", movieMock("also-low"), 50)

	want := []string{"high", "also-low", "low"}
	if diff := cmp.Diff(want, registry.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_EnableDisable(t *testing.T) {
	registry := NewRegistry()
	registry.Register("test", movieMock("test"), 100)

	if err := registry.Disable("test"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if got := registry.Enabled(media.KindMovie); len(got) != 0 {
		t.Errorf("Enabled() = %d providers, want 0 after Disable", len(got))
	}
	if err := registry.Enable("test"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if !registry.enabledStatus["test"] {
		t.Error("enabledStatus[test] = false, want true")
	}
	if err := registry.Enable("nonexistent"); err == nil {
		t.Error("Enable() expected error for nonexistent provider, got nil")
	}
}

func TestRegistry_EnabledFiltersKind(t *testing.T) {
	registry := NewRegistry()
	registry.Register("movies", movieMock("movies"), 10)
	registry.Register("shows", &MockProvider{name: "shows", kinds: []media.Kind{media.KindTVShow, media.KindEpisode}}, 20)

	var got []string
	for _, p := range registry.Enabled(media.KindTVShow) {
		got = append(got, p.Name())
	}
	if diff := cmp.Diff([]string{"shows"}, got); diff != "" {
		t.Errorf("Enabled(tvshow) mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Searcher(t *testing.T) {
	registry := NewRegistry()
	registry.Register("plain", movieMock("plain"), 100)
	registry.Register("search", &MockSearcher{MockProvider: *movieMock("search")}, 50)

	s, err := registry.Searcher("", media.KindMovie)
	if err != nil {
		t.Fatalf("Searcher() error = %v", err)
	}
	if s.Name() != "search" {
		t.Errorf("Searcher() = %s, want search", s.Name())
	}
	if _, err := registry.Searcher("plain", media.KindMovie); err == nil {
		t.Error("Searcher(plain) expected error for provider without search, got nil")
	}
	if _, err := registry.Searcher("", media.KindEpisode); err == nil {
		t.Error("Searcher(episode) expected error, got nil")
	}
}

func TestRegistry_SearcherNamedChecksKindAndStatus(t *testing.T) {
	registry := NewRegistry()
	registry.Register("search", &MockSearcher{MockProvider: *movieMock("search")}, 50)

	if _, err := registry.Searcher("search", media.KindMovie); err != nil {
		t.Fatalf("Searcher(search, movie) error = %v", err)
	}
	if _, err := registry.Searcher("search", media.KindTVShow); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Searcher(search, tvshow) error = %v, want ErrUnsupported", err)
	}
	registry.Disable("search")
	if _, err := registry.Searcher("search", media.KindMovie); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Searcher(disabled) error = %v, want ErrUnsupported", err)
	}
}

func TestCapabilities(t *testing.T) {
	want := []string{"search"}
	if diff := cmp.Diff(want, Capabilities(&MockSearcher{MockProvider: *movieMock("s")})); diff != "" {
		t.Errorf("Capabilities() mismatch (-want +got):\n%s", diff)
	}
	if got := Capabilities(movieMock("p")); got != nil {
		t.Errorf("Capabilities() = %v, want nil", got)
	}
}
