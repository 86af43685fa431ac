// Package builtin constructs the bundled providers and registers them.
package builtin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/cache"
	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/provider"
	"github.com/Digital-Shane/title-scout/internal/provider/allocine"
	"github.com/Digital-Shane/title-scout/internal/provider/fanarttv"
	"github.com/Digital-Shane/title-scout/internal/provider/imdb"
	"github.com/Digital-Shane/title-scout/internal/provider/omdb"
	"github.com/Digital-Shane/title-scout/internal/provider/subscene"
	"github.com/Digital-Shane/title-scout/internal/provider/tmdb"
	"github.com/Digital-Shane/title-scout/internal/provider/tvdb"
)

// Base priorities. A preferred provider is boosted above all of them.
var priorities = map[string]int{
	"tmdb":     100,
	"tvdb":     90,
	"imdb":     50,
	"omdb":     40,
	"allocine": 30,
	"fanarttv": 20,
	"subscene": 10,
}

const preferredBoost = 1000

// Deps are the shared collaborators handed to each provider.
type Deps struct {
	Fetcher    fetch.Fetcher // document fetcher, usually cache wrapped
	HTTPClient *http.Client  // used by SDK-backed providers
	Cache      *cache.Cache  // decoded SDK responses
	Log        logrus.FieldLogger
	Preferred  []string // boosted to the top of their kinds
}

// Skipped maps a provider name to the configuration error that kept it out
// of the registry.
type Skipped map[string]error

type constructor func(provider.Settings, Deps) (provider.Provider, error)

var constructors = map[string]constructor{
	"imdb": func(s provider.Settings, d Deps) (provider.Provider, error) {
		return imdb.New(d.Fetcher, s, imdb.WithLogger(d.Log)), nil
	},
	"tmdb": func(s provider.Settings, d Deps) (provider.Provider, error) {
		return tmdb.New(d.Fetcher, s, tmdb.WithCache(d.Cache), tmdb.WithLogger(d.Log))
	},
	"tvdb": func(s provider.Settings, d Deps) (provider.Provider, error) {
		return tvdb.New(s, tvdb.WithCache(d.Cache), tvdb.WithLogger(d.Log))
	},
	"omdb": func(s provider.Settings, d Deps) (provider.Provider, error) {
		opts := []omdb.Option{omdb.WithLogger(d.Log)}
		if d.HTTPClient != nil {
			opts = append(opts, omdb.WithHTTPClient(d.HTTPClient))
		}
		return omdb.New(s, opts...)
	},
	"allocine": func(s provider.Settings, d Deps) (provider.Provider, error) {
		return allocine.New(d.Fetcher, s, allocine.WithLogger(d.Log))
	},
	"fanarttv": func(s provider.Settings, d Deps) (provider.Provider, error) {
		return fanarttv.New(d.Fetcher, s, fanarttv.WithLogger(d.Log))
	},
	"subscene": func(s provider.Settings, d Deps) (provider.Provider, error) {
		return subscene.New(d.Fetcher, s, subscene.WithLogger(d.Log)), nil
	},
}

// Names lists the bundled providers by descending base priority.
func Names() []string {
	return []string{"tmdb", "tvdb", "imdb", "omdb", "allocine", "fanarttv", "subscene"}
}

// Load constructs every bundled provider and registers it with reg. Providers
// missing required settings are skipped and reported; any other failure is
// returned.
func Load(reg *provider.Registry, settings provider.Settings, deps Deps) (Skipped, error) {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = fetch.NewHTTPFetcher(deps.HTTPClient)
	}
	preferred := make(map[string]bool, len(deps.Preferred))
	for _, name := range deps.Preferred {
		preferred[name] = true
	}

	skipped := Skipped{}
	for _, name := range Names() {
		p, err := constructors[name](settings, deps)
		if err != nil {
			if errors.Is(err, provider.ErrConfiguration) {
				deps.Log.WithField("provider", name).WithError(err).Debug("provider skipped")
				skipped[name] = err
				continue
			}
			return skipped, fmt.Errorf("failed to create %s provider: %w", name, err)
		}
		priority := priorities[name]
		if preferred[name] {
			priority += preferredBoost
		}
		if err := reg.Register(name, p, priority); err != nil {
			return skipped, fmt.Errorf("failed to register %s provider: %w", name, err)
		}
	}
	return skipped, nil
}
