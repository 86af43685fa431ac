package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/cache"
	"github.com/Digital-Shane/title-scout/internal/config"
	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/log"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/probe"
	"github.com/Digital-Shane/title-scout/internal/provider"
	"github.com/Digital-Shane/title-scout/internal/provider/builtin"
	"github.com/Digital-Shane/title-scout/internal/resolve"
	"github.com/Digital-Shane/title-scout/internal/tracing"
)

// app holds everything a command needs to resolve metadata.
type app struct {
	cfg      *config.Config
	log      *logrus.Entry
	cache    *cache.Cache
	registry *provider.Registry
	resolver *resolve.Resolver
	skipped  builtin.Skipped

	shutdownTracing func(context.Context) error
}

// loadConfig reads --config or the default location and applies the flag
// overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if localeFlag != "" {
		cfg.Locale = localeFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cacheBackend != "" {
		cfg.Cache.Backend = cacheBackend
	}
	return cfg, nil
}

// newApp wires configuration, logging, tracing, the cache, the HTTP client
// and every provider that has the settings it needs.
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := log.New("title-scout", cfg.LogLevel, logOut)

	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	store, err := cache.OpenStore(ctx, cache.StoreOptions{
		Backend:       cfg.Cache.Backend,
		Dir:           cfg.CacheDir(),
		SQLitePath:    cfg.Cache.SQLitePath,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		RedisPrefix:   cfg.Cache.RedisPrefix,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	c := cache.New(store, cache.WithLogger(logger))

	client, err := fetch.NewClient(fetch.ClientOptions{
		Proxy:     cfg.Proxy,
		Timeout:   cfg.HTTPTimeout(),
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		_ = c.Close()
		_ = shutdown(ctx)
		return nil, fmt.Errorf("invalid http settings: %w", err)
	}

	reg := provider.NewRegistry()
	skipped, err := builtin.Load(reg, cfg, builtin.Deps{
		Fetcher:    cache.NewFetcher(c, fetch.NewHTTPFetcher(client)),
		HTTPClient: client,
		Cache:      c,
		Log:        logger,
		Preferred:  preferred(cfg),
	})
	if err != nil {
		_ = c.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	r := resolve.New(reg,
		resolve.WithLocale(media.ParseLocale(cfg.Locale)),
		resolve.WithLimit(cfg.ResultLimit),
		resolve.WithSortByYear(cfg.SortByYear),
		resolve.WithProber(probe.New(probe.WithLogger(logger))),
		resolve.WithLogger(logger),
	)

	return &app{
		cfg:             cfg,
		log:             logger,
		cache:           c,
		registry:        reg,
		resolver:        r,
		skipped:         skipped,
		shutdownTracing: shutdown,
	}, nil
}

// preferred lists the configured default providers. The --provider flag
// comes first.
func preferred(cfg *config.Config) []string {
	var names []string
	for _, n := range []string{providerFlag, cfg.Providers.Movie, cfg.Providers.TVShow, cfg.Providers.Subtitle, cfg.Providers.Images} {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Close releases the cache and flushes traces.
func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close cache")
	}
	if err := a.shutdownTracing(context.Background()); err != nil {
		a.log.WithError(err).Warn("failed to flush traces")
	}
}

// requireProvider fails early when --provider names something that is not
// registered, pointing at the missing setting when there is one.
func (a *app) requireProvider(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := a.registry.Get(name); ok {
		return nil
	}
	if err, ok := a.skipped[name]; ok {
		return fmt.Errorf("provider %s is not configured: %w", name, err)
	}
	return fmt.Errorf("unknown provider %q", name)
}

func parseKind(s string) (media.Kind, error) {
	switch k := media.Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return media.KindMovie, nil
	case media.KindMovie, media.KindTVShow, media.KindEpisode:
		return k, nil
	case "show", "tv":
		return media.KindTVShow, nil
	}
	return "", fmt.Errorf("unknown kind %q: want movie, tvshow or episode", s)
}

// locale is the --locale flag, empty when unset so the resolver default
// applies.
func locale() media.Locale {
	if localeFlag == "" {
		return ""
	}
	return media.ParseLocale(localeFlag)
}

// exitErr keeps canceled runs quiet.
func exitErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
