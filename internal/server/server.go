// Package server exposes the resolver over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/cache"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
	"github.com/Digital-Shane/title-scout/internal/resolve"
)

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

// Server serves search and resolution requests.
type Server struct {
	resolver *resolve.Resolver
	cache    *cache.Cache
	log      logrus.FieldLogger
	metrics  bool
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithCache enables the cache clear endpoint.
func WithCache(c *cache.Cache) Option { return func(s *Server) { s.cache = c } }

// WithLogger sets the access logger.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Server) { s.log = l } }

// WithMetrics mounts /metrics.
func WithMetrics(on bool) Option { return func(s *Server) { s.metrics = on } }

// New builds the router.
func New(r *resolve.Resolver, opts ...Option) *Server {
	s := &Server{resolver: r, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()
	router.Use(s.requestID)
	router.Use(s.accessLog)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics {
		router.Handle("/metrics", promhttp.Handler())
	}
	router.Get("/providers", s.handleProviders)
	router.Get("/search", s.handleSearch)
	router.Get("/resolve/{source}/{id}", s.handleResolve)
	router.Get("/episode/{source}/{id}", s.handleEpisode)
	router.Get("/subtitles", s.handleSubtitles)
	router.Post("/cache/clear/{scope}", s.handleCacheClear)
	s.router = router
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		logger := s.log.WithField("request_id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger(r).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request served")
	})
}

func (s *Server) logger(r *http.Request) logrus.FieldLogger {
	if l, ok := r.Context().Value(ctxKey{}).(logrus.FieldLogger); ok {
		return l
	}
	return s.log
}

type providerView struct {
	Name         string   `json:"name"`
	Enabled      bool     `json:"enabled"`
	Kinds        []string `json:"kinds"`
	Capabilities []string `json:"capabilities"`
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	reg := s.resolver.Registry()
	out := []providerView{}
	for _, name := range reg.List() {
		p, _ := reg.Get(name)
		v := providerView{Name: name, Enabled: reg.IsEnabled(name), Capabilities: provider.Capabilities(p)}
		for _, k := range p.Kinds() {
			v.Kinds = append(v.Kinds, string(k))
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("q")
	if text == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	kind, err := parseKind(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := intParam(q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year: "+err.Error())
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}

	cs, err := s.resolver.Search(r.Context(), resolve.Query{
		Text:     text,
		Year:     year,
		Kind:     kind,
		Locale:   localeParam(q.Get("locale")),
		Provider: q.Get("provider"),
		Limit:    limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewCandidateViews(cs))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identifier(w, r)
	if !ok {
		return
	}
	res, err := s.resolver.Resolve(r.Context(), id, localeParam(r.URL.Query().Get("locale")))
	s.writeResult(w, r, res, err)
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identifier(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	season, err := strconv.Atoi(q.Get("season"))
	if err != nil || season < 0 {
		writeError(w, http.StatusBadRequest, "season must be a non-negative integer")
		return
	}
	episode, err := strconv.Atoi(q.Get("episode"))
	if err != nil || episode < 1 {
		writeError(w, http.StatusBadRequest, "episode must be a positive integer")
		return
	}
	res, err := s.resolver.ResolveEpisode(r.Context(), id, season, episode, localeParam(q.Get("locale")))
	s.writeResult(w, r, res, err)
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("q")
	if text == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	kind, err := parseKind(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	subs, err := s.resolver.Subtitles(r.Context(), q.Get("provider"), kind, text, localeParam(q.Get("locale")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []media.Subtitle{}
	}
	type subtitleView struct {
		Name     string `json:"name"`
		Language string `json:"language"`
		Release  string `json:"release,omitempty"`
		URL      string `json:"url"`
	}
	out := make([]subtitleView, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subtitleView{Name: sub.Name, Language: sub.Language, Release: sub.Release, URL: sub.URL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache is not configured")
		return
	}
	scope, err := cache.ParseScope(chi.URLParam(r, "scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	removed, err := s.cache.Clear(r.Context(), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger(r).WithFields(logrus.Fields{"scope": scope, "removed": removed}).Info("cache cleared")
	writeJSON(w, http.StatusOK, map[string]any{"scope": string(scope), "removed": removed})
}

func (s *Server) identifier(w http.ResponseWriter, r *http.Request) (media.Identifier, bool) {
	src, err := media.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return media.Identifier{}, false
	}
	if _, ok := s.resolver.Registry().Get(string(src)); !ok {
		writeError(w, http.StatusNotFound, "provider "+string(src)+" is not registered")
		return media.Identifier{}, false
	}
	return media.Identifier{ID: chi.URLParam(r, "id"), Source: src}, true
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res *resolve.Result, err error) {
	if err != nil {
		s.logger(r).WithError(err).Warn("resolution failed")
		writeJSON(w, statusOf(err), NewResultView(res, err))
		return
	}
	writeJSON(w, http.StatusOK, NewResultView(res, nil))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger(r).WithError(err).Warn("request failed")
	writeError(w, statusOf(err), err.Error())
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, resolve.ErrNoCandidates), provider.IsNotFound(err):
		return http.StatusNotFound
	case provider.CodeOf(err) == provider.CodeIdentifierParse, errors.Is(err, provider.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrTransport), errors.Is(err, provider.ErrSchema):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func parseKind(s string) (media.Kind, error) {
	switch media.Kind(s) {
	case "":
		return media.KindMovie, nil
	case media.KindMovie, media.KindTVShow, media.KindEpisode:
		return media.Kind(s), nil
	}
	return "", errors.New("kind must be movie, tvshow or episode")
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func localeParam(s string) media.Locale {
	if s == "" {
		return ""
	}
	return media.ParseLocale(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
