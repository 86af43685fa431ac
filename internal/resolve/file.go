package resolve

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/guess"
	"github.com/Digital-Shane/title-scout/internal/match"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/probe"
)

// FileRequest resolves one local file.
type FileRequest struct {
	Path     string
	Locale   media.Locale
	Provider string // search provider, empty for the registry default
	Query    string // overrides the title guessed from Path
	Year     int    // overrides the guessed year
}

// ResolveFile guesses a query from the file path, searches, picks the best
// candidate and resolves it. Episodes are resolved through the show. A
// search with no candidates returns StateNoCandidates and ErrNoCandidates
// wrapped in a *PhaseError.
func (r *Resolver) ResolveFile(ctx context.Context, req FileRequest) (*Result, error) {
	g := guess.Parse(req.Path)
	if req.Query != "" {
		g.Title = req.Query
	}
	if req.Year > 0 {
		g.Year = req.Year
	}
	locale := r.localeOr(req.Locale)
	logger := r.log.WithFields(logrus.Fields{"path": req.Path, "title": g.Title, "kind": g.Kind})

	tags := r.probeFile(ctx, req.Path, logger)

	res := &Result{State: StateIdle, Tags: tags}
	if r.canceled(ctx, res) {
		return res, nil
	}
	kind := media.KindMovie
	if g.IsEpisode() {
		kind = media.KindTVShow
	}

	res.State = StateSearching
	candidates, err := r.Search(ctx, Query{Text: g.Title, Year: g.Year, Kind: kind, Locale: locale, Provider: req.Provider})
	if err != nil {
		return r.fail(ctx, res, err)
	}
	res.Candidates = candidates
	if len(candidates) == 0 {
		res.State = StateNoCandidates
		return res, &PhaseError{Phase: PhaseSearch, Provider: req.Provider, Query: g.Title, Err: ErrNoCandidates}
	}
	res.State = StateCandidatesFound

	pick := Pick(candidates, g.Title)
	logger.WithField("candidate", pick.ID.String()).Debug("candidate selected")

	var out *Result
	if g.IsEpisode() {
		out, err = r.ResolveEpisode(ctx, pick.ID, g.Season, g.Episode, locale)
	} else {
		out, err = r.Resolve(ctx, pick.ID, locale)
	}
	out.Candidates = candidates
	out.Tags = tags
	return out, err
}

// Pick returns the first candidate whose name or original name is similar
// to title, else the first candidate. candidates must not be empty.
func Pick(candidates []media.SearchCandidate, title string) media.SearchCandidate {
	for _, c := range candidates {
		if match.Similar(c.Name, title) || (c.OriginalName != "" && match.Similar(c.OriginalName, title)) {
			return c
		}
	}
	return candidates[0]
}

// probeFile reads technical tags when a prober is configured. Probe failures
// are logged and leave the tags empty.
func (r *Resolver) probeFile(ctx context.Context, path string, logger logrus.FieldLogger) *probe.Tags {
	if r.prober == nil {
		return nil
	}
	tags, err := r.prober.Probe(ctx, path)
	if err != nil {
		logger.WithError(err).Debug("probe failed")
		return nil
	}
	return tags
}
