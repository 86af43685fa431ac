package resolve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	csmap "github.com/mhmtszr/concurrent-swiss-map"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/log"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/metrics"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

// Engine resolves a batch of files with a bounded worker pool while
// exposing progress snapshots for UI consumption.
type Engine struct {
	resolver    *Resolver
	workerCount int
	locale      media.Locale
	provider    string
	items       []Item
	journal     *log.Session
	log         logrus.FieldLogger

	results *csmap.CsMap[string, *Result]

	summaryMu sync.RWMutex
	summary   Summary

	errorsMu sync.Mutex
	errors   []error

	failuresMu sync.Mutex
	failures   []Failure
}

// Item is one file of a batch.
type Item struct {
	Key  string
	Path string
}

// Summary captures the state of the batch at a point in time.
type Summary struct {
	TotalItems     int
	ProcessedItems int
	ActiveWorkers  int
	WorkerLimit    int
	Resolved       int
	Failed         int
	ErrorCount     int // items awaiting a manual query
	LastItem       string
	Done           bool
	Canceled       bool
}

// Event is a progress update emitted by the engine.
type Event struct {
	Summary Summary
	Err     error
}

// Failure is an item whose search found no candidate. Callers may retry it
// with a manual query.
type Failure struct {
	Item     Item
	Query    string
	Err      error
	Attempts int
}

// EngineConfig configures a batch.
type EngineConfig struct {
	Paths       []string
	WorkerCount int
	Locale      media.Locale
	Provider    string
	Journal     *log.Session
	Logger      logrus.FieldLogger
}

// NewEngine constructs an engine with defaults applied. Duplicate paths are
// resolved once.
func NewEngine(r *Resolver, cfg EngineConfig) *Engine {
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}

	seen := make(map[string]bool, len(cfg.Paths))
	items := make([]Item, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		key := filepath.Clean(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, Item{Key: key, Path: p})
	}

	return &Engine{
		resolver:    r,
		workerCount: workerCount,
		locale:      cfg.Locale,
		provider:    cfg.Provider,
		items:       items,
		journal:     cfg.Journal,
		log:         logger,
		results:     csmap.Create[string, *Result](),
		summary: Summary{
			TotalItems:  len(items),
			WorkerLimit: workerCount,
		},
	}
}

// Start begins resolving and returns a stream of progress events. The
// channel is closed when the batch is done or ctx is canceled.
func (e *Engine) Start(ctx context.Context) <-chan Event {
	events := make(chan Event, 128)
	go e.run(ctx, events)
	return events
}

// Results returns the resolved items keyed by item key. The map is safe to
// read once the engine has completed.
func (e *Engine) Results() map[string]*Result {
	result := make(map[string]*Result, e.results.Count())
	e.results.Range(func(key string, value *Result) bool {
		result[key] = value
		return false
	})
	return result
}

// Result returns the result for one item key.
func (e *Engine) Result(key string) (*Result, bool) {
	return e.results.Load(key)
}

// Items returns the batch items in input order.
func (e *Engine) Items() []Item {
	return append([]Item(nil), e.items...)
}

// Errors returns a copy of the accumulated errors.
func (e *Engine) Errors() []error {
	e.errorsMu.Lock()
	defer e.errorsMu.Unlock()
	if len(e.errors) == 0 {
		return nil
	}
	cloned := make([]error, len(e.errors))
	copy(cloned, e.errors)
	return cloned
}

// SummarySnapshot returns the latest progress summary.
func (e *Engine) SummarySnapshot() Summary {
	e.summaryMu.RLock()
	defer e.summaryMu.RUnlock()
	return e.summary
}

// Failures returns a copy of the items awaiting a manual query.
func (e *Engine) Failures() []Failure {
	e.failuresMu.Lock()
	defer e.failuresMu.Unlock()
	if len(e.failures) == 0 {
		return nil
	}
	cloned := make([]Failure, len(e.failures))
	copy(cloned, e.failures)
	return cloned
}

type itemResult struct {
	item Item
	res  *Result
	err  error
}

func (e *Engine) run(ctx context.Context, events chan<- Event) {
	defer close(events)

	if len(e.items) == 0 {
		e.summaryMu.Lock()
		e.summary.Done = true
		e.summaryMu.Unlock()
		e.emit(ctx, events, nil)
		return
	}

	workerCount := min(e.workerCount, len(e.items))
	workCh := make(chan Item)
	resultCh := make(chan itemResult)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, workCh, resultCh)
	}

	e.summaryMu.Lock()
	e.summary.ActiveWorkers = workerCount
	e.summaryMu.Unlock()
	e.emit(ctx, events, nil)

	go func() {
		defer close(workCh)
		for _, item := range e.items {
			select {
			case workCh <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for {
		select {
		case <-ctx.Done():
			e.summaryMu.Lock()
			e.summary.Canceled = true
			e.summary.ActiveWorkers = 0
			e.summaryMu.Unlock()
			// best effort: the consumer may already be gone
			select {
			case events <- Event{Summary: e.SummarySnapshot(), Err: ctx.Err()}:
			default:
			}
			return
		case res, ok := <-resultCh:
			if !ok {
				e.summaryMu.Lock()
				e.summary.ActiveWorkers = 0
				e.summary.Done = true
				e.summaryMu.Unlock()
				e.emit(ctx, events, nil)
				return
			}
			e.processResult(res)
			e.emit(ctx, events, nil)
		}
	}
}

func (e *Engine) worker(ctx context.Context, wg *sync.WaitGroup, workCh <-chan Item, resultCh chan<- itemResult) {
	defer wg.Done()

	for item := range workCh {
		if ctx.Err() != nil {
			return
		}
		metrics.BatchInFlight.Inc()
		res, err := e.resolve(ctx, item, "")
		metrics.BatchInFlight.Dec()

		select {
		case resultCh <- itemResult{item: item, res: res, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) resolve(ctx context.Context, item Item, query string) (*Result, error) {
	reqID := uuid.NewString()
	logger := e.log.WithFields(logrus.Fields{"request_id": reqID, "path": item.Path})
	logger.Debug("resolving")

	res, err := e.resolver.ResolveFile(ctx, FileRequest{
		Path:     item.Path,
		Locale:   e.locale,
		Provider: e.provider,
		Query:    query,
	})
	if err != nil {
		logger.WithError(err).Info("resolution failed")
	}
	return res, err
}

func (e *Engine) processResult(r itemResult) {
	if r.res != nil && r.res.Details != nil {
		e.results.Store(r.item.Key, r.res)
	}
	e.journalResult(r.item, "", r.res, r.err)

	failureCount := e.updateFailure(r.item, "", r.err)
	e.appendError(r.item, r.err)

	e.summaryMu.Lock()
	e.summary.ProcessedItems++
	if r.err == nil && r.res != nil && r.res.State == StateComplete {
		e.summary.Resolved++
	}
	if r.err != nil && !errors.Is(r.err, context.Canceled) {
		e.summary.Failed++
	}
	e.summary.ErrorCount = failureCount
	e.summary.LastItem = ProgressMessage(r.item, r.res)
	e.summaryMu.Unlock()
}

func (e *Engine) appendError(item Item, err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	e.errorsMu.Lock()
	e.errors = append(e.errors, fmt.Errorf("%s: %w", item.Path, err))
	e.errorsMu.Unlock()
}

// IsMiss reports whether err is a miss a better query could fix.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNoCandidates) || provider.IsNotFound(err)
}

func (e *Engine) updateFailure(item Item, query string, err error) int {
	e.failuresMu.Lock()
	defer e.failuresMu.Unlock()

	idx := e.findFailureIndexLocked(item.Key)
	if err == nil || !IsMiss(err) {
		if idx >= 0 {
			e.failures = append(e.failures[:idx], e.failures[idx+1:]...)
		}
		return len(e.failures)
	}
	if query == "" {
		query = item.Path
	}
	if idx >= 0 {
		existing := e.failures[idx]
		existing.Err = err
		existing.Query = query
		existing.Attempts++
		e.failures[idx] = existing
		return len(e.failures)
	}
	e.failures = append(e.failures, Failure{Item: item, Query: query, Err: err, Attempts: 1})
	return len(e.failures)
}

func (e *Engine) findFailureIndexLocked(key string) int {
	for idx, failure := range e.failures {
		if failure.Item.Key == key {
			return idx
		}
	}
	return -1
}

// Retry resolves a failed item again with a manual query. It returns nil
// when the item resolved. If it still fails, the updated failure is
// returned. A non-nil error means key has no recorded failure.
func (e *Engine) Retry(ctx context.Context, key, query string) (*Failure, error) {
	e.failuresMu.Lock()
	idx := e.findFailureIndexLocked(key)
	if idx < 0 {
		e.failuresMu.Unlock()
		return nil, fmt.Errorf("no failure recorded for %s", key)
	}
	failure := e.failures[idx]
	e.failuresMu.Unlock()

	query = strings.TrimSpace(query)
	res, err := e.resolve(ctx, failure.Item, query)
	e.journalResult(failure.Item, query, res, err)

	if err != nil || res == nil || res.Details == nil {
		if err == nil {
			err = fmt.Errorf("%w for %q", ErrNoCandidates, query)
		}
		e.failuresMu.Lock()
		defer e.failuresMu.Unlock()
		idx = e.findFailureIndexLocked(key)
		if idx < 0 {
			return nil, fmt.Errorf("no failure recorded for %s after retry", key)
		}
		updated := e.failures[idx]
		updated.Attempts++
		updated.Query = query
		updated.Err = err
		e.failures[idx] = updated
		copied := updated
		return &copied, nil
	}

	e.results.Store(key, res)
	remaining := e.updateFailure(failure.Item, query, nil)

	e.summaryMu.Lock()
	e.summary.ErrorCount = remaining
	e.summary.Resolved++
	if e.summary.Failed > 0 {
		e.summary.Failed--
	}
	e.summary.LastItem = ProgressMessage(failure.Item, res)
	e.summaryMu.Unlock()
	return nil, nil
}

func (e *Engine) journalResult(item Item, query string, res *Result, err error) {
	if e.journal == nil {
		return
	}
	entry := log.Entry{Input: item.Path, Provider: e.provider}
	if query != "" {
		entry.Input = item.Path + " (" + query + ")"
	}
	switch {
	case err == nil && res != nil && res.Canceled:
		entry.Outcome = log.OutcomeCanceled
	case err == nil:
		entry.Outcome = log.OutcomeResolved
	case IsMiss(err):
		entry.Outcome = log.OutcomeNoMatch
	default:
		entry.Outcome = log.OutcomeFailed
	}
	if err != nil {
		entry.Error = err.Error()
		if ph, ok := FailedPhase(err); ok {
			entry.Phase = string(ph)
		}
	}
	if res != nil && res.Details != nil {
		entry.Identifier = res.Details.ID().String()
		entry.Title = res.Details.Title()
		entry.Provider = string(res.Details.ID().Source)
		entry.Year, _ = strconv.Atoi(res.Details.Value(media.PropYear))
	}
	e.journal.Record(entry)
}

func (e *Engine) emit(ctx context.Context, events chan<- Event, err error) {
	summary := e.SummarySnapshot()
	select {
	case events <- Event{Summary: summary, Err: err}:
	case <-ctx.Done():
	}
}

// ProgressMessage describes the last processed item for progress displays.
func ProgressMessage(item Item, res *Result) string {
	name := filepath.Base(item.Path)
	if res == nil || res.Details == nil {
		return name
	}
	title := res.Details.Title()
	if show := res.Details.Value(media.PropShowTitle); show != "" {
		season, _ := strconv.Atoi(res.Details.Value(media.PropSeason))
		episode, _ := strconv.Atoi(res.Details.Value(media.PropEpisode))
		title = fmt.Sprintf("%s S%02dE%02d %s", show, season, episode, title)
	}
	return fmt.Sprintf("%s → %s", name, title)
}
