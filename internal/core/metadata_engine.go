package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/mhmtszr/concurrent-swiss-map"
)

// Looker is what the engine needs from a Refresher.
type Looker interface {
	GetMetadata(ctx context.Context, info LookupInfo) (*metadata.Result, error)
}

// MetadataEngine runs metadata lookups for many items on a worker pool while
// exposing progress snapshots for UI consumption.
type MetadataEngine struct {
	workerCount int
	looker      Looker
	items       []LookupInfo

	results *csmap.CsMap[string, *metadata.Result]

	summaryMu sync.RWMutex
	summary   MetadataSummary

	errorsMu sync.Mutex
	errors   []error
}

// MetadataSummary captures the state of the metadata pipeline at a point in time.
type MetadataSummary struct {
	TotalItems     int
	ProcessedItems int
	ActiveWorkers  int
	WorkerLimit    int
	FoundItems     int
	StaleItems     int
	MissingItems   int
	ErrorCount     int
	LastItem       string
	Done           bool
	Canceled       bool
}

// MetadataEvent represents an update emitted by the engine.
type MetadataEvent struct {
	Summary MetadataSummary
	Err     error
}

// MetadataEngineConfig configures the metadata engine.
type MetadataEngineConfig struct {
	Looker      Looker
	Items       []LookupInfo
	WorkerCount int
}

type lookupResult struct {
	info   LookupInfo
	result *metadata.Result
	err    error
}

// NewMetadataEngine constructs an engine with sane defaults applied.
func NewMetadataEngine(cfg MetadataEngineConfig) *MetadataEngine {
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 4
	}

	return &MetadataEngine{
		workerCount: workerCount,
		looker:      cfg.Looker,
		items:       cfg.Items,
		results:     csmap.Create[string, *metadata.Result](),
		summary: MetadataSummary{
			TotalItems:  len(cfg.Items),
			WorkerLimit: workerCount,
		},
	}
}

// Start begins metadata fetching and returns a stream of progress events.
func (e *MetadataEngine) Start(ctx context.Context) <-chan MetadataEvent {
	events := make(chan MetadataEvent, 128)
	go e.run(ctx, events)
	return events
}

// Results returns the collected results keyed by item key. The map is safe to
// read once the engine has completed.
func (e *MetadataEngine) Results() map[string]*metadata.Result {
	result := make(map[string]*metadata.Result, e.results.Count())
	e.results.Range(func(key string, value *metadata.Result) bool {
		result[key] = value
		return false
	})
	return result
}

// Errors returns a copy of the accumulated errors.
func (e *MetadataEngine) Errors() []error {
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
func (e *MetadataEngine) SummarySnapshot() MetadataSummary {
	e.summaryMu.RLock()
	defer e.summaryMu.RUnlock()
	return e.summary
}

// ItemKey identifies an item in Results.
func ItemKey(info LookupInfo) string {
	if info.Path != "" {
		return string(info.Kind) + ":" + info.Path
	}
	return string(info.Kind) + ":" + info.Name
}

func (e *MetadataEngine) run(ctx context.Context, events chan<- MetadataEvent) {
	defer close(events)

	if e.looker == nil || len(e.items) == 0 {
		e.summaryMu.Lock()
		e.summary.Done = true
		e.summaryMu.Unlock()
		e.emit(ctx, events, nil)
		return
	}

	e.emit(ctx, events, nil)

	workerCount := min(e.workerCount, len(e.items))
	workCh := make(chan LookupInfo)
	resultCh := make(chan lookupResult)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, workCh, resultCh)
	}

	// announce initial worker pool size
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
			e.cancel(ctx, events)
			return
		case res, ok := <-resultCh:
			if !ok {
				if ctx.Err() != nil {
					e.cancel(ctx, events)
					return
				}
				e.summaryMu.Lock()
				e.summary.ActiveWorkers = 0
				e.summary.Done = true
				e.summaryMu.Unlock()
				e.emit(ctx, events, nil)
				return
			}
			e.processResult(res)
			e.emit(ctx, events, res.err)
		}
	}
}

// cancel records a cancelled run and delivers the final event even though
// ctx is done.
func (e *MetadataEngine) cancel(ctx context.Context, events chan<- MetadataEvent) {
	e.summaryMu.Lock()
	e.summary.Canceled = true
	e.summary.ActiveWorkers = 0
	e.summaryMu.Unlock()
	e.emit(context.WithoutCancel(ctx), events, ctx.Err())
}

func (e *MetadataEngine) worker(ctx context.Context, wg *sync.WaitGroup, workCh <-chan LookupInfo, resultCh chan<- lookupResult) {
	defer wg.Done()

	for item := range workCh {
		if ctx.Err() != nil {
			return
		}

		result, err := e.looker.GetMetadata(ctx, item)

		select {
		case resultCh <- lookupResult{info: item, result: result, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (e *MetadataEngine) processResult(res lookupResult) {
	if res.result != nil {
		e.results.Store(ItemKey(res.info), res.result)
	}

	errorCount := e.appendError(res)
	e.summaryMu.Lock()
	defer e.summaryMu.Unlock()
	e.summary.ProcessedItems++
	e.summary.ErrorCount = errorCount
	e.summary.LastItem = FormatLookupMessage(res.info)
	switch {
	case res.result == nil || !res.result.HasMetadata:
		e.summary.MissingItems++
	case res.result.Stale:
		e.summary.StaleItems++
	default:
		e.summary.FoundItems++
	}
}

func (e *MetadataEngine) appendError(res lookupResult) int {
	e.errorsMu.Lock()
	defer e.errorsMu.Unlock()
	err := res.err
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		e.errors = append(e.errors, fmt.Errorf("%s: %w", FormatLookupMessage(res.info), err))
	}
	return len(e.errors)
}

func (e *MetadataEngine) emit(ctx context.Context, events chan<- MetadataEvent, err error) {
	summary := e.SummarySnapshot()
	select {
	case events <- MetadataEvent{Summary: summary, Err: err}:
	case <-ctx.Done():
	}
}
