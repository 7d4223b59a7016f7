package media

import (
	"context"
	"sync"

	"github.com/sdejongh/audiopatch/pkg/logging"
	"github.com/sdejongh/audiopatch/pkg/models"
)

// Dispatcher runs fn on the goroutine that owns variant state
type Dispatcher interface {
	Dispatch(fn func())
}

// InlineDispatcher runs fn on the calling goroutine
type InlineDispatcher struct{}

// Dispatch calls fn
func (InlineDispatcher) Dispatch(fn func()) { fn() }

// LoopDispatcher runs queued functions one at a time on a single goroutine
type LoopDispatcher struct {
	mu     sync.RWMutex
	queue  chan func()
	done   chan struct{}
	closed bool
}

// NewLoopDispatcher starts the dispatch goroutine
func NewLoopDispatcher(buffer int) *LoopDispatcher {
	d := &LoopDispatcher{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		for fn := range d.queue {
			fn()
		}
	}()
	return d
}

// Dispatch queues fn; it is dropped once the dispatcher is closed
func (d *LoopDispatcher) Dispatch(fn func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}
	d.queue <- fn
}

// Close runs the queued functions and stops the goroutine
func (d *LoopDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
}

// FileSource resolves a variant to a readable file
type FileSource interface {
	SourceFile(ctx context.Context, v *models.Variant) (string, error)
}

// DurationProber measures the duration of a file
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, bool)
}

// DurationWorker fills in variant durations in the background.
// Durations are written back through the dispatcher only, so variants
// must only be read on the dispatcher's goroutine while a run is active.
type DurationWorker struct {
	files    FileSource
	prober   DurationProber
	dispatch Dispatcher
	logger   logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDurationWorker creates a worker; a nil dispatcher writes inline
func NewDurationWorker(files FileSource, prober DurationProber, dispatch Dispatcher, logger logging.Logger) *DurationWorker {
	if dispatch == nil {
		dispatch = InlineDispatcher{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &DurationWorker{
		files:    files,
		prober:   prober,
		dispatch: dispatch,
		logger:   logger,
	}
}

// Start cancels the previous run, then probes every variant lacking a
// duration. Results of a cancelled run are never written.
func (w *DurationWorker) Start(ctx context.Context, variants []*models.Variant) {
	pending := missingDurations(variants)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(runCtx, pending)
	}()
}

// Stop cancels the current run
func (w *DurationWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// Wait blocks until every started run has returned
func (w *DurationWorker) Wait() {
	w.wg.Wait()
}

func (w *DurationWorker) run(ctx context.Context, variants []*models.Variant) {
	for _, v := range variants {
		if ctx.Err() != nil {
			return
		}

		src, err := w.files.SourceFile(ctx, v)
		if err != nil {
			w.logger.Debug(ctx, "duration source unavailable", logging.Fields{"key": v.Key, "error": err.Error()})
			continue
		}

		seconds, ok := w.prober.Duration(ctx, src)
		if !ok || ctx.Err() != nil {
			continue
		}

		v := v
		w.dispatch.Dispatch(func() {
			if ctx.Err() == nil {
				v.SetDuration(seconds)
			}
		})
	}
}

func missingDurations(variants []*models.Variant) []*models.Variant {
	var pending []*models.Variant
	for _, v := range variants {
		if v != nil && !v.HasDuration() {
			pending = append(pending, v)
		}
	}
	return pending
}
