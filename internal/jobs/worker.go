// Package jobs runs the daemon's periodic background work: the orders
// refresher and the search cache sweepers.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobProcessor is one unit of periodic work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

type ProcessorFunc func(ctx context.Context) error

func (f ProcessorFunc) ProcessJobs(ctx context.Context) error {
	return f(ctx)
}

// Worker runs a processor every interval. A tick gets at most one interval to
// finish, so a hung upstream call never stacks up behind the next tick.
type Worker struct {
	name      string
	processor JobProcessor
	interval  time.Duration

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

func NewWorker(name string, processor JobProcessor, interval time.Duration) *Worker {
	return &Worker{
		name:      name,
		processor: processor,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *Worker) Name() string { return w.name }

// Start blocks until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("%s worker started (every %v)", w.name, w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: %v", w.name, ctx.Err())
			return
		case <-w.stop:
			log.Printf("%s worker stopped", w.name)
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("%s worker: %v", w.name, err)
	}
}

// Stop ends the loop and waits for the current tick. It is safe to call more
// than once and before Start.
func (w *Worker) Stop() {
	w.mu.Lock()
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	started := w.started
	w.started = true
	w.mu.Unlock()

	if started {
		<-w.done
	}
}
