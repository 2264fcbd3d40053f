package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/Veraticus/the-receipts-must-flow/internal/capture"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"golang.org/x/sync/errgroup"
)

// Capturer turns one file into a committed receipt.
type Capturer interface {
	Capture(ctx context.Context, file capture.FileRef) (model.Receipt, error)
}

// claimState tracks one inbox path through the pipeline.
type claimState int

const (
	claimInFlight claimState = iota
	// claimRetry marks an in-flight path that saw another event; a failed
	// attempt is repeated instead of dropping that event.
	claimRetry
	claimDone
)

// Pipeline runs one capture per inbox file with bounded concurrency.
type Pipeline struct {
	capturer  Capturer
	workers   int
	onCapture func(path string, r model.Receipt)

	mu     sync.Mutex
	claims map[string]claimState
}

// NewPipeline creates a pipeline. workers below one means one.
func NewPipeline(capturer Capturer, workers int, onCapture func(path string, r model.Receipt)) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		capturer:  capturer,
		workers:   workers,
		onCapture: onCapture,
		claims:    make(map[string]claimState),
	}
}

// Run consumes paths until the channel closes or ctx is done. A file is
// captured at most once per pipeline. Capture failures are logged and do not
// stop the pipeline; the failed path is captured again on its next event,
// including one that arrived while the failed attempt was running.
func (p *Pipeline) Run(ctx context.Context, paths <-chan string) error {
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan string)

	g.Go(func() error {
		defer close(jobs)
		for {
			select {
			case <-ctx.Done():
				return nil
			case path, ok := <-paths:
				if !ok {
					return nil
				}
				if !p.claim(path) {
					continue
				}
				select {
				case jobs <- path:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for path := range jobs {
				for {
					receipt, err := p.capturer.Capture(ctx, capture.LocalFile{Path: path})
					if errors.Is(err, context.Canceled) {
						return nil
					}
					if err != nil {
						common.LogError(err, "Inbox capture failed", common.Fields{"path": path})
					} else if p.onCapture != nil {
						p.onCapture(path, receipt)
					}
					if !p.finish(path, err) {
						break
					}
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// Processed reports how many files have been captured.
func (p *Pipeline) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, state := range p.claims {
		if state == claimDone {
			n++
		}
	}
	return n
}

// claim reports whether path should be queued for capture.
func (p *Pipeline) claim(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.claims[path]
	switch {
	case !ok:
		p.claims[path] = claimInFlight
		return true
	case state == claimInFlight:
		p.claims[path] = claimRetry
	}
	return false
}

// finish records the outcome of a capture and reports whether the path
// must be captured again.
func (p *Pipeline) finish(path string, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		p.claims[path] = claimDone
		return false
	}
	if p.claims[path] == claimRetry {
		p.claims[path] = claimInFlight
		return true
	}
	delete(p.claims, path)
	return false
}
