package mirror

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rpggio/siteledger/internal/ledger"
)

// Pusher sends one change to the mirror.
type Pusher interface {
	Push(ctx context.Context, change ledger.Change) error
}

// Worker pushes changes in the background, in the order they were
// published. It implements ledger.Syncer.
type Worker struct {
	changes chan ledger.Change
	pusher  Pusher
	logger  *slog.Logger
	wg      sync.WaitGroup
	quit    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
}

// NewWorker creates a worker with room for bufferSize pending changes.
func NewWorker(pusher Pusher, logger *slog.Logger, bufferSize int) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		changes: make(chan ledger.Change, bufferSize),
		pusher:  pusher,
		logger:  logger,
		quit:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the push loop.
func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.quit:
				return
			case change := <-w.changes:
				w.push(w.ctx, change)
			}
		}
	})
}

// Publish queues a change. It never blocks: when the buffer is full or the
// worker has shut down the change is dropped.
func (w *Worker) Publish(change ledger.Change) {
	if w.stopped.Load() {
		w.logger.Warn("mirror worker stopped, dropping change", "op", change.Op, "project_id", change.ProjectID)
		return
	}
	select {
	case w.changes <- change:
	default:
		w.logger.Warn("mirror queue full, dropping change", "op", change.Op, "project_id", change.ProjectID)
	}
}

// Shutdown stops the loop, letting an in-flight push finish, and pushes
// what is still queued until ctx ends. Later calls do nothing.
func (w *Worker) Shutdown(ctx context.Context) {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}
	defer w.cancel()
	close(w.quit)

	loopDone := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(loopDone)
	}()
	select {
	case <-loopDone:
	case <-ctx.Done():
		w.cancel()
		<-loopDone
	}

	w.logger.Info("draining mirror queue before shutdown", "remaining", len(w.changes))
	for {
		select {
		case change := <-w.changes:
			if ctx.Err() != nil {
				w.logger.Warn("mirror drain interrupted", "remaining", len(w.changes)+1)
				return
			}
			w.push(ctx, change)
		default:
			return
		}
	}
}

func (w *Worker) push(ctx context.Context, change ledger.Change) {
	if err := w.pusher.Push(ctx, change); err != nil {
		w.logger.Error("failed to mirror change", "op", change.Op, "project_id", change.ProjectID, "error", err)
		return
	}
	w.logger.Debug("mirrored change", "op", change.Op, "project_id", change.ProjectID)
}
