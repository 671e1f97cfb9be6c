package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkeye/livestage/internal/core"
)

const (
	persistTimeout = 5 * time.Second
	drainTimeout   = 2 * persistTimeout
)

type persistOp struct {
	what string
	run  func(ctx context.Context, s core.Store) error
}

// persister runs the store writes of one session in order on its own
// goroutine. enqueue never blocks, so a slow store only delays the writes.
type persister struct {
	store core.Store
	log   zerolog.Logger

	mu     sync.Mutex
	queue  []persistOp
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newPersister(store core.Store, logger zerolog.Logger) *persister {
	p := &persister{
		store: store,
		log:   logger,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) enqueue(ops ...persistOp) {
	if len(ops) == 0 {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warn().Int("ops", len(ops)).Msg("persister closed, dropping writes")
		return
	}
	p.queue = append(p.queue, ops...)
	p.mu.Unlock()
	p.signal()
}

func (p *persister) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// close stops accepting writes and waits for the queued ones until ctx is
// done. Writes still pending after that keep running in the background.
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		ops := p.queue
		p.queue = nil
		closed := p.closed
		p.mu.Unlock()

		for _, op := range ops {
			p.exec(op)
		}
		if len(ops) > 0 {
			continue
		}
		if closed {
			return
		}
		<-p.wake
	}
}

func (p *persister) exec(op persistOp) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := op.run(ctx, p.store); err != nil {
		p.log.Warn().Err(err).Str("op", op.what).Msg("persistence failed, keeping in-memory state")
	}
}
