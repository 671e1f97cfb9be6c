package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

// Registry maps session ids to their live engines.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Engine
	deps     Deps
	newID    func() domain.SessionID
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*Engine),
		deps:     deps.withDefaults(),
		newID:    func() domain.SessionID { return domain.SessionID(uuid.NewString()) },
	}
}

// Start creates a session hosted by id and registers it.
func (r *Registry) Start(ctx context.Context, id core.Identity, hostConn core.SignalConnection) (*Engine, error) {
	username := id.Username
	if username == "" {
		username = "Host"
	}
	host, err := domain.NewParticipant(id.AccountID, username)
	if err != nil {
		return nil, fmt.Errorf("host identity: %w", err)
	}

	e := newEngine(r.newID(), host, hostConn, r.deps, r.Remove)
	r.mu.Lock()
	r.sessions[e.ID()] = e
	r.mu.Unlock()

	e.open()
	return e, nil
}

func (r *Registry) Get(id domain.SessionID) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

// Resolve returns the live engine for id. Unknown ids are checked against the
// store so a finished session reports ErrSessionEnded instead of not found.
func (r *Registry) Resolve(ctx context.Context, id domain.SessionID) (*Engine, error) {
	if e, ok := r.Get(id); ok {
		if e.Status() == domain.StatusEnded {
			return nil, domain.ErrSessionEnded
		}
		return e, nil
	}
	if r.deps.Store == nil {
		return nil, domain.ErrSessionNotFound
	}
	rec, err := r.deps.Store.GetSession(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.ErrSessionNotFound
	case err != nil:
		log.Warn().Str("module", "app.registry").Err(err).Str("session", string(id)).Msg("lookup failed")
		return nil, domain.ErrSessionNotFound
	case rec.Status == domain.StatusEnded:
		return nil, domain.ErrSessionEnded
	default:
		// Active in the store but not served by this process.
		return nil, domain.ErrSessionNotFound
	}
}

func (r *Registry) Remove(id domain.SessionID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown ends every live session on behalf of its host.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	engines := lo.Values(r.sessions)
	r.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, e := range engines {
		g.Go(func() error {
			return e.End(ctx, e.Host().ID)
		})
	}
	err := g.Wait()
	log.Info().Str("module", "app.registry").Int("sessions", len(engines)).Msg("sessions ended on shutdown")
	return err
}
