// Package session stores the live agent sessions of the daemon.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Repository is an entity-scoped repository of sessions keyed by workspace id.
type Repository interface {
	// Get returns the session of workspaceID or a WorkspaceNotFoundError.
	Get(ctx context.Context, workspaceID string) (entity.AgentSession, error)
	// Add stores s under its workspace id. It fails with ErrWorkspaceExists if one is already stored.
	Add(ctx context.Context, s entity.AgentSession) error
	// Delete removes and returns the session of workspaceID.
	Delete(ctx context.Context, workspaceID string) (entity.AgentSession, bool)
	// DeleteIf removes the session of s's workspace only if it is s. It reports whether it did.
	DeleteIf(ctx context.Context, s entity.AgentSession) bool
	// List returns every stored session ordered by workspace id.
	List(ctx context.Context) []entity.AgentSession
	SessionCount(ctx context.Context) int
}

// Params define the dependencies of the repository.
type Params struct {
	fx.In

	Stats tally.Scope
}

type repository struct {
	mu       sync.Mutex
	memstore map[string]entity.AgentSession
	stats    tally.Scope
}

// New returns a repository to an in-memory session store.
func New(p Params) Repository {
	stats := p.Stats
	if stats == nil {
		stats = tally.NoopScope
	}
	return &repository{
		memstore: make(map[string]entity.AgentSession),
		stats:    stats.SubScope("sessions"),
	}
}

// Get returns the session associated with the given workspace.
func (r *repository) Get(ctx context.Context, workspaceID string) (entity.AgentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.memstore[workspaceID]
	if !ok {
		return nil, &errors.WorkspaceNotFoundError{ID: workspaceID}
	}
	return s, nil
}

func (r *repository) Add(ctx context.Context, s entity.AgentSession) error {
	if s == nil {
		return errors.New("can't save nil session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.Entry().ID
	if _, ok := r.memstore[id]; ok {
		return errors.ErrWorkspaceExists
	}
	r.memstore[id] = s
	r.updateGauge()
	return nil
}

func (r *repository) Delete(ctx context.Context, workspaceID string) (entity.AgentSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.memstore[workspaceID]
	if ok {
		delete(r.memstore, workspaceID)
		r.updateGauge()
	}
	return s, ok
}

func (r *repository) DeleteIf(ctx context.Context, s entity.AgentSession) bool {
	if s == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.Entry().ID
	if cur, ok := r.memstore[id]; !ok || cur != s {
		return false
	}
	delete(r.memstore, id)
	r.updateGauge()
	return true
}

func (r *repository) List(ctx context.Context) []entity.AgentSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]entity.AgentSession, 0, len(r.memstore))
	for _, s := range r.memstore {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Entry().ID < all[j].Entry().ID
	})
	return all
}

// SessionCount returns the total count of live sessions.
func (r *repository) SessionCount(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore)
}

func (r *repository) updateGauge() {
	r.stats.Gauge("active").Update(float64(len(r.memstore)))
}
