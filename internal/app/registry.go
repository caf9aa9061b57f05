package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/core"
)

type bridgeEntry struct {
	Bridge *Bridge
	Cancel context.CancelFunc
}

// Registry tracks live browser sessions. Sessions share no state with
// each other; the registry exists for diagnostics and teardown only.
type Registry struct {
	mu      sync.RWMutex
	bridges map[core.SessionID]*bridgeEntry
}

func NewRegistry() *Registry {
	return &Registry{bridges: make(map[core.SessionID]*bridgeEntry)}
}

// Bind registers a session's bridge. A previous binding under the same
// id (a reconnecting browser) is canceled and torn down first.
func (r *Registry) Bind(sid core.SessionID, b *Bridge, cancel context.CancelFunc) {
	r.mu.Lock()
	old, had := r.bridges[sid]
	r.bridges[sid] = &bridgeEntry{Bridge: b, Cancel: cancel}
	r.mu.Unlock()

	if had {
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("replacing bound session")
		if old.Cancel != nil {
			old.Cancel()
		}
		old.Bridge.Disconnect()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

// Unbind forgets a session, but only while b is still the bound bridge:
// a browser that reconnected under the same id has already replaced the
// entry, and the old connection's teardown must not evict it. The caller
// owns bridge/transport teardown.
func (r *Registry) Unbind(sid core.SessionID, b *Bridge) {
	r.mu.Lock()
	if e, ok := r.bridges[sid]; ok && e.Bridge == b {
		delete(r.bridges, sid)
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
}

func (r *Registry) Get(sid core.SessionID) (*Bridge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.bridges[sid]
	if !ok {
		return nil, false
	}
	return e.Bridge, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bridges)
}

// SessionInfo is the diagnostics view of one live session.
type SessionInfo struct {
	SID       core.SessionID `json:"sid"`
	Connected bool           `json:"connected"`
}

func (r *Registry) Sessions() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionInfo, 0, len(r.bridges))
	for sid, e := range r.bridges {
		out = append(out, SessionInfo{SID: sid, Connected: e.Bridge.Connected()})
	}
	return out
}
