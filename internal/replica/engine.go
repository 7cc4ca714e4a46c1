package replica

import (
	"distributed-kvstore/internal/clock"
	"distributed-kvstore/internal/store"
	"log"
	"sync"
)

// Engine is the replication engine for one replica: it owns the single
// mutex that guards the view, the vector clock, and the store together
// (§5), enforces the causal-consistency and causal-delivery predicates,
// applies local mutations, and drives the broadcast/eviction protocol.
//
// HTTP handlers hold a reference to one Engine; there is no package-level
// mutable state anywhere in this replica.
type Engine struct {
	mu sync.Mutex

	self  string
	view  *View
	vc    clock.VectorClock
	store *store.Store

	peers  *PeerClient
	logger *log.Logger
}

// New creates an Engine. The view is seeded with self and seeds; the
// vector clock is zero-initialized for every member, per §4.6 step 1-2.
// An empty seeds list is the documented "no seeds, self-only" behavior.
func New(self string, seeds []string, s *store.Store, logger *log.Logger) *Engine {
	view := NewView(self, seeds)
	vc := clock.New()
	for _, r := range view.List() {
		vc.Set(r)
	}
	return &Engine{
		self:   self,
		view:   view,
		vc:     vc,
		store:  s,
		peers:  NewPeerClient(logger),
		logger: logger,
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// Self returns this replica's own identity.
func (e *Engine) Self() string { return e.self }

// ─── Client-facing KV operations (§4.3) ───────────────────────────────────

// Put validates, admits via cc, applies the write locally, and broadcasts
// it to every peer. result is "created" or "replaced".
func (e *Engine) Put(key, value string, causal clock.VectorClock) (result string, snapshot clock.VectorClock, err error) {
	if len(key) > store.MaxKeyLength {
		return "", nil, ErrKeyTooLong
	}

	var peers []string
	e.mu.Lock()
	if !clock.CausallyConsistent(causal, e.vc) {
		e.mu.Unlock()
		return "", nil, ErrCausalPending
	}

	e.vc.Increment(e.self)
	replaced, putErr := e.store.Put(key, value)
	if putErr != nil {
		// Increment already applied; a key-length violation was already
		// rejected above, so putErr here would only be an unexpected
		// storage fault. Surface it without broadcasting a half-applied
		// write.
		e.mu.Unlock()
		return "", nil, putErr
	}
	snapshot = e.vc.Clone()
	peers = e.view.PeersExcept(e.self)
	e.mu.Unlock()

	if replaced {
		result = "replaced"
	} else {
		result = "created"
	}

	unreachable := e.peers.BroadcastPut(e.self, peers, key, value, snapshot)
	e.evict(unreachable)

	return result, snapshot, nil
}

// Delete validates via cc, requires the key to exist, removes the key from
// the local store, and broadcasts the delete to every peer.
func (e *Engine) Delete(key string, causal clock.VectorClock) (snapshot clock.VectorClock, err error) {
	var peers []string
	e.mu.Lock()
	if !clock.CausallyConsistent(causal, e.vc) {
		e.mu.Unlock()
		return nil, ErrCausalPending
	}
	if _, ok := e.store.Get(key); !ok {
		e.mu.Unlock()
		return nil, ErrKeyNotFound
	}

	e.vc.Increment(e.self)
	if _, err := e.store.Delete(key); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	snapshot = e.vc.Clone()
	peers = e.view.PeersExcept(e.self)
	e.mu.Unlock()

	unreachable := e.peers.BroadcastDelete(e.self, peers, key, snapshot)
	e.evict(unreachable)

	return snapshot, nil
}

// Get admits via cc and returns the current value. It never mutates the
// vector clock.
func (e *Engine) Get(key string, causal clock.VectorClock) (value string, snapshot clock.VectorClock, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !clock.CausallyConsistent(causal, e.vc) {
		return "", nil, ErrCausalPending
	}
	v, ok := e.store.Get(key)
	if !ok {
		return "", nil, ErrKeyNotFound
	}
	return v, e.vc.Clone(), nil
}

// ─── Peer-facing replication (§4.4) ───────────────────────────────────────

// ApplyRemote admits a peer-originated write/delete via cd. value is nil
// for a delete. replaced reports whether the key already existed before
// this message was applied (callers use this to pick 200 vs 201 for a put).
// A delete of a key that is already absent returns ErrKeyNotFound, after
// the delivery increment has been made.
func (e *Engine) ApplyRemote(origin, key string, value *string, msgVC clock.VectorClock) (replaced bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !clock.CausallyDeliverable(origin, msgVC, e.vc) {
		return false, ErrCausalPending
	}

	// Delivery increment happens exactly once per accepted message,
	// regardless of whether the key itself turns out to exist for a
	// delete — the causal step was still delivered.
	e.vc.Increment(origin)

	if value == nil {
		existed, delErr := e.store.Delete(key)
		if delErr != nil {
			return false, delErr
		}
		if !existed {
			return false, ErrKeyNotFound
		}
		return true, nil
	}

	replaced, err = e.store.Put(key, *value)
	return replaced, err
}

// ─── View management (§4.5) ───────────────────────────────────────────────

// JoinView adds addr to the view if absent, broadcasting a best-effort
// /viewed PUT to the rest of the view. alreadyPresent is true when addr
// was already a member (no mutation, no broadcast occurred).
func (e *Engine) JoinView(addr string) (alreadyPresent bool) {
	e.mu.Lock()
	if e.view.Contains(addr) {
		e.mu.Unlock()
		return true
	}
	e.view.Add(addr)
	e.vc.Set(addr)
	peers := e.view.PeersExcept(e.self)
	e.mu.Unlock()

	others := except(peers, addr)
	e.peers.NotifyViewed(e.self, others, "PUT", addr)
	return false
}

// DepartView removes addr from the view and broadcasts a best-effort
// /viewed DELETE. VC[addr] is retained (§4.5's note on not erasing entries
// for departed replicas).
func (e *Engine) DepartView(addr string) error {
	e.mu.Lock()
	if !e.view.Remove(addr) {
		e.mu.Unlock()
		return ErrReplicaUnknown
	}
	peers := e.view.PeersExcept(e.self)
	e.mu.Unlock()

	e.peers.NotifyViewed(e.self, peers, "DELETE", addr)
	return nil
}

// ApplyViewed applies a peer-originated view change locally without
// re-broadcasting, preventing notification storms.
func (e *Engine) ApplyViewed(addr string, add bool) (changed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if add {
		if e.view.Add(addr) {
			e.vc.Set(addr)
			return true
		}
		return false
	}
	return e.view.Remove(addr)
}

// ListView returns the current view, sorted.
func (e *Engine) ListView() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.List()
}

// evict removes every unreachable peer from the view after a broadcast's
// retry budget is exhausted, and best-effort-notifies the survivors. This
// is the failure-driven membership eviction of §4.4: it does not prevent a
// recovering peer from rejoining via JoinView.
func (e *Engine) evict(unreachable []string) {
	if len(unreachable) == 0 {
		return
	}

	for _, addr := range unreachable {
		e.mu.Lock()
		removed := e.view.Remove(addr)
		survivors := e.view.PeersExcept(e.self)
		e.mu.Unlock()

		if !removed {
			continue
		}
		e.logf("replica=%s evicting unreachable peer=%s", e.self, addr)
		e.peers.NotifyViewed(e.self, survivors, "DELETE", addr)
	}
}

// ─── State transfer (§4.6, §4.7) ──────────────────────────────────────────

// Snapshot returns a self-consistent copy of the vector clock and the
// entire key space, for the GET /vckvs endpoint.
func (e *Engine) Snapshot() (clock.VectorClock, map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vc.Clone(), e.store.All()
}

// ApplySnapshot unconditionally overwrites the local vector clock and
// store with a donor's snapshot, per the join-time bootstrap rule: the
// joiner has no prior history to reconcile against.
func (e *Engine) ApplySnapshot(vc clock.VectorClock, kv map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vc = vc.Clone()
	for _, r := range e.view.List() {
		e.vc.Set(r)
	}
	e.store.Replace(kv)
}

// Peers returns the peer client used for outbound replication, so
// bootstrap can reuse the same retry-free view-notification path.
func (e *Engine) Peers() *PeerClient { return e.peers }

func except(list []string, target string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
