package replica

// Bootstrap runs the startup sequence described in §4.6: the view and
// vector clock are already seeded by New, so this only needs to announce
// self to every configured peer (single attempt, best effort) and then
// pull a state snapshot from whichever peer answers first.
//
// If seeds is empty (no VIEW configured beyond self), both steps are
// no-ops and the replica starts with zero-initialized state, per the
// documented "no seeds, self-only" resolution of the VIEW_ADDRESS-empty
// open question.
func Bootstrap(e *Engine) {
	peers := e.ListView()
	peers = except(peers, e.self)
	if len(peers) == 0 {
		e.logf("replica=%s bootstrap: no seed peers, starting self-only", e.self)
		return
	}

	e.logf("replica=%s announcing self to %d seed peer(s)", e.self, len(peers))
	e.peers.NotifyViewed(e.self, peers, "PUT", e.self)

	snap, ok := e.peers.FetchState(peers)
	if !ok {
		e.logf("replica=%s bootstrap: no peer responded to state transfer, keeping zero-initialized state", e.self)
		return
	}

	e.logf("replica=%s bootstrap: applying state transfer (%d keys)", e.self, len(snap.KVS))
	e.ApplySnapshot(snap.VC, snap.KVS)
}
