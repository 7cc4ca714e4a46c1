package replica

import (
	"bytes"
	"context"
	"distributed-kvstore/internal/clock"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	attemptTimeout = 1 * time.Second
	retryBackoff   = 1 * time.Second
	maxAttempts    = 3
)

// PeerClient issues the outbound HTTP calls one replica makes to another:
// mirrored writes/deletes with bounded retries, best-effort view
// notifications, and state-transfer fetches. Every per-attempt call has a
// 1-second timeout; retries sleep for 1 second between attempts, and that
// sleep never happens while the Engine's mutex is held — PeerClient is only
// ever invoked with data already captured out of the critical section.
type PeerClient struct {
	http   *http.Client
	logger *log.Logger
}

// NewPeerClient creates a PeerClient. logger may be nil, in which case
// logging is a no-op.
func NewPeerClient(logger *log.Logger) *PeerClient {
	return &PeerClient{
		http:   &http.Client{Timeout: attemptTimeout},
		logger: logger,
	}
}

func (p *PeerClient) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// BroadcastPut mirrors a PUT to every peer, making up to maxAttempts
// attempts in total per peer, retrying on a transient (503), other
// non-success, or transport failure. Peers that
// exhaust their retry budget are returned as unreachable so the caller can
// evict them.
func (p *PeerClient) BroadcastPut(self string, peers []string, key, value string, vc clock.VectorClock) []string {
	return p.broadcast(self, peers, key, func(peer string) error {
		return p.replicateOne(http.MethodPut, peer, key, self, &value, vc, false)
	})
}

// BroadcastDelete mirrors a DELETE to every peer under the same retry
// policy as BroadcastPut, except that a 404 also counts as success: two
// origins can race to delete the same key, in which case the peer may have
// already removed it (independently, or via the other origin's delete)
// by the time this one arrives. The peer has no record left to return a
// 200 for, but the outcome the sender wanted — the key being gone there —
// already holds, so treating the 404 as a retry would just burn the whole
// attempt budget and wrongly evict a reachable peer.
func (p *PeerClient) BroadcastDelete(self string, peers []string, key string, vc clock.VectorClock) []string {
	return p.broadcast(self, peers, key, func(peer string) error {
		return p.replicateOne(http.MethodDelete, peer, key, self, nil, vc, true)
	})
}

// broadcast fans out fn to every peer concurrently (dial order spread via
// dialOrder, §4.8) and collects the subset that never succeeded.
func (p *PeerClient) broadcast(self string, peers []string, key string, fn func(peer string) error) []string {
	ordered := dialOrder(peers, key)
	if len(ordered) == 0 {
		return nil
	}

	type outcome struct {
		peer string
		err  error
	}
	results := make(chan outcome, len(ordered))
	for _, peer := range ordered {
		go func(peer string) {
			results <- outcome{peer: peer, err: fn(peer)}
		}(peer)
	}

	var unreachable []string
	for range ordered {
		r := <-results
		if r.err != nil {
			p.logf("replica=%s broadcast to peer=%s exhausted retries: %v", self, r.peer, r.err)
			unreachable = append(unreachable, r.peer)
		}
	}
	return unreachable
}

// replicateOne sends one mirrored write/delete to a single peer, retrying
// per the §4.4 classification: 200/201 stops immediately (and, for a
// delete, so does 404 — see BroadcastDelete); 503 means the peer's
// causal-delivery predicate isn't satisfied yet and is retried; transport
// errors and any other non-success status share the same retry budget.
func (p *PeerClient) replicateOne(method, peer, key, origin string, value *string, vc clock.VectorClock, acceptNotFound bool) error {
	url := fmt.Sprintf("http://%s/replica/kvs/%s/%s", peer, key, origin)
	body := CausalBody{Value: value, CausalMetadata: vc}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal replicate body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBackoff)
		}

		status, err := p.doAttempt(method, url, payload)
		if err == nil && (status == http.StatusOK || status == http.StatusCreated) {
			return nil
		}
		if err == nil && acceptNotFound && status == http.StatusNotFound {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("peer %s returned HTTP %d", peer, status)
		}
	}
	return lastErr
}

func (p *PeerClient) doAttempt(method, url string, payload []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := p.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// NotifyViewed sends a single best-effort /viewed request (no retry) to
// every peer, used for join announcements, eviction notices, and
// view-deletion broadcasts. Failures are logged and otherwise ignored: the
// /viewed protocol never retries, by design (§4.5).
func (p *PeerClient) NotifyViewed(self string, peers []string, method, target string) {
	body, err := json.Marshal(SocketAddressBody{SocketAddress: target})
	if err != nil {
		p.logf("replica=%s marshal viewed notification: %v", self, err)
		return
	}

	for _, peer := range peers {
		go func(peer string) {
			url := fmt.Sprintf("http://%s/viewed", peer)
			if _, err := p.doAttempt(method, url, body); err != nil {
				p.logf("replica=%s viewed notification to peer=%s failed: %v", self, peer, err)
			}
		}(peer)
	}
}

// FetchState tries every peer in turn and returns the first successful
// /vckvs snapshot, per §4.6's "trust the first responder" bootstrap rule.
func (p *PeerClient) FetchState(peers []string) (*StateSnapshot, bool) {
	for _, peer := range peers {
		snap, ok := p.fetchOne(peer)
		if ok {
			return snap, true
		}
	}
	return nil, false
}

func (p *PeerClient) fetchOne(peer string) (*StateSnapshot, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/vckvs", peer), nil)
	if err != nil {
		return nil, false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		p.logf("state transfer from peer=%s failed: %v", peer, err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	var snap StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		p.logf("state transfer from peer=%s decode: %v", peer, err)
		return nil, false
	}
	return &snap, true
}
