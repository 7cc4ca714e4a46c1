// Package clock implements vector-clock arithmetic and the two predicates
// ("causally consistent", "causally deliverable") that gate every
// client-facing and peer-facing operation in the replication engine.
package clock

import "maps"

// VectorClock maps a replica identity to the number of write/delete events
// originated by that replica which have been delivered locally.
//
// A missing entry is distinct from an entry with value 0: it means the
// holder has never heard of that replica at all, whereas 0 means the
// replica is known but has not yet originated an event.
type VectorClock map[string]uint64

// New returns an empty vector clock.
func New() VectorClock {
	return make(VectorClock)
}

// Clone returns a deep copy, so callers can hand out a snapshot without the
// receiver being able to mutate the original map.
func (vc VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(vc))
	maps.Copy(out, vc)
	return out
}

// Has reports whether r has an entry in vc, regardless of its value.
func (vc VectorClock) Has(r string) bool {
	_, ok := vc[r]
	return ok
}

// Increment bumps r's counter by one, creating the entry if absent.
func (vc VectorClock) Increment(r string) {
	vc[r]++
}

// Set installs r at the zero value if it is not already present. It is a
// no-op if r is already tracked, so it never decreases a counter.
func (vc VectorClock) Set(r string) {
	if _, ok := vc[r]; !ok {
		vc[r] = 0
	}
}

// CausallyConsistent implements cc(clientVC, replicaVC) from the
// replication engine's client-admission predicate.
//
// It holds iff every replica R named in clientVC is also known to
// replicaVC with a counter at least as large as the client observed. A nil
// clientVC (no causal-metadata supplied) is trivially satisfied: the client
// made no claim about what it has observed.
func CausallyConsistent(clientVC, replicaVC VectorClock) bool {
	for r, want := range clientVC {
		have, ok := replicaVC[r]
		if !ok || want > have {
			return false
		}
	}
	return true
}

// CausallyDeliverable implements cd(origin, msgVC, replicaVC), the
// peer-delivery admission predicate.
//
// It holds iff:
//  1. origin is a replica the receiver already tracks,
//  2. msgVC[origin] is exactly one more than the receiver's counter for
//     origin (this is the next message expected from origin, in order), and
//  3. every other replica named in msgVC is known to the receiver with a
//     counter no greater than what the receiver has already observed (every
//     causal dependency of the message has already been delivered).
func CausallyDeliverable(origin string, msgVC, replicaVC VectorClock) bool {
	replicaCount, ok := replicaVC[origin]
	if !ok {
		return false
	}
	if msgVC[origin] != replicaCount+1 {
		return false
	}
	for r, want := range msgVC {
		if r == origin {
			continue
		}
		have, ok := replicaVC[r]
		if !ok || want > have {
			return false
		}
	}
	return true
}
