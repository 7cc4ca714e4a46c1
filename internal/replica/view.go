// Package replica implements the replication engine: the vector-clock
// state machine, the causal-consistency and causal-delivery predicates,
// the broadcast protocol, view management, and the bootstrap/state-transfer
// sequence described by the replication spec.
package replica

import "sort"

// View is the set of replicas this node currently believes are live
// members. It always contains self.
//
// View holds no lock of its own — the Engine's single mutex guards View,
// the vector clock, and the store together, so every method here assumes
// the caller already holds that mutex.
type View struct {
	members map[string]struct{}
}

// NewView creates a view containing self and every seed.
func NewView(self string, seeds []string) *View {
	v := &View{members: make(map[string]struct{}, len(seeds)+1)}
	v.members[self] = struct{}{}
	for _, s := range seeds {
		v.members[s] = struct{}{}
	}
	return v
}

// Contains reports whether r is a current member.
func (v *View) Contains(r string) bool {
	_, ok := v.members[r]
	return ok
}

// Add inserts r, reporting false if it was already present.
func (v *View) Add(r string) bool {
	if v.Contains(r) {
		return false
	}
	v.members[r] = struct{}{}
	return true
}

// Remove deletes r, reporting false if it was not present.
func (v *View) Remove(r string) bool {
	if !v.Contains(r) {
		return false
	}
	delete(v.members, r)
	return true
}

// List returns every member in sorted order, for deterministic responses
// and logs.
func (v *View) List() []string {
	out := make([]string, 0, len(v.members))
	for r := range v.members {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// PeersExcept returns every member other than self, in sorted order.
func (v *View) PeersExcept(self string) []string {
	out := make([]string, 0, len(v.members))
	for r := range v.members {
		if r != self {
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}
