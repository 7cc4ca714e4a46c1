package clock

import "testing"

func TestCausallyConsistent_NilClientVC(t *testing.T) {
	replicaVC := VectorClock{"a": 3, "b": 1}
	if !CausallyConsistent(nil, replicaVC) {
		t.Fatal("nil client causal-metadata should always be admitted")
	}
}

func TestCausallyConsistent_SatisfiedAndUnsatisfied(t *testing.T) {
	replicaVC := VectorClock{"a": 3, "b": 1}

	cases := []struct {
		name    string
		client  VectorClock
		satisfy bool
	}{
		{"subset satisfied", VectorClock{"a": 2}, true},
		{"exact match satisfied", VectorClock{"a": 3, "b": 1}, true},
		{"ahead of replica", VectorClock{"a": 4}, false},
		{"unknown replica", VectorClock{"c": 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CausallyConsistent(tc.client, replicaVC); got != tc.satisfy {
				t.Fatalf("CausallyConsistent(%v, %v) = %v, want %v", tc.client, replicaVC, got, tc.satisfy)
			}
		})
	}
}

func TestCausallyDeliverable_NextInSequence(t *testing.T) {
	replicaVC := VectorClock{"origin": 2, "other": 0}
	msgVC := VectorClock{"origin": 3}

	if !CausallyDeliverable("origin", msgVC, replicaVC) {
		t.Fatal("message exactly one ahead of origin's counter should be deliverable")
	}
}

func TestCausallyDeliverable_RejectsUnknownOrigin(t *testing.T) {
	replicaVC := VectorClock{"other": 0}
	msgVC := VectorClock{"origin": 1}

	if CausallyDeliverable("origin", msgVC, replicaVC) {
		t.Fatal("message from an untracked origin must not be deliverable")
	}
}

func TestCausallyDeliverable_RejectsOutOfOrder(t *testing.T) {
	replicaVC := VectorClock{"origin": 2}

	if CausallyDeliverable("origin", VectorClock{"origin": 2}, replicaVC) {
		t.Fatal("a repeat of the last-delivered message must not be deliverable")
	}
	if CausallyDeliverable("origin", VectorClock{"origin": 4}, replicaVC) {
		t.Fatal("a message that skips ahead must not be deliverable")
	}
}

func TestCausallyDeliverable_RejectsUnsatisfiedDependency(t *testing.T) {
	replicaVC := VectorClock{"origin": 0, "dep": 1}
	msgVC := VectorClock{"origin": 1, "dep": 2}

	if CausallyDeliverable("origin", msgVC, replicaVC) {
		t.Fatal("a message whose dependency hasn't been delivered yet must not be deliverable")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	orig := VectorClock{"a": 1}
	cloned := orig.Clone()
	cloned.Increment("a")
	cloned.Set("b")

	if orig["a"] != 1 {
		t.Fatalf("mutating a clone must not affect the original, got a=%d", orig["a"])
	}
	if orig.Has("b") {
		t.Fatal("mutating a clone must not affect the original's key set")
	}
}

func TestSet_NeverDecreasesExistingCounter(t *testing.T) {
	vc := VectorClock{"a": 5}
	vc.Set("a")
	if vc["a"] != 5 {
		t.Fatalf("Set on an existing key must be a no-op, got %d", vc["a"])
	}
	vc.Set("b")
	if !vc.Has("b") || vc["b"] != 0 {
		t.Fatalf("Set on a new key should install it at zero, got %v", vc["b"])
	}
}
