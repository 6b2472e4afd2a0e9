package fetcher

import "testing"

type intTask int

func (t intTask) Count() int { return int(t) }

func TestNewJobStartsIdle(t *testing.T) {
	j := newJob[intTask](3, intTask(5))
	if j.Index != 3 {
		t.Fatalf("Index=%d, want 3", j.Index)
	}
	if j.State != JobIdle {
		t.Fatalf("State=%v, want JobIdle", j.State)
	}
	if j.Peer != nil {
		t.Fatalf("Peer=%v, want nil", j.Peer)
	}
	if j.EnqueuedAt.IsZero() {
		t.Fatal("EnqueuedAt should be set")
	}
}

func TestJobStateString(t *testing.T) {
	cases := map[JobState]string{
		JobIdle:     "idle",
		JobActive:   "active",
		JobExpired:  "expired",
		JobState(9): "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String()=%q, want %q", state, got, want)
		}
	}
}
