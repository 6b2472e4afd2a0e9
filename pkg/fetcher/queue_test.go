package fetcher

import "testing"

func TestJobQueuePeekPopOrdersByIndex(t *testing.T) {
	q := newJobQueue[intTask]()
	q.Push(newJob[intTask](5, intTask(1)))
	q.Push(newJob[intTask](1, intTask(1)))
	q.Push(newJob[intTask](3, intTask(1)))

	if q.Len() != 3 {
		t.Fatalf("Len()=%d, want 3", q.Len())
	}

	peeked, ok := q.Peek()
	if !ok || peeked.Index != 1 {
		t.Fatalf("Peek()=%v, want index 1", peeked)
	}
	if q.Len() != 3 {
		t.Fatal("Peek must not remove the job")
	}

	var got []JobIndex
	for {
		j, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, j.Index)
	}
	want := []JobIndex{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("popped %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("popped %v, want %v", got, want)
		}
	}
}

func TestJobQueueEmpty(t *testing.T) {
	q := newJobQueue[intTask]()
	if _, ok := q.Peek(); ok {
		t.Fatal("Peek on empty queue should return ok=false")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on empty queue should return ok=false")
	}
}
