package scheduler

import (
	"testing"
	"time"
)

func TestHeapPushPopOrdering(t *testing.T) {
	h := &eventHeap{}

	t1 := time.Now().Add(3 * time.Hour)
	t2 := time.Now().Add(1 * time.Hour)
	t3 := time.Now().Add(2 * time.Hour)

	heapPush(h, event{JobID: "job3", At: t1})
	heapPush(h, event{JobID: "job1", At: t2})
	heapPush(h, event{JobID: "job2", At: t3})

	for _, want := range []string{"job1", "job2", "job3"} {
		if got := heapPop(h).JobID; got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestHeapEmpty(t *testing.T) {
	h := &eventHeap{}
	if h.Len() != 0 {
		t.Errorf("expected empty heap, got len %d", h.Len())
	}
}

func TestHeapReminderBeforeFireAtSameInstant(t *testing.T) {
	h := &eventHeap{}
	at := time.Now()
	heapPush(h, event{JobID: "a", At: at, Kind: fireEvent})
	heapPush(h, event{JobID: "a", At: at, Kind: remindEvent})

	if first := heapPop(h); first.Kind != remindEvent {
		t.Errorf("expected reminder first, got kind %d", first.Kind)
	}
}

func TestHeapRemoveByID(t *testing.T) {
	h := &eventHeap{}
	base := time.Now()
	heapPush(h, event{JobID: "a", At: base.Add(1 * time.Hour)})
	heapPush(h, event{JobID: "b", At: base.Add(2 * time.Hour)})
	heapPush(h, event{JobID: "a", At: base.Add(30 * time.Minute), Kind: remindEvent})
	heapPush(h, event{JobID: "c", At: base.Add(3 * time.Hour)})

	if n := heapRemoveByID(h, "a"); n != 2 {
		t.Fatalf("expected 2 events removed, got %d", n)
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 events left, got %d", h.Len())
	}
	if first := heapPop(h); first.JobID != "b" {
		t.Errorf("expected b first after removal, got %s", first.JobID)
	}
}

func TestHeapRemoveByIDMissing(t *testing.T) {
	h := &eventHeap{}
	heapPush(h, event{JobID: "a", At: time.Now()})
	if n := heapRemoveByID(h, "zzz"); n != 0 {
		t.Errorf("expected nothing removed, got %d", n)
	}
	if h.Len() != 1 {
		t.Errorf("expected heap untouched, got len %d", h.Len())
	}
}
