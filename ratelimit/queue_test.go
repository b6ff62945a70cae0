package ratelimit

import (
	"errors"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	entries := []Entry{
		{Time: 10, Quantity: 1},
		{Time: 20, Quantity: 2},
		{Time: 30, Quantity: 3},
	}
	for _, e := range entries {
		if err := q.Enqueue(e); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("len: got %d, want 3", q.Len())
	}

	for i, want := range entries {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if got != want {
			t.Errorf("dequeue %d: got %+v, want %+v", i, got, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("len after drain: got %d, want 0", q.Len())
	}
}

func TestQueueNotInitialized(t *testing.T) {
	var q Queue

	if q.IsInitialized() {
		t.Fatal("zero queue must not report initialized")
	}
	if err := q.Enqueue(Entry{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("enqueue: got %v, want ErrNotInitialized", err)
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("dequeue: got %v, want ErrNotInitialized", err)
	}
}

func TestQueueInitializedButEmpty(t *testing.T) {
	q := NewQueue()

	if !q.IsInitialized() {
		t.Fatal("initialized queue must report so even when empty")
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("dequeue: got %v, want ErrEmptyQueue", err)
	}
	if _, err := q.PeekFront(); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("peek front: got %v, want ErrEmptyQueue", err)
	}
	if _, err := q.PeekBack(); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("peek back: got %v, want ErrEmptyQueue", err)
	}
}

func TestQueuePeek(t *testing.T) {
	q := NewQueue()
	front := Entry{Time: 1, Quantity: 11}
	back := Entry{Time: 2, Quantity: 22}
	if err := q.Enqueue(front); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(back); err != nil {
		t.Fatal(err)
	}

	if got, err := q.PeekFront(); err != nil || got != front {
		t.Errorf("peek front: got %+v, %v", got, err)
	}
	if got, err := q.PeekBack(); err != nil || got != back {
		t.Errorf("peek back: got %+v, %v", got, err)
	}
	if q.Len() != 2 {
		t.Errorf("peeks must not consume entries, len %d", q.Len())
	}
}

func TestQueueAt(t *testing.T) {
	q := NewQueue()
	for i := int64(0); i < 3; i++ {
		if err := q.Enqueue(Entry{Time: i, Quantity: uint64(i) * 10}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := q.At(1)
	if err != nil {
		t.Fatalf("at(1): %v", err)
	}
	if got.Quantity != 10 {
		t.Errorf("at(1): got quantity %d, want 10", got.Quantity)
	}

	if _, err := q.At(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("at(3): got %v, want ErrIndexOutOfRange", err)
	}
}

// Indices keep advancing across a drain; At is relative to the moving
// front, not to absolute positions.
func TestQueueIndicesMonotonic(t *testing.T) {
	q := NewQueue()
	for i := int64(0); i < 4; i++ {
		if err := q.Enqueue(Entry{Time: i}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := q.Dequeue(); err != nil {
			t.Fatal(err)
		}
	}

	got, err := q.At(0)
	if err != nil {
		t.Fatalf("at(0): %v", err)
	}
	if got.Time != 2 {
		t.Errorf("at(0) after partial drain: got time %d, want 2", got.Time)
	}
}

func TestQueueStateRoundTrip(t *testing.T) {
	q := NewQueue()
	for i := int64(0); i < 5; i++ {
		if err := q.Enqueue(Entry{Time: i * 100, Quantity: uint64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := q.Dequeue(); err != nil {
		t.Fatal(err)
	}

	restored := FromState(q.State())
	if restored.Len() != q.Len() {
		t.Fatalf("len: got %d, want %d", restored.Len(), q.Len())
	}
	if !restored.IsInitialized() {
		t.Fatal("restored queue must be initialized")
	}
	for i := uint64(0); i < q.Len(); i++ {
		want, _ := q.At(i)
		got, err := restored.At(i)
		if err != nil {
			t.Fatalf("at(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("at(%d): got %+v, want %+v", i, got, want)
		}
	}
}
