// Package ratelimit bounds how fast funds flow out to any single
// recipient. A Queue records one recipient's disbursement history; a
// Guard evaluates per-transaction and rolling-daily caps against it.
package ratelimit

import "errors"

// Sentinel errors returned by Queue and Guard operations.
var (
	ErrNotInitialized     = errors.New("treasury/ratelimit: queue not initialized")
	ErrEmptyQueue         = errors.New("treasury/ratelimit: queue is empty")
	ErrIndexOutOfRange    = errors.New("treasury/ratelimit: queue index out of range")
	ErrTxLimitExceeded    = errors.New("treasury/ratelimit: per-transaction limit exceeded")
	ErrDailyLimitExceeded = errors.New("treasury/ratelimit: daily limit exceeded")
	ErrInvalidCapOrdering = errors.New("treasury/ratelimit: daily cap below per-transaction cap")
)

// Entry is one recorded disbursement event.
type Entry struct {
	Time     int64  `json:"time"`
	Quantity uint64 `json:"quantity"`
}

// Queue is a bounded FIFO of disbursement events addressed by monotonic
// first/last indices. The queue is empty iff last < first. A queue that
// was never touched is distinguished from an empty one by an explicit
// initialized flag, not by emptiness.
type Queue struct {
	initialized bool
	first       uint64
	last        uint64
	entries     map[uint64]Entry
}

// NewQueue creates an initialized, empty queue (first=1, last=0).
func NewQueue() *Queue {
	q := &Queue{}
	q.Initialize()
	return q
}

// Initialize sets the empty state: first=1, last=0. Index zero stays
// unused so it can never be confused with a live entry.
func (q *Queue) Initialize() {
	q.initialized = true
	q.first = 1
	q.last = 0
	q.entries = make(map[uint64]Entry)
}

// IsInitialized reports whether Initialize has run. This is a distinct
// flag from emptiness.
func (q *Queue) IsInitialized() bool { return q.initialized }

// Len returns the number of entries: last-first+1 when last >= first,
// zero otherwise.
func (q *Queue) Len() uint64 {
	if q.last < q.first {
		return 0
	}
	return q.last - q.first + 1
}

// Enqueue appends an entry after last. It fails with ErrNotInitialized
// on a queue that was never initialized.
func (q *Queue) Enqueue(entry Entry) error {
	if !q.initialized {
		return ErrNotInitialized
	}
	q.last++
	q.entries[q.last] = entry
	return nil
}

// Dequeue removes and returns the front entry, advancing first.
func (q *Queue) Dequeue() (Entry, error) {
	if !q.initialized {
		return Entry{}, ErrNotInitialized
	}
	if q.Len() == 0 {
		return Entry{}, ErrEmptyQueue
	}
	entry := q.entries[q.first]
	delete(q.entries, q.first)
	q.first++
	return entry, nil
}

// PeekFront returns the oldest entry without removing it.
func (q *Queue) PeekFront() (Entry, error) {
	if q.Len() == 0 {
		return Entry{}, ErrEmptyQueue
	}
	return q.entries[q.first], nil
}

// PeekBack returns the newest entry without removing it.
func (q *Queue) PeekBack() (Entry, error) {
	if q.Len() == 0 {
		return Entry{}, ErrEmptyQueue
	}
	return q.entries[q.last], nil
}

// At returns the entry at 0-based offset i from the front. Out-of-range
// access fails with ErrIndexOutOfRange.
func (q *Queue) At(i uint64) (Entry, error) {
	if i >= q.Len() {
		return Entry{}, ErrIndexOutOfRange
	}
	return q.entries[q.first+i], nil
}

// State is the serializable form of a Queue, used by store drivers.
type State struct {
	Initialized bool    `json:"initialized"`
	First       uint64  `json:"first"`
	Last        uint64  `json:"last"`
	Entries     []Entry `json:"entries"`
}

// State captures the queue for persistence. Entries run front to back.
func (q *Queue) State() State {
	s := State{
		Initialized: q.initialized,
		First:       q.first,
		Last:        q.last,
		Entries:     make([]Entry, 0, q.Len()),
	}
	for i := q.first; i <= q.last; i++ {
		s.Entries = append(s.Entries, q.entries[i])
	}
	return s
}

// FromState rebuilds a queue from its persisted form.
func FromState(s State) *Queue {
	q := &Queue{
		initialized: s.Initialized,
		first:       s.First,
		last:        s.Last,
		entries:     make(map[uint64]Entry, len(s.Entries)),
	}
	for i, entry := range s.Entries {
		q.entries[s.First+uint64(i)] = entry
	}
	return q
}
