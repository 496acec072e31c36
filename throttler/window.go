package throttler

import "math"

// Window is a fixed-capacity FIFO of admission timestamps, in milliseconds,
// that forgets entries older than its period.
//
// The ring holds capacity+1 slots and keeps one of them empty, so head == tail
// means empty and head+1 == tail (mod size) means full.
type Window interface {
	// EvictExpired drops every entry older than nowMs - period.
	EvictExpired(nowMs int64)
	// EvictOldest drops the tail entry. It is a no-op on an empty window.
	EvictOldest()
	IsFull() bool
	IsEmpty() bool
	// Len is the number of live entries.
	Len() int
	// Cap is the maximum number of live entries.
	Cap() int
	// PeriodMs is the window length.
	PeriodMs() int64
	// OldestExpiry is the instant the tail entry leaves the window.
	// The result is meaningless on an empty window.
	OldestExpiry() int64
	// Insert records nowMs at the head. The window must not be full.
	Insert(nowMs int64) error
	// Entries returns the live timestamps, oldest first.
	Entries() []int64
}

// TimestampWindow stores absolute millisecond timestamps.
type TimestampWindow struct {
	periodMs   int64
	timestamps []int64

	head int // next free slot
	tail int // oldest live entry
}

// NewTimestampWindow returns an empty window admitting capacity entries per
// periodMs milliseconds.
func NewTimestampWindow(periodMs int64, capacity int) (*TimestampWindow, error) {
	if err := validateWindow(periodMs, capacity, MaxCapacity); err != nil {
		return nil, err
	}
	return &TimestampWindow{
		periodMs:   periodMs,
		timestamps: make([]int64, capacity+1),
	}, nil
}

func (w *TimestampWindow) next(i int) int {
	return (i + 1) % len(w.timestamps)
}

func (w *TimestampWindow) EvictExpired(nowMs int64) {
	outdated := nowMs - w.periodMs
	for w.tail != w.head && w.timestamps[w.tail] < outdated {
		w.tail = w.next(w.tail)
	}
}

func (w *TimestampWindow) EvictOldest() {
	if w.tail != w.head {
		w.tail = w.next(w.tail)
	}
}

func (w *TimestampWindow) IsFull() bool  { return w.next(w.head) == w.tail }
func (w *TimestampWindow) IsEmpty() bool { return w.head == w.tail }
func (w *TimestampWindow) Cap() int      { return len(w.timestamps) - 1 }
func (w *TimestampWindow) PeriodMs() int64 {
	return w.periodMs
}

func (w *TimestampWindow) Len() int {
	n := w.head - w.tail
	if n < 0 {
		n += len(w.timestamps)
	}
	return n
}

func (w *TimestampWindow) OldestExpiry() int64 {
	return w.timestamps[w.tail] + w.periodMs
}

func (w *TimestampWindow) Insert(nowMs int64) error {
	w.timestamps[w.head] = nowMs
	w.head = w.next(w.head)
	return nil
}

func (w *TimestampWindow) Entries() []int64 {
	out := make([]int64, 0, w.Len())
	for i := w.tail; i != w.head; i = w.next(i) {
		out = append(out, w.timestamps[i])
	}
	return out
}

// CompactTimestampWindow stores 32-bit offsets from an epoch instead of
// absolute timestamps, halving memory per slot.
//
// The epoch moves to the insertion time whenever an entry is inserted into an
// empty window. A window that never drains for MaxCompactSpan fails Insert with
// ErrOffsetOverflow.
type CompactTimestampWindow struct {
	periodMs int64
	epochMs  int64
	offsets  []uint32

	head int
	tail int
}

// MaxCompactSpan is the longest a compact window may stay non-empty, in
// milliseconds (about 49.7 days).
const MaxCompactSpan = math.MaxUint32

// NewCompactTimestampWindow returns an empty compact window admitting capacity
// entries per periodMs milliseconds.
func NewCompactTimestampWindow(periodMs int64, capacity int) (*CompactTimestampWindow, error) {
	if err := validateWindow(periodMs, capacity, MaxCompactCapacity); err != nil {
		return nil, err
	}
	return &CompactTimestampWindow{
		periodMs: periodMs,
		offsets:  make([]uint32, capacity+1),
	}, nil
}

func (w *CompactTimestampWindow) next(i int) int {
	return (i + 1) % len(w.offsets)
}

// Epoch is the instant offsets are relative to.
func (w *CompactTimestampWindow) Epoch() int64 { return w.epochMs }

func (w *CompactTimestampWindow) EvictExpired(nowMs int64) {
	outdated := nowMs - w.periodMs - w.epochMs
	for w.tail != w.head && int64(w.offsets[w.tail]) < outdated {
		w.tail = w.next(w.tail)
	}
}

func (w *CompactTimestampWindow) EvictOldest() {
	if w.tail != w.head {
		w.tail = w.next(w.tail)
	}
}

func (w *CompactTimestampWindow) IsFull() bool  { return w.next(w.head) == w.tail }
func (w *CompactTimestampWindow) IsEmpty() bool { return w.head == w.tail }
func (w *CompactTimestampWindow) Cap() int      { return len(w.offsets) - 1 }
func (w *CompactTimestampWindow) PeriodMs() int64 {
	return w.periodMs
}

func (w *CompactTimestampWindow) Len() int {
	n := w.head - w.tail
	if n < 0 {
		n += len(w.offsets)
	}
	return n
}

func (w *CompactTimestampWindow) OldestExpiry() int64 {
	return w.epochMs + int64(w.offsets[w.tail]) + w.periodMs
}

func (w *CompactTimestampWindow) Insert(nowMs int64) error {
	if w.head == w.tail {
		w.epochMs = nowMs
	}
	offset := nowMs - w.epochMs
	if offset < 0 || offset > MaxCompactSpan {
		return ErrOffsetOverflow
	}
	w.offsets[w.head] = uint32(offset)
	w.head = w.next(w.head)
	return nil
}

func (w *CompactTimestampWindow) Entries() []int64 {
	out := make([]int64, 0, w.Len())
	for i := w.tail; i != w.head; i = w.next(i) {
		out = append(out, w.epochMs+int64(w.offsets[i]))
	}
	return out
}
