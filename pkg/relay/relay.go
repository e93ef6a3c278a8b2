// Package relay hands video frames from a capture callback thread to a
// polling consumer through a single slot.
//
// The producer never waits for the consumer: a frame deposited before the
// previous one was retrieved replaces it (latest frame wins). The consumer
// blocks until a frame is ready, the capture is stopped, or its timeout
// elapses. The mutex guarding the slot is held only while bytes are copied,
// never across the wait.
package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Errors. All of them mean "no frame this call".
var (
	ErrNotCapturing   = errors.New("relay: not capturing")
	ErrTimeout        = errors.New("relay: timed out waiting for frame")
	ErrBufferTooSmall = errors.New("relay: destination buffer too small")
	ErrClosed         = errors.New("relay: closed")
)

// Stats holds relay counters.
type Stats struct {
	// Deposits counts accepted frames.
	Deposits uint64
	// Overwrites counts frames replaced before they were retrieved.
	Overwrites uint64
	// Discards counts frames rejected for exceeding the payload bound.
	Discards uint64
	// Retrievals counts frames copied out to a consumer.
	Retrievals uint64
}

// Relay is a single-slot frame mailbox. One producer and one consumer may use
// it concurrently.
type Relay struct {
	mu      sync.Mutex
	buf     []byte // grows, never shrinks
	n       int    // length of the latest payload
	limit   int    // largest payload accepted in this run
	active  bool
	closed  bool
	pending bool // latest payload not yet retrieved

	// ready is an auto-reset event: one deposit wakes at most one Retrieve.
	ready chan struct{}
	// stop is closed when the current run ends.
	stop chan struct{}

	deposits   atomic.Uint64
	overwrites atomic.Uint64
	discards   atomic.Uint64
	retrievals atomic.Uint64
}

// New returns an idle relay.
func New() *Relay {
	return &Relay{
		ready: make(chan struct{}, 1),
	}
}

// Start arms the relay for a capture run accepting payloads of at most limit
// bytes. Any frame left from a previous run is forgotten.
func (r *Relay) Start(limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.active {
		close(r.stop)
	}
	r.active = true
	r.limit = limit
	r.n = 0
	r.pending = false
	r.stop = make(chan struct{})
	select {
	case <-r.ready:
	default:
	}
	return nil
}

// Stop ends the current run and wakes a blocked Retrieve. Idempotent.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Relay) stopLocked() {
	if !r.active {
		return
	}
	r.active = false
	close(r.stop)
}

// Close stops the relay and frees its buffer. Deposits after Close are
// ignored. Idempotent.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.closed = true
	r.buf = nil
	r.n = 0
	r.pending = false
}

// Deposit stores p as the latest frame and signals a waiting consumer.
// It returns false when the frame was dropped: the relay is not armed, p is
// empty, or p is larger than the run's payload bound. p is copied; the caller
// keeps ownership.
func (r *Relay) Deposit(p []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || len(p) == 0 {
		return false
	}
	if len(p) > r.limit {
		r.discards.Add(1)
		return false
	}

	if len(p) > len(r.buf) {
		r.buf = make([]byte, len(p))
	}
	r.n = copy(r.buf, p)
	if r.pending {
		r.overwrites.Add(1)
	}
	r.pending = true
	r.deposits.Add(1)

	select {
	case r.ready <- struct{}{}:
	default:
	}
	return true
}

// Retrieve waits up to timeout for a frame and copies it into dst, returning
// the number of bytes copied. On any error dst is left untouched.
//
// A timeout <= 0 polls without waiting.
func (r *Relay) Retrieve(dst []byte, timeout time.Duration) (int, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return 0, ErrNotCapturing
	}
	stop := r.stop
	r.mu.Unlock()

	if timeout <= 0 {
		select {
		case <-r.ready:
		default:
			return 0, ErrTimeout
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-r.ready:
		case <-stop:
			return 0, ErrNotCapturing
		case <-timer.C:
			return 0, ErrTimeout
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return 0, ErrNotCapturing
	}
	if r.n == 0 {
		// The run was restarted between the signal and the copy.
		return 0, ErrTimeout
	}
	if r.n > len(dst) {
		// Keep the frame available for a retry with a larger buffer.
		select {
		case r.ready <- struct{}{}:
		default:
		}
		return 0, ErrBufferTooSmall
	}

	n := copy(dst, r.buf[:r.n])
	r.pending = false
	r.retrievals.Add(1)
	return n, nil
}

// Len returns the length of the latest payload.
func (r *Relay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Cap returns the current buffer capacity.
func (r *Relay) Cap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Stats returns a snapshot of the relay counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Deposits:   r.deposits.Load(),
		Overwrites: r.overwrites.Load(),
		Discards:   r.discards.Load(),
		Retrievals: r.retrievals.Load(),
	}
}
