// Package tracker correlates outbound relay requests with their asynchronous
// acknowledgements under a timeout. Every tracked request id resolves its
// callback exactly once: by an explicit Resolve, by timer expiry, or by being
// superseded when the same id is tracked again. The mutex-guarded pending map
// is the single gate deciding which path wins.
package tracker

import (
	"sync"
	"time"

	"murmur/pkg/protocol"
)

// TimeoutMessage is carried by responses synthesized when a request's timer
// elapses before the relay acknowledges it.
const TimeoutMessage = "Request timeout"

// SupersededMessage is carried by the response delivered to a callback whose
// request id was tracked again while still pending. Replacing silently would
// leave the first callback uninvoked; replace-and-report keeps the
// exactly-once guarantee for both registrations.
const SupersededMessage = "Request superseded"

// Callback receives the response for one tracked request. It is invoked
// exactly once, outside the tracker's lock.
type Callback func(protocol.ProtocolResponse)

// pending is one outstanding request. The timer's expiry closure captures the
// pointer so a replaced entry's late-firing timer can recognize it lost.
type pending struct {
	id    string
	cb    Callback
	timer *time.Timer
}

// Tracker holds the pending-request map. The zero value is not usable; call
// New.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]*pending
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{pending: make(map[string]*pending)}
}

// Track registers cb under requestID and starts a cancellable timer. If the
// id is still pending from an earlier Track, the earlier entry's timer is
// stopped and its callback is resolved with a superseded response before the
// new entry is installed.
func (t *Tracker) Track(requestID string, cb Callback, timeout time.Duration) {
	t.mu.Lock()
	old, replaced := t.pending[requestID]
	if replaced {
		old.timer.Stop()
		delete(t.pending, requestID)
	}

	p := &pending{id: requestID, cb: cb}
	p.timer = time.AfterFunc(timeout, func() { t.expire(p) })
	t.pending[requestID] = p
	t.mu.Unlock()

	if replaced {
		old.cb(protocol.ProtocolResponse{
			RequestID: requestID,
			Accepted:  false,
			Message:   SupersededMessage,
		})
	}
}

// Resolve delivers resp to the pending callback for requestID, cancelling its
// timer. Unknown ids (never tracked, already resolved, or already timed out)
// are a no-op, not an error.
func (t *Tracker) Resolve(requestID string, resp protocol.ProtocolResponse) {
	t.mu.Lock()
	p, ok := t.pending[requestID]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.pending, requestID)
	t.mu.Unlock()

	p.timer.Stop()
	resp.RequestID = requestID
	p.cb(resp)
}

// expire is the timer path. The identity check against the map entry settles
// the race with Resolve and with a superseding Track: whichever side removes
// the entry from the map first owns the callback.
func (t *Tracker) expire(p *pending) {
	t.mu.Lock()
	cur, ok := t.pending[p.id]
	if !ok || cur != p {
		t.mu.Unlock()
		return
	}
	delete(t.pending, p.id)
	t.mu.Unlock()

	p.cb(protocol.ProtocolResponse{
		RequestID: p.id,
		Accepted:  false,
		Message:   TimeoutMessage,
	})
}

// Pending reports whether requestID currently has a live entry. The answer is
// point-in-time only; concurrent mutation can invalidate it immediately.
func (t *Tracker) Pending(requestID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[requestID]
	return ok
}

// Len returns the number of outstanding requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Shutdown stops every pending timer and clears the map without invoking any
// callback. Only for node teardown, where in-flight requests are abandoned.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.pending {
		p.timer.Stop()
		delete(t.pending, id)
	}
}
