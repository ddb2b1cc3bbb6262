package tracker //nolint:testpackage // white-box test needs internal access

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"murmur/pkg/protocol"
)

// collector records every response delivered to a callback.
type collector struct {
	mu    sync.Mutex
	resps []protocol.ProtocolResponse
}

func (c *collector) callback(resp protocol.ProtocolResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resps = append(c.resps, resp)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resps)
}

func (c *collector) last() protocol.ProtocolResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.resps) == 0 {
		return protocol.ProtocolResponse{}
	}
	return c.resps[len(c.resps)-1]
}

func TestResolveInvokesCallbackExactlyOnce(t *testing.T) {
	t.Parallel()

	tr := New()
	c := &collector{}
	tr.Track("r1", c.callback, 50*time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	tr.Resolve("r1", protocol.ProtocolResponse{Accepted: true, Message: "ok"})

	// Wait past the original deadline; the timer must not fire a second
	// invocation.
	time.Sleep(80 * time.Millisecond)

	if got := c.count(); got != 1 {
		t.Fatalf("callback invoked %d times, want 1", got)
	}
	resp := c.last()
	if !resp.Accepted {
		t.Error("resolved response should carry Accepted=true")
	}
	if resp.RequestID != "r1" {
		t.Errorf("RequestID = %q, want %q", resp.RequestID, "r1")
	}
	if tr.Pending("r1") {
		t.Error("request still pending after Resolve")
	}
}

func TestTimeoutSynthesizesResponseExactlyOnce(t *testing.T) {
	t.Parallel()

	tr := New()
	c := &collector{}
	tr.Track("r2", c.callback, 20*time.Millisecond)

	time.Sleep(100 * time.Millisecond)

	if got := c.count(); got != 1 {
		t.Fatalf("callback invoked %d times, want 1", got)
	}
	resp := c.last()
	if resp.Accepted {
		t.Error("timeout response should carry Accepted=false")
	}
	if resp.Message != TimeoutMessage {
		t.Errorf("Message = %q, want %q", resp.Message, TimeoutMessage)
	}
	if tr.Pending("r2") {
		t.Error("request still pending after timeout")
	}
}

func TestResolveAfterResolutionIsNoOp(t *testing.T) {
	t.Parallel()

	tr := New()
	c := &collector{}
	tr.Track("r3", c.callback, 20*time.Millisecond)

	tr.Resolve("r3", protocol.ProtocolResponse{Accepted: true})
	tr.Resolve("r3", protocol.ProtocolResponse{Accepted: false})
	time.Sleep(60 * time.Millisecond)
	tr.Resolve("r3", protocol.ProtocolResponse{Accepted: false})

	if got := c.count(); got != 1 {
		t.Fatalf("callback invoked %d times, want 1", got)
	}
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Resolve("never-tracked", protocol.ProtocolResponse{Accepted: true})
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
}

func TestDuplicateTrackReplacesAndReports(t *testing.T) {
	t.Parallel()

	tr := New()
	first := &collector{}
	second := &collector{}

	tr.Track("dup", first.callback, 200*time.Millisecond)
	tr.Track("dup", second.callback, 200*time.Millisecond)

	// The superseded registration is reported immediately, exactly once.
	if got := first.count(); got != 1 {
		t.Fatalf("superseded callback invoked %d times, want 1", got)
	}
	if msg := first.last().Message; msg != SupersededMessage {
		t.Errorf("superseded Message = %q, want %q", msg, SupersededMessage)
	}

	// The replacement behaves like any tracked request.
	tr.Resolve("dup", protocol.ProtocolResponse{Accepted: true})
	if got := second.count(); got != 1 {
		t.Fatalf("replacement callback invoked %d times, want 1", got)
	}
	if !second.last().Accepted {
		t.Error("replacement response should carry Accepted=true")
	}

	time.Sleep(250 * time.Millisecond)
	if first.count() != 1 || second.count() != 1 {
		t.Error("late timer fired an extra invocation")
	}
}

func TestShutdownInvokesNoCallbacks(t *testing.T) {
	t.Parallel()

	tr := New()
	c := &collector{}
	tr.Track("s1", c.callback, 30*time.Millisecond)
	tr.Track("s2", c.callback, 30*time.Millisecond)

	tr.Shutdown()
	time.Sleep(80 * time.Millisecond)

	if got := c.count(); got != 0 {
		t.Errorf("callback invoked %d times after Shutdown, want 0", got)
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d after Shutdown, want 0", tr.Len())
	}
}

// TestResolveTimeoutRace hammers the resolve-vs-expiry race: with timeouts
// around the resolve instant, exactly one path must win per request.
func TestResolveTimeoutRace(t *testing.T) {
	t.Parallel()

	tr := New()
	const n = 200
	var invocations atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("race-%d", i)
		tr.Track(id, func(protocol.ProtocolResponse) {
			invocations.Add(1)
		}, time.Duration(i%5)*time.Millisecond)

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			tr.Resolve(id, protocol.ProtocolResponse{Accepted: true})
		}(id)
	}
	wg.Wait()

	// Let any straggler timers fire.
	time.Sleep(50 * time.Millisecond)

	if got := invocations.Load(); got != n {
		t.Errorf("total invocations = %d, want exactly %d", got, n)
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d after all resolutions, want 0", tr.Len())
	}
}
