package engine //nolint:testpackage // white-box test needs internal access

import (
	"strings"
	"testing"
	"time"

	"murmur/pkg/protocol"
	"murmur/pkg/queue"
	"murmur/pkg/tracker"
)

func newTestNode(t *testing.T, relay Relay) (*Node, *queue.Queue[protocol.DisplayMessage], *tracker.Tracker) {
	t.Helper()
	display := queue.New[protocol.DisplayMessage](64)
	requests := tracker.New()
	n := NewNode(Config{
		RequestTimeout: 40 * time.Millisecond,
		VersionString:  "test",
	}, display, NewConnMonitor(), requests, relay, nil, nil, nil)
	return n, display, requests
}

func TestSendTracksAndResolvesOnAck(t *testing.T) {
	t.Parallel()

	relay := &fakeRelay{nextID: "req-1"}
	n, display, requests := newTestNode(t, relay)

	n.HandleSend(protocol.Send{Peer: "alicepubkey", Message: "hi"})

	if !requests.Pending("req-1") {
		t.Fatal("send did not register a pending request")
	}

	n.HandleMessageSent(protocol.MessageSent{Peer: "alicepubkey", RequestID: "req-1", Accepted: true})

	if requests.Pending("req-1") {
		t.Error("request still pending after ack")
	}
	lines := drainDisplay(display)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "delivered to ") {
		t.Errorf("display lines = %v, want a single delivery confirmation", lines)
	}

	// A duplicate ack is a no-op: no second line.
	n.HandleMessageSent(protocol.MessageSent{Peer: "alicepubkey", RequestID: "req-1", Accepted: true})
	if extra := drainDisplay(display); len(extra) != 0 {
		t.Errorf("duplicate ack produced output: %v", extra)
	}
}

func TestSendTimeoutReportsFailure(t *testing.T) {
	t.Parallel()

	relay := &fakeRelay{nextID: "req-slow"}
	n, display, _ := newTestNode(t, relay)

	n.HandleSend(protocol.Send{Peer: "bob", Message: "anyone there"})
	time.Sleep(120 * time.Millisecond)

	lines := drainDisplay(display)
	if len(lines) != 1 {
		t.Fatalf("display lines = %v, want exactly one timeout report", lines)
	}
	if !strings.Contains(lines[0], tracker.TimeoutMessage) {
		t.Errorf("timeout line = %q, want it to carry %q", lines[0], tracker.TimeoutMessage)
	}
}

func TestPublishIdentityRejectedByRelay(t *testing.T) {
	t.Parallel()

	relay := &fakeRelay{nextID: "pub-1"}
	n, display, _ := newTestNode(t, relay)

	n.HandlePublishIdentity(protocol.PublishIdentity{})
	n.HandleBundlePublished(protocol.BundlePublished{RequestID: "pub-1", Accepted: false})

	lines := drainDisplay(display)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "publish failed:") {
		t.Errorf("display lines = %v, want a publish failure report", lines)
	}
}

func TestSubscribeResolvedByEOSE(t *testing.T) {
	t.Parallel()

	relay := &fakeRelay{nextID: "sub-9"}
	n, display, requests := newTestNode(t, relay)

	n.HandleSubscribe(protocol.Subscribe{FilterJSON: `{"kinds":[4]}`})
	if !requests.Pending("sub-9") {
		t.Fatal("subscribe did not register the subscription id")
	}

	n.HandleSubscriptionEstablished(protocol.SubscriptionEstablished{SubscriptionID: "sub-9"})

	lines := drainDisplay(display)
	if len(lines) != 1 || lines[0] != "subscription sub-9 active" {
		t.Errorf("display lines = %v, want subscription confirmation", lines)
	}
}

func TestCommandsWithoutRelayReportUnavailable(t *testing.T) {
	t.Parallel()

	n, display, _ := newTestNode(t, nil)

	n.HandleSend(protocol.Send{Peer: "x", Message: "y"})
	n.HandleBroadcast(protocol.Broadcast{Message: "y"})
	n.HandlePublishIdentity(protocol.PublishIdentity{})
	n.HandleSubscribe(protocol.Subscribe{FilterJSON: "{}"})

	lines := drainDisplay(display)
	if len(lines) != 4 {
		t.Fatalf("display lines = %v, want 4 unavailability reports", lines)
	}
	for _, l := range lines {
		if !strings.Contains(l, "not connected to a relay") {
			t.Errorf("line %q does not report the missing relay", l)
		}
	}
}

func TestTrustAliasShowsUpInPeersAndMessages(t *testing.T) {
	t.Parallel()

	n, display, _ := newTestNode(t, nil)

	n.HandleBundleAnnouncement(protocol.BundleAnnouncementReceived{Pubkey: "deadbeefcafe"})
	n.HandleTrust(protocol.Trust{Peer: "deadbeefcafe", Alias: "carol"})
	drainDisplay(display)

	n.HandleMessageReceived(protocol.MessageReceived{Sender: "deadbeefcafe", Content: "hello", Timestamp: 5})
	lines := drainDisplay(display)
	if len(lines) != 1 || lines[0] != "<carol> hello" {
		t.Errorf("display lines = %v, want aliased message line", lines)
	}

	n.HandlePeers(protocol.Peers{})
	found := false
	for _, l := range drainDisplay(display) {
		if strings.Contains(l, "carol (deadbeefcafe)") {
			found = true
		}
	}
	if !found {
		t.Error("peer listing does not show the trusted alias")
	}
}

func TestSessionTracking(t *testing.T) {
	t.Parallel()

	n, display, _ := newTestNode(t, nil)

	n.HandleSessions(protocol.Sessions{})
	if lines := drainDisplay(display); len(lines) != 1 || lines[0] != "no established sessions" {
		t.Errorf("empty sessions output = %v", lines)
	}

	n.HandleSessionEstablished(protocol.SessionEstablished{Peer: "bobpubkey"})
	drainDisplay(display)

	n.HandleSessions(protocol.Sessions{})
	lines := drainDisplay(display)
	if len(lines) != 2 || !strings.Contains(lines[1], "bobpubkey") {
		t.Errorf("sessions output = %v, want header plus bobpubkey", lines)
	}
}

func TestChatAndLeaveToggleMode(t *testing.T) {
	t.Parallel()

	n, display, _ := newTestNode(t, nil)

	if n.Mode() != "command" {
		t.Fatalf("initial mode = %q, want command", n.Mode())
	}
	n.HandleChat(protocol.Chat{})
	if n.Mode() != "chat" {
		t.Errorf("mode after chat = %q", n.Mode())
	}
	n.HandleLeave(protocol.Leave{})
	if n.Mode() != "command" {
		t.Errorf("mode after leave = %q", n.Mode())
	}
	drainDisplay(display)
}

func TestStatusCommandEmitsMonitorSummary(t *testing.T) {
	t.Parallel()

	n, display, _ := newTestNode(t, nil)
	n.HandleConnected(protocol.Connected{
		Transport: protocol.TransportInternet,
		URL:       "wss://relay",
		Timestamp: 1,
	})
	drainDisplay(display)

	n.HandleStatus(protocol.Status{})
	lines := drainDisplay(display)
	if len(lines) != 2 || lines[0] != "internet: connected wss://relay" {
		t.Errorf("status output = %v", lines)
	}
}
