package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"murmur/pkg/protocol"
	"murmur/pkg/queue"
	"murmur/pkg/tracker"
)

// --- Interfaces for testability ---

// Relay is the outbound boundary to the relay network. Dial is asynchronous:
// its outcome arrives on the event queue as Connected or ConnectFailed. The
// send-style methods return the request id under which the relay will
// acknowledge the operation; the Node tracks that id and resolves it when the
// matching MessageSent/BundlePublished/SubscriptionEstablished event arrives.
type Relay interface {
	Dial(url string)
	SendEncrypted(peer, message string) (requestID string, err error)
	Broadcast(message string) (requestID string, err error)
	PublishBundle() (requestID string, err error)
	Subscribe(filterJSON string) (subscriptionID string, err error)
}

// Identity answers fingerprint queries. Production impl lives in the
// key-exchange module; the core never sees key material.
type Identity interface {
	Fingerprint(peer string) (string, error)
}

// Scanner discovers nearby peers on local transports (e.g. bluetooth).
type Scanner interface {
	Scan() ([]string, error)
}

// Recorder persists notable events for later querying. Best-effort: the Node
// logs and continues on failure.
type Recorder interface {
	Record(kind, peer, detail string) error
}

// --- Config ---

// Config holds Node configuration.
type Config struct {
	RequestTimeout time.Duration // relay ack timeout (default 10s).
	InitialMode    string        // input mode at startup (default "command").
	VersionString  string        // reported by the version command.
}

func (c Config) withDefaults() Config {
	out := c
	if out.RequestTimeout == 0 {
		out.RequestTimeout = 10 * time.Second
	}
	if out.InitialMode == "" {
		out.InitialMode = "command"
	}
	return out
}

// --- Node ---

// peerInfo is the Node's view of one known peer.
type peerInfo struct {
	pubkey   string
	alias    string
	session  bool
	lastSeen uint64
}

// Node implements both capability contracts: it is the command handler for
// the command processor and the transport handler for the event processor.
// Both processors may share one Node; handler state is mutex-guarded because
// the loops run on separate goroutines.
type Node struct {
	cfg      Config
	display  *queue.Queue[protocol.DisplayMessage]
	monitor  *ConnMonitor
	requests *tracker.Tracker
	relay    Relay
	identity Identity
	scanner  Scanner
	recorder Recorder

	mu    sync.Mutex
	mode  string
	peers map[string]*peerInfo
}

// NewNode assembles a Node. relay, identity, scanner, and recorder may be nil;
// the corresponding commands then report the capability as unavailable.
func NewNode(cfg Config, display *queue.Queue[protocol.DisplayMessage], monitor *ConnMonitor,
	requests *tracker.Tracker, relay Relay, identity Identity, scanner Scanner, recorder Recorder,
) *Node {
	resolved := cfg.withDefaults()
	return &Node{
		cfg:      resolved,
		display:  display,
		monitor:  monitor,
		requests: requests,
		relay:    relay,
		identity: identity,
		scanner:  scanner,
		recorder: recorder,
		mode:     resolved.InitialMode,
		peers:    make(map[string]*peerInfo),
	}
}

// Mode returns the current input mode.
func (n *Node) Mode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

// say pushes one display line. Display emission is best-effort: a full
// display queue drops the line rather than stalling the processing loop.
func (n *Node) say(format string, args ...any) {
	msg := protocol.DisplayMessage{Text: fmt.Sprintf(format, args...)}
	if err := n.display.Push(msg); err != nil {
		log.Printf("engine: display queue rejected line: %v", err)
	}
}

// record persists one history entry, best-effort.
func (n *Node) record(kind, peer, detail string) {
	if n.recorder == nil {
		return
	}
	if err := n.recorder.Record(kind, peer, detail); err != nil {
		log.Printf("engine: history record failed: %v", err)
	}
}

// touchPeer returns the tracked entry for pubkey, creating it if new.
// Caller must hold n.mu.
func (n *Node) touchPeer(pubkey string) *peerInfo {
	p, ok := n.peers[pubkey]
	if !ok {
		p = &peerInfo{pubkey: pubkey}
		n.peers[pubkey] = p
	}
	return p
}

// displayName resolves a peer to its alias, or a shortened pubkey when no
// alias is set.
func (n *Node) displayName(pubkey string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.peers[pubkey]; ok && p.alias != "" {
		return p.alias
	}
	if len(pubkey) > 8 {
		return pubkey[:8]
	}
	return pubkey
}

// --- Command handlers ---

// HandleHelp lists the available commands.
func (n *Node) HandleHelp(protocol.Help) {
	for _, line := range []string{
		"commands:",
		"  /help                     show this summary",
		"  /peers                    list known peers",
		"  /status                   show transport connectivity",
		"  /sessions                 list established secure sessions",
		"  /scan                     scan local transports for peers",
		"  /version                  show build version",
		"  /mode <name>              switch input mode",
		"  /send <peer> <message>    send an encrypted message",
		"  /broadcast <message>      message all connected peers",
		"  /connect <relay-url>      connect to a relay",
		"  /publish                  publish identity bundle",
		"  /trust <peer> <alias>     assign a local alias",
		"  /verify <peer>            show a peer fingerprint",
		"  /subscribe <filter-json>  open a relay subscription",
		"  /chat                     enter chat mode",
		"  /leave                    leave chat mode",
	} {
		n.say("%s", line)
	}
}

// HandlePeers lists known peers in a stable order.
func (n *Node) HandlePeers(protocol.Peers) {
	n.mu.Lock()
	keys := make([]string, 0, len(n.peers))
	for k := range n.peers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		p := n.peers[k]
		label := p.pubkey
		if p.alias != "" {
			label = fmt.Sprintf("%s (%s)", p.alias, p.pubkey)
		}
		if p.session {
			label += " [session]"
		}
		lines = append(lines, "  "+label)
	}
	n.mu.Unlock()

	if len(lines) == 0 {
		n.say("no known peers")
		return
	}
	n.say("known peers:")
	for _, l := range lines {
		n.say("%s", l)
	}
}

// HandleStatus emits the connection summary.
func (n *Node) HandleStatus(protocol.Status) {
	n.monitor.EmitStatus(n.display)
}

// HandleSessions lists peers with an established secure session.
func (n *Node) HandleSessions(protocol.Sessions) {
	n.mu.Lock()
	var active []string
	for _, p := range n.peers {
		if p.session {
			label := p.pubkey
			if p.alias != "" {
				label = fmt.Sprintf("%s (%s)", p.alias, p.pubkey)
			}
			active = append(active, label)
		}
	}
	n.mu.Unlock()
	sort.Strings(active)

	if len(active) == 0 {
		n.say("no established sessions")
		return
	}
	n.say("established sessions:")
	for _, l := range active {
		n.say("  %s", l)
	}
}

// HandleScan runs a local transport scan.
func (n *Node) HandleScan(protocol.Scan) {
	if n.scanner == nil {
		n.say("scan: no local transport scanner available")
		return
	}
	found, err := n.scanner.Scan()
	if err != nil {
		n.say("scan failed: %v", err)
		return
	}
	if len(found) == 0 {
		n.say("scan: nothing nearby")
		return
	}
	for _, f := range found {
		n.say("scan: %s", f)
	}
}

// HandleVersion reports the build version.
func (n *Node) HandleVersion(protocol.Version) {
	n.say("murmur %s", n.cfg.VersionString)
}

// HandleSetMode switches the input mode.
func (n *Node) HandleSetMode(c protocol.SetMode) {
	n.mu.Lock()
	n.mode = c.NewMode
	n.mu.Unlock()
	n.say("mode: %s", c.NewMode)
}

// HandleSend sends an encrypted message to one peer and tracks the relay
// acknowledgement.
func (n *Node) HandleSend(c protocol.Send) {
	if n.relay == nil {
		n.say("send: not connected to a relay")
		return
	}
	requestID, err := n.relay.SendEncrypted(c.Peer, c.Message)
	if err != nil {
		n.say("send to %s failed: %v", n.displayName(c.Peer), err)
		return
	}
	peer := c.Peer
	n.track(requestID, func(resp protocol.ProtocolResponse) {
		if resp.Accepted {
			n.say("delivered to %s", n.displayName(peer))
		} else {
			n.say("send to %s failed: %s", n.displayName(peer), resp.Message)
		}
	})
	n.record("send", c.Peer, c.Message)
}

// HandleBroadcast messages all connected peers.
func (n *Node) HandleBroadcast(c protocol.Broadcast) {
	if n.relay == nil {
		n.say("broadcast: not connected to a relay")
		return
	}
	requestID, err := n.relay.Broadcast(c.Message)
	if err != nil {
		n.say("broadcast failed: %v", err)
		return
	}
	n.track(requestID, func(resp protocol.ProtocolResponse) {
		if resp.Accepted {
			n.say("broadcast accepted")
		} else {
			n.say("broadcast failed: %s", resp.Message)
		}
	})
	n.record("broadcast", "", c.Message)
}

// HandleConnect dials a relay. The outcome arrives as a transport event.
func (n *Node) HandleConnect(c protocol.ConnectRelay) {
	if n.relay == nil {
		n.say("connect: relay transport unavailable")
		return
	}
	n.say("connecting to %s ...", c.Relay)
	n.relay.Dial(c.Relay)
}

// HandlePublishIdentity publishes the local key bundle.
func (n *Node) HandlePublishIdentity(protocol.PublishIdentity) {
	if n.relay == nil {
		n.say("publish: not connected to a relay")
		return
	}
	requestID, err := n.relay.PublishBundle()
	if err != nil {
		n.say("publish failed: %v", err)
		return
	}
	n.track(requestID, func(resp protocol.ProtocolResponse) {
		if resp.Accepted {
			n.say("identity bundle published")
		} else {
			n.say("publish failed: %s", resp.Message)
		}
	})
}

// HandleTrust assigns a local alias to a peer.
func (n *Node) HandleTrust(c protocol.Trust) {
	n.mu.Lock()
	p := n.touchPeer(c.Peer)
	p.alias = c.Alias
	n.mu.Unlock()
	n.say("trusting %s as %s", c.Peer, c.Alias)
	n.record("trust", c.Peer, c.Alias)
}

// HandleVerify shows a peer's fingerprint for manual comparison.
func (n *Node) HandleVerify(c protocol.Verify) {
	if n.identity == nil {
		n.say("verify: identity module unavailable")
		return
	}
	fp, err := n.identity.Fingerprint(c.Peer)
	if err != nil {
		n.say("verify %s failed: %v", n.displayName(c.Peer), err)
		return
	}
	n.say("fingerprint for %s: %s", n.displayName(c.Peer), fp)
}

// HandleSubscribe opens a relay subscription; the EOSE signal resolves it.
func (n *Node) HandleSubscribe(c protocol.Subscribe) {
	if n.relay == nil {
		n.say("subscribe: not connected to a relay")
		return
	}
	subID, err := n.relay.Subscribe(c.FilterJSON)
	if err != nil {
		n.say("subscribe failed: %v", err)
		return
	}
	n.track(subID, func(resp protocol.ProtocolResponse) {
		if resp.Accepted {
			n.say("subscription %s active", resp.RequestID)
		} else {
			n.say("subscription %s failed: %s", resp.RequestID, resp.Message)
		}
	})
}

// HandleChat enters chat mode: bare input lines become broadcasts.
func (n *Node) HandleChat(protocol.Chat) {
	n.mu.Lock()
	n.mode = "chat"
	n.mu.Unlock()
	n.say("chat mode — /leave to exit")
}

// HandleLeave exits chat mode.
func (n *Node) HandleLeave(protocol.Leave) {
	n.mu.Lock()
	n.mode = "command"
	n.mu.Unlock()
	n.say("left chat mode")
}

// track registers a pending request with the configured ack timeout.
func (n *Node) track(requestID string, cb tracker.Callback) {
	n.requests.Track(requestID, cb, n.cfg.RequestTimeout)
}

// --- Transport-event handlers ---

// HandleConnected records the link and announces it.
func (n *Node) HandleConnected(ev protocol.Connected) {
	n.monitor.Handle(ev)
	n.say("[%s] connected to %s", ev.Transport, ev.URL)
	n.record("connected", "", ev.URL)
}

// HandleConnectFailed records the failure and announces it.
func (n *Node) HandleConnectFailed(ev protocol.ConnectFailed) {
	n.monitor.Handle(ev)
	n.say("[%s] connect to %s failed: %s", ev.Transport, ev.URL, ev.Err)
	n.record("connect_failed", "", ev.Err)
}

// HandleDisconnected records the drop and announces it.
func (n *Node) HandleDisconnected(ev protocol.Disconnected) {
	n.monitor.Handle(ev)
	n.say("[%s] disconnected", ev.Transport)
	n.record("disconnected", "", "")
}

// HandleSendFailed records the transient failure; the link state is left
// alone (see ConnMonitor).
func (n *Node) HandleSendFailed(ev protocol.SendFailed) {
	n.monitor.Handle(ev)
	n.say("[%s] send to %s failed: %s", ev.Transport, n.displayName(ev.Peer), ev.Err)
	n.record("send_failed", ev.Peer, ev.Err)
}

// HandleMessageReceived displays an inbound message and updates peer state.
func (n *Node) HandleMessageReceived(ev protocol.MessageReceived) {
	n.mu.Lock()
	p := n.touchPeer(ev.Sender)
	p.lastSeen = ev.Timestamp
	n.mu.Unlock()

	n.say("<%s> %s", n.displayName(ev.Sender), ev.Content)
	n.record("message", ev.Sender, ev.Content)
}

// HandleSessionEstablished marks the peer's secure session.
func (n *Node) HandleSessionEstablished(ev protocol.SessionEstablished) {
	n.mu.Lock()
	n.touchPeer(ev.Peer).session = true
	n.mu.Unlock()

	n.say("secure session established with %s", n.displayName(ev.Peer))
	n.record("session", ev.Peer, "")
}

// HandleMessageSent resolves the pending send for this request id. The
// tracked callback owns all display output for the request.
func (n *Node) HandleMessageSent(ev protocol.MessageSent) {
	n.requests.Resolve(ev.RequestID, protocol.ProtocolResponse{
		Accepted: ev.Accepted,
		Message:  ackMessage(ev.Accepted),
	})
}

// HandleBundlePublished resolves the pending publish.
func (n *Node) HandleBundlePublished(ev protocol.BundlePublished) {
	n.requests.Resolve(ev.RequestID, protocol.ProtocolResponse{
		Accepted: ev.Accepted,
		Message:  ackMessage(ev.Accepted),
	})
}

// HandleSubscriptionEstablished resolves the pending subscription handshake.
// An unknown subscription id (e.g. relay-initiated resend of EOSE) is a
// silent no-op in the tracker.
func (n *Node) HandleSubscriptionEstablished(ev protocol.SubscriptionEstablished) {
	n.requests.Resolve(ev.SubscriptionID, protocol.ProtocolResponse{
		Accepted: true,
		Message:  "subscription established",
	})
}

// HandleBundleAnnouncement registers a newly seen peer.
func (n *Node) HandleBundleAnnouncement(ev protocol.BundleAnnouncementReceived) {
	n.mu.Lock()
	_, known := n.peers[ev.Pubkey]
	n.touchPeer(ev.Pubkey)
	n.mu.Unlock()

	if !known {
		n.say("discovered peer %s", n.displayName(ev.Pubkey))
		n.record("peer_discovered", ev.Pubkey, "")
	}
}

func ackMessage(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "rejected by relay"
}
