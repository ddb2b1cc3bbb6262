// Package relay implements the websocket client for the public event-relay
// network. It is the producer side of the core's transport-event queue: dial
// outcomes, inbound protocol events, and relay acknowledgements all surface
// as protocol.TransportEvent values. Encryption is delegated to a Cipher; the
// client never inspects key material.
//
// Wire format: JSON array frames, first element is the frame tag.
//
//	client -> relay:  ["MSG", requestID, peer, ciphertext]
//	                  ["BCAST", requestID, ciphertext]
//	                  ["BUNDLE", requestID, bundle]
//	                  ["REQ", subscriptionID, filter]
//	relay -> client:  ["OK", requestID, accepted, message]
//	                  ["EOSE", subscriptionID]
//	                  ["EVENT", subscriptionID, {kind, sender, content, ts, pubkey}]
//	                  ["BUNDLE", pubkey]
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"murmur/pkg/protocol"
	"murmur/pkg/queue"
)

// Stream is the contract a transport driver (radio, socket) satisfies. This
// core consumes drivers as event sources and payload sinks; it never inspects
// transport internals. The websocket path below has its own lifecycle and the
// bluetooth driver lives outside this module.
type Stream interface {
	Connect(ctx context.Context, params string) error
	Write(ctx context.Context, payload []byte) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Cipher is the boundary to the key-exchange/cipher module.
type Cipher interface {
	// Encrypt produces the ciphertext for one peer.
	Encrypt(peer, plaintext string) (string, error)
	// Decrypt recovers the plaintext of an inbound message.
	Decrypt(sender, ciphertext string) (string, error)
	// Bundle renders the local public key bundle for publishing.
	Bundle() (string, error)
}

// ackKind distinguishes which event an OK frame resolves into.
type ackKind struct {
	bundle bool
	peer   string
}

// Config holds Client configuration.
type Config struct {
	DialTimeout  time.Duration // websocket dial timeout (default 10s).
	WriteTimeout time.Duration // per-frame write deadline (default 5s).
}

func (c Config) withDefaults() Config {
	out := c
	if out.DialTimeout == 0 {
		out.DialTimeout = 10 * time.Second
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = 5 * time.Second
	}
	return out
}

// Client is a relay connection manager. One Client serves one relay at a
// time; Dial replaces any previous connection.
type Client struct {
	cfg    Config
	events *queue.Queue[protocol.TransportEvent]
	cipher Cipher

	// nowFunc allows tests to control timestamps.
	nowFunc func() time.Time

	mu      sync.Mutex
	conn    *websocket.Conn
	url     string
	pending map[string]ackKind // request id -> ack routing
}

// NewClient creates a Client pushing events onto the given queue.
func NewClient(cfg Config, events *queue.Queue[protocol.TransportEvent], cipher Cipher) *Client {
	return &Client{
		cfg:     cfg.withDefaults(),
		events:  events,
		cipher:  cipher,
		nowFunc: time.Now,
		pending: make(map[string]ackKind),
	}
}

// Dial connects to the relay asynchronously. The outcome arrives on the event
// queue as Connected or ConnectFailed; an established connection starts the
// read loop.
func (c *Client) Dial(url string) {
	go func() {
		dialer := &websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
		conn, _, err := dialer.Dial(url, nil) //nolint:bodyclose // gorilla response body is owned by the conn
		if err != nil {
			c.push(protocol.ConnectFailed{
				Transport: protocol.TransportInternet,
				URL:       url,
				Err:       err.Error(),
				Timestamp: c.now(),
			})
			return
		}

		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.conn = conn
		c.url = url
		c.mu.Unlock()

		c.push(protocol.Connected{
			Transport: protocol.TransportInternet,
			URL:       url,
			Timestamp: c.now(),
		})
		go c.readLoop(conn)
	}()
}

// Close tears down the current connection, if any. The read loop reports the
// resulting Disconnected event.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// SendEncrypted encrypts message for peer and writes a MSG frame. The
// returned request id is acknowledged later via a MessageSent event.
func (c *Client) SendEncrypted(peer, message string) (string, error) {
	ciphertext, err := c.encrypt(peer, message)
	if err != nil {
		return "", fmt.Errorf("encrypt for %s: %w", peer, err)
	}
	requestID := protocol.NewRequestID()
	if err := c.writeFrame(peer, []any{"MSG", requestID, peer, ciphertext}); err != nil {
		return "", err
	}
	c.rememberAck(requestID, ackKind{peer: peer})
	return requestID, nil
}

// Broadcast writes a BCAST frame for all connected peers.
func (c *Client) Broadcast(message string) (string, error) {
	requestID := protocol.NewRequestID()
	if err := c.writeFrame("", []any{"BCAST", requestID, message}); err != nil {
		return "", err
	}
	c.rememberAck(requestID, ackKind{})
	return requestID, nil
}

// PublishBundle writes the local key bundle. Acknowledged via a
// BundlePublished event.
func (c *Client) PublishBundle() (string, error) {
	bundle, err := c.bundle()
	if err != nil {
		return "", fmt.Errorf("render bundle: %w", err)
	}
	requestID := protocol.NewRequestID()
	if err := c.writeFrame("", []any{"BUNDLE", requestID, bundle}); err != nil {
		return "", err
	}
	c.rememberAck(requestID, ackKind{bundle: true})
	return requestID, nil
}

// Subscribe opens a subscription; the relay signals end-of-backlog with an
// EOSE frame carrying the returned subscription id.
func (c *Client) Subscribe(filterJSON string) (string, error) {
	subID := protocol.NewRequestID()

	// Pass well-formed filters through as JSON; anything else rides as a
	// plain string. Payload parsing beyond this is out of scope here.
	var filter any = filterJSON
	var raw json.RawMessage
	if json.Unmarshal([]byte(filterJSON), &raw) == nil {
		filter = raw
	}

	if err := c.writeFrame("", []any{"REQ", subID, filter}); err != nil {
		return "", err
	}
	return subID, nil
}

// --- Internals ---

func (c *Client) encrypt(peer, plaintext string) (string, error) {
	if c.cipher == nil {
		return plaintext, nil
	}
	return c.cipher.Encrypt(peer, plaintext)
}

func (c *Client) decrypt(sender, ciphertext string) (string, error) {
	if c.cipher == nil {
		return ciphertext, nil
	}
	return c.cipher.Decrypt(sender, ciphertext)
}

func (c *Client) bundle() (string, error) {
	if c.cipher == nil {
		return "", fmt.Errorf("no cipher module configured")
	}
	return c.cipher.Bundle()
}

// writeFrame marshals and writes one frame under the connection mutex. Write
// failures surface both as a returned error and as a SendFailed event so the
// connection monitor records them.
func (c *Client) writeFrame(peer string, frame []any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return &protocol.NotConnectedError{Transport: protocol.TransportInternet}
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.push(protocol.SendFailed{
			Transport: protocol.TransportInternet,
			Peer:      peer,
			Err:       err.Error(),
		})
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Client) rememberAck(requestID string, kind ackKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[requestID] = kind
}

func (c *Client) takeAck(requestID string) (ackKind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kind, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	return kind, ok
}

// readLoop consumes frames until the connection drops, then reports
// Disconnected. It exits when conn is no longer the active connection.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			active := c.conn == conn
			if active {
				c.conn = nil
			}
			c.mu.Unlock()
			if active {
				c.push(protocol.Disconnected{
					Transport: protocol.TransportInternet,
					Timestamp: c.now(),
				})
			}
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame maps one inbound frame onto transport events. Unknown tags are
// logged and skipped; this client only extracts the fields it routes on.
func (c *Client) handleFrame(data []byte) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) == 0 {
		log.Printf("relay: discarding malformed frame: %.80s", data)
		return
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		log.Printf("relay: discarding frame with non-string tag: %.80s", data)
		return
	}

	switch tag {
	case "OK":
		c.handleOK(parts)
	case "EOSE":
		if len(parts) < 2 {
			return
		}
		var subID string
		if json.Unmarshal(parts[1], &subID) != nil {
			return
		}
		c.push(protocol.SubscriptionEstablished{SubscriptionID: subID})
	case "EVENT":
		c.handleEvent(parts)
	case "BUNDLE":
		if len(parts) < 2 {
			return
		}
		var pubkey string
		if json.Unmarshal(parts[1], &pubkey) != nil {
			return
		}
		c.push(protocol.BundleAnnouncementReceived{Pubkey: pubkey})
	default:
		log.Printf("relay: ignoring unknown frame tag %q", tag)
	}
}

// handleOK resolves an acknowledgement into MessageSent or BundlePublished,
// depending on what the request id was issued for. Unsolicited OKs still
// surface as MessageSent so the tracker's no-op resolve path applies.
func (c *Client) handleOK(parts []json.RawMessage) {
	if len(parts) < 3 {
		return
	}
	var requestID string
	var accepted bool
	if json.Unmarshal(parts[1], &requestID) != nil || json.Unmarshal(parts[2], &accepted) != nil {
		return
	}

	kind, known := c.takeAck(requestID)
	if known && kind.bundle {
		c.push(protocol.BundlePublished{RequestID: requestID, Accepted: accepted})
		return
	}
	c.push(protocol.MessageSent{Peer: kind.peer, RequestID: requestID, Accepted: accepted})
}

// eventPayload is the minimal field extraction this core performs on relay
// events; full payload parsing belongs to the protocol layer above.
type eventPayload struct {
	Kind    string `json:"kind"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Pubkey  string `json:"pubkey"`
	TS      uint64 `json:"ts"`
}

func (c *Client) handleEvent(parts []json.RawMessage) {
	if len(parts) < 3 {
		return
	}
	var payload eventPayload
	if err := json.Unmarshal(parts[2], &payload); err != nil {
		log.Printf("relay: discarding malformed event payload: %v", err)
		return
	}

	switch payload.Kind {
	case "message":
		plaintext, err := c.decrypt(payload.Sender, payload.Content)
		if err != nil {
			log.Printf("relay: dropping undecryptable message from %s: %v", payload.Sender, err)
			return
		}
		ts := payload.TS
		if ts == 0 {
			ts = c.now()
		}
		c.push(protocol.MessageReceived{Sender: payload.Sender, Content: plaintext, Timestamp: ts})
	case "bundle":
		c.push(protocol.BundleAnnouncementReceived{Pubkey: payload.Pubkey})
	case "session":
		c.push(protocol.SessionEstablished{Peer: payload.Sender})
	default:
		log.Printf("relay: ignoring event kind %q", payload.Kind)
	}
}

// push enqueues one event. A full event queue is a hard backpressure signal;
// the frame is dropped with a log line rather than blocking the read loop.
func (c *Client) push(ev protocol.TransportEvent) {
	if err := c.events.Push(ev); err != nil {
		log.Printf("relay: event queue rejected %T: %v", ev, err)
	}
}

func (c *Client) now() uint64 {
	return uint64(c.nowFunc().Unix())
}
