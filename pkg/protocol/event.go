package protocol

// TransportType identifies a transport link. The set is open: new transports
// only need a new constant and a driver that emits events tagged with it.
type TransportType string

// Known transport types.
const (
	TransportInternet  TransportType = "internet"
	TransportBluetooth TransportType = "bluetooth"
)

// TransportEvent is the closed set of inbound transport and protocol-level
// events. Dispatch is exhaustive by construction: every variant names the
// TransportHandler method that consumes it.
type TransportEvent interface {
	dispatch(h TransportHandler)
}

// TransportHandler is the capability contract for transport-event processing:
// one method per TransportEvent variant.
type TransportHandler interface {
	HandleConnected(ev Connected)
	HandleConnectFailed(ev ConnectFailed)
	HandleDisconnected(ev Disconnected)
	HandleSendFailed(ev SendFailed)
	HandleMessageReceived(ev MessageReceived)
	HandleSessionEstablished(ev SessionEstablished)
	HandleMessageSent(ev MessageSent)
	HandleBundlePublished(ev BundlePublished)
	HandleSubscriptionEstablished(ev SubscriptionEstablished)
	HandleBundleAnnouncement(ev BundleAnnouncementReceived)
}

// DispatchEvent routes ev to the matching handler method.
func DispatchEvent(ev TransportEvent, h TransportHandler) {
	ev.dispatch(h)
}

// Connected reports that a transport link came up.
type Connected struct {
	Transport TransportType
	URL       string
	Timestamp uint64
}

// ConnectFailed reports a failed connection attempt.
type ConnectFailed struct {
	Transport TransportType
	URL       string
	Err       string
	Timestamp uint64
}

// Disconnected reports that an established link dropped.
type Disconnected struct {
	Transport TransportType
	Timestamp uint64
}

// SendFailed reports a failed delivery to one peer. A send failure is
// transient and does not by itself imply the link dropped.
type SendFailed struct {
	Transport TransportType
	Peer      string
	Err       string
}

// MessageReceived carries a decrypted inbound message.
type MessageReceived struct {
	Sender    string
	Content   string
	Timestamp uint64
}

// SessionEstablished reports a completed key exchange with a peer.
type SessionEstablished struct {
	Peer string
}

// MessageSent is the relay's acknowledgement of an outbound message.
type MessageSent struct {
	Peer      string
	RequestID string
	Accepted  bool
}

// BundlePublished is the relay's acknowledgement of a key-bundle publish.
type BundlePublished struct {
	RequestID string
	Accepted  bool
}

// SubscriptionEstablished reports that a relay subscription finished its
// stored-event backlog (the EOSE signal).
type SubscriptionEstablished struct {
	SubscriptionID string
}

// BundleAnnouncementReceived reports that a peer's key bundle was seen on the
// relay network.
type BundleAnnouncementReceived struct {
	Pubkey string
}

func (ev Connected) dispatch(h TransportHandler)          { h.HandleConnected(ev) }
func (ev ConnectFailed) dispatch(h TransportHandler)      { h.HandleConnectFailed(ev) }
func (ev Disconnected) dispatch(h TransportHandler)       { h.HandleDisconnected(ev) }
func (ev SendFailed) dispatch(h TransportHandler)         { h.HandleSendFailed(ev) }
func (ev MessageReceived) dispatch(h TransportHandler)    { h.HandleMessageReceived(ev) }
func (ev SessionEstablished) dispatch(h TransportHandler) { h.HandleSessionEstablished(ev) }
func (ev MessageSent) dispatch(h TransportHandler)        { h.HandleMessageSent(ev) }
func (ev BundlePublished) dispatch(h TransportHandler)    { h.HandleBundlePublished(ev) }
func (ev SubscriptionEstablished) dispatch(h TransportHandler) {
	h.HandleSubscriptionEstablished(ev)
}
func (ev BundleAnnouncementReceived) dispatch(h TransportHandler) {
	h.HandleBundleAnnouncement(ev)
}
