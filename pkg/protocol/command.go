// Package protocol defines the closed command and transport-event sets that
// flow through the murmur core, the connection-state snapshot types, the
// request/response correlation types, and the typed errors shared across
// packages. It has no behavior of its own beyond dispatch plumbing; the
// processing loops live in pkg/engine.
package protocol

// RawCommand is an unparsed input line. It is the only type the presentation
// layer hands to the command parser; the core itself consumes parsed Command
// values and assumes they are well-formed.
type RawCommand struct {
	Line string
}

// Command is the closed set of user intents. Each variant carries its own
// dispatch method so that handler dispatch is total: adding a variant without
// a corresponding CommandHandler method is a compile error, not a silently
// dropped case.
type Command interface {
	dispatch(h CommandHandler)
}

// CommandHandler is the capability contract for command processing: one
// method per Command variant.
type CommandHandler interface {
	HandleHelp(c Help)
	HandlePeers(c Peers)
	HandleStatus(c Status)
	HandleSessions(c Sessions)
	HandleScan(c Scan)
	HandleVersion(c Version)
	HandleSetMode(c SetMode)
	HandleSend(c Send)
	HandleBroadcast(c Broadcast)
	HandleConnect(c ConnectRelay)
	HandlePublishIdentity(c PublishIdentity)
	HandleTrust(c Trust)
	HandleVerify(c Verify)
	HandleSubscribe(c Subscribe)
	HandleChat(c Chat)
	HandleLeave(c Leave)
}

// DispatchCommand routes c to the matching handler method.
func DispatchCommand(c Command, h CommandHandler) {
	c.dispatch(h)
}

// Help requests the command summary.
type Help struct{}

// Peers requests the known-peer listing.
type Peers struct{}

// Status requests a connection status summary.
type Status struct{}

// Sessions requests the established-session listing.
type Sessions struct{}

// Scan requests a scan for nearby transports.
type Scan struct{}

// Version requests the build version.
type Version struct{}

// SetMode switches the input mode (e.g. "command", "chat").
type SetMode struct {
	NewMode string
}

// Send delivers an encrypted message to one peer.
type Send struct {
	Peer    string
	Message string
}

// Broadcast delivers a message to every connected peer.
type Broadcast struct {
	Message string
}

// ConnectRelay dials the named relay.
type ConnectRelay struct {
	Relay string
}

// PublishIdentity publishes the local key bundle to the relay network.
type PublishIdentity struct{}

// Trust assigns a local alias to a peer.
type Trust struct {
	Peer  string
	Alias string
}

// Verify requests the fingerprint of a peer for manual comparison.
type Verify struct {
	Peer string
}

// Subscribe opens a relay subscription with the given filter.
type Subscribe struct {
	FilterJSON string
}

// Chat enters interactive chat mode.
type Chat struct{}

// Leave exits chat mode.
type Leave struct{}

func (c Help) dispatch(h CommandHandler)            { h.HandleHelp(c) }
func (c Peers) dispatch(h CommandHandler)           { h.HandlePeers(c) }
func (c Status) dispatch(h CommandHandler)          { h.HandleStatus(c) }
func (c Sessions) dispatch(h CommandHandler)        { h.HandleSessions(c) }
func (c Scan) dispatch(h CommandHandler)            { h.HandleScan(c) }
func (c Version) dispatch(h CommandHandler)         { h.HandleVersion(c) }
func (c SetMode) dispatch(h CommandHandler)         { h.HandleSetMode(c) }
func (c Send) dispatch(h CommandHandler)            { h.HandleSend(c) }
func (c Broadcast) dispatch(h CommandHandler)       { h.HandleBroadcast(c) }
func (c ConnectRelay) dispatch(h CommandHandler)    { h.HandleConnect(c) }
func (c PublishIdentity) dispatch(h CommandHandler) { h.HandlePublishIdentity(c) }
func (c Trust) dispatch(h CommandHandler)           { h.HandleTrust(c) }
func (c Verify) dispatch(h CommandHandler)          { h.HandleVerify(c) }
func (c Subscribe) dispatch(h CommandHandler)       { h.HandleSubscribe(c) }
func (c Chat) dispatch(h CommandHandler)            { h.HandleChat(c) }
func (c Leave) dispatch(h CommandHandler)           { h.HandleLeave(c) }
