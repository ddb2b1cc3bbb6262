package protocol

import "fmt"

// UnknownPeerError represents a command referencing a peer the node has never
// observed. It enables typed error discrimination via errors.As.
type UnknownPeerError struct {
	Peer string
}

func (e *UnknownPeerError) Error() string {
	return fmt.Sprintf("unknown peer %s", e.Peer)
}

// RelayDialError represents a failed relay connection attempt with the
// dialed URL preserved for display.
type RelayDialError struct {
	URL    string
	Reason string
}

func (e *RelayDialError) Error() string {
	return fmt.Sprintf("relay dial %s failed: %s", e.URL, e.Reason)
}

// NotConnectedError represents an operation that requires a live transport
// link when none is up.
type NotConnectedError struct {
	Transport TransportType
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("transport %s not connected", e.Transport)
}
