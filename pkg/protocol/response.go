package protocol

import "github.com/google/uuid"

// ProtocolResponse is the value delivered to a pending request's callback,
// either relayed from the network or synthesized on timeout.
type ProtocolResponse struct {
	RequestID string
	Accepted  bool
	Message   string
}

// DisplayMessage is a plain text line emitted for presentation. The core only
// writes these; presentation code is a queue consumer with no write access
// back into core state.
type DisplayMessage struct {
	Text string
}

// NewRequestID returns an opaque identifier correlating one outbound request
// to its eventual acknowledgement. Pure free function; no process-global
// state beyond the uuid source.
func NewRequestID() string {
	return uuid.New().String()
}
