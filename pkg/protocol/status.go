package protocol

// TransportState is the last observed state for one transport type.
// Last-write-wins; no history is retained.
type TransportState struct {
	Connected bool
	URL       string
	Error     string
	Timestamp uint64
}

// ConnectionStatus is a point-in-time snapshot of per-transport state.
// An absent key means the transport was never observed.
type ConnectionStatus map[TransportType]*TransportState

// Clone returns a deep copy so callers never hold a live reference into
// monitor internals.
func (s ConnectionStatus) Clone() ConnectionStatus {
	out := make(ConnectionStatus, len(s))
	for k, v := range s {
		if v == nil {
			continue
		}
		cp := *v
		out[k] = &cp
	}
	return out
}
