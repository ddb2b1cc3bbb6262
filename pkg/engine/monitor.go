package engine

import (
	"fmt"
	"sort"
	"sync"

	"murmur/pkg/protocol"
	"murmur/pkg/queue"
)

// ConnMonitor tracks the last observed state per transport type. Transitions
// are deterministic and last-write-wins; no history is retained. Handle is
// the sole mutator.
type ConnMonitor struct {
	mu     sync.Mutex
	states protocol.ConnectionStatus
}

// NewConnMonitor creates a monitor with no observed transports.
func NewConnMonitor() *ConnMonitor {
	return &ConnMonitor{states: make(protocol.ConnectionStatus)}
}

// Handle applies one state transition for events that carry connectivity
// semantics. All other TransportEvent variants are informational and leave
// monitor state untouched.
func (m *ConnMonitor) Handle(ev protocol.TransportEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := ev.(type) {
	case protocol.Connected:
		m.states[e.Transport] = &protocol.TransportState{
			Connected: true,
			URL:       e.URL,
			Timestamp: e.Timestamp,
		}
	case protocol.ConnectFailed:
		m.states[e.Transport] = &protocol.TransportState{
			Connected: false,
			URL:       e.URL,
			Error:     e.Err,
			Timestamp: e.Timestamp,
		}
	case protocol.Disconnected:
		prev := m.states[e.Transport]
		url := ""
		if prev != nil {
			url = prev.URL
		}
		m.states[e.Transport] = &protocol.TransportState{
			Connected: false,
			URL:       url,
			Timestamp: e.Timestamp,
		}
	case protocol.SendFailed:
		// Transient: record the error, leave the connected flag alone.
		st := m.states[e.Transport]
		if st == nil {
			st = &protocol.TransportState{}
			m.states[e.Transport] = st
		}
		st.Error = e.Err
	}
}

// Status returns an immutable snapshot; never a live reference to internal
// state.
func (m *ConnMonitor) Status() protocol.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states.Clone()
}

// EmitStatus pushes a formatted status summary onto the display queue. This
// is the query_status side effect; Status remains independently callable.
func (m *ConnMonitor) EmitStatus(display *queue.Queue[protocol.DisplayMessage]) {
	for _, line := range m.summary() {
		_ = display.Push(protocol.DisplayMessage{Text: line})
	}
}

// summary renders one line per transport in a stable order. Transports never
// observed render as unknown.
func (m *ConnMonitor) summary() []string {
	status := m.Status()

	types := []protocol.TransportType{protocol.TransportInternet, protocol.TransportBluetooth}
	var extra []string
	for t := range status {
		if t != protocol.TransportInternet && t != protocol.TransportBluetooth {
			extra = append(extra, string(t))
		}
	}
	sort.Strings(extra)
	for _, t := range extra {
		types = append(types, protocol.TransportType(t))
	}

	lines := make([]string, 0, len(types))
	for _, t := range types {
		st, ok := status[t]
		switch {
		case !ok:
			lines = append(lines, fmt.Sprintf("%s: unknown", t))
		case st.Connected:
			lines = append(lines, fmt.Sprintf("%s: connected %s", t, st.URL))
		case st.Error != "":
			lines = append(lines, fmt.Sprintf("%s: disconnected (%s)", t, st.Error))
		default:
			lines = append(lines, fmt.Sprintf("%s: disconnected", t))
		}
	}
	return lines
}
