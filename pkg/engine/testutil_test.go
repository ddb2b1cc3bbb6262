package engine //nolint:testpackage // white-box test needs internal access

import (
	"murmur/pkg/protocol"
	"murmur/pkg/queue"
)

// nopCommandHandler satisfies protocol.CommandHandler; tests embed it and
// override the methods they care about.
type nopCommandHandler struct{}

func (nopCommandHandler) HandleHelp(protocol.Help)                       {}
func (nopCommandHandler) HandlePeers(protocol.Peers)                     {}
func (nopCommandHandler) HandleStatus(protocol.Status)                   {}
func (nopCommandHandler) HandleSessions(protocol.Sessions)               {}
func (nopCommandHandler) HandleScan(protocol.Scan)                       {}
func (nopCommandHandler) HandleVersion(protocol.Version)                 {}
func (nopCommandHandler) HandleSetMode(protocol.SetMode)                 {}
func (nopCommandHandler) HandleSend(protocol.Send)                       {}
func (nopCommandHandler) HandleBroadcast(protocol.Broadcast)             {}
func (nopCommandHandler) HandleConnect(protocol.ConnectRelay)            {}
func (nopCommandHandler) HandlePublishIdentity(protocol.PublishIdentity) {}
func (nopCommandHandler) HandleTrust(protocol.Trust)                     {}
func (nopCommandHandler) HandleVerify(protocol.Verify)                   {}
func (nopCommandHandler) HandleSubscribe(protocol.Subscribe)             {}
func (nopCommandHandler) HandleChat(protocol.Chat)                       {}
func (nopCommandHandler) HandleLeave(protocol.Leave)                     {}

// nopTransportHandler satisfies protocol.TransportHandler for embedding.
type nopTransportHandler struct{}

func (nopTransportHandler) HandleConnected(protocol.Connected)             {}
func (nopTransportHandler) HandleConnectFailed(protocol.ConnectFailed)     {}
func (nopTransportHandler) HandleDisconnected(protocol.Disconnected)       {}
func (nopTransportHandler) HandleSendFailed(protocol.SendFailed)           {}
func (nopTransportHandler) HandleMessageReceived(protocol.MessageReceived) {}
func (nopTransportHandler) HandleSessionEstablished(protocol.SessionEstablished) {
}
func (nopTransportHandler) HandleMessageSent(protocol.MessageSent)         {}
func (nopTransportHandler) HandleBundlePublished(protocol.BundlePublished) {}
func (nopTransportHandler) HandleSubscriptionEstablished(protocol.SubscriptionEstablished) {
}
func (nopTransportHandler) HandleBundleAnnouncement(protocol.BundleAnnouncementReceived) {
}

// drainDisplay pops every buffered display line.
func drainDisplay(q *queue.Queue[protocol.DisplayMessage]) []string {
	var out []string
	for {
		msg, ok := q.TryPop()
		if !ok {
			return out
		}
		out = append(out, msg.Text)
	}
}

// fakeRelay returns canned request ids and records calls.
type fakeRelay struct {
	nextID string
	calls  []string
}

func (r *fakeRelay) Dial(url string) {
	r.calls = append(r.calls, "dial:"+url)
}

func (r *fakeRelay) SendEncrypted(peer, message string) (string, error) {
	r.calls = append(r.calls, "send:"+peer+":"+message)
	return r.nextID, nil
}

func (r *fakeRelay) Broadcast(message string) (string, error) {
	r.calls = append(r.calls, "broadcast:"+message)
	return r.nextID, nil
}

func (r *fakeRelay) PublishBundle() (string, error) {
	r.calls = append(r.calls, "publish")
	return r.nextID, nil
}

func (r *fakeRelay) Subscribe(filterJSON string) (string, error) {
	r.calls = append(r.calls, "subscribe:"+filterJSON)
	return r.nextID, nil
}
