package main

import (
	"fmt"
	"strings"

	"murmur/pkg/protocol"
)

// parseLine turns one line of console input into a command. mode decides what
// bare text means: in chat mode it broadcasts, in command mode it is an
// error. Blank lines yield (nil, nil).
func parseLine(line, mode string) (protocol.Command, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, nil
	}

	if !strings.HasPrefix(trimmed, "/") {
		if mode == "chat" {
			return protocol.Broadcast{Message: trimmed}, nil
		}
		return nil, fmt.Errorf("not a command: %q (try /help, or /chat to enter chat mode)", trimmed)
	}

	fields := strings.Fields(trimmed)
	name := strings.TrimPrefix(fields[0], "/")
	args := fields[1:]

	// rest skips n leading tokens and returns the remainder with interior
	// whitespace preserved, so message bodies survive intact.
	rest := func(n int) string {
		s := trimmed
		for i := 0; i < n; i++ {
			s = strings.TrimLeft(s, " \t")
			cut := strings.IndexAny(s, " \t")
			if cut < 0 {
				return ""
			}
			s = s[cut:]
		}
		return strings.TrimLeft(s, " \t")
	}

	switch name {
	case "help":
		return protocol.Help{}, nil
	case "peers":
		return protocol.Peers{}, nil
	case "status":
		return protocol.Status{}, nil
	case "sessions":
		return protocol.Sessions{}, nil
	case "scan":
		return protocol.Scan{}, nil
	case "version":
		return protocol.Version{}, nil
	case "chat":
		return protocol.Chat{}, nil
	case "leave":
		return protocol.Leave{}, nil
	case "publish":
		return protocol.PublishIdentity{}, nil
	case "mode":
		if len(args) != 1 || (args[0] != "command" && args[0] != "chat") {
			return nil, fmt.Errorf("usage: /mode <command|chat>")
		}
		return protocol.SetMode{NewMode: args[0]}, nil
	case "send":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: /send <peer> <message>")
		}
		return protocol.Send{Peer: args[0], Message: rest(2)}, nil
	case "broadcast":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: /broadcast <message>")
		}
		return protocol.Broadcast{Message: rest(1)}, nil
	case "connect":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: /connect <relay-url>")
		}
		return protocol.ConnectRelay{Relay: args[0]}, nil
	case "trust":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("usage: /trust <peer> [alias]")
		}
		cmd := protocol.Trust{Peer: args[0]}
		if len(args) == 2 {
			cmd.Alias = args[1]
		}
		return cmd, nil
	case "verify":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: /verify <peer>")
		}
		return protocol.Verify{Peer: args[0]}, nil
	case "subscribe":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: /subscribe <filter-json|preset-name>")
		}
		return protocol.Subscribe{FilterJSON: rest(1)}, nil
	default:
		return nil, fmt.Errorf("unknown command /%s (try /help)", name)
	}
}
