package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"murmur/internal/version"
	"murmur/pkg/config"
	"murmur/pkg/engine"
	"murmur/pkg/history"
	"murmur/pkg/protocol"
	"murmur/pkg/queue"
	"murmur/pkg/relay"
	"murmur/pkg/tracker"
)

// newRunCmd creates the "murmur run" subcommand.
func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the murmur node",
		Long:  "Starts the node loops, connects to the configured relay,\nand opens the interactive console.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), *configPath)
		},
	}
}

// runNode wires the queues, loops, relay client, and console together and
// blocks until the console exits or ctx is cancelled.
func runNode(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Activity log is best-effort: the node runs without it.
	var recorder engine.Recorder
	rec, err := history.NewRecorder(filepath.Join(cfg.DataDir, "node.db"))
	if err != nil {
		log.Printf("activity log unavailable: %v", err)
	} else {
		recorder = rec
		defer func() { _ = rec.Close() }()
	}

	presets, err := config.LoadPresets(filepath.Join(filepath.Dir(configPath), "filters.yaml"))
	if err != nil {
		log.Printf("filter presets unavailable: %v", err)
		presets = map[string]config.Preset{}
	}

	commands := queue.New[protocol.Command](cfg.CommandQueueSize)
	events := queue.New[protocol.TransportEvent](cfg.EventQueueSize)
	display := queue.New[protocol.DisplayMessage](cfg.DisplayQueueSize)

	requests := tracker.New()
	defer requests.Shutdown()

	monitor := engine.NewConnMonitor()
	relayClient := relay.NewClient(relay.Config{}, events, nil)
	defer func() { _ = relayClient.Close() }()

	node := engine.NewNode(engine.Config{
		RequestTimeout: time.Duration(cfg.RequestTimeout),
		InitialMode:    cfg.InitialMode,
		VersionString:  version.String(),
	}, display, monitor, requests, relayClient, nil, nil, recorder)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := engine.NewCommandProcessor(commands, node).Run(ctx); err != nil {
			log.Printf("command loop: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := engine.NewEventProcessor(events, node).Run(ctx); err != nil {
			log.Printf("event loop: %v", err)
		}
	}()

	// Hot-reload: a changed relay_url redials through the normal command path.
	go func() {
		lastURL := cfg.RelayURL
		config.Watch(ctx, configPath, time.Minute, func(next config.Config) {
			if next.RelayURL != lastURL && next.RelayURL != "" {
				lastURL = next.RelayURL
				_ = commands.Push(protocol.ConnectRelay{Relay: next.RelayURL})
			}
		})
	}()

	if cfg.RelayURL != "" {
		_ = commands.Push(protocol.ConnectRelay{Relay: cfg.RelayURL})
	}

	session := &consoleSession{
		commands: commands,
		display:  display,
		node:     node,
		presets:  presets,
	}

	if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
		err = runConsole(ctx, session)
	} else {
		err = runPlain(ctx, session, os.Stdin, os.Stdout)
	}

	// Command queue drains before exit; the event queue drops its backlog.
	commands.Close()
	events.Cancel()
	display.Cancel()
	stop()
	wg.Wait()
	return err
}

// consoleSession is the state shared by both console front ends.
type consoleSession struct {
	commands *queue.Queue[protocol.Command]
	display  *queue.Queue[protocol.DisplayMessage]
	node     *engine.Node
	presets  map[string]config.Preset
}

// submit parses one input line and pushes the resulting command. The returned
// string is immediate feedback for the console (parse errors, backpressure);
// empty means the command was queued.
func (s *consoleSession) submit(line string) string {
	cmd, err := parseLine(line, s.node.Mode())
	if err != nil {
		return err.Error()
	}
	if cmd == nil {
		return ""
	}
	cmd = s.resolvePreset(cmd)
	if err := s.commands.Push(cmd); err != nil {
		return "busy, command dropped: " + err.Error()
	}
	return ""
}

// resolvePreset expands a subscribe-by-preset-name into its filter JSON.
func (s *consoleSession) resolvePreset(cmd protocol.Command) protocol.Command {
	sub, ok := cmd.(protocol.Subscribe)
	if !ok {
		return cmd
	}
	preset, ok := s.presets[sub.FilterJSON]
	if !ok {
		return cmd
	}
	filter, err := preset.FilterJSON()
	if err != nil {
		return cmd
	}
	return protocol.Subscribe{FilterJSON: filter}
}
