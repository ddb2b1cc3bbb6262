// Package engine implements the murmur core runtime: the single-consumer
// command and transport-event processing loops, the per-transport connection
// monitor, and the Node that ties commands, events, the request tracker, and
// the display queue together.
//
// Nothing runs until the processors are started. Handlers run
// synchronously inside the consuming loop, so all handler invocations on one
// loop are serialized relative to one another.
package engine

import (
	"context"
	"errors"

	"murmur/pkg/protocol"
	"murmur/pkg/queue"
)

// CommandProcessor is the single consumer of the command queue. Each cycle
// pops one command and dispatches it synchronously to the handler.
type CommandProcessor struct {
	commands *queue.Queue[protocol.Command]
	handler  protocol.CommandHandler
}

// NewCommandProcessor wraps one command queue and one handler.
func NewCommandProcessor(commands *queue.Queue[protocol.Command], h protocol.CommandHandler) *CommandProcessor {
	return &CommandProcessor{commands: commands, handler: h}
}

// RunOnce performs one pop-dispatch cycle. It returns the queue's terminal
// error when the queue is cancelled or closed-and-drained.
func (p *CommandProcessor) RunOnce(ctx context.Context) error {
	cmd, err := p.commands.Pop(ctx)
	if err != nil {
		return err
	}
	protocol.DispatchCommand(cmd, p.handler)
	return nil
}

// Run repeats RunOnce until the queue is cancelled, closed, or the context
// ends. All of those are clean loop exits and return nil.
func (p *CommandProcessor) Run(ctx context.Context) error {
	for {
		if err := p.RunOnce(ctx); err != nil {
			return loopExit(err)
		}
	}
}

// EventProcessor is the single consumer of the transport-event queue.
// Variant dispatch is exhaustive by construction (see protocol.TransportEvent).
type EventProcessor struct {
	events  *queue.Queue[protocol.TransportEvent]
	handler protocol.TransportHandler
}

// NewEventProcessor wraps one event queue and one handler.
func NewEventProcessor(events *queue.Queue[protocol.TransportEvent], h protocol.TransportHandler) *EventProcessor {
	return &EventProcessor{events: events, handler: h}
}

// RunOnce performs one pop-dispatch cycle.
func (p *EventProcessor) RunOnce(ctx context.Context) error {
	ev, err := p.events.Pop(ctx)
	if err != nil {
		return err
	}
	protocol.DispatchEvent(ev, p.handler)
	return nil
}

// Run repeats RunOnce until the queue is cancelled, closed, or the context
// ends, then returns nil.
func (p *EventProcessor) Run(ctx context.Context) error {
	for {
		if err := p.RunOnce(ctx); err != nil {
			return loopExit(err)
		}
	}
}

// loopExit maps queue shutdown signals and context cancellation onto a clean
// loop exit. Anything else is surfaced.
func loopExit(err error) error {
	switch {
	case errors.Is(err, queue.ErrCanceled),
		errors.Is(err, queue.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil
	default:
		return err
	}
}
