// Package relay drives the conversation pipeline: inbound webhook events in,
// Engine turns in the middle, Send API payloads out.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/tinyland-inc/fbrelay/pkg/bus"
	"github.com/tinyland-inc/fbrelay/pkg/logger"
	"github.com/tinyland-inc/fbrelay/pkg/messenger"
	"github.com/tinyland-inc/fbrelay/pkg/session"
	"github.com/tinyland-inc/fbrelay/pkg/teneo"
	"github.com/tinyland-inc/fbrelay/pkg/translate"
)

// EngineClient is the Engine surface the relay needs.
type EngineClient interface {
	SendInput(ctx context.Context, sessionID string, in teneo.Input) (*teneo.Response, error)
	EngineURL() string
}

// Sender delivers one Send API payload.
type Sender interface {
	Send(ctx context.Context, payload messenger.Payload) error
}

// Relay consumes inbound messages, runs one Engine turn per message, and
// publishes the translated payloads. Turns for the same sender run strictly
// in order; different senders never block each other.
type Relay struct {
	bus      *bus.MessageBus
	engine   EngineClient
	sender   Sender
	sessions session.Store
	channel  string

	engineTimeout time.Duration
	sendTimeout   time.Duration

	mu      sync.Mutex
	pending map[string][]bus.InboundMessage

	wg sync.WaitGroup
}

func New(b *bus.MessageBus, engine EngineClient, sender Sender, sessions session.Store, channel string, engineTimeout, sendTimeout time.Duration) *Relay {
	return &Relay{
		bus:           b,
		engine:        engine,
		sender:        sender,
		sessions:      sessions,
		channel:       channel,
		engineTimeout: engineTimeout,
		sendTimeout:   sendTimeout,
		pending:       make(map[string][]bus.InboundMessage),
	}
}

// Run blocks until ctx is cancelled or the bus closes, dispatching inbound
// messages to per-sender workers and draining outbound payloads to the Send
// API. Call Stop afterwards to wait for in-flight turns.
func (r *Relay) Run(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.senderLoop(ctx)
	}()

	for {
		msg, ok := r.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		r.dispatch(ctx, msg)
	}
}

// Stop waits for all in-flight turns and deliveries to finish.
func (r *Relay) Stop() {
	r.wg.Wait()
}

// dispatch queues msg behind any earlier messages from the same sender,
// spawning a drain worker if none is running for that sender.
func (r *Relay) dispatch(ctx context.Context, msg bus.InboundMessage) {
	r.mu.Lock()
	queue, running := r.pending[msg.SenderID]
	r.pending[msg.SenderID] = append(queue, msg)
	r.mu.Unlock()

	if running {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.drainSender(ctx, msg.SenderID)
	}()
}

func (r *Relay) drainSender(ctx context.Context, senderID string) {
	for {
		msg, ok := r.nextFor(senderID)
		if !ok {
			return
		}
		r.processTurn(ctx, msg)
	}
}

// nextFor pops the oldest pending message for senderID. The key stays in the
// map while a popped turn is still running, even with an empty queue: its
// presence is what tells dispatch a worker is alive. It is removed only when
// the worker finds nothing left and exits.
func (r *Relay) nextFor(senderID string) (bus.InboundMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := r.pending[senderID]
	if len(queue) == 0 {
		delete(r.pending, senderID)
		return bus.InboundMessage{}, false
	}
	msg := queue[0]
	r.pending[senderID] = queue[1:]
	return msg, true
}

// processTurn runs one full conversation turn. A failure anywhere drops the
// turn with an error log; the sender's later messages still get processed.
func (r *Relay) processTurn(ctx context.Context, msg bus.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("relay", "Panic while processing turn", map[string]any{
				"sender":     msg.SenderID,
				"request_id": msg.RequestID,
				"panic":      rec,
			})
		}
	}()

	r.sendAction(ctx, msg.SenderID, messenger.ActionMarkSeen)
	r.sendAction(ctx, msg.SenderID, messenger.ActionTypingOn)

	sessionID, err := r.sessions.Get(ctx, msg.SenderID)
	if err != nil {
		logger.ErrorCF("relay", "Session lookup failed, dropping turn", map[string]any{
			"sender":     msg.SenderID,
			"request_id": msg.RequestID,
			"error":      err.Error(),
		})
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, r.engineTimeout)
	resp, err := r.engine.SendInput(turnCtx, sessionID, teneo.Input{Text: msg.Text, Channel: r.channel})
	cancel()
	if err != nil {
		logger.ErrorCF("relay", "Engine turn failed", map[string]any{
			"sender":     msg.SenderID,
			"request_id": msg.RequestID,
			"engine":     r.engine.EngineURL(),
			"error":      err.Error(),
		})
		return
	}

	if err := r.sessions.Set(ctx, msg.SenderID, resp.SessionID); err != nil {
		logger.ErrorCF("relay", "Session save failed, dropping turn", map[string]any{
			"sender":     msg.SenderID,
			"request_id": msg.RequestID,
			"error":      err.Error(),
		})
		return
	}

	logger.DebugCF("relay", "Engine turn complete", map[string]any{
		"sender":     msg.SenderID,
		"request_id": msg.RequestID,
		"session":    resp.SessionID,
	})

	for _, payload := range translate.Convert(msg.SenderID, resp.Output) {
		out := bus.OutboundMessage{
			RecipientID: msg.SenderID,
			RequestID:   msg.RequestID,
			Payload:     payload,
		}
		if err := r.bus.PublishOutbound(ctx, out); err != nil {
			logger.WarnCF("relay", "Outbound publish failed", map[string]any{
				"sender":     msg.SenderID,
				"request_id": msg.RequestID,
				"error":      err.Error(),
			})
			return
		}
	}
}

// sendAction fires a sender action without waiting for it. Actions are
// cosmetic; a failure is logged at debug and never blocks the turn.
func (r *Relay) sendAction(ctx context.Context, recipientID, action string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		actionCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		defer cancel()
		if err := r.sender.Send(actionCtx, messenger.SenderAction(recipientID, action)); err != nil {
			logger.DebugCF("relay", "Sender action failed", map[string]any{
				"recipient": recipientID,
				"action":    action,
				"error":     err.Error(),
			})
		}
	}()
}

// senderLoop drains the outbound bus and delivers payloads one at a time.
// Delivery failures are logged and dropped; the Send API is not retried.
func (r *Relay) senderLoop(ctx context.Context) {
	for {
		out, ok := r.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}

		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := r.sender.Send(sendCtx, out.Payload)
		cancel()
		if err != nil {
			logger.ErrorCF("relay", "Send API delivery failed", map[string]any{
				"recipient":  out.RecipientID,
				"request_id": out.RequestID,
				"error":      err.Error(),
			})
			continue
		}

		logger.DebugCF("relay", "Payload delivered", map[string]any{
			"recipient":  out.RecipientID,
			"request_id": out.RequestID,
		})
	}
}
