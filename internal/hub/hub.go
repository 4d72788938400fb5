// Package hub runs the single goroutine that owns every room. Connection
// events, janitor sweeps and broadcasts are handled one message at a time, so a
// handler is an atomic transaction against the registry.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/lobby"
	"github.com/DoyleJ11/bunker-server/internal/protocol"
)

var ErrStopped = errors.New("hub stopped")

type HubMsg interface{ isHubMsg() }

// Connect registers the outbox the connection's writer drains.
type Connect struct {
	ConnID string
	Outbox chan []byte
}

type Disconnect struct {
	ConnID string
}

type FromClient struct {
	ConnID string
	Env    protocol.Envelope
}

// BadFrame reports a frame the transport could not parse.
type BadFrame struct {
	ConnID string
	Err    error
}

type GetRoom struct {
	Code  string
	Reply chan *protocol.RoomState // nil when the room does not exist
}

// Sweep runs both janitor passes immediately.
type Sweep struct{}

type ShutdownHub struct{}

func (Connect) isHubMsg()     {}
func (Disconnect) isHubMsg()  {}
func (FromClient) isHubMsg()  {}
func (BadFrame) isHubMsg()    {}
func (GetRoom) isHubMsg()     {}
func (Sweep) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	ReapInterval       time.Duration
	MatchSweepInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		ReapInterval:       30 * time.Second,
		MatchSweepInterval: 500 * time.Millisecond,
	}
}

type Hub struct {
	inbox  chan HubMsg
	mgr    *lobby.Manager
	conns  map[string]chan []byte
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(parent context.Context, mgr *lobby.Manager, log *zap.Logger, opts Options) *Hub {
	d := DefaultOptions()
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = d.ReapInterval
	}
	if opts.MatchSweepInterval <= 0 {
		opts.MatchSweepInterval = d.MatchSweepInterval
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 256),
		mgr:    mgr,
		conns:  make(map[string]chan []byte),
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

// Send queues msg for the hub. It returns false once the hub has stopped.
func (h *Hub) Send(msg HubMsg) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- msg:
		return true
	case <-h.done:
		return false
	}
}

// Done is closed when the hub loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Room fetches a room snapshot through the hub loop.
func (h *Hub) Room(ctx context.Context, code string) (*protocol.RoomState, error) {
	reply := make(chan *protocol.RoomState, 1)
	if !h.Send(GetRoom{Code: code, Reply: reply}) {
		return nil, ErrStopped
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)

	reap := time.NewTicker(h.opts.ReapInterval)
	defer reap.Stop()
	sweep := time.NewTicker(h.opts.MatchSweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-reap.C:
			h.reap()

		case <-sweep.C:
			h.deliver(h.mgr.ExpireMatches())

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				h.conns[msg.ConnID] = msg.Outbox

			case Disconnect:
				h.deliver(h.mgr.Disconnect(msg.ConnID))
				if ch, ok := h.conns[msg.ConnID]; ok {
					close(ch)
					delete(h.conns, msg.ConnID)
				}

			case FromClient:
				h.handle(msg.ConnID, msg.Env)

			case BadFrame:
				h.fail(msg.ConnID, fmt.Errorf("%w: %w", lobby.ErrBadRequest, msg.Err))

			case GetRoom:
				if st, ok := h.mgr.Snapshot(msg.Code); ok {
					msg.Reply <- &st
				} else {
					msg.Reply <- nil
				}

			case Sweep:
				h.reap()
				h.deliver(h.mgr.ExpireMatches())

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) reap() {
	for _, code := range h.mgr.ReapIdle() {
		h.log.Info("reaped idle room", zap.String("room", code))
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.conns {
		close(ch)
		delete(h.conns, id)
	}
	h.cancel()
}

// deliver encodes each delivery once and fans it out.
func (h *Hub) deliver(out []lobby.Delivery) {
	for _, d := range out {
		if len(d.To) == 0 {
			continue
		}
		b, err := protocol.Encode(d.Event, d.Payload)
		if err != nil {
			h.log.Error("encode delivery", zap.String("event", d.Event), zap.Error(err))
			continue
		}
		for _, id := range d.To {
			h.send(id, b)
		}
	}
}

func (h *Hub) send(connID string, b []byte) {
	ch, ok := h.conns[connID]
	if !ok {
		return
	}
	select {
	case ch <- b:
	default:
		// Slow consumer: closing the outbox makes the writer hang up, and the
		// reader then reports a normal Disconnect.
		h.log.Warn("dropping slow connection", zap.String("conn", connID))
		close(ch)
		delete(h.conns, connID)
	}
}

func (h *Hub) fail(connID string, err error) {
	code := lobby.ErrorCode(err)
	if code == "INTERNAL" {
		h.log.Error("room action failed", zap.String("conn", connID), zap.Error(err))
	} else {
		h.log.Debug("room action rejected", zap.String("conn", connID), zap.String("code", code), zap.Error(err))
	}
	h.deliver([]lobby.Delivery{{
		To:      []string{connID},
		Event:   protocol.EvtRoomError,
		Payload: protocol.ErrorMessage{Message: lobby.UserMessage(err), Code: code},
	}})
}
