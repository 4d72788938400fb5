package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/hub"
	"github.com/DoyleJ11/bunker-server/internal/protocol"
)

type Options struct {
	OriginPatterns []string
	OutboxSize     int
	ReadLimit      int64
	WriteTimeout   time.Duration
	// PingInterval is how often an idle peer is pinged. A peer that misses the
	// pong within WriteTimeout is dropped.
	PingInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		OutboxSize:   32,
		ReadLimit:    16 << 10,
		WriteTimeout: 3 * time.Second,
		PingInterval: 20 * time.Second,
	}
}

// Handler upgrades the request and pumps frames between the socket and the hub.
// Each connection gets a fresh id; identity is carried by playerId in the
// payloads, not by the connection.
func Handler(h *hub.Hub, log *zap.Logger, opts Options) http.HandlerFunc {
	d := DefaultOptions()
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = d.OutboxSize
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = d.ReadLimit
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = d.WriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = d.PingInterval
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(opts.ReadLimit)

		connID := uuid.NewString()
		l := log.With(zap.String("conn", connID))

		out := make(chan []byte, opts.OutboxSize)
		if !h.Send(hub.Connect{ConnID: connID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		defer h.Send(hub.Disconnect{ConnID: connID})
		l.Debug("connected", zap.String("remote", r.RemoteAddr))

		ctx := r.Context()

		// Writer goroutine. The hub closes the outbox on slow consumers and at
		// shutdown, which hangs up the socket and ends the reader below.
		// Pings go out from here too; a half-open peer never answers and gets
		// hung up on.
		go func() {
			ping := time.NewTicker(opts.PingInterval)
			defer ping.Stop()
			for {
				select {
				case b, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "connection closed by server")
						return
					}
					wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
					err := conn.Write(wctx, websocket.MessageText, b)
					cancel()
					if err != nil {
						l.Debug("write failed", zap.Error(err))
						conn.CloseNow()
						return
					}
				case <-ping.C:
					pctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
					err := conn.Ping(pctx)
					cancel()
					if err != nil {
						l.Debug("ping failed", zap.Error(err))
						conn.CloseNow()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					l.Debug("disconnected")
				default:
					if !errors.Is(err, context.Canceled) {
						l.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			env, err := protocol.DecodeEnvelope(data)
			if err != nil {
				if !h.Send(hub.BadFrame{ConnID: connID, Err: err}) {
					return
				}
				continue
			}
			if !h.Send(hub.FromClient{ConnID: connID, Env: env}) {
				return
			}
		}
	}
}
