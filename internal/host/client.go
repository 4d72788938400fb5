package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/games"
	"github.com/DoyleJ11/bunker-server/internal/protocol"
	"github.com/DoyleJ11/bunker-server/internal/tanks"
)

type ClientOptions struct {
	PlayerID string
	Name     string
	// AutoStartPlayers starts the match once this many controllers are
	// connected. Zero disables it.
	AutoStartPlayers int
	// RestartAfter returns an ended room to the lobby after this delay. Zero
	// disables it.
	RestartAfter time.Duration
}

type sendFunc func(ctx context.Context, event string, payload any) error

// Client drives a room from the host seat and feeds its session.
type Client struct {
	conn *websocket.Conn
	send sendFunc
	sess *Session
	opts ClientOptions
	log  *zap.Logger

	mu        sync.Mutex // guards the fields below
	roomCode  string
	phase     protocol.Phase
	online    map[string]bool
	starting  bool
	restartAt *time.Timer
}

// Dial connects to the server websocket at url.
func Dial(ctx context.Context, url string, sess *Session, log *zap.Logger, opts ClientOptions) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := newClient(sess, log, opts, func(ctx context.Context, event string, payload any) error {
		b, err := protocol.Encode(event, payload)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, b)
	})
	c.conn = conn
	return c, nil
}

func newClient(sess *Session, log *zap.Logger, opts ClientOptions, send sendFunc) *Client {
	if opts.Name == "" {
		opts.Name = "Host"
	}
	return &Client{
		send:   send,
		sess:   sess,
		opts:   opts,
		log:    log,
		online: make(map[string]bool),
	}
}

// RoomCode returns the code of the hosted room, or "" before it exists.
func (c *Client) RoomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

// Run creates the room and processes server events until ctx ends or the
// connection drops.
func (c *Client) Run(ctx context.Context) error {
	if err := c.send(ctx, protocol.EvtRoomCreate, protocol.CreateRoom{PlayerID: c.opts.PlayerID, Name: c.opts.Name}); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := c.handle(ctx, env); err != nil {
			return err
		}
	}
}

func (c *Client) handle(ctx context.Context, env protocol.Envelope) error {
	switch env.Event {
	case protocol.EvtRoomState:
		msg, err := protocol.DecodePayload[protocol.StateMessage](env)
		if err != nil {
			c.log.Warn("bad room state", zap.Error(err))
			return nil
		}
		return c.onState(ctx, msg.State)

	case protocol.EvtGameInput:
		in, err := protocol.DecodePayload[protocol.GameInput](env)
		if err != nil || in.GameID != tanks.GameID || in.RoomCode != c.RoomCode() {
			return nil
		}
		c.sess.Send(Input{PlayerID: in.PlayerID, Event: in.Event})

	case protocol.EvtRoomError:
		msg, err := protocol.DecodePayload[protocol.ErrorMessage](env)
		if err != nil {
			return nil
		}
		c.log.Warn("server rejected request", zap.String("code", msg.Code), zap.String("message", msg.Message))
	}
	return nil
}

func (c *Client) onState(ctx context.Context, st protocol.RoomState) error {
	c.mu.Lock()
	first := c.roomCode == ""
	prev := c.phase
	c.roomCode = st.RoomCode
	c.phase = st.Phase

	// Every controller gets a tank, so one that reconnects mid-match can play.
	var roster []string
	online := make(map[string]bool, len(st.Players))
	for _, p := range st.Players {
		if p.Role == protocol.RoleHost {
			continue
		}
		roster = append(roster, p.PlayerID)
		if p.Connected {
			online[p.PlayerID] = true
		}
	}
	var dropped []string
	for id := range c.online {
		if !online[id] {
			dropped = append(dropped, id)
		}
	}
	c.online = online

	if st.Phase != protocol.PhaseLobby {
		c.starting = false
	}
	if st.Phase != protocol.PhaseEnded && c.restartAt != nil {
		c.restartAt.Stop()
		c.restartAt = nil
	}
	autostart := st.Phase == protocol.PhaseLobby && !c.starting &&
		c.opts.AutoStartPlayers > 0 && len(online) >= c.opts.AutoStartPlayers &&
		st.GameID != nil && *st.GameID == tanks.GameID
	if autostart {
		c.starting = true
	}
	if st.Phase == protocol.PhaseEnded && prev != protocol.PhaseEnded && c.opts.RestartAfter > 0 {
		code := st.RoomCode
		c.restartAt = time.AfterFunc(c.opts.RestartAfter, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := c.send(ctx, protocol.EvtRoomRestart, protocol.RoomRef{RoomCode: code}); err != nil {
				c.log.Warn("restart failed", zap.Error(err))
			}
		})
	}
	c.mu.Unlock()

	if first {
		info, _ := games.Lookup(tanks.GameID)
		c.log.Info("room ready", zap.String("room", st.RoomCode), zap.String("game", info.Name))
	}

	switch {
	case st.Phase == protocol.PhaseInGame && prev != protocol.PhaseInGame:
		c.sess.Send(StartMatch{PlayerIDs: roster})
	case st.Phase != protocol.PhaseInGame && prev == protocol.PhaseInGame:
		c.sess.Send(StopMatch{})
	case st.Phase == protocol.PhaseInGame:
		for _, id := range dropped {
			c.sess.Send(Release{PlayerID: id})
		}
	}

	var errs error
	if st.Phase == protocol.PhaseLobby && st.GameID == nil {
		multierr.AppendInto(&errs, c.send(ctx, protocol.EvtRoomSetGame, protocol.SetGame{RoomCode: st.RoomCode, GameID: tanks.GameID}))
	}
	if autostart {
		c.log.Info("starting match", zap.String("room", st.RoomCode), zap.Int("players", len(online)))
		multierr.AppendInto(&errs, c.send(ctx, protocol.EvtRoomStart, protocol.RoomRef{RoomCode: st.RoomCode}))
	}
	return errs
}

// Close hangs up and stops the session. The server ends the room when the host
// connection drops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.restartAt != nil {
		c.restartAt.Stop()
		c.restartAt = nil
	}
	c.mu.Unlock()

	var err error
	if c.conn != nil {
		err = c.conn.Close(websocket.StatusNormalClosure, "host leaving")
	}
	return multierr.Combine(err, c.sess.Close())
}
