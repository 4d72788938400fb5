// Package host is a headless game host: it owns the room from the host side of
// the websocket and runs the tanks simulation for it.
package host

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/protocol"
	"github.com/DoyleJ11/bunker-server/internal/tanks"
)

var ErrSessionClosed = errors.New("session closed")

type SessionMsg interface{ isSessionMsg() }

// StartMatch discards any running match and starts a fresh one.
type StartMatch struct {
	PlayerIDs []string
}

type StopMatch struct{}

type Input struct {
	PlayerID string
	Event    protocol.ControlEvent
}

type Release struct {
	PlayerID string
}

type GetState struct {
	Reply chan *tanks.State // nil when no match is running
}

// Step advances the running match by one tick immediately.
type Step struct{}

type shutdownSession struct{}

func (StartMatch) isSessionMsg()      {}
func (StopMatch) isSessionMsg()       {}
func (Input) isSessionMsg()           {}
func (Release) isSessionMsg()         {}
func (GetState) isSessionMsg()        {}
func (Step) isSessionMsg()            {}
func (shutdownSession) isSessionMsg() {}

// Renderer receives the live state after every tick, on the session goroutine.
// It must not retain or modify st.
type Renderer func(st *tanks.State)

type SessionOptions struct {
	TickInterval time.Duration
	Render       Renderer
	Now          func() time.Time
}

// Session runs at most one match at a time. Inputs and ticks are serialized on
// its goroutine.
type Session struct {
	inbox  chan SessionMsg
	cfg    tanks.Config
	game   *tanks.Game
	opts   SessionOptions
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(parent context.Context, cfg tanks.Config, log *zap.Logger, opts SessionOptions) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:  make(chan SessionMsg, 256),
		cfg:    cfg,
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) Send(msg SessionMsg) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- msg:
		return true
	case <-s.done:
		return false
	}
}

// State returns a copy of the running match, or nil between matches.
func (s *Session) State(ctx context.Context) (*tanks.State, error) {
	reply := make(chan *tanks.State, 1)
	if !s.Send(GetState{Reply: reply}) {
		return nil, ErrSessionClosed
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the loop and waits for it to exit.
func (s *Session) Close() error {
	s.Send(shutdownSession{})
	<-s.done
	return nil
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.cancel()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			s.tick()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case StartMatch:
				s.game = tanks.NewGame(msg.PlayerIDs, s.cfg)
				s.log.Info("match started", zap.Strings("players", msg.PlayerIDs))

			case StopMatch:
				if s.game != nil {
					s.log.Info("match stopped", zap.Int("tick", s.game.State().Tick))
				}
				s.game = nil

			case Input:
				if s.game != nil {
					s.game.HandleInput(msg.PlayerID, msg.Event)
				}

			case Release:
				if s.game != nil {
					s.game.ReleaseInputs(msg.PlayerID)
				}

			case GetState:
				if s.game == nil {
					msg.Reply <- nil
					continue
				}
				st := s.game.State().Clone()
				msg.Reply <- &st

			case Step:
				s.tick()

			case shutdownSession:
				return
			}
		}
	}
}

func (s *Session) tick() {
	if s.game == nil {
		return
	}
	s.game.Tick(s.opts.Now())
	if s.opts.Render != nil {
		s.opts.Render(s.game.State())
	}
}
