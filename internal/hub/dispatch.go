package hub

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/lobby"
	"github.com/DoyleJ11/bunker-server/internal/protocol"
)

func (h *Hub) handle(connID string, env protocol.Envelope) {
	if env.Event == protocol.EvtPlayerInput {
		in, err := protocol.DecodePayload[protocol.PlayerInput](env)
		if err != nil {
			return
		}
		h.deliver(h.mgr.RouteInput(in))
		return
	}

	out, err := h.dispatch(connID, env)
	h.deliver(out)
	if err != nil {
		h.fail(connID, err)
	}
}

func (h *Hub) dispatch(connID string, env protocol.Envelope) ([]lobby.Delivery, error) {
	switch env.Event {
	case protocol.EvtRoomCreate:
		p, err := decode[protocol.CreateRoom](env)
		if err != nil {
			return nil, err
		}
		out, err := h.mgr.Create(connID, p.PlayerID, p.Name)
		if err == nil {
			h.log.Info("room created", zap.String("conn", connID), zap.String("player", p.PlayerID))
		}
		return out, err

	case protocol.EvtRoomJoin:
		p, err := decode[protocol.JoinRoom](env)
		if err != nil {
			return nil, err
		}
		return h.mgr.Join(connID, p.RoomCode, p.PlayerID, p.Name)

	case protocol.EvtRoomLeave:
		p, err := decode[protocol.LeaveRoom](env)
		if err != nil {
			return nil, err
		}
		return h.mgr.Leave(connID, p.RoomCode, p.PlayerID), nil

	case protocol.EvtRoomSetGame:
		p, err := decode[protocol.SetGame](env)
		if err != nil {
			return nil, err
		}
		if p.GameID == "" {
			return nil, fmt.Errorf("set-game: missing gameId: %w", lobby.ErrBadRequest)
		}
		return h.mgr.SetGame(connID, p.RoomCode, p.GameID)

	case protocol.EvtRoomStart:
		p, err := decode[protocol.RoomRef](env)
		if err != nil {
			return nil, err
		}
		return h.mgr.Start(connID, p.RoomCode)

	case protocol.EvtRoomEnd:
		p, err := decode[protocol.RoomRef](env)
		if err != nil {
			return nil, err
		}
		return h.mgr.End(connID, p.RoomCode)

	case protocol.EvtRoomRestart:
		p, err := decode[protocol.RoomRef](env)
		if err != nil {
			return nil, err
		}
		return h.mgr.Restart(connID, p.RoomCode)

	default:
		return nil, fmt.Errorf("unknown event %q: %w", env.Event, lobby.ErrBadRequest)
	}
}

func decode[T any](env protocol.Envelope) (T, error) {
	v, err := protocol.DecodePayload[T](env)
	if err != nil {
		return v, fmt.Errorf("%s: %w: %w", env.Event, lobby.ErrBadRequest, err)
	}
	return v, nil
}
