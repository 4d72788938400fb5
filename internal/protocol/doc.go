// Package protocol holds the websocket wire format. Every frame in either
// direction is {"event": string, "data": object}.
package protocol

// Client -> Server
// room:create:
//   playerId: string
//   name: string
//
// room:join:
//   roomCode: string // case-insensitive
//   playerId: string
//   name: string
//
// room:leave:
//   roomCode: string
//   playerId: string
//
// room:set-game (host):
//   roomCode: string
//   gameId: string
//
// room:start | room:end | room:restart (host):
//   roomCode: string
//
// player:input:
//   roomCode: string
//   playerId: string
//   gameId: string
//   event: { type: "MOVE", dir: "UP" | "DOWN" | "LEFT" | "RIGHT", pressed: bool }
//        | { type: "ACTION", id: string, pressed: bool }
//
// Server -> Client
// room:state:
//   state: RoomState // full snapshot, sent to every bound connection
//
// room:error:
//   message: string
//   code: string // ROOM_NOT_FOUND, UNAUTHORIZED, INVALID_PHASE, ...
//
// game:input (host only):
//   roomCode, gameId, playerId, event // as received
//
// room:host-disconnected:
//   roomCode: string
