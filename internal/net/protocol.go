package net

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Envelope type tags.
const (
	MsgMatchInfo             = "match_info"
	MsgPlayerEvent           = "player_event"
	MsgPlayerEventFromServer = "player_event_srv"
	MsgPlayerState           = "player_state"
	MsgPlayerStateFromServer = "player_state_srv"
	MsgGameEventFromServer   = "game_event_srv"
)

var ErrUnknownEventKind = errors.New("unknown event kind")

// PlayerEventKind tags the PlayerEvent variant.
type PlayerEventKind uint8

const (
	SpawnPlayer PlayerEventKind = iota + 1
	KillPlayer
	GrabItem
	DropItem
)

func (k PlayerEventKind) String() string {
	switch k {
	case SpawnPlayer:
		return "spawn_player"
	case KillPlayer:
		return "kill_player"
	case GrabItem:
		return "grab_item"
	case DropItem:
		return "drop_item"
	}
	return fmt.Sprintf("player_event(%d)", uint8(k))
}

// Client → Server, reliable lane.

// PlayerEvent is a discrete state change. Pos is set for SpawnPlayer and
// DropItem, NetID for GrabItem.
type PlayerEvent struct {
	Kind  PlayerEventKind `json:"kind" msgpack:"kind"`
	Pos   mgl32.Vec3      `json:"pos" msgpack:"pos"`
	NetID NetID           `json:"netId,omitempty" msgpack:"netId,omitempty"`
}

func SpawnPlayerEvent(pos mgl32.Vec3) PlayerEvent {
	return PlayerEvent{Kind: SpawnPlayer, Pos: pos}
}

func KillPlayerEvent() PlayerEvent {
	return PlayerEvent{Kind: KillPlayer}
}

func GrabItemEvent(id NetID) PlayerEvent {
	return PlayerEvent{Kind: GrabItem, NetID: id}
}

func DropItemEvent(pos mgl32.Vec3) PlayerEvent {
	return PlayerEvent{Kind: DropItem, Pos: pos}
}

func (e PlayerEvent) Validate() error {
	switch e.Kind {
	case SpawnPlayer, KillPlayer, GrabItem, DropItem:
		return nil
	}
	return fmt.Errorf("player event: %w: %d", ErrUnknownEventKind, uint8(e.Kind))
}

// AnimationPose is the sprite playback state a peer needs to show the same
// frame as the owner.
type AnimationPose struct {
	Animation string `json:"anim" msgpack:"anim"`
	Frame     uint32 `json:"frame" msgpack:"frame"`
	Playing   bool   `json:"playing,omitempty" msgpack:"playing,omitempty"`
	FlipX     bool   `json:"flipX,omitempty" msgpack:"flipX,omitempty"`
	FlipY     bool   `json:"flipY,omitempty" msgpack:"flipY,omitempty"`
}

// Client → Server, unreliable lane. Superseded every fixed step.

type PlayerState struct {
	Tick   Tick          `json:"tick" msgpack:"tick"`
	Pos    mgl32.Vec3    `json:"pos" msgpack:"pos"`
	Sprite AnimationPose `json:"sprite" msgpack:"sprite"`
}

// Server → Client

// ClientMatchInfo is sent once per connection before any relayed traffic.
type ClientMatchInfo struct {
	PlayerIdx  int    `json:"playerIdx" msgpack:"playerIdx"`
	MatchID    string `json:"matchId" msgpack:"matchId"`
	TickHz     int    `json:"tickHz" msgpack:"tickHz"`
	MaxPlayers int    `json:"maxPlayers" msgpack:"maxPlayers"`
}

type PlayerEventFromServer struct {
	PlayerIdx int         `json:"playerIdx" msgpack:"playerIdx"`
	Kind      PlayerEvent `json:"kind" msgpack:"kind"`
}

type PlayerStateFromServer struct {
	PlayerIdx int         `json:"playerIdx" msgpack:"playerIdx"`
	State     PlayerState `json:"state" msgpack:"state"`
}

type GameEventKind uint8

const (
	SpawnItem GameEventKind = iota + 1
)

// GameEventFromServer carries authority-originated world changes.
type GameEventFromServer struct {
	Kind   GameEventKind `json:"kind" msgpack:"kind"`
	NetID  NetID         `json:"netId" msgpack:"netId"`
	Script string        `json:"script" msgpack:"script"`
	Pos    mgl32.Vec3    `json:"pos" msgpack:"pos"`
}

func SpawnItemEvent(id NetID, script string, pos mgl32.Vec3) GameEventFromServer {
	return GameEventFromServer{Kind: SpawnItem, NetID: id, Script: script, Pos: pos}
}

func (e GameEventFromServer) Validate() error {
	if e.Kind != SpawnItem {
		return fmt.Errorf("game event: %w: %d", ErrUnknownEventKind, uint8(e.Kind))
	}
	return nil
}
