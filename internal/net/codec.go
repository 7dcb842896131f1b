package net

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrEmptyPayload   = errors.New("empty payload")
)

// Envelope is a decoded frame whose payload has not been decoded yet.
type Envelope struct {
	T string
	P []byte

	codec Codec
}

// Codec serializes envelopes. Both peers of a link must use the same codec.
type Codec interface {
	Name() string
	Marshal(t string, payload any) ([]byte, error)
	Unmarshal(b []byte) (Envelope, error)

	unmarshalPayload(p []byte, v any) error
}

// CodecByName returns "json" or "msgpack".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json":
		return JSONCodec{}, nil
	case "msgpack", "":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown wire codec %q", name)
}

type JSONCodec struct{}

type jsonEnvelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

func (JSONCodec) Name() string { return "json" }

func (c JSONCodec) Marshal(t string, payload any) ([]byte, error) {
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{T: t, P: pb})
}

func (c JSONCodec) Unmarshal(b []byte) (Envelope, error) {
	var e jsonEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P, codec: c}, nil
}

func (JSONCodec) unmarshalPayload(p []byte, v any) error {
	return json.Unmarshal(p, v)
}

type MsgpackCodec struct{}

type msgpackEnvelope struct {
	T string             `msgpack:"t"`
	P msgpack.RawMessage `msgpack:"p"`
}

func (MsgpackCodec) Name() string { return "msgpack" }

func (c MsgpackCodec) Marshal(t string, payload any) ([]byte, error) {
	pb, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&msgpackEnvelope{T: t, P: pb})
}

func (c MsgpackCodec) Unmarshal(b []byte) (Envelope, error) {
	var e msgpackEnvelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P, codec: c}, nil
}

func (MsgpackCodec) unmarshalPayload(p []byte, v any) error {
	return msgpack.Unmarshal(p, v)
}

// DecodePayload decodes the envelope payload into a T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("type %q: %w", env.T, ErrEmptyPayload)
	}
	if env.codec == nil {
		return out, fmt.Errorf("type %q: envelope has no codec", env.T)
	}
	err := env.codec.unmarshalPayload(env.P, &out)
	return out, err
}

// TypeOf returns the envelope tag for a message value.
func TypeOf(msg any) (string, error) {
	switch msg.(type) {
	case ClientMatchInfo:
		return MsgMatchInfo, nil
	case PlayerEvent:
		return MsgPlayerEvent, nil
	case PlayerEventFromServer:
		return MsgPlayerEventFromServer, nil
	case PlayerState:
		return MsgPlayerState, nil
	case PlayerStateFromServer:
		return MsgPlayerStateFromServer, nil
	case GameEventFromServer:
		return MsgGameEventFromServer, nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
}

// Encode wraps a protocol message in an envelope.
func Encode(c Codec, msg any) ([]byte, error) {
	t, err := TypeOf(msg)
	if err != nil {
		return nil, err
	}
	return c.Marshal(t, msg)
}

// Decode returns the protocol message carried by b as a value type
// (PlayerEvent, PlayerStateFromServer, ...).
func Decode(c Codec, b []byte) (any, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("decode envelope: %w", ErrEmptyPayload)
	}
	env, err := c.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.T {
	case MsgMatchInfo:
		return decodeAs[ClientMatchInfo](env)
	case MsgPlayerEvent:
		ev, err := DecodePayload[PlayerEvent](env)
		if err != nil {
			return nil, err
		}
		return ev, ev.Validate()
	case MsgPlayerEventFromServer:
		ev, err := DecodePayload[PlayerEventFromServer](env)
		if err != nil {
			return nil, err
		}
		return ev, ev.Kind.Validate()
	case MsgPlayerState:
		return decodeAs[PlayerState](env)
	case MsgPlayerStateFromServer:
		return decodeAs[PlayerStateFromServer](env)
	case MsgGameEventFromServer:
		ev, err := DecodePayload[GameEventFromServer](env)
		if err != nil {
			return nil, err
		}
		return ev, ev.Validate()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.T)
}

func decodeAs[T any](env Envelope) (any, error) {
	v, err := DecodePayload[T](env)
	if err != nil {
		return nil, err
	}
	return v, nil
}
