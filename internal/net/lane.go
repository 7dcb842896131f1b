package net

import (
	"errors"
	"fmt"
)

// Lane selects the delivery guarantee of a message.
type Lane byte

const (
	// Reliable: ordered, exactly-once. Carries discrete events.
	Reliable Lane = 'R'
	// Unreliable: best effort, may drop or reorder. Carries state snapshots.
	Unreliable Lane = 'U'
)

func (l Lane) String() string {
	switch l {
	case Reliable:
		return "reliable"
	case Unreliable:
		return "unreliable"
	}
	return fmt.Sprintf("lane(%d)", byte(l))
}

var ErrBadFrame = errors.New("bad frame")

// Frame prefixes an encoded envelope with its lane. One websocket carries
// both lanes; the prefix tells the receiver which queue the message joins.
func Frame(l Lane, env []byte) []byte {
	b := make([]byte, 0, len(env)+1)
	b = append(b, byte(l))
	return append(b, env...)
}

func Unframe(b []byte) (Lane, []byte, error) {
	if len(b) < 2 {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(b))
	}
	l := Lane(b[0])
	if l != Reliable && l != Unreliable {
		return 0, nil, fmt.Errorf("%w: lane %q", ErrBadFrame, b[0])
	}
	return l, b[1:], nil
}

type TargetKind uint8

const (
	TargetAll TargetKind = iota
	TargetAllExcept
	TargetOnly
)

// Target selects which peers a server-side send reaches.
type Target struct {
	Kind TargetKind
	Idx  int
}

func All() Target                 { return Target{Kind: TargetAll} }
func AllExcept(origin int) Target { return Target{Kind: TargetAllExcept, Idx: origin} }
func Only(idx int) Target         { return Target{Kind: TargetOnly, Idx: idx} }

func (t Target) Includes(idx int) bool {
	switch t.Kind {
	case TargetAll:
		return true
	case TargetAllExcept:
		return idx != t.Idx
	case TargetOnly:
		return idx == t.Idx
	}
	return false
}

func (t Target) String() string {
	switch t.Kind {
	case TargetAll:
		return "all"
	case TargetAllExcept:
		return fmt.Sprintf("all-except(%d)", t.Idx)
	case TargetOnly:
		return fmt.Sprintf("only(%d)", t.Idx)
	}
	return "none"
}
