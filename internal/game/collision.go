package game

import "github.com/go-gl/mathgl/mgl32"

const (
	PlayerRadius = 12.0
	MoveSpeed    = 220.0 // units per second
	GrabRadius   = 28.0
)

// HitsCircle reports whether a circle of radius r centred at p overlaps w.
func (w Wall) HitsCircle(p mgl32.Vec3, r float32) bool {
	nearest := mgl32.Vec2{
		mgl32.Clamp(p.X(), w.X, w.X+w.W),
		mgl32.Clamp(p.Y(), w.Y, w.Y+w.H),
	}
	return p.Vec2().Sub(nearest).LenSqr() < r*r
}

// Blocked reports whether a player standing at p would overlap any wall.
func Blocked(p mgl32.Vec3, walls []Wall) bool {
	for _, w := range walls {
		if w.HitsCircle(p, PlayerRadius) {
			return true
		}
	}
	return false
}

// MovePlayer advances pos by dir*MoveSpeed*dt, sliding along walls and
// clamping to the arena. Each axis is resolved on its own so a blocked X
// move does not cancel the Y move.
func MovePlayer(pos, dir mgl32.Vec3, dt float32, walls []Wall) mgl32.Vec3 {
	if dir.Len() == 0 {
		return pos
	}
	step := dir.Normalize().Mul(MoveSpeed * dt)

	next := pos
	for axis := 0; axis < 2; axis++ {
		try := next
		try[axis] = mgl32.Clamp(pos[axis]+step[axis], PlayerRadius, WorldSize-PlayerRadius)
		if !Blocked(try, walls) {
			next = try
		}
	}
	return next
}
