package client

import (
	"time"

	"fishnet/internal/game"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// Tween is a linear, one-shot position interpolation.
type Tween struct {
	Start, End mgl32.Vec3
	Began      time.Time
	Duration   time.Duration
}

// At returns the interpolated position at now, clamped to [Start, End].
func (t Tween) At(now time.Time) mgl32.Vec3 {
	if t.Duration <= 0 {
		return t.End
	}
	f := float32(now.Sub(t.Began)) / float32(t.Duration)
	if f <= 0 {
		return t.Start
	}
	if f >= 1 {
		return t.End
	}
	return t.Start.Add(t.End.Sub(t.Start).Mul(f))
}

// Done reports whether the tween has reached End.
func (t Tween) Done(now time.Time) bool {
	return !now.Before(t.Began.Add(t.Duration))
}

var Motion = donburi.NewComponentType[Tween]()

var motionQuery = donburi.NewQuery(filter.Contains(Motion, game.Transform))

// Interpolator smooths remote players between accepted snapshots. Install
// runs when a snapshot is applied; Animate runs every render frame.
type Interpolator struct {
	Duration time.Duration
	Now      func() time.Time
}

// NewInterpolator returns an interpolator spanning two fixed steps.
func NewInterpolator(fixedStep time.Duration) *Interpolator {
	return &Interpolator{Duration: 2 * fixedStep, Now: time.Now}
}

// Install starts a tween from e's current rendered position to target,
// replacing any tween already in flight.
func (ip *Interpolator) Install(w donburi.World, e donburi.Entity, target mgl32.Vec3) {
	if !w.Valid(e) {
		return
	}
	now := ip.Now()
	entry := w.Entry(e)

	start, _ := game.Position(w, e)
	if entry.HasComponent(Motion) {
		start = Motion.Get(entry).At(now)
	} else {
		entry.AddComponent(Motion)
		entry = w.Entry(e)
	}
	Motion.SetValue(entry, Tween{Start: start, End: target, Began: now, Duration: ip.Duration})
}

// Animate writes each tween's current position into the entity transform.
// Finished tweens are removed once their end position is written.
func (ip *Interpolator) Animate(w donburi.World) {
	now := ip.Now()
	var finished []*donburi.Entry
	motionQuery.Each(w, func(entry *donburi.Entry) {
		tw := Motion.Get(entry)
		game.Transform.Get(entry).Pos = tw.At(now)
		if tw.Done(now) {
			finished = append(finished, entry)
		}
	})
	for _, entry := range finished {
		entry.RemoveComponent(Motion)
	}
}
