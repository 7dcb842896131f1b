package client

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// System is a gameplay system run inside a fixed step, after inbound
// replication and before outbound replication.
type System interface {
	Update(ctx *StepContext)
}

type SystemFunc func(ctx *StepContext)

func (f SystemFunc) Update(ctx *StepContext) { f(ctx) }

type intentKind uint8

const (
	intentSpawn intentKind = iota
	intentKill
	intentGrab
	intentDrop
)

type intent struct {
	kind   intentKind
	player donburi.Entity
	item   donburi.Entity
	pos    mgl32.Vec3
}

// StepContext is what gameplay systems see during one fixed step. Intents
// raised here are sent on the reliable lane in the outbound phase of the
// same step.
type StepContext struct {
	World donburi.World
	Match *Match

	intents []intent
}

// LocalPlayerIdx is the player index this process controls.
func (c *StepContext) LocalPlayerIdx() int {
	return c.Match.Info.PlayerIdx
}

// SpawnLocalPlayer announces that the local player entered the match at pos.
func (c *StepContext) SpawnLocalPlayer(pos mgl32.Vec3) {
	c.intents = append(c.intents, intent{kind: intentSpawn, pos: pos})
}

func (c *StepContext) KillLocalPlayer() {
	c.intents = append(c.intents, intent{kind: intentKill})
}

// GrabItem records that player picked up item this step.
func (c *StepContext) GrabItem(player, item donburi.Entity) {
	c.intents = append(c.intents, intent{kind: intentGrab, player: player, item: item})
}

// DropItem records that player dropped what it was holding this step.
func (c *StepContext) DropItem(player donburi.Entity) {
	c.intents = append(c.intents, intent{kind: intentDrop, player: player})
}

// Pipeline runs one fixed simulation step in a fixed order: inbound
// replication, gameplay systems, outbound replication. Remote events are
// therefore visible to gameplay in the step they are drained.
type Pipeline struct {
	driver  *Driver
	systems []System
	ctx     StepContext
}

func NewPipeline(d *Driver, systems ...System) *Pipeline {
	return &Pipeline{
		driver:  d,
		systems: systems,
		ctx:     StepContext{World: d.world, Match: d.match},
	}
}

// Step advances one fixed step.
func (p *Pipeline) Step() {
	p.driver.inbound()

	p.ctx.intents = p.ctx.intents[:0]
	for _, sys := range p.systems {
		sys.Update(&p.ctx)
	}

	p.driver.outbound(p.ctx.intents)
}
