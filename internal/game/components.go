package game

import (
	"fishnet/internal/net"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

type PlayerIdxData struct {
	Idx int
}

type TransformData struct {
	Pos mgl32.Vec3
}

type ItemData struct {
	Script string
}

// ParentData attaches an entity (a held item) to its holder.
type ParentData struct {
	Entity donburi.Entity
}

var (
	PlayerIdx = donburi.NewComponentType[PlayerIdxData]()
	Transform = donburi.NewComponentType[TransformData]()
	Item      = donburi.NewComponentType[ItemData]()
	Parent    = donburi.NewComponentType[ParentData]()
	Sprite    = donburi.NewComponentType[net.AnimationPose]()
)
