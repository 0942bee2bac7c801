// Package physics 内置的圆形刚体物理世界
//
// World 实现 game.PhysicsWorld：刚体存放在 ecs.EntityManager 中，
// 由 systems.PhysicsSystem 步进，Step 把新开始的接触转换为 game.CollisionBatch。
package physics

import (
	"github.com/decker502/xrpsuika/pkg/components"
	"github.com/decker502/xrpsuika/pkg/config"
	"github.com/decker502/xrpsuika/pkg/ecs"
	"github.com/decker502/xrpsuika/pkg/game"
	"github.com/decker502/xrpsuika/pkg/systems"
)

// Body 渲染用的刚体快照
type Body struct {
	Handle game.BodyHandle
	Tier   int
	X, Y   float64
	Radius float64
	Angle  float64
	Static bool
}

var _ game.PhysicsWorld = (*World)(nil)

// World 圆形刚体物理世界
type World struct {
	em      *ecs.EntityManager
	physics *systems.PhysicsSystem
	frozen  bool
}

// NewWorld 按调参创建物理世界
//
// 左右墙壁位于 0 和屏幕宽度，容器底部位于 Height - WallPadding
func NewWorld(cfg *config.GameConfig) *World {
	if cfg == nil {
		cfg = config.DefaultGameConfig()
	}
	em := ecs.NewEntityManager()
	floor := float64(cfg.Height) - cfg.WallPadding
	return &World{
		em:      em,
		physics: systems.NewPhysicsSystem(em, cfg.Physics, float64(cfg.Width), floor),
	}
}

// CreateBody 实现 game.PhysicsWorld
func (w *World) CreateBody(spec game.BodySpec) game.BodyHandle {
	if spec.Radius <= 0 {
		return 0
	}
	id := w.em.CreateEntity()
	w.em.AddComponent(id, &components.PositionComponent{X: spec.X, Y: spec.Y})
	w.em.AddComponent(id, &components.CollisionComponent{Radius: spec.Radius, Static: spec.Static})
	w.em.AddComponent(id, &components.TokenComponent{Tier: spec.Tier})
	if !spec.Static {
		w.em.AddComponent(id, &components.VelocityComponent{})
	}
	return game.BodyHandle(id)
}

// DestroyBody 实现 game.PhysicsWorld，立即移除
func (w *World) DestroyBody(h game.BodyHandle) {
	id := ecs.EntityID(h)
	if !w.em.Exists(id) {
		return
	}
	w.em.DestroyEntity(id)
	w.em.RemoveMarkedEntities()
	w.physics.Forget(id)
}

// SetVelocity 实现 game.PhysicsWorld
func (w *World) SetVelocity(h game.BodyHandle, vx, vy float64) {
	if vel, ok := ecs.GetComponent[*components.VelocityComponent](w.em, ecs.EntityID(h)); ok {
		vel.VX, vel.VY = vx, vy
	}
}

// SetAngle 实现 game.PhysicsWorld
func (w *World) SetAngle(h game.BodyHandle, angle float64) {
	if pos, ok := ecs.GetComponent[*components.PositionComponent](w.em, ecs.EntityID(h)); ok {
		pos.Angle = angle
	}
}

// Freeze 实现 game.PhysicsWorld
func (w *World) Freeze() {
	w.frozen = true
}

// Frozen 是否已冻结
func (w *World) Frozen() bool {
	return w.frozen
}

// Clear 实现 game.PhysicsWorld
func (w *World) Clear() {
	w.em.Clear()
	w.physics.Reset()
	w.frozen = false
}

// Step 推进 dt 秒，返回本步新开始的接触
//
// 冻结后返回空批次，刚体保持原位
func (w *World) Step(dt float64) game.CollisionBatch {
	if w.frozen {
		return game.CollisionBatch{}
	}
	contacts := w.physics.Update(dt)
	batch := game.CollisionBatch{Pairs: make([]game.CollisionPair, 0, len(contacts))}
	for _, c := range contacts {
		a, okA := w.state(c.A)
		b, okB := w.state(c.B)
		if !okA || !okB {
			continue
		}
		batch.Pairs = append(batch.Pairs, game.CollisionPair{A: a, B: b})
	}
	return batch
}

func (w *World) state(id ecs.EntityID) (game.BodyState, bool) {
	pos, ok := ecs.GetComponent[*components.PositionComponent](w.em, id)
	if !ok {
		return game.BodyState{}, false
	}
	col, ok := ecs.GetComponent[*components.CollisionComponent](w.em, id)
	if !ok {
		return game.BodyState{}, false
	}
	return game.BodyState{
		Handle: game.BodyHandle(id),
		Static: col.Static,
		X:      pos.X,
		Y:      pos.Y,
		Radius: col.Radius,
	}, true
}

// Bodies 返回全部刚体快照（按创建顺序）
func (w *World) Bodies() []Body {
	ids := ecs.GetEntitiesWith3[*components.PositionComponent, *components.CollisionComponent, *components.TokenComponent](w.em)
	out := make([]Body, 0, len(ids))
	for _, id := range ids {
		pos, _ := ecs.GetComponent[*components.PositionComponent](w.em, id)
		col, _ := ecs.GetComponent[*components.CollisionComponent](w.em, id)
		token, _ := ecs.GetComponent[*components.TokenComponent](w.em, id)
		out = append(out, Body{
			Handle: game.BodyHandle(id),
			Tier:   token.Tier,
			X:      pos.X,
			Y:      pos.Y,
			Radius: col.Radius,
			Angle:  pos.Angle,
			Static: col.Static,
		})
	}
	return out
}

// EntityManager 返回底层实体存储，供渲染系统查询
func (w *World) EntityManager() *ecs.EntityManager {
	return w.em
}

// Count 返回刚体数量
func (w *World) Count() int {
	return w.em.Count()
}
