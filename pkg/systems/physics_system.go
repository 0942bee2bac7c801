package systems

import (
	"math"

	"github.com/decker502/xrpsuika/pkg/components"
	"github.com/decker502/xrpsuika/pkg/config"
	"github.com/decker502/xrpsuika/pkg/ecs"
)

// contactSlop 两圆间距小于该值即视为接触（像素）
const contactSlop = 0.5

// Contact 一对开始接触的实体，A 的创建早于 B
type Contact struct {
	A, B ecs.EntityID
}

type contactKey struct {
	a, b ecs.EntityID
}

func keyOf(a, b ecs.EntityID) contactKey {
	if a > b {
		a, b = b, a
	}
	return contactKey{a: a, b: b}
}

// body 一次步进中缓存的组件指针
type body struct {
	id      ecs.EntityID
	pos     *components.PositionComponent
	vel     *components.VelocityComponent // 静态刚体为 nil
	col     *components.CollisionComponent
	invMass float64
}

// PhysicsSystem 圆形刚体物理
//
// 职责：
//   - 重力积分与空气阻力
//   - 约束在左右墙壁和容器底部之间
//   - 圆与圆的穿透修正和冲量响应（broadPhase 粗筛后精确检测）
//   - 上报本步新开始的接触（上一步已接触的不重复上报）
type PhysicsSystem struct {
	em       *ecs.EntityManager
	cfg      config.PhysicsConfig
	width    float64
	floor    float64
	broad    *broadPhase
	contacts map[contactKey]struct{}
}

// NewPhysicsSystem 创建物理系统
//
// 参数:
//   - em: 实体管理器
//   - cfg: 重力、摩擦等参数
//   - width: 容器宽度（左右墙壁位于 0 和 width）
//   - floor: 容器底部 Y 坐标
func NewPhysicsSystem(em *ecs.EntityManager, cfg config.PhysicsConfig, width, floor float64) *PhysicsSystem {
	return &PhysicsSystem{
		em:       em,
		cfg:      cfg,
		width:    width,
		floor:    floor,
		broad:    newBroadPhase(width, floor),
		contacts: make(map[contactKey]struct{}),
	}
}

// Update 推进 deltaTime 秒，返回本步新开始的接触
//
// 接触按实体创建顺序发现，同一输入下顺序稳定
func (ps *PhysicsSystem) Update(deltaTime float64) []Contact {
	if deltaTime <= 0 {
		return nil
	}

	bodies := ps.collect()
	steps := max(1, ps.cfg.Substeps)
	h := deltaTime / float64(steps)

	touching := make(map[contactKey]struct{})
	var order []Contact

	for s := 0; s < steps; s++ {
		for i := range bodies {
			ps.integrate(&bodies[i], h)
		}
		ps.broad.sync(bodies)
		for _, p := range ps.broad.candidates(bodies) {
			a, b := &bodies[p[0]], &bodies[p[1]]
			if ps.solve(a, b) {
				k := keyOf(a.id, b.id)
				if _, seen := touching[k]; !seen {
					touching[k] = struct{}{}
					order = append(order, Contact{A: a.id, B: b.id})
				}
			}
		}
		for i := range bodies {
			ps.constrain(&bodies[i])
		}
	}

	started := make([]Contact, 0, len(order))
	for _, c := range order {
		if _, was := ps.contacts[keyOf(c.A, c.B)]; !was {
			started = append(started, c)
		}
	}
	ps.contacts = touching
	return started
}

func (ps *PhysicsSystem) collect() []body {
	ids := ecs.GetEntitiesWith2[*components.PositionComponent, *components.CollisionComponent](ps.em)
	bodies := make([]body, 0, len(ids))
	for _, id := range ids {
		pos, _ := ecs.GetComponent[*components.PositionComponent](ps.em, id)
		col, _ := ecs.GetComponent[*components.CollisionComponent](ps.em, id)
		b := body{id: id, pos: pos, col: col}
		if !col.Static && col.Radius > 0 {
			vel, ok := ecs.GetComponent[*components.VelocityComponent](ps.em, id)
			if !ok {
				vel = &components.VelocityComponent{}
				ps.em.AddComponent(id, vel)
			}
			b.vel = vel
			// 质量与面积成正比
			b.invMass = 1 / (col.Radius * col.Radius)
		}
		bodies = append(bodies, b)
	}
	return bodies
}

func (ps *PhysicsSystem) integrate(b *body, h float64) {
	if b.vel == nil {
		return
	}
	damp := 1 - ps.cfg.AirFriction
	b.vel.VY += ps.cfg.Gravity * h
	b.vel.VX *= damp
	b.vel.VY *= damp
	b.pos.X += b.vel.VX * h
	b.pos.Y += b.vel.VY * h
	b.pos.Angle += b.vel.VX * h / b.col.Radius
}

// constrain 墙壁与底部约束
func (ps *PhysicsSystem) constrain(b *body) {
	if b.vel == nil {
		return
	}
	r := b.col.Radius
	rest := ps.cfg.Restitution

	if b.pos.X-r < 0 {
		b.pos.X = r
		if b.vel.VX < 0 {
			b.vel.VX = -b.vel.VX * rest
		}
	}
	if b.pos.X+r > ps.width {
		b.pos.X = ps.width - r
		if b.vel.VX > 0 {
			b.vel.VX = -b.vel.VX * rest
		}
	}
	if b.pos.Y+r > ps.floor {
		b.pos.Y = ps.floor - r
		if b.vel.VY > 0 {
			b.vel.VY = -b.vel.VY * rest
		}
		b.vel.VX *= 1 - ps.cfg.Friction
	}
}

// solve 处理一对圆的穿透与冲量，返回两者是否接触
func (ps *PhysicsSystem) solve(a, b *body) bool {
	dx := b.pos.X - a.pos.X
	dy := b.pos.Y - a.pos.Y
	dist := math.Hypot(dx, dy)
	rsum := a.col.Radius + b.col.Radius
	if dist >= rsum+contactSlop {
		return false
	}

	total := a.invMass + b.invMass
	if total == 0 {
		return true
	}

	nx, ny := 0.0, 1.0
	if dist > 0 {
		nx, ny = dx/dist, dy/dist
	}

	// 穿透修正按质量倒数分配
	if overlap := rsum - dist; overlap > 0 {
		a.pos.X -= nx * overlap * a.invMass / total
		a.pos.Y -= ny * overlap * a.invMass / total
		b.pos.X += nx * overlap * b.invMass / total
		b.pos.Y += ny * overlap * b.invMass / total
	}

	var avx, avy, bvx, bvy float64
	if a.vel != nil {
		avx, avy = a.vel.VX, a.vel.VY
	}
	if b.vel != nil {
		bvx, bvy = b.vel.VX, b.vel.VY
	}
	rvx, rvy := bvx-avx, bvy-avy

	vn := rvx*nx + rvy*ny
	if vn >= 0 {
		return true
	}
	jn := -(1 + ps.cfg.Restitution) * vn / total

	// 切向摩擦
	tx, ty := -ny, nx
	vt := rvx*tx + rvy*ty
	jt := -vt * ps.cfg.Friction / total

	ix := jn*nx + jt*tx
	iy := jn*ny + jt*ty
	if a.vel != nil {
		a.vel.VX -= ix * a.invMass
		a.vel.VY -= iy * a.invMass
	}
	if b.vel != nil {
		b.vel.VX += ix * b.invMass
		b.vel.VY += iy * b.invMass
	}
	return true
}

// Forget 移除与实体相关的接触记录（实体销毁后调用）
func (ps *PhysicsSystem) Forget(id ecs.EntityID) {
	ps.broad.forget(id)
	for k := range ps.contacts {
		if k.a == id || k.b == id {
			delete(ps.contacts, k)
		}
	}
}

// Reset 清空接触记录
func (ps *PhysicsSystem) Reset() {
	ps.broad.reset()
	clear(ps.contacts)
}
