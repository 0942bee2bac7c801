package game

import (
	"log"

	"github.com/decker502/xrpsuika/pkg/config"
)

// Entity 游戏中的一个代币
//
// Merged 是一次性标记：同一批碰撞中已被合成的代币不会再次参与合成
type Entity struct {
	Handle BodyHandle
	Tier   int
	Static bool
	Merged bool
}

// Resolution 一批碰撞的处理结果
type Resolution struct {
	Merges []MergeEvent
	Lose   *LoseEvent // 非 nil 表示触发失败，本批后续碰撞未处理
}

// MergeResolver 合成判定器
//
// 职责：
//   - 维护代币注册表（句柄 -> Entity）
//   - 按物理世界给出的顺序处理碰撞对，判定合成与失败
//   - 通过 PhysicsWorld 销毁被合成的代币并生成下一级代币
//
// 不直接修改分数，分数由 ScoreTracker 根据 MergeEvent 计算
type MergeResolver struct {
	tiers      *config.TierCatalog
	world      PhysicsWorld
	loseHeight float64
	terminal   int
	entities   map[BodyHandle]*Entity
}

// NewMergeResolver 创建合成判定器
//
// 参数：
//   - tiers: 代币等级表
//   - world: 物理世界
//   - loseHeight: 失败线 Y 坐标
//   - terminal: 当前关卡最高等级，合成两个该等级代币回到 0 级
func NewMergeResolver(tiers *config.TierCatalog, world PhysicsWorld, loseHeight float64, terminal int) *MergeResolver {
	if terminal < 0 || terminal > tiers.Terminal() {
		terminal = tiers.Terminal()
	}
	return &MergeResolver{
		tiers:      tiers,
		world:      world,
		loseHeight: loseHeight,
		terminal:   terminal,
		entities:   make(map[BodyHandle]*Entity),
	}
}

// Terminal 返回当前最高等级
func (r *MergeResolver) Terminal() int {
	return r.terminal
}

// Spawn 在物理世界中创建一个代币并登记
//
// 等级越界或物理世界拒绝创建时返回 0
func (r *MergeResolver) Spawn(tier int, x, y float64, static bool) BodyHandle {
	t, ok := r.tiers.Get(tier)
	if !ok {
		log.Printf("[MergeResolver] Refusing to spawn unknown tier %d", tier)
		return 0
	}

	h := r.world.CreateBody(BodySpec{Tier: tier, X: x, Y: y, Radius: t.Radius, Static: static})
	if h == 0 {
		return 0
	}
	r.entities[h] = &Entity{Handle: h, Tier: tier, Static: static}
	return h
}

// Entity 查询登记的代币
func (r *MergeResolver) Entity(h BodyHandle) (Entity, bool) {
	e, ok := r.entities[h]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Count 返回登记的代币数量
func (r *MergeResolver) Count() int {
	return len(r.entities)
}

// Resolve 处理一个物理步的碰撞批次
//
// 每个碰撞对依次检查：
//  1. 任一方为静态刚体 -> 跳过
//  2. 任一方越过失败线 -> 返回失败，停止处理本批
//  3. 等级不同 -> 跳过
//  4. 任一方本批已合成 -> 跳过
//  5. 合成：标记双方，销毁并在中点生成下一级代币
//
// 未登记的句柄（已销毁的旧句柄等）直接跳过
func (r *MergeResolver) Resolve(batch CollisionBatch) Resolution {
	var res Resolution
	consumed := make([]BodyHandle, 0)

	for _, pair := range batch.Pairs {
		a, b := pair.A, pair.B

		if a.Static || b.Static {
			continue
		}

		if lose := r.crossed(a, b); lose != nil {
			res.Lose = lose
			break
		}

		ea, eb := r.entities[a.Handle], r.entities[b.Handle]
		if ea == nil || eb == nil || ea == eb {
			continue
		}
		if ea.Static || eb.Static {
			continue
		}
		if ea.Tier != eb.Tier {
			continue
		}
		if ea.Merged || eb.Merged {
			continue
		}

		ea.Merged = true
		eb.Merged = true
		consumed = append(consumed, ea.Handle, eb.Handle)

		newTier := r.tiers.Next(ea.Tier, r.terminal)
		midX := (a.X + b.X) / 2
		midY := (a.Y + b.Y) / 2

		r.world.DestroyBody(ea.Handle)
		r.world.DestroyBody(eb.Handle)
		h := r.Spawn(newTier, midX, midY, false)

		res.Merges = append(res.Merges, MergeEvent{
			ConsumedTier: ea.Tier,
			NewTier:      newTier,
			X:            midX,
			Y:            midY,
			Handle:       h,
		})
	}

	// 已合成的代币移出注册表，下一步收到的旧句柄自然被忽略
	for _, h := range consumed {
		delete(r.entities, h)
	}
	return res
}

// crossed 检查碰撞双方是否有代币底边高于失败线
func (r *MergeResolver) crossed(a, b BodyState) *LoseEvent {
	for _, s := range [2]BodyState{a, b} {
		if !s.Static && s.Y+s.Radius < r.loseHeight {
			return &LoseEvent{Handle: s.Handle, Y: s.Y}
		}
	}
	return nil
}

// Reset 销毁全部登记的代币
func (r *MergeResolver) Reset() {
	for h := range r.entities {
		r.world.DestroyBody(h)
	}
	clear(r.entities)
}

// SetTerminal 切换关卡时更新最高等级
func (r *MergeResolver) SetTerminal(terminal int) {
	if terminal < 0 || terminal > r.tiers.Terminal() {
		terminal = r.tiers.Terminal()
	}
	r.terminal = terminal
}
