package systems

import (
	"cmp"
	"math"
	"slices"

	"github.com/solarlune/resolv"

	"github.com/decker502/xrpsuika/pkg/ecs"
)

const (
	broadPhaseCell   = 32 // 空间网格边长（像素）
	broadPhaseMargin = 4  // 包围盒外扩，覆盖接触容差和子步内位移
)

// broadPhase 基于 resolv 网格空间的粗检测
//
// 每个刚体对应一个外扩的方形 resolv.Object，只有落在相同网格中的两个刚体才进入精确的圆形检测。
// 网格上方额外覆盖一个容器高度，代币越过失败线后仍能被检测
type broadPhase struct {
	space   *resolv.Space
	objects map[ecs.EntityID]*resolv.Object
	originX float64 // 网格左上角对应的世界坐标
	originY float64
}

func newBroadPhase(width, floor float64) *broadPhase {
	originX := -float64(broadPhaseCell)
	originY := -floor - broadPhaseCell
	w := int(math.Ceil(width-originX)) + broadPhaseCell
	h := int(math.Ceil(floor-originY)) + broadPhaseCell
	return &broadPhase{
		space:   resolv.NewSpace(w, h, broadPhaseCell, broadPhaseCell),
		objects: make(map[ecs.EntityID]*resolv.Object),
		originX: originX,
		originY: originY,
	}
}

// sync 把刚体位置写入网格，Data 记录刚体在本步切片中的下标
func (bp *broadPhase) sync(bodies []body) {
	for i := range bodies {
		b := &bodies[i]
		half := b.col.Radius + broadPhaseMargin
		obj, ok := bp.objects[b.id]
		if !ok {
			obj = resolv.NewObject(0, 0, 2*half, 2*half)
			bp.space.Add(obj)
			bp.objects[b.id] = obj
		}
		obj.X = b.pos.X - half - bp.originX
		obj.Y = b.pos.Y - half - bp.originY
		obj.W, obj.H = 2*half, 2*half
		obj.Data = i
		obj.Update()
	}
	if len(bp.objects) > len(bodies) {
		bp.prune(bodies)
	}
}

// prune 移除已不存在的刚体
func (bp *broadPhase) prune(bodies []body) {
	alive := make(map[ecs.EntityID]struct{}, len(bodies))
	for _, b := range bodies {
		alive[b.id] = struct{}{}
	}
	for id := range bp.objects {
		if _, ok := alive[id]; !ok {
			bp.forget(id)
		}
	}
}

// candidates 返回可能接触的下标对 (i, j)，i < j，按 (i, j) 升序
//
// 需先调用 sync
func (bp *broadPhase) candidates(bodies []body) [][2]int {
	var pairs [][2]int
	for i := range bodies {
		obj, ok := bp.objects[bodies[i].id]
		if !ok {
			continue
		}
		hit := obj.Check(0, 0)
		if hit == nil {
			continue
		}
		start := len(pairs)
		for _, other := range hit.Objects {
			if j, ok := other.Data.(int); ok && j > i && j < len(bodies) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
		slices.SortFunc(pairs[start:], func(a, b [2]int) int { return cmp.Compare(a[1], b[1]) })
	}
	return pairs
}

func (bp *broadPhase) forget(id ecs.EntityID) {
	if obj, ok := bp.objects[id]; ok {
		bp.space.Remove(obj)
		delete(bp.objects, id)
	}
}

func (bp *broadPhase) reset() {
	for id := range bp.objects {
		bp.forget(id)
	}
}
