package systems

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/decker502/xrpsuika/pkg/config"
	"github.com/decker502/xrpsuika/pkg/ecs"
)

func bodiesOf(em *ecs.EntityManager) []body {
	ps := NewPhysicsSystem(em, config.DefaultGameConfig().Physics, testWidth, testFloor)
	return ps.collect()
}

func TestBroadPhaseCandidates(t *testing.T) {
	em := ecs.NewEntityManager()
	a := addCircle(em, 100, 500, 30, false)
	b := addCircle(em, 150, 500, 30, false)
	addCircle(em, 500, 200, 30, false)

	bodies := bodiesOf(em)
	bp := newBroadPhase(testWidth, testFloor)
	bp.sync(bodies)

	pairs := bp.candidates(bodies)
	if len(pairs) != 1 {
		t.Fatalf("Candidates: got %v, want one pair", pairs)
	}
	if bodies[pairs[0][0]].id != a || bodies[pairs[0][1]].id != b {
		t.Errorf("Pair: got %v", pairs[0])
	}
}

// TestBroadPhaseCoversTouchingPairs 所有真实接触都在候选中，且候选有序
func TestBroadPhaseCoversTouchingPairs(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	em := ecs.NewEntityManager()
	for i := 0; i < 60; i++ {
		r := 28 + float64(rng.IntN(11))*5
		addCircle(em, r+rng.Float64()*(testWidth-2*r), -200+rng.Float64()*(testFloor+200-r), r, false)
	}

	bodies := bodiesOf(em)
	bp := newBroadPhase(testWidth, testFloor)
	bp.sync(bodies)
	pairs := bp.candidates(bodies)

	got := make(map[[2]int]bool, len(pairs))
	for k, p := range pairs {
		if p[0] >= p[1] {
			t.Fatalf("Pair %v not ordered", p)
		}
		if k > 0 {
			prev := pairs[k-1]
			if prev[0] > p[0] || (prev[0] == p[0] && prev[1] >= p[1]) {
				t.Fatalf("Pairs not sorted: %v before %v", prev, p)
			}
		}
		got[p] = true
	}

	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			dist := math.Hypot(b.pos.X-a.pos.X, b.pos.Y-a.pos.Y)
			if dist < a.col.Radius+b.col.Radius+contactSlop && !got[[2]int{i, j}] {
				t.Errorf("Touching pair (%d, %d) missing from candidates", i, j)
			}
		}
	}
}

func TestBroadPhasePrune(t *testing.T) {
	em := ecs.NewEntityManager()
	a := addCircle(em, 100, 500, 30, false)
	addCircle(em, 120, 500, 30, false)

	bp := newBroadPhase(testWidth, testFloor)
	bp.sync(bodiesOf(em))

	em.DestroyEntity(a)
	em.RemoveMarkedEntities()
	bodies := bodiesOf(em)
	bp.sync(bodies)

	if len(bp.objects) != 1 {
		t.Errorf("Objects after prune: got %d, want 1", len(bp.objects))
	}
	if pairs := bp.candidates(bodies); len(pairs) != 0 {
		t.Errorf("Candidates after prune: got %v", pairs)
	}

	bp.reset()
	if len(bp.objects) != 0 {
		t.Errorf("Objects after reset: got %d", len(bp.objects))
	}
}
