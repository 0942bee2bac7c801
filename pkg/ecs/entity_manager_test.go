package ecs

import (
	"reflect"
	"testing"
)

// 测试组件类型定义
type testPositionComponent struct {
	X, Y float64
}

type testCircleComponent struct {
	Radius float64
}

func TestCreateEntity(t *testing.T) {
	em := NewEntityManager()
	id1 := em.CreateEntity()
	id2 := em.CreateEntity()

	// 测试实体ID唯一性
	if id1 == id2 {
		t.Error("Entity IDs should be unique")
	}

	// 测试ID从1开始
	if id1 != 1 {
		t.Errorf("First entity ID should be 1, got %d", id1)
	}
	if id1 == InvalidEntity || id2 == InvalidEntity {
		t.Error("Created entity should never use InvalidEntity")
	}
	if em.Count() != 2 {
		t.Errorf("Count() = %d, want 2", em.Count())
	}
}

func TestGenericGetComponent(t *testing.T) {
	em := NewEntityManager()
	id := em.CreateEntity()

	em.AddComponent(id, &testPositionComponent{X: 100, Y: 200})

	pos, ok := GetComponent[*testPositionComponent](em, id)
	if !ok {
		t.Fatal("Component should be found")
	}
	if pos.X != 100 || pos.Y != 200 {
		t.Errorf("Component data mismatch, expected (100, 200), got (%f, %f)", pos.X, pos.Y)
	}

	// 泛型版本与反射版本一致
	if !em.HasComponent(id, reflect.TypeOf(&testPositionComponent{})) {
		t.Error("HasComponent should agree with generic AddComponent")
	}
	if HasComponent[*testCircleComponent](em, id) {
		t.Error("Should not have circle component")
	}
	if _, ok := GetComponent[*testCircleComponent](em, id); ok {
		t.Error("GetComponent should fail for missing component")
	}
}

func TestDestroyEntity(t *testing.T) {
	em := NewEntityManager()
	id := em.CreateEntity()
	em.AddComponent(id, &testPositionComponent{})

	// 标记删除
	em.DestroyEntity(id)

	// 清理前实体仍存在
	if !em.Exists(id) {
		t.Error("Entity should still exist before cleanup")
	}

	// 清理后实体消失
	em.RemoveMarkedEntities()
	if em.Exists(id) {
		t.Error("Entity should be removed after cleanup")
	}
	if em.Count() != 0 {
		t.Errorf("Count() = %d, want 0", em.Count())
	}

	// 删除后 AddComponent 不会复活实体
	em.AddComponent(id, &testPositionComponent{})
	if em.Exists(id) {
		t.Error("AddComponent should not resurrect a removed entity")
	}
}

func TestGetEntitiesWithKeepsCreationOrder(t *testing.T) {
	em := NewEntityManager()

	ids := make([]EntityID, 0, 20)
	for i := 0; i < 20; i++ {
		id := em.CreateEntity()
		em.AddComponent(id, &testPositionComponent{X: float64(i)})
		if i%2 == 0 {
			em.AddComponent(id, &testCircleComponent{Radius: 1})
		}
		ids = append(ids, id)
	}

	all := GetEntitiesWith1[*testPositionComponent](em)
	if len(all) != len(ids) {
		t.Fatalf("Expected %d entities, got %d", len(ids), len(all))
	}
	for i := range all {
		if all[i] != ids[i] {
			t.Fatalf("Query order mismatch at %d: got %d, want %d", i, all[i], ids[i])
		}
	}

	circles := GetEntitiesWith2[*testPositionComponent, *testCircleComponent](em)
	if len(circles) != 10 {
		t.Fatalf("Expected 10 circle entities, got %d", len(circles))
	}
	for i := 1; i < len(circles); i++ {
		if circles[i] <= circles[i-1] {
			t.Fatalf("Query result not in creation order: %v", circles)
		}
	}

	// 删除中间的实体后顺序保持
	em.DestroyEntity(ids[4])
	em.DestroyEntity(ids[10])
	em.RemoveMarkedEntities()
	remaining := GetEntitiesWith2[*testPositionComponent, *testCircleComponent](em)
	if len(remaining) != 8 {
		t.Fatalf("Expected 8 circle entities after destroy, got %d", len(remaining))
	}
	for i := 1; i < len(remaining); i++ {
		if remaining[i] <= remaining[i-1] {
			t.Fatalf("Order broken after destroy: %v", remaining)
		}
	}
}

func TestClear(t *testing.T) {
	em := NewEntityManager()
	first := em.CreateEntity()
	em.CreateEntity()
	em.DestroyEntity(first)

	em.Clear()
	if em.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", em.Count())
	}

	// ID 不回收
	next := em.CreateEntity()
	if next <= first {
		t.Errorf("IDs should keep increasing after Clear, got %d", next)
	}
	em.RemoveMarkedEntities()
	if !em.Exists(next) {
		t.Error("Stale destroy marks must not survive Clear")
	}
}

func TestRemoveComponent(t *testing.T) {
	em := NewEntityManager()
	id := em.CreateEntity()
	em.AddComponent(id, &testPositionComponent{})
	em.AddComponent(id, &testCircleComponent{})

	em.RemoveComponent(id, reflect.TypeOf(&testCircleComponent{}))
	if HasComponent[*testCircleComponent](em, id) {
		t.Error("Circle component should be removed")
	}
	if !HasComponent[*testPositionComponent](em, id) {
		t.Error("Position component should remain")
	}
	if got := GetEntitiesWith3[*testPositionComponent, *testCircleComponent, *testPositionComponent](em); len(got) != 0 {
		t.Errorf("Expected no entities with circle, got %v", got)
	}
}
