package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/decker502/xrpsuika/pkg/config"
)

// fakeWorld 记录调用的物理世界替身
type fakeWorld struct {
	next      BodyHandle
	bodies    map[BodyHandle]BodySpec
	destroyed []BodyHandle
	frozen    bool
	cleared   int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{bodies: make(map[BodyHandle]BodySpec)}
}

func (w *fakeWorld) CreateBody(spec BodySpec) BodyHandle {
	w.next++
	w.bodies[w.next] = spec
	return w.next
}

func (w *fakeWorld) DestroyBody(h BodyHandle) {
	if _, ok := w.bodies[h]; !ok {
		return
	}
	delete(w.bodies, h)
	w.destroyed = append(w.destroyed, h)
}

func (w *fakeWorld) SetVelocity(BodyHandle, float64, float64) {}
func (w *fakeWorld) SetAngle(BodyHandle, float64)             {}
func (w *fakeWorld) Freeze()                                  { w.frozen = true }

func (w *fakeWorld) Clear() {
	clear(w.bodies)
	w.frozen = false
	w.cleared++
}

// state 构造碰撞快照，y 默认在失败线下方
func (w *fakeWorld) state(h BodyHandle) BodyState {
	spec := w.bodies[h]
	return BodyState{Handle: h, Static: spec.Static, X: spec.X, Y: spec.Y, Radius: spec.Radius}
}

func (w *fakeWorld) pair(a, b BodyHandle) CollisionPair {
	return CollisionPair{A: w.state(a), B: w.state(b)}
}

func (w *fakeWorld) dynamicCount() int {
	n := 0
	for _, spec := range w.bodies {
		if !spec.Static {
			n++
		}
	}
	return n
}

// fakeRemote 可注入失败的远端存储替身
type fakeRemote struct {
	mu          sync.Mutex
	profiles    map[string]ProfileRecord
	leaderboard []LeaderboardRecord
	calls       []string

	fetchErr  error
	upsertErr error
	// upsertGate 非 nil 时 upsert 记录调用后等待它关闭
	upsertGate chan struct{}
	// failEntry 返回 true 时该排行榜记录写入失败
	failEntry func(LeaderboardRecord) bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{profiles: make(map[string]ProfileRecord)}
}

func (r *fakeRemote) FetchProfile(_ context.Context, playerID string) (ProfileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "fetch")
	if r.fetchErr != nil {
		return ProfileRecord{}, r.fetchErr
	}
	rec, ok := r.profiles[playerID]
	if !ok {
		return ProfileRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *fakeRemote) UpsertProfile(_ context.Context, rec ProfileRecord) error {
	r.mu.Lock()
	r.calls = append(r.calls, "upsert")
	gate := r.upsertGate
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.profiles[rec.PlayerID] = rec
	return nil
}

func (r *fakeRemote) InsertLeaderboardEntry(_ context.Context, rec LeaderboardRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "insert")
	if r.failEntry != nil && r.failEntry(rec) {
		return errors.New("insert rejected")
	}
	r.leaderboard = append(r.leaderboard, rec)
	return nil
}

func (r *fakeRemote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRemote) Leaderboard() []LeaderboardRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LeaderboardRecord(nil), r.leaderboard...)
}

// countCalls 统计某类远端调用次数
func (r *fakeRemote) countCalls(name string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// waitCalls 等待远端调用次数达到 n
func (r *fakeRemote) waitCalls(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Calls()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %d remote calls, got %v", n, r.Calls())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// leaderboardRemote 支持读取排行榜的远端替身
type leaderboardRemote struct {
	*fakeRemote
	topErr error
}

func (r *leaderboardRemote) TopScores(_ context.Context, limit int) ([]LeaderboardRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "top")
	if r.topErr != nil {
		return nil, r.topErr
	}
	board := append([]LeaderboardRecord(nil), r.leaderboard...)
	slices.SortStableFunc(board, func(a, b LeaderboardRecord) int { return b.Score - a.Score })
	if len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

// fakeClock 手动推进的时钟
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// threeTierCatalog 分值 1/3/6 的三级等级表
func threeTierCatalog(t *testing.T) *config.TierCatalog {
	t.Helper()
	return mustTiers(t, `
spawnMaxTier: 1
tiers:
  - {name: "a", radius: 10, scoreValue: 1}
  - {name: "b", radius: 15, scoreValue: 3}
  - {name: "c", radius: 20, scoreValue: 6}
`)
}

func mustTiers(t *testing.T, data string) *config.TierCatalog {
	t.Helper()
	tiers, err := config.ParseTierCatalog([]byte(data))
	if err != nil {
		t.Fatalf("ParseTierCatalog() error: %v", err)
	}
	return tiers
}

// shippedCatalogs 加载仓库 data/ 下的正式配置
func shippedCatalogs(t *testing.T) (*config.TierCatalog, *config.LevelCatalog) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "data", "tiers.yaml"))
	if err != nil {
		t.Fatalf("Failed to read tiers.yaml: %v", err)
	}
	tiers, err := config.ParseTierCatalog(data)
	if err != nil {
		t.Fatalf("ParseTierCatalog() error: %v", err)
	}
	data, err = os.ReadFile(filepath.Join("..", "..", "data", "levels.yaml"))
	if err != nil {
		t.Fatalf("Failed to read levels.yaml: %v", err)
	}
	levels, err := config.ParseLevelCatalog(data, tiers)
	if err != nil {
		t.Fatalf("ParseLevelCatalog() error: %v", err)
	}
	return tiers, levels
}

func thresholds(values ...int) []config.Threshold {
	out := make([]config.Threshold, len(values))
	for i, v := range values {
		out[i] = config.Threshold{
			Slot:    i,
			LevelID: i + 1,
			UnlockConfig: config.UnlockConfig{
				Threshold: v,
				Code:      fmt.Sprintf("CODE%d", i+1),
			},
		}
	}
	return out
}

func eventsOf[T Event](events []Event) []T {
	var out []T
	for _, e := range events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
