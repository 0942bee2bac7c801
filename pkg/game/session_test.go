package game

import (
	"testing"
	"time"

	"github.com/decker502/xrpsuika/pkg/config"
)

type sessionFixture struct {
	session *GameSession
	world   *fakeWorld
	remote  *fakeRemote
	facade  *Facade
	clock   *fakeClock
}

func newSessionFixture(t *testing.T, mode Mode) *sessionFixture {
	t.Helper()
	tiers, levels := shippedCatalogs(t)
	clock := newFakeClock()
	remote := newFakeRemote()
	facade, err := NewFacade(NewMemoryStore(), remote, FacadeOptions{
		Codes: levels.Len(),
		Now:   clock.Now,
		Rand:  testRand(),
	})
	if err != nil {
		t.Fatalf("NewFacade() error: %v", err)
	}
	world := newFakeWorld()

	s, err := NewGameSession(SessionOptions{
		Tiers:       tiers,
		Levels:      levels,
		Mode:        mode,
		Game:        config.DefaultGameConfig(),
		World:       world,
		Persistence: facade,
		Clock:       clock.Now,
		Rand:        testRand(),
	})
	if err != nil {
		t.Fatalf("NewGameSession() error: %v", err)
	}
	return &sessionFixture{session: s, world: world, remote: remote, facade: facade, clock: clock}
}

// mergeBatch 生成 n 对指定等级的碰撞
func (f *sessionFixture) mergeBatch(tier, n int) Tick {
	var batch CollisionBatch
	for i := 0; i < n; i++ {
		x := 100 + float64(i)*40
		a := f.session.Resolver().Spawn(tier, x, 600, false)
		b := f.session.Resolver().Spawn(tier, x+10, 600, false)
		batch.Pairs = append(batch.Pairs, f.world.pair(a, b))
	}
	return Tick{Batch: batch}
}

func (f *sessionFixture) loseTick() Tick {
	high := f.session.Resolver().Spawn(0, 300, 20, false)
	low := f.session.Resolver().Spawn(1, 300, 120, false)
	return Tick{Batch: CollisionBatch{Pairs: []CollisionPair{f.world.pair(high, low)}}}
}

// TestSessionMenu 菜单只有装饰代币，不接受掉落和碰撞
func TestSessionMenu(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)

	if f.session.State() != StateMenu {
		t.Fatalf("Initial state: got %s, want MENU", f.session.State())
	}
	if len(f.world.bodies) != menuDecorations || f.world.dynamicCount() != 0 {
		t.Errorf("Menu bodies: %d total, %d dynamic", len(f.world.bodies), f.world.dynamicCount())
	}

	if events := f.session.Dispatch(DropInput{X: 300}); len(events) != 0 {
		t.Errorf("Drop in MENU produced events: %+v", events)
	}
	if events := f.session.Dispatch(f.mergeBatch(0, 1)); len(events) != 0 {
		t.Errorf("Tick in MENU produced events: %+v", events)
	}
	if f.session.Score() != 0 {
		t.Errorf("Score in MENU: got %d, want 0", f.session.Score())
	}
}

// TestSessionStart 开始游戏清除装饰并进入 READY
func TestSessionStart(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)

	events := f.session.Dispatch(StartInput{})
	changes := eventsOf[StateChangedEvent](events)
	if len(changes) != 1 || changes[0].From != StateMenu || changes[0].To != StateReady {
		t.Fatalf("Start events: %+v", events)
	}
	if len(f.world.bodies) != 0 {
		t.Errorf("Decorations not cleared: %d bodies", len(f.world.bodies))
	}

	// 重复开始被忽略
	if events := f.session.Dispatch(StartInput{}); len(events) != 0 {
		t.Errorf("Second start produced events: %+v", events)
	}
}

// TestSessionDropCooldown 冷却期内拒绝掉落，850ms 时先回到 READY 再接受
func TestSessionDropCooldown(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})

	current, next, _ := f.session.Preview()
	events := f.session.Dispatch(DropInput{X: 320})
	drops := eventsOf[DropEvent](events)
	if len(drops) != 1 || drops[0].Tier != current || drops[0].NextTier != next {
		t.Fatalf("First drop: %+v (preview %d/%d)", events, current, next)
	}
	if f.session.State() != StateDropping {
		t.Fatalf("State after drop: got %s, want DROPPING", f.session.State())
	}

	f.clock.Advance(200 * time.Millisecond)
	if events := f.session.Dispatch(DropInput{X: 320}); len(events) != 0 {
		t.Errorf("Drop at 200ms produced events: %+v", events)
	}
	if f.session.State() != StateDropping {
		t.Errorf("State at 200ms: got %s, want DROPPING", f.session.State())
	}
	if got := f.world.dynamicCount(); got != 1 {
		t.Errorf("Bodies at 200ms: got %d, want 1", got)
	}

	f.clock.Advance(650 * time.Millisecond)
	events = f.session.Dispatch(DropInput{X: 320})
	if len(events) != 3 {
		t.Fatalf("Drop at 850ms: expected 3 events, got %+v", events)
	}
	if c, ok := events[0].(StateChangedEvent); !ok || c.From != StateDropping || c.To != StateReady {
		t.Errorf("events[0]: got %+v, want DROPPING -> READY", events[0])
	}
	if _, ok := events[1].(DropEvent); !ok {
		t.Errorf("events[1]: got %+v, want DropEvent", events[1])
	}
	if c, ok := events[2].(StateChangedEvent); !ok || c.To != StateDropping {
		t.Errorf("events[2]: got %+v, want READY -> DROPPING", events[2])
	}
	if got := f.world.dynamicCount(); got != 2 {
		t.Errorf("Bodies at 850ms: got %d, want 2", got)
	}
}

// TestSessionTimerWithoutInput 冷却结束后任意消息都会推进到 READY
func TestSessionTimerWithoutInput(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})
	f.session.Dispatch(DropInput{X: 320})

	f.clock.Advance(800 * time.Millisecond)
	f.session.Dispatch(Tick{})
	if f.session.State() != StateReady {
		t.Errorf("State after cooldown: got %s, want READY", f.session.State())
	}
}

// TestSessionDropClamped 掉落位置限制在容器内
func TestSessionDropClamped(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})

	drops := eventsOf[DropEvent](f.session.Dispatch(DropInput{X: -500}))
	if len(drops) != 1 {
		t.Fatal("Expected a drop")
	}
	spec := f.world.bodies[drops[0].Handle]
	if spec.X != spec.Radius {
		t.Errorf("Drop X: got %v, want %v", spec.X, spec.Radius)
	}
	if spec.Y != config.DefaultGameConfig().PreviewHeight {
		t.Errorf("Drop Y: got %v", spec.Y)
	}

	f.session.Dispatch(MoveInput{X: 5000})
	_, _, x := f.session.Preview()
	if x >= 640 {
		t.Errorf("Preview X not clamped: %v", x)
	}
}

// TestSessionMergeAndUnlock 合成计分，达到本关阈值时揭示并保存
func TestSessionMergeAndUnlock(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})

	events := f.session.Dispatch(f.mergeBatch(0, 1))
	if merges := eventsOf[MergeEvent](events); len(merges) != 1 || merges[0].NewTier != 1 {
		t.Fatalf("Merge events: %+v", events)
	}
	if f.session.Score() != 1 {
		t.Errorf("Score: got %d, want 1", f.session.Score())
	}

	// 第 1 关最高等级 6（28 分），四次合成跨过 100
	events = f.session.Dispatch(f.mergeBatch(6, 4))
	merges := eventsOf[MergeEvent](events)
	if len(merges) != 4 {
		t.Fatalf("Expected 4 merges, got %d", len(merges))
	}
	for _, m := range merges {
		if m.NewTier != 0 {
			t.Errorf("Terminal merge should wrap to 0, got %d", m.NewTier)
		}
	}
	unlocks := eventsOf[UnlockEvent](events)
	if len(unlocks) != 1 || unlocks[0].RewardCode != "TOTHEMOON" {
		t.Fatalf("Unlock events: %+v", unlocks)
	}
	if f.session.Score() != 113 {
		t.Errorf("Score: got %d, want 113", f.session.Score())
	}

	p := f.facade.Profile()
	if !p.UnlockedCodes[0] || p.CodeUnlockDates[0] == nil {
		t.Errorf("Profile unlock not recorded: %+v", p)
	}
	if p.HighScore != 113 {
		t.Errorf("HighScore mid-game: got %d, want 113", p.HighScore)
	}
	rec, ok := f.remote.profiles[f.facade.PlayerID()]
	if !ok || !rec.UnlockedCodes[0] {
		t.Errorf("Remote profile not saved: %+v", rec)
	}
	if !f.session.Progress().Complete {
		t.Error("Per-level progress should be complete after the only unlock")
	}
}

// TestSessionGlobalMode 旧版玩法一局内评估全部阈值
func TestSessionGlobalMode(t *testing.T) {
	f := newSessionFixture(t, ModeGlobal)
	f.session.Dispatch(StartInput{})

	events := f.session.Dispatch(f.mergeBatch(6, 20)) // 560 分
	unlocks := eventsOf[UnlockEvent](events)
	if len(unlocks) != 2 {
		t.Fatalf("Expected 2 unlocks, got %+v", unlocks)
	}
	if unlocks[0].RewardCode != "TOTHEMOON" || unlocks[1].RewardCode != "DIAMONDHANDS" {
		t.Errorf("Unlock codes: %s, %s", unlocks[0].RewardCode, unlocks[1].RewardCode)
	}
	if got := f.session.Progress().NextThreshold; got != 1000 {
		t.Errorf("Next threshold: got %d, want 1000", got)
	}
}

// TestSessionLosePersistsOnce 失败冻结物理世界，结算只持久化一次
func TestSessionLosePersistsOnce(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})
	f.session.Dispatch(f.mergeBatch(1, 2)) // 6 分

	events := f.session.Dispatch(f.loseTick())
	if len(eventsOf[LoseEvent](events)) != 1 {
		t.Fatalf("Expected LoseEvent, got %+v", events)
	}
	overs := eventsOf[GameOverEvent](events)
	if len(overs) != 1 {
		t.Fatalf("Expected GameOverEvent, got %+v", events)
	}
	over := overs[0]
	if over.Score != 6 || over.HighScore != 6 || !over.NewRecord || over.Phrase == "" {
		t.Errorf("GameOver: %+v", over)
	}
	if f.session.State() != StateLost || !f.world.frozen {
		t.Errorf("State %s, frozen %v", f.session.State(), f.world.frozen)
	}
	if f.session.RankTitle() != config.LostTitle {
		t.Errorf("RankTitle: got %q", f.session.RankTitle())
	}

	// LOST 中的输入与碰撞被忽略
	if events := f.session.Dispatch(f.loseTick()); len(events) != 0 {
		t.Errorf("Tick in LOST produced events: %+v", events)
	}
	if events := f.session.Dispatch(DropInput{X: 100}); len(events) != 0 {
		t.Errorf("Drop in LOST produced events: %+v", events)
	}

	if got := f.facade.Profile().TotalGamesPlayed; got != 1 {
		t.Errorf("TotalGamesPlayed: got %d, want 1", got)
	}
	if board := f.remote.Leaderboard(); len(board) != 1 || board[0].Score != 6 {
		t.Errorf("Leaderboard: %+v", board)
	}

	events = f.session.Dispatch(ResetInput{})
	if f.session.State() != StateMenu || f.world.frozen || f.world.cleared != 1 {
		t.Errorf("After reset: state %s, frozen %v, cleared %d", f.session.State(), f.world.frozen, f.world.cleared)
	}
	if len(eventsOf[StateChangedEvent](events)) != 1 {
		t.Errorf("Reset events: %+v", events)
	}
	if f.session.Score() != 0 || f.session.GameOver() != nil {
		t.Error("Reset should clear the round")
	}
}

// TestSessionLoseBelowRecord 未破纪录时使用普通结算语
func TestSessionLoseBelowRecord(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.facade.Update(func(p *Profile) { p.HighScore = 1000 })
	f.session.Dispatch(StartInput{})

	overs := eventsOf[GameOverEvent](f.session.Dispatch(f.loseTick()))
	if len(overs) != 1 {
		t.Fatal("Expected GameOverEvent")
	}
	if overs[0].NewRecord || overs[0].HighScore != 1000 {
		t.Errorf("GameOver: %+v", overs[0])
	}
	found := false
	for _, phrase := range config.GameOverPhrases {
		found = found || phrase == overs[0].Phrase
	}
	if !found {
		t.Errorf("Phrase %q not from GameOverPhrases", overs[0].Phrase)
	}
}

// TestSessionResetOnlyFromLost 游戏中不能重置
func TestSessionResetOnlyFromLost(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})
	if events := f.session.Dispatch(ResetInput{}); len(events) != 0 {
		t.Errorf("Reset in READY produced events: %+v", events)
	}
	if f.session.State() != StateReady {
		t.Errorf("State: got %s, want READY", f.session.State())
	}
}

// TestSessionOfflineQueueAndReconnect 离线时排行榜记录排队，重连后补发
func TestSessionOfflineQueueAndReconnect(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(OfflineSignal{})
	f.session.Dispatch(StartInput{})
	f.session.Dispatch(f.mergeBatch(0, 3))
	f.session.Dispatch(f.loseTick())

	if len(f.remote.Calls()) != 0 {
		t.Fatalf("Remote called while offline: %v", f.remote.Calls())
	}
	if pending, _ := f.facade.PendingEntries(); len(pending) != 1 {
		t.Fatalf("Pending: got %d, want 1", len(pending))
	}

	f.session.Dispatch(ReconnectSignal{})
	if board := f.remote.Leaderboard(); len(board) != 1 || board[0].Score != 3 {
		t.Errorf("Leaderboard after reconnect: %+v", board)
	}
	if pending, _ := f.facade.PendingEntries(); len(pending) != 0 {
		t.Errorf("Pending after reconnect: %+v", pending)
	}
}

// TestSessionSelectLevel 菜单中切换关卡
func TestSessionSelectLevel(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)

	f.session.Dispatch(SelectLevelInput{LevelID: 3})
	if got := f.session.Level().ID; got != 3 {
		t.Fatalf("Level: got %d, want 3", got)
	}
	if got := f.session.Resolver().Terminal(); got != 8 {
		t.Errorf("Terminal: got %d, want 8", got)
	}
	if p := f.session.Progress(); p.NextCode != "HODLGANG" {
		t.Errorf("Next code: got %q", p.NextCode)
	}

	f.session.Dispatch(SelectLevelInput{LevelID: 42})
	if got := f.session.Level().ID; got != 3 {
		t.Errorf("Unknown level changed selection to %d", got)
	}

	f.session.Dispatch(StartInput{})
	f.session.Dispatch(SelectLevelInput{LevelID: 1})
	if got := f.session.Level().ID; got != 3 {
		t.Errorf("Level changed outside MENU: %d", got)
	}
}

// TestSessionRestoresUnlocks 已揭示的奖励码不会再次触发
func TestSessionRestoresUnlocks(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.facade.Update(func(p *Profile) { p.RevealCode(0, f.clock.Now()) })
	f.session.Dispatch(StartInput{})

	events := f.session.Dispatch(f.mergeBatch(6, 4))
	if unlocks := eventsOf[UnlockEvent](events); len(unlocks) != 0 {
		t.Errorf("Restored unlock re-fired: %+v", unlocks)
	}
}

// TestParseMode 模式名解析
func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModePerLevel, false},
		{"per-level", ModePerLevel, false},
		{"global", ModeGlobal, false},
		{"bogus", ModePerLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

// TestSessionRecordSavedOncePerRound 破纪录后只发出一次远端保存，结算时再保存
func TestSessionRecordSavedOncePerRound(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})

	for i := 0; i < 3; i++ {
		f.session.Dispatch(f.mergeBatch(0, 1))
	}
	if got := f.facade.Profile().HighScore; got != 3 {
		t.Fatalf("Local high score: got %d, want 3", got)
	}
	if got := f.remote.countCalls("upsert"); got != 1 {
		t.Errorf("Upserts while raising the record: got %d, want 1", got)
	}

	f.session.Dispatch(f.loseTick())
	if got := f.remote.countCalls("upsert"); got != 2 {
		t.Errorf("Upserts after game over: got %d, want 2", got)
	}
	if rec := f.remote.profiles[f.facade.PlayerID()]; rec.HighScore != 3 {
		t.Errorf("Remote high score: got %d, want 3", rec.HighScore)
	}
}

// TestSessionReconnectRestoresRemoteUnlocks 重连合并的远端奖励码立即反映到进度
func TestSessionReconnectRestoresRemoteUnlocks(t *testing.T) {
	f := newSessionFixture(t, ModePerLevel)
	f.session.Dispatch(StartInput{})
	if f.session.Progress().Complete {
		t.Fatal("Progress should not be complete before any unlock")
	}

	remoteProfile := NewProfile(5)
	remoteProfile.RevealCode(0, f.clock.Now())
	f.remote.profiles[f.facade.PlayerID()] = remoteProfile.Record(f.facade.PlayerID(), f.clock.Now())

	f.session.Dispatch(ReconnectSignal{})
	if !f.session.Progress().Complete {
		t.Error("Remote unlock should complete the level progress")
	}
	if s := f.session.Stats(); s.Unlocked != 1 {
		t.Errorf("Stats unlocked: got %d, want 1", s.Unlocked)
	}
	if f.session.State() != StateReady {
		t.Errorf("State: got %s, want READY", f.session.State())
	}
}

// TestSessionLeaderboardAfterGameOver 结算后拉取排行榜
func TestSessionLeaderboardAfterGameOver(t *testing.T) {
	tiers, levels := shippedCatalogs(t)
	clock := newFakeClock()
	remote := &leaderboardRemote{fakeRemote: newFakeRemote()}
	facade, err := NewFacade(NewMemoryStore(), remote, FacadeOptions{Codes: levels.Len(), Now: clock.Now, Rand: testRand()})
	if err != nil {
		t.Fatalf("NewFacade() error: %v", err)
	}
	world := newFakeWorld()
	s, err := NewGameSession(SessionOptions{
		Tiers: tiers, Levels: levels, World: world, Persistence: facade,
		Clock: clock.Now, Rand: testRand(),
	})
	if err != nil {
		t.Fatalf("NewGameSession() error: %v", err)
	}
	fx := &sessionFixture{session: s, world: world, remote: remote.fakeRemote, facade: facade, clock: clock}

	s.Dispatch(StartInput{})
	s.Dispatch(fx.mergeBatch(1, 1))
	s.Dispatch(fx.loseTick())

	board := s.Leaderboard()
	if len(board) != 1 || board[0].Score != 3 {
		t.Errorf("Leaderboard: %+v", board)
	}
}
