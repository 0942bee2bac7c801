package game

import (
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/decker502/xrpsuika/pkg/config"
)

// State 会话状态
type State int

const (
	StateMenu State = iota
	StateReady
	StateDropping
	StateLost
)

func (s State) String() string {
	switch s {
	case StateMenu:
		return "MENU"
	case StateReady:
		return "READY"
	case StateDropping:
		return "DROPPING"
	case StateLost:
		return "LOST"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode 解锁评估方式
type Mode int

const (
	// ModePerLevel 只评估本关的解锁阈值
	ModePerLevel Mode = iota
	// ModeGlobal 一局内评估全部阈值（旧版玩法）
	ModeGlobal
)

func (m Mode) String() string {
	if m == ModeGlobal {
		return "global"
	}
	return "per-level"
}

// ParseMode 解析命令行/配置中的模式名
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "per-level", "level":
		return ModePerLevel, nil
	case "global":
		return ModeGlobal, nil
	default:
		return ModePerLevel, fmt.Errorf("unknown mode %q (want per-level or global)", s)
	}
}

// Message 是 Session.Dispatch 的输入
type Message interface {
	isMessage()
}

// StartInput 菜单中开始游戏
type StartInput struct{}

// DropInput 在水平位置 X 掉落当前代币
type DropInput struct {
	X float64
}

// MoveInput 预览代币跟随指针
type MoveInput struct {
	X float64
}

// Tick 一个物理步的碰撞批次
type Tick struct {
	Batch CollisionBatch
}

// ReconnectSignal 网络恢复
type ReconnectSignal struct{}

// OfflineSignal 网络断开
type OfflineSignal struct{}

// ResetInput 失败后回到菜单
type ResetInput struct{}

// SelectLevelInput 菜单中切换关卡
type SelectLevelInput struct {
	LevelID int
}

func (StartInput) isMessage()       {}
func (DropInput) isMessage()        {}
func (MoveInput) isMessage()        {}
func (Tick) isMessage()             {}
func (ReconnectSignal) isMessage()  {}
func (OfflineSignal) isMessage()    {}
func (ResetInput) isMessage()       {}
func (SelectLevelInput) isMessage() {}

// menuDecorations 菜单背景装饰代币数量
const menuDecorations = 6

// leaderboardSize 结算界面显示的排行榜条数
const leaderboardSize = 5

// SessionOptions 会话依赖
type SessionOptions struct {
	Tiers       *config.TierCatalog
	Levels      *config.LevelCatalog
	LevelID     int // 0 表示第 1 关
	Mode        Mode
	Game        *config.GameConfig // nil 使用默认调参
	World       PhysicsWorld
	Persistence *Facade          // nil 使用内存存储、永久离线
	Clock       func() time.Time // nil 使用 time.Now
	Rand        *rand.Rand       // nil 使用随机种子
}

// GameSession 一次游戏会话
//
// 所有状态变化只发生在 Dispatch 中，调用方（UI 主循环）单线程驱动。
// 远端持久化通过 Facade 的异步接口发出，Dispatch 不等待网络
type GameSession struct {
	tiers  *config.TierCatalog
	levels *config.LevelCatalog
	level  config.LevelConfig
	mode   Mode
	cfg    *config.GameConfig
	world  PhysicsWorld
	store  *Facade
	clock  func() time.Time
	rng    *rand.Rand

	resolver *MergeResolver
	tracker  *ScoreTracker

	state       State
	droppedAt   time.Time
	currentTier int
	nextTier    int
	previewX    float64

	startHighScore int
	recordSaved    bool // 本局破纪录后是否已发出过远端保存
	persisted      bool
	gameOver       *GameOverEvent
	syncSeen       int // 已应用到 tracker 的远端合并次数
}

// NewGameSession 创建会话，初始状态为 MENU
func NewGameSession(opts SessionOptions) (*GameSession, error) {
	if opts.Tiers == nil || opts.Levels == nil {
		return nil, fmt.Errorf("tier and level catalogs are required")
	}
	if opts.World == nil {
		return nil, fmt.Errorf("physics world is required")
	}

	s := &GameSession{
		tiers:  opts.Tiers,
		levels: opts.Levels,
		mode:   opts.Mode,
		cfg:    opts.Game,
		world:  opts.World,
		store:  opts.Persistence,
		clock:  opts.Clock,
		rng:    opts.Rand,
	}
	if s.cfg == nil {
		s.cfg = config.DefaultGameConfig()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.store == nil {
		f, err := NewFacade(NewMemoryStore(), nil, FacadeOptions{
			Codes: opts.Levels.Len(),
			Now:   s.clock,
			Rand:  s.rng,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create persistence: %w", err)
		}
		s.store = f
	}

	levelID := opts.LevelID
	if levelID == 0 {
		levelID = 1
	}
	level, ok := s.levels.Get(levelID)
	if !ok {
		return nil, fmt.Errorf("unknown level %d", levelID)
	}
	s.level = level

	s.resolver = NewMergeResolver(s.tiers, s.world, s.cfg.LoseHeight, level.MaxTier)
	s.newTracker()
	s.previewX = float64(s.cfg.Width) / 2
	s.rollInitialTiers()
	s.spawnDecorations()

	log.Printf("[Session] Created: level %d (%s), mode %s", level.ID, level.Name, s.mode)
	return s, nil
}

func (s *GameSession) newTracker() {
	var thresholds []config.Threshold
	if s.mode == ModeGlobal {
		thresholds = s.levels.Thresholds()
	} else {
		thresholds = []config.Threshold{s.level.Threshold()}
	}
	s.tracker = NewScoreTracker(s.tiers, thresholds, s.clock)
	s.tracker.RestoreFrom(s.store.Profile())
}

func (s *GameSession) rollTier() int {
	return s.rng.IntN(s.level.SpawnMaxTier + 1)
}

func (s *GameSession) rollInitialTiers() {
	s.currentTier = s.rollTier()
	s.nextTier = s.rollTier()
}

// spawnDecorations 菜单背景：沿容器底部摆放静态代币
func (s *GameSession) spawnDecorations() {
	floor := float64(s.cfg.Height) - s.cfg.WallPadding
	step := float64(s.cfg.Width) / (menuDecorations + 1)
	for i := 1; i <= menuDecorations; i++ {
		tier := s.rng.IntN(s.level.MaxTier + 1)
		t, _ := s.tiers.Get(tier)
		s.resolver.Spawn(tier, step*float64(i), floor-t.Radius, true)
	}
}

// Dispatch 处理一条输入消息，返回产生的事件
//
// 每次调用先推进冷却计时器，因此冷却结束后到达的掉落会先回到 READY 再被接受
func (s *GameSession) Dispatch(msg Message) []Event {
	now := s.clock()
	var events []Event
	events = s.advanceTimers(now, events)

	switch m := msg.(type) {
	case StartInput:
		events = s.start(events)
	case SelectLevelInput:
		s.selectLevel(m.LevelID)
	case DropInput:
		events = s.drop(now, m.X, events)
	case MoveInput:
		if s.state != StateLost {
			s.previewX = s.clampX(m.X, s.currentTier)
		}
	case Tick:
		events = s.tick(now, m.Batch, events)
	case ReconnectSignal:
		log.Printf("[Session] Connection restored")
		s.store.ReconnectAsync()
	case OfflineSignal:
		if s.store.SetOnline(false) {
			log.Printf("[Session] Connection lost - switching to offline mode")
		}
	case ResetInput:
		events = s.reset(events)
	default:
		log.Printf("[Session] Ignoring unknown message %T", msg)
	}
	s.applyRemoteSync()
	return events
}

// applyRemoteSync 重连合并了远端档案后，把远端揭示的奖励码同步到 tracker
func (s *GameSession) applyRemoteSync() {
	gen := s.store.SyncGeneration()
	if gen == s.syncSeen {
		return
	}
	s.syncSeen = gen
	s.tracker.RestoreFrom(s.store.Profile())
}

func (s *GameSession) transition(to State, events []Event) []Event {
	from := s.state
	s.state = to
	log.Printf("[Session] %s -> %s", from, to)
	return append(events, StateChangedEvent{From: from, To: to})
}

func (s *GameSession) advanceTimers(now time.Time, events []Event) []Event {
	if s.state == StateDropping && now.Sub(s.droppedAt) >= s.cfg.DropCooldown() {
		events = s.transition(StateReady, events)
	}
	return events
}

func (s *GameSession) start(events []Event) []Event {
	if s.state != StateMenu {
		return events
	}
	s.resolver.Reset()
	s.tracker.ResetScore()
	s.tracker.RestoreFrom(s.store.Profile())
	s.startHighScore = s.store.Profile().HighScore
	s.recordSaved = false
	s.persisted = false
	s.gameOver = nil
	return s.transition(StateReady, events)
}

func (s *GameSession) selectLevel(id int) {
	if s.state != StateMenu || id == s.level.ID {
		return
	}
	level, ok := s.levels.Get(id)
	if !ok {
		log.Printf("[Session] Ignoring unknown level %d", id)
		return
	}
	s.level = level
	s.resolver.Reset()
	s.resolver.SetTerminal(level.MaxTier)
	s.newTracker()
	s.rollInitialTiers()
	s.spawnDecorations()
	log.Printf("[Session] Selected level %d (%s)", level.ID, level.Name)
}

func (s *GameSession) clampX(x float64, tier int) float64 {
	t, _ := s.tiers.Get(tier)
	return min(float64(s.cfg.Width)-t.Radius, max(t.Radius, x))
}

func (s *GameSession) drop(now time.Time, x float64, events []Event) []Event {
	if s.state != StateReady {
		return events
	}

	tier := s.currentTier
	x = s.clampX(x, tier)
	h := s.resolver.Spawn(tier, x, s.cfg.PreviewHeight, false)
	if h == 0 {
		return events
	}

	s.currentTier = s.nextTier
	s.nextTier = s.rollTier()
	s.previewX = s.clampX(x, s.currentTier)
	s.droppedAt = now

	events = append(events, DropEvent{Handle: h, Tier: tier, X: x, NextTier: s.currentTier})
	return s.transition(StateDropping, events)
}

func (s *GameSession) tick(now time.Time, batch CollisionBatch, events []Event) []Event {
	if s.state == StateMenu || s.state == StateLost {
		return events
	}

	res := s.resolver.Resolve(batch)
	unlocked := false
	for _, m := range res.Merges {
		events = append(events, m)
		for _, u := range s.tracker.OnMerge(m.ConsumedTier) {
			events = append(events, u)
			s.recordUnlock(u)
			unlocked = true
		}
	}

	raised := false
	if len(res.Merges) > 0 {
		score := s.tracker.Score()
		s.update(func(p *Profile) { raised = p.RaiseHighScore(score, now) })
	}
	// 新纪录只在本局第一次刷新时发出远端保存
	if unlocked || (raised && !s.recordSaved) {
		s.recordSaved = s.recordSaved || raised
		s.store.SaveAsync()
	}

	if res.Lose != nil {
		events = append(events, *res.Lose)
		events = s.lose(now, events)
	}
	return events
}

func (s *GameSession) recordUnlock(u UnlockEvent) {
	s.update(func(p *Profile) { p.RevealCode(u.Slot, u.RevealedAt) })
}

func (s *GameSession) update(fn func(p *Profile)) {
	if err := s.store.Update(fn); err != nil {
		log.Printf("[Session] Warning: %v", err)
	}
}

func (s *GameSession) lose(now time.Time, events []Event) []Event {
	events = s.transition(StateLost, events)
	s.world.Freeze()

	if s.persisted {
		return events
	}
	s.persisted = true

	score := s.tracker.Score()
	s.update(func(p *Profile) { p.RecordGame(score, now) })
	s.store.SaveAsync()
	s.store.SubmitAsync(s.store.NewLeaderboardEntry(score, ""))
	s.store.RefreshLeaderboardAsync(leaderboardSize)

	newRecord := score > s.startHighScore
	phrases := config.GameOverPhrases
	if newRecord {
		phrases = config.NewRecordPhrases
	}
	over := GameOverEvent{
		Score:     score,
		HighScore: s.store.Profile().HighScore,
		NewRecord: newRecord,
		Phrase:    phrases[s.rng.IntN(len(phrases))],
	}
	s.gameOver = &over
	log.Printf("[Session] Game over: score %d (high %d, new record %v)", over.Score, over.HighScore, over.NewRecord)
	return append(events, over)
}

func (s *GameSession) reset(events []Event) []Event {
	if s.state != StateLost {
		return events
	}
	s.resolver.Reset()
	s.world.Clear()
	s.tracker.ResetScore()
	s.gameOver = nil
	s.rollInitialTiers()
	events = s.transition(StateMenu, events)
	s.spawnDecorations()
	return events
}

// ResetUnlocks 清空本地奖励码（调试用）
func (s *GameSession) ResetUnlocks() {
	s.tracker.ResetUnlocks()
	s.update(func(p *Profile) { p.ResetCodes() })
	s.store.SaveAsync()
	log.Printf("[Session] Reward codes reset")
}

// Leaderboard 返回最近一次拉取的排行榜
func (s *GameSession) Leaderboard() []LeaderboardRecord { return s.store.Leaderboard() }

// State 返回当前状态
func (s *GameSession) State() State { return s.state }

// Score 返回本局分数
func (s *GameSession) Score() int { return s.tracker.Score() }

// HighScore 返回档案中的最高分
func (s *GameSession) HighScore() int { return s.store.Profile().HighScore }

// Progress 返回解锁进度
func (s *GameSession) Progress() Progress { return s.tracker.Progress() }

// Stats 返回奖励码统计
func (s *GameSession) Stats() CodeStats { return s.tracker.Stats() }

// RankTitle 返回状态栏称号
func (s *GameSession) RankTitle() string {
	if s.state == StateLost {
		return config.LostTitle
	}
	return config.RankTitle(s.tracker.Score(), s.tracker.AllRevealed())
}

// Level 返回当前关卡
func (s *GameSession) Level() config.LevelConfig { return s.level }

// Mode 返回解锁评估方式
func (s *GameSession) Mode() Mode { return s.mode }

// Preview 返回当前与下一个代币等级及预览位置
func (s *GameSession) Preview() (current, next int, x float64) {
	return s.currentTier, s.nextTier, s.previewX
}

// GameOver 返回结算信息，未失败时为 nil
func (s *GameSession) GameOver() *GameOverEvent { return s.gameOver }

// Resolver 返回合成判定器（渲染层查询代币等级）
func (s *GameSession) Resolver() *MergeResolver { return s.resolver }

// Persistence 返回持久化门面
func (s *GameSession) Persistence() *Facade { return s.store }
