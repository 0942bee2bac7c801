package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound 远端没有该玩家的记录
	ErrNotFound = errors.New("remote record not found")
	// ErrOffline 当前没有可用的远端存储
	ErrOffline = errors.New("remote store offline")
)

// RemoteStore 远端持久化协作者
//
// 档案按 player_id upsert；排行榜只插入
type RemoteStore interface {
	FetchProfile(ctx context.Context, playerID string) (ProfileRecord, error)
	UpsertProfile(ctx context.Context, rec ProfileRecord) error
	InsertLeaderboardEntry(ctx context.Context, rec LeaderboardRecord) error
}

// LeaderboardSource 可读取排行榜的远端存储（可选实现）
type LeaderboardSource interface {
	TopScores(ctx context.Context, limit int) ([]LeaderboardRecord, error)
}

// FacadeOptions 持久化门面的可选参数
type FacadeOptions struct {
	Codes int              // 奖励码数量，决定档案数组长度
	Now   func() time.Time // nil 使用 time.Now
	Rand  *rand.Rand       // 生成玩家ID，nil 使用全局随机源
}

// Facade 本地档案与远端存储的协调者
//
// 职责：
//   - 本地写入总是先于远端，且同步完成
//   - 加载远端档案时按规则合并（最高分取大、局数取大、解锁日期互补）
//   - 离线时排行榜记录进入本地待发送队列，重连后按顺序补发
//
// 远端错误只记录日志，不会中断游戏
type Facade struct {
	local  LocalStore
	remote RemoteStore
	codes  int
	now    func() time.Time
	rng    *rand.Rand

	// mu 保护 profile/playerID/online；Load 的合并在锁内完成，Save 不会读到合并中的档案
	mu       sync.Mutex
	profile  Profile
	playerID string
	online   bool
	syncs    int // 远端档案成功合并的次数
	board    []LeaderboardRecord

	queueMu sync.Mutex

	worker *worker
}

// NewFacade 创建持久化门面并加载本地档案
//
// remote 为 nil 时永久离线。本地档案缺失或损坏时使用默认值
func NewFacade(local LocalStore, remote RemoteStore, opts FacadeOptions) (*Facade, error) {
	if local == nil {
		local = NewMemoryStore()
	}
	f := &Facade{
		local:  local,
		remote: remote,
		codes:  opts.Codes,
		now:    opts.Now,
		rng:    opts.Rand,
		online: remote != nil,
	}
	if f.now == nil {
		f.now = time.Now
	}

	if err := f.loadLocal(); err != nil {
		return nil, err
	}
	if err := f.ensurePlayerID(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Facade) loadLocal() error {
	f.profile = NewProfile(f.codes)

	data, ok, err := f.local.Load(KeyProfile)
	if err != nil {
		log.Printf("[Persistence] Warning: failed to read local profile: %v (using defaults)", err)
		return nil
	}
	if !ok {
		// 首次运行：写入默认档案
		return f.writeLocalLocked()
	}

	p, err := DecodeProfile(data, f.codes)
	if err != nil {
		log.Printf("[Persistence] Warning: %v (using defaults)", err)
	}
	f.profile = p
	return nil
}

func (f *Facade) ensurePlayerID() error {
	data, ok, err := f.local.Load(KeyPlayerID)
	if err == nil && ok && len(data) > 0 {
		if json.Unmarshal(data, &f.playerID) == nil && f.playerID != "" {
			return nil
		}
		// 兼容未加引号的旧格式
		f.playerID = strings.Trim(string(data), "\" \n")
		if f.playerID != "" {
			return nil
		}
	}

	f.playerID = f.generatePlayerID()
	encoded, err := json.Marshal(f.playerID)
	if err != nil {
		return fmt.Errorf("failed to encode player id: %w", err)
	}
	if err := f.local.Save(KeyPlayerID, encoded); err != nil {
		return fmt.Errorf("failed to save player id: %w", err)
	}
	log.Printf("[Persistence] Generated player id %s", f.playerID)
	return nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// generatePlayerID 生成 player_<毫秒时间戳>_<9位随机base36>
func (f *Facade) generatePlayerID() string {
	var b strings.Builder
	b.WriteString("player_")
	b.WriteString(strconv.FormatInt(f.now().UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < 9; i++ {
		var n int
		if f.rng != nil {
			n = f.rng.IntN(len(base36))
		} else {
			n = rand.IntN(len(base36))
		}
		b.WriteByte(base36[n])
	}
	return b.String()
}

// writeLocalLocked 写入本地档案，调用方持有 mu（或处于构造阶段）
func (f *Facade) writeLocalLocked() error {
	data, err := EncodeProfile(f.profile)
	if err != nil {
		return err
	}
	if err := f.local.Save(KeyProfile, data); err != nil {
		return fmt.Errorf("failed to write local profile: %w", err)
	}
	return nil
}

// PlayerID 返回本地生成的稳定玩家ID
func (f *Facade) PlayerID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playerID
}

// Profile 返回当前档案副本
func (f *Facade) Profile() Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile.Clone()
}

// Online 返回当前是否认为远端可达
func (f *Facade) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online && f.remote != nil
}

// SetOnline 更新连通状态，返回状态是否变化
func (f *Facade) SetOnline(online bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == nil {
		online = false
	}
	changed := f.online != online
	f.online = online
	return changed
}

// Update 修改档案并立即写入本地
func (f *Facade) Update(fn func(p *Profile)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.profile)
	f.profile.Normalize(f.codes)
	return f.writeLocalLocked()
}

// Save 先同步写本地，再尝试远端 upsert
//
// 离线时只写本地；远端失败只记录日志并返回错误，不会排队重试
func (f *Facade) Save(ctx context.Context) error {
	f.mu.Lock()
	if err := f.writeLocalLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	rec := f.profile.Record(f.playerID, f.now())
	online := f.online && f.remote != nil
	f.mu.Unlock()

	if !online {
		log.Printf("[Persistence] Offline mode - data saved locally only")
		return nil
	}

	if err := f.remote.UpsertProfile(ctx, rec); err != nil {
		log.Printf("[Persistence] Error saving profile remotely: %v", err)
		return fmt.Errorf("failed to save profile remotely: %w", err)
	}
	log.Printf("[Persistence] Profile saved remotely")
	return nil
}

// Load 拉取远端档案并合并到本地
//
// 远端不存在或不可达时本地档案保持不变
func (f *Facade) Load(ctx context.Context) error {
	f.mu.Lock()
	playerID := f.playerID
	online := f.online && f.remote != nil
	f.mu.Unlock()

	if !online {
		log.Printf("[Persistence] Offline mode - using local data only")
		return nil
	}

	rec, err := f.remote.FetchProfile(ctx, playerID)
	if errors.Is(err, ErrNotFound) {
		log.Printf("[Persistence] No remote profile for %s yet", playerID)
		return nil
	}
	if err != nil {
		log.Printf("[Persistence] Error loading profile remotely: %v", err)
		return fmt.Errorf("failed to load profile remotely: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	merged := MergeProfiles(f.profile, rec.Profile())
	merged.Normalize(f.codes)
	f.profile = merged
	f.syncs++
	if err := f.writeLocalLocked(); err != nil {
		return err
	}
	log.Printf("[Persistence] Remote profile merged (highscore %d)", merged.HighScore)
	return nil
}

// NewLeaderboardEntry 构造排行榜记录，name 为空时使用 Player_<ID后6位>
func (f *Facade) NewLeaderboardEntry(score int, name string) LeaderboardRecord {
	playerID := f.PlayerID()
	if strings.TrimSpace(name) == "" {
		suffix := playerID
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		name = "Player_" + suffix
	}
	return LeaderboardRecord{
		PlayerID:   playerID,
		PlayerName: name,
		Score:      max(0, score),
		CreatedAt:  f.now(),
	}
}

// SubmitLeaderboardEntry 提交排行榜记录
//
// 离线或远端写入失败时追加到本地待发送队列
func (f *Facade) SubmitLeaderboardEntry(ctx context.Context, entry LeaderboardRecord) error {
	if !f.Online() {
		log.Printf("[Persistence] Offline mode - leaderboard entry queued")
		return f.enqueuePending(entry)
	}

	if err := f.remote.InsertLeaderboardEntry(ctx, entry); err != nil {
		log.Printf("[Persistence] Error saving leaderboard entry: %v (queued)", err)
		return f.enqueuePending(entry)
	}
	log.Printf("[Persistence] Leaderboard entry saved (score %d)", entry.Score)
	return nil
}

// PendingEntries 返回待发送队列
func (f *Facade) PendingEntries() ([]LeaderboardRecord, error) {
	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	return f.loadQueueLocked()
}

func (f *Facade) loadQueueLocked() ([]LeaderboardRecord, error) {
	data, ok, err := f.local.Load(KeyPendingLeaderboard)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending queue: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var entries []LeaderboardRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[Persistence] Warning: pending queue unreadable, discarding: %v", err)
		return nil, nil
	}
	return entries, nil
}

func (f *Facade) saveQueueLocked(entries []LeaderboardRecord) error {
	if entries == nil {
		entries = []LeaderboardRecord{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode pending queue: %w", err)
	}
	if err := f.local.Save(KeyPendingLeaderboard, data); err != nil {
		return fmt.Errorf("failed to write pending queue: %w", err)
	}
	return nil
}

func (f *Facade) enqueuePending(entry LeaderboardRecord) error {
	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	entries, err := f.loadQueueLocked()
	if err != nil {
		return err
	}
	return f.saveQueueLocked(append(entries, entry))
}

// FlushPendingQueue 按原顺序补发待发送队列
//
// 成功的记录逐条移出队列（每次移除都写回本地），失败的记录保留到下次。
// 返回成功发送的条数
func (f *Facade) FlushPendingQueue(ctx context.Context) (int, error) {
	if !f.Online() {
		return 0, ErrOffline
	}

	f.queueMu.Lock()
	defer f.queueMu.Unlock()

	entries, err := f.loadQueueLocked()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	sent := 0
	var failed []LeaderboardRecord
	for i, entry := range entries {
		if err := f.remote.InsertLeaderboardEntry(ctx, entry); err != nil {
			log.Printf("[Persistence] Error syncing pending leaderboard entry: %v", err)
			failed = append(failed, entry)
			continue
		}
		sent++
		remaining := append(append([]LeaderboardRecord{}, failed...), entries[i+1:]...)
		if err := f.saveQueueLocked(remaining); err != nil {
			return sent, err
		}
	}
	log.Printf("[Persistence] Pending leaderboard sync: %d sent, %d left", sent, len(failed))
	return sent, nil
}

// Reconnect 网络恢复：标记在线，再依次执行 Load、Save、FlushPendingQueue
//
// 各步骤的错误只记录日志，不影响后续步骤
func (f *Facade) Reconnect(ctx context.Context) {
	f.SetOnline(true)
	f.syncRemote(ctx)
}

// syncRemote 执行重连同步，执行时已离线则跳过
func (f *Facade) syncRemote(ctx context.Context) {
	if !f.Online() {
		log.Printf("[Persistence] Offline again - reconnect sync skipped")
		return
	}
	log.Printf("[Persistence] Syncing data after reconnection...")
	if err := f.Load(ctx); err != nil {
		log.Printf("[Persistence] Reconnect load failed: %v", err)
	}
	if err := f.Save(ctx); err != nil {
		log.Printf("[Persistence] Reconnect save failed: %v", err)
	}
	if _, err := f.FlushPendingQueue(ctx); err != nil {
		log.Printf("[Persistence] Reconnect flush failed: %v", err)
	}
}

// SyncGeneration 远端档案合并次数，每次 Load 成功合并后加一
func (f *Facade) SyncGeneration() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncs
}

// RefreshLeaderboard 拉取排行榜前 limit 名
//
// 离线或远端不支持读取时保留上次的结果
func (f *Facade) RefreshLeaderboard(ctx context.Context, limit int) error {
	src, ok := f.remote.(LeaderboardSource)
	if !ok || !f.Online() {
		return nil
	}
	board, err := src.TopScores(ctx, limit)
	if err != nil {
		log.Printf("[Persistence] Error loading leaderboard: %v", err)
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}
	f.mu.Lock()
	f.board = board
	f.mu.Unlock()
	return nil
}

// Leaderboard 返回最近一次拉取的排行榜
func (f *Facade) Leaderboard() []LeaderboardRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LeaderboardRecord(nil), f.board...)
}

// Start 启动后台任务协程
//
// 之后 SaveAsync/SubmitAsync/ReconnectAsync 按调用顺序在同一协程中执行，
// 调用方不等待远端结果。未启动时这些方法同步执行
func (f *Facade) Start(ctx context.Context) {
	if f.worker != nil {
		return
	}
	f.worker = newWorker(ctx)
}

// Close 执行完已排队的任务后停止后台协程
//
// Start 传入的 ctx 取消时，未执行的任务被丢弃
func (f *Facade) Close() {
	if f.worker == nil {
		return
	}
	f.worker.stop()
	f.worker = nil
}

func (f *Facade) run(kind jobKind, fn func(ctx context.Context)) {
	if f.worker == nil {
		fn(context.Background())
		return
	}
	f.worker.push(kind, fn)
}

// SaveAsync 异步保存
//
// 队尾已有一个未执行的保存时不再追加，该任务执行时读取的是最新档案
func (f *Facade) SaveAsync() {
	f.run(jobSave, func(ctx context.Context) {
		_ = f.Save(ctx)
	})
}

// SubmitAsync 异步提交排行榜记录
func (f *Facade) SubmitAsync(entry LeaderboardRecord) {
	f.run(jobOther, func(ctx context.Context) {
		if err := f.SubmitLeaderboardEntry(ctx, entry); err != nil {
			log.Printf("[Persistence] Failed to queue leaderboard entry: %v", err)
		}
	})
}

// ReconnectAsync 立即标记在线，远端同步异步执行
//
// 同步任务执行前若已调用 SetOnline(false)，该任务跳过
func (f *Facade) ReconnectAsync() {
	f.SetOnline(true)
	f.run(jobOther, f.syncRemote)
}

// RefreshLeaderboardAsync 异步拉取排行榜
func (f *Facade) RefreshLeaderboardAsync(limit int) {
	f.run(jobOther, func(ctx context.Context) {
		_ = f.RefreshLeaderboard(ctx, limit)
	})
}

type jobKind int

const (
	jobOther jobKind = iota
	jobSave
)

type job struct {
	kind jobKind
	run  func(ctx context.Context)
}

// worker 无界 FIFO 任务队列，单协程顺序执行
type worker struct {
	mu      sync.Mutex
	pending []job
	closed  bool
	notify  chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

func newWorker(parent context.Context) *worker {
	ctx, cancel := context.WithCancel(parent)
	w := &worker{
		notify: make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.loop(ctx)
	return w
}

// push 追加任务；保存任务与队尾的保存任务合并
func (w *worker) push(kind jobKind, run func(ctx context.Context)) {
	w.mu.Lock()
	if kind == jobSave {
		if n := len(w.pending); n > 0 && w.pending[n-1].kind == jobSave {
			w.mu.Unlock()
			return
		}
	}
	w.pending = append(w.pending, job{kind: kind, run: run})
	w.mu.Unlock()
	w.wake()
}

func (w *worker) wake() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.notify:
		}
		for {
			w.mu.Lock()
			if len(w.pending) == 0 {
				closed := w.closed
				w.mu.Unlock()
				if closed {
					return
				}
				break
			}
			next := w.pending[0]
			w.pending = w.pending[1:]
			w.mu.Unlock()
			next.run(ctx)
		}
	}
}

func (w *worker) stop() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.wake()
	<-w.done
	w.cancel()
}
