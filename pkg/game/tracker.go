package game

import (
	"log"
	"slices"
	"time"

	"github.com/decker502/xrpsuika/pkg/config"
)

// UnlockState 单个解锁阈值的揭示状态
//
// Revealed 一旦为 true，只能通过 ResetUnlocks 调试操作恢复
type UnlockState struct {
	Revealed   bool
	RevealedAt *time.Time
}

// Progress 距离下一个解锁阈值的进度
type Progress struct {
	Complete          bool    // 全部阈值已揭示，其余字段无意义
	PointsNeeded      int     // 还差多少分，不小于 0
	Percent           float64 // 0~100，只在显示时取整
	NextThreshold     int
	PreviousThreshold int
	NextCode          string
}

// UnlockedCode 已揭示的奖励码
type UnlockedCode struct {
	Code       string
	Threshold  int
	UnlockedAt *time.Time
}

// CodeStats 奖励码统计
type CodeStats struct {
	Total         int
	Unlocked      int
	Codes         []UnlockedCode
	NextThreshold int // 0 表示全部已揭示
}

// ScoreTracker 分数与解锁进度
//
// 总分始终由各等级合成次数推导：Σ counts[t] * scoreValue[t]，不单独修改
type ScoreTracker struct {
	tiers      *config.TierCatalog
	counts     []int
	score      int
	thresholds []config.Threshold // 按阈值升序
	unlocks    []UnlockState      // 与 thresholds 对齐
	now        func() time.Time
}

// NewScoreTracker 创建分数追踪器
//
// 参数：
//   - tiers: 代币等级表
//   - thresholds: 参与评估的解锁阈值（内部按阈值升序排列）
//   - now: 时钟，nil 时使用 time.Now
func NewScoreTracker(tiers *config.TierCatalog, thresholds []config.Threshold, now func() time.Time) *ScoreTracker {
	if now == nil {
		now = time.Now
	}
	sorted := slices.Clone(thresholds)
	slices.SortStableFunc(sorted, func(a, b config.Threshold) int {
		return a.Threshold - b.Threshold
	})
	return &ScoreTracker{
		tiers:      tiers,
		counts:     make([]int, tiers.Len()),
		thresholds: sorted,
		unlocks:    make([]UnlockState, len(sorted)),
		now:        now,
	}
}

// RestoreFrom 从存档恢复揭示状态
//
// 只会把未揭示的阈值置为已揭示，不会撤销已揭示的状态
func (t *ScoreTracker) RestoreFrom(p Profile) {
	for i, th := range t.thresholds {
		if th.Slot < 0 || th.Slot >= len(p.UnlockedCodes) || !p.UnlockedCodes[th.Slot] {
			continue
		}
		if t.unlocks[i].Revealed {
			continue
		}
		t.unlocks[i].Revealed = true
		if th.Slot < len(p.CodeUnlockDates) && p.CodeUnlockDates[th.Slot] != nil {
			at := *p.CodeUnlockDates[th.Slot]
			t.unlocks[i].RevealedAt = &at
		}
	}
}

// OnMerge 记录一次合成并评估解锁
//
// 调用方必须保证每个 MergeEvent 只调用一次，重复调用会重复计分
func (t *ScoreTracker) OnMerge(consumedTier int) []UnlockEvent {
	if !t.tiers.Valid(consumedTier) {
		log.Printf("[ScoreTracker] Ignoring merge of unknown tier %d", consumedTier)
		return nil
	}
	t.counts[consumedTier]++
	t.recompute()
	return t.EvaluateUnlocks()
}

func (t *ScoreTracker) recompute() {
	total := 0
	for tier, count := range t.counts {
		total += count * t.tiers.ScoreValue(tier)
	}
	t.score = total
}

// EvaluateUnlocks 揭示所有已达到的阈值
//
// 同一次评估可能揭示多个阈值，按阈值升序返回
func (t *ScoreTracker) EvaluateUnlocks() []UnlockEvent {
	var events []UnlockEvent
	for i, th := range t.thresholds {
		if t.unlocks[i].Revealed || t.score < th.Threshold {
			continue
		}
		at := t.now()
		t.unlocks[i] = UnlockState{Revealed: true, RevealedAt: &at}
		events = append(events, UnlockEvent{
			Slot:       th.Slot,
			Threshold:  th.Threshold,
			RewardCode: th.Code,
			Message:    th.Message,
			RevealedAt: at,
		})
		log.Printf("[ScoreTracker] Unlocked %s at score %d", th.Code, t.score)
	}
	return events
}

// Score 返回当前总分
func (t *ScoreTracker) Score() int {
	return t.score
}

// Count 返回某等级的合成次数
func (t *ScoreTracker) Count(tier int) int {
	if !t.tiers.Valid(tier) {
		return 0
	}
	return t.counts[tier]
}

// Counts 返回各等级合成次数（副本）
func (t *ScoreTracker) Counts() []int {
	return slices.Clone(t.counts)
}

// Unlock 返回指定槽位的揭示状态
func (t *ScoreTracker) Unlock(slot int) (UnlockState, bool) {
	for i, th := range t.thresholds {
		if th.Slot == slot {
			return t.unlocks[i], true
		}
	}
	return UnlockState{}, false
}

// AllRevealed 是否全部阈值已揭示
func (t *ScoreTracker) AllRevealed() bool {
	for _, u := range t.unlocks {
		if !u.Revealed {
			return false
		}
	}
	return true
}

// Progress 计算距离下一个未揭示阈值的进度
//
// percent = clamp(0, 100, (score - prev) / (next - prev) * 100)，
// prev 是低于 next 的最高已揭示阈值，没有则为 0
func (t *ScoreTracker) Progress() Progress {
	next := -1
	for i := range t.thresholds {
		if !t.unlocks[i].Revealed {
			next = i
			break
		}
	}
	if next < 0 {
		return Progress{Complete: true}
	}

	nextTh := t.thresholds[next]
	prev := 0
	for i, th := range t.thresholds {
		if t.unlocks[i].Revealed && th.Threshold < nextTh.Threshold && th.Threshold > prev {
			prev = th.Threshold
		}
	}

	percent := 100.0
	if span := nextTh.Threshold - prev; span > 0 {
		percent = float64(t.score-prev) / float64(span) * 100
	}
	percent = min(100, max(0, percent))

	return Progress{
		PointsNeeded:      max(0, nextTh.Threshold-t.score),
		Percent:           percent,
		NextThreshold:     nextTh.Threshold,
		PreviousThreshold: prev,
		NextCode:          nextTh.Code,
	}
}

// Stats 返回奖励码统计
func (t *ScoreTracker) Stats() CodeStats {
	stats := CodeStats{Total: len(t.thresholds)}
	for i, th := range t.thresholds {
		u := t.unlocks[i]
		if !u.Revealed {
			if stats.NextThreshold == 0 {
				stats.NextThreshold = th.Threshold
			}
			continue
		}
		stats.Unlocked++
		stats.Codes = append(stats.Codes, UnlockedCode{
			Code:       th.Code,
			Threshold:  th.Threshold,
			UnlockedAt: u.RevealedAt,
		})
	}
	return stats
}

// ResetScore 开始新一局：清零合成次数，保留揭示状态
func (t *ScoreTracker) ResetScore() {
	clear(t.counts)
	t.score = 0
}

// ResetUnlocks 清除全部揭示状态（调试用）
func (t *ScoreTracker) ResetUnlocks() {
	for i := range t.unlocks {
		t.unlocks[i] = UnlockState{}
	}
}
