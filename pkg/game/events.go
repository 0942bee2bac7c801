package game

import "time"

// Event 是 Session.Dispatch 的输出，由 UI 层消费
type Event interface {
	isEvent()
}

// StateChangedEvent 会话状态变化
type StateChangedEvent struct {
	From, To State
}

// DropEvent 一次被接受的掉落
type DropEvent struct {
	Handle   BodyHandle
	Tier     int
	X        float64
	NextTier int // 新的预览等级
}

// MergeEvent 两个同级代币合成
type MergeEvent struct {
	ConsumedTier int
	NewTier      int
	X, Y         float64 // 合成点（两者中点）
	Handle       BodyHandle
}

// LoseEvent 有代币越过失败线
type LoseEvent struct {
	Handle BodyHandle
	Y      float64
}

// UnlockEvent 奖励码首次揭示
type UnlockEvent struct {
	Slot       int
	Threshold  int
	RewardCode string
	Message    string
	RevealedAt time.Time
}

// GameOverEvent 失败结算
type GameOverEvent struct {
	Score     int
	HighScore int
	NewRecord bool
	Phrase    string
}

func (StateChangedEvent) isEvent() {}
func (DropEvent) isEvent()         {}
func (MergeEvent) isEvent()        {}
func (LoseEvent) isEvent()         {}
func (UnlockEvent) isEvent()       {}
func (GameOverEvent) isEvent()     {}
