package game

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Profile 跨局保存的玩家档案（本地缓存格式）
//
// HighScore 单调不减，只能通过显式重置降低
type Profile struct {
	HighScore        int          `json:"highscore"`
	HighScoreDate    *time.Time   `json:"highscoreDate"`
	TotalGamesPlayed int          `json:"totalGamesPlayed"`
	LastPlayedDate   *time.Time   `json:"lastPlayedDate"`
	UnlockedCodes    []bool       `json:"unlockedCodes"`
	CodeUnlockDates  []*time.Time `json:"codeUnlockDates"`
}

// ProfileRecord 远端 game_states 表的一行
type ProfileRecord struct {
	PlayerID         string       `json:"player_id"`
	HighScore        int          `json:"high_score"`
	HighScoreDate    *time.Time   `json:"high_score_date"`
	TotalGamesPlayed int          `json:"total_games_played"`
	UnlockedCodes    []bool       `json:"unlocked_codes"`
	CodeUnlockDates  []*time.Time `json:"code_unlock_dates"`
	LastPlayed       time.Time    `json:"last_played"`
}

// LeaderboardRecord 远端 leaderboard 表的一行（只插入）
type LeaderboardRecord struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewProfile 返回默认档案，codes 为奖励码数量
func NewProfile(codes int) Profile {
	p := Profile{}
	p.Normalize(codes)
	return p
}

// Normalize 补齐缺失字段
//
// 首次运行或存档结构升级时，数组长度与奖励码数量对齐，负数归零
func (p *Profile) Normalize(codes int) {
	p.HighScore = max(0, p.HighScore)
	p.TotalGamesPlayed = max(0, p.TotalGamesPlayed)
	p.UnlockedCodes = resize(p.UnlockedCodes, codes)
	p.CodeUnlockDates = resize(p.CodeUnlockDates, codes)
}

func resize[T any](s []T, n int) []T {
	if len(s) >= n {
		return slices.Clone(s[:n])
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

// Clone 深拷贝
func (p Profile) Clone() Profile {
	out := p
	out.HighScoreDate = cloneTime(p.HighScoreDate)
	out.LastPlayedDate = cloneTime(p.LastPlayedDate)
	out.UnlockedCodes = slices.Clone(p.UnlockedCodes)
	out.CodeUnlockDates = make([]*time.Time, len(p.CodeUnlockDates))
	for i, d := range p.CodeUnlockDates {
		out.CodeUnlockDates[i] = cloneTime(d)
	}
	if p.CodeUnlockDates == nil {
		out.CodeUnlockDates = nil
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// RecordGame 记录一局结束
//
// 返回是否刷新最高分（分数不低于原纪录即刷新）
func (p *Profile) RecordGame(score int, now time.Time) bool {
	p.TotalGamesPlayed++
	p.LastPlayedDate = &now
	if score >= p.HighScore {
		p.HighScore = score
		at := now
		p.HighScoreDate = &at
		return true
	}
	return false
}

// RaiseHighScore 局内刷新最高分（不计局数），返回是否刷新
func (p *Profile) RaiseHighScore(score int, now time.Time) bool {
	if score <= p.HighScore {
		return false
	}
	p.HighScore = score
	p.HighScoreDate = &now
	return true
}

// RevealCode 标记奖励码已揭示，已有日期时保留原日期
func (p *Profile) RevealCode(slot int, at time.Time) {
	if slot < 0 || slot >= len(p.UnlockedCodes) {
		return
	}
	p.UnlockedCodes[slot] = true
	if slot < len(p.CodeUnlockDates) && p.CodeUnlockDates[slot] == nil {
		p.CodeUnlockDates[slot] = &at
	}
}

// ResetCodes 清空奖励码（调试用）
func (p *Profile) ResetCodes() {
	clear(p.UnlockedCodes)
	clear(p.CodeUnlockDates)
}

// MergeProfiles 合并本地与远端档案
//
// 规则：
//   - 最高分取较大者，日期跟随较大的一方
//   - 游戏局数取较大者
//   - 奖励码任一方已揭示即为已揭示；日期本地优先，本地为空时取远端
//   - 最后游玩时间取较晚者
//
// 与自身合并得到相同档案
func MergeProfiles(local, remote Profile) Profile {
	out := local.Clone()

	if remote.HighScore > local.HighScore {
		out.HighScore = remote.HighScore
		out.HighScoreDate = cloneTime(remote.HighScoreDate)
	} else if out.HighScoreDate == nil && remote.HighScore == local.HighScore {
		out.HighScoreDate = cloneTime(remote.HighScoreDate)
	}

	out.TotalGamesPlayed = max(local.TotalGamesPlayed, remote.TotalGamesPlayed)

	n := max(len(local.UnlockedCodes), len(remote.UnlockedCodes))
	out.UnlockedCodes = resize(out.UnlockedCodes, n)
	for i, unlocked := range remote.UnlockedCodes {
		out.UnlockedCodes[i] = out.UnlockedCodes[i] || unlocked
	}

	n = max(len(local.CodeUnlockDates), len(remote.CodeUnlockDates))
	out.CodeUnlockDates = resize(out.CodeUnlockDates, n)
	for i, d := range remote.CodeUnlockDates {
		if out.CodeUnlockDates[i] == nil {
			out.CodeUnlockDates[i] = cloneTime(d)
		}
	}

	if remote.LastPlayedDate != nil && (out.LastPlayedDate == nil || remote.LastPlayedDate.After(*out.LastPlayedDate)) {
		out.LastPlayedDate = cloneTime(remote.LastPlayedDate)
	}
	return out
}

// Record 转换为远端记录，last_played 缺失时使用 now
func (p Profile) Record(playerID string, now time.Time) ProfileRecord {
	c := p.Clone()
	last := now
	if c.LastPlayedDate != nil {
		last = *c.LastPlayedDate
	}
	return ProfileRecord{
		PlayerID:         playerID,
		HighScore:        c.HighScore,
		HighScoreDate:    c.HighScoreDate,
		TotalGamesPlayed: c.TotalGamesPlayed,
		UnlockedCodes:    c.UnlockedCodes,
		CodeUnlockDates:  c.CodeUnlockDates,
		LastPlayed:       last,
	}
}

// Profile 从远端记录还原档案
func (r ProfileRecord) Profile() Profile {
	p := Profile{
		HighScore:        r.HighScore,
		HighScoreDate:    r.HighScoreDate,
		TotalGamesPlayed: r.TotalGamesPlayed,
		UnlockedCodes:    r.UnlockedCodes,
		CodeUnlockDates:  r.CodeUnlockDates,
	}
	if !r.LastPlayed.IsZero() {
		last := r.LastPlayed
		p.LastPlayedDate = &last
	}
	return p.Clone()
}

// DecodeProfile 解析本地缓存
//
// 解析失败时返回默认档案和错误，调用方可以记录后继续使用默认档案
func DecodeProfile(data []byte, codes int) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return NewProfile(codes), fmt.Errorf("failed to decode profile: %w", err)
	}
	p.Normalize(codes)
	return p, nil
}

// EncodeProfile 序列化为本地缓存格式
func EncodeProfile(p Profile) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return data, nil
}
