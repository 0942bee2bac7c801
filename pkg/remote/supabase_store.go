// Package remote 远端持久化：基于 Supabase PostgREST 的档案与排行榜存储
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/decker502/xrpsuika/pkg/config"
	"github.com/decker502/xrpsuika/pkg/game"
)

// 表名
const (
	TableProfiles    = "game_states"
	TableLeaderboard = "leaderboard"
)

var (
	_ game.RemoteStore       = (*SupabaseStore)(nil)
	_ game.LeaderboardSource = (*SupabaseStore)(nil)
)

// SupabaseStore 通过 PostgREST 访问 game_states 与 leaderboard 表
//
// 每次调用都受 timeout 约束；调用方通过 Facade 的后台协程使用，不阻塞游戏循环
type SupabaseStore struct {
	client  *postgrest.Client
	timeout time.Duration
}

// NewSupabaseStore 按配置创建远端存储
func NewSupabaseStore(cfg config.RemoteConfig) (*SupabaseStore, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("remote store is not configured")
	}
	client := postgrest.NewClient(cfg.RESTURL(), "public", map[string]string{
		"apikey":        cfg.AnonKey,
		"Authorization": "Bearer " + cfg.AnonKey,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to create postgrest client: %w", client.ClientError)
	}
	return &SupabaseStore{client: client, timeout: cfg.Timeout}, nil
}

func (s *SupabaseStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// FetchProfile 按 player_id 读取档案，不存在时返回 game.ErrNotFound
func (s *SupabaseStore) FetchProfile(ctx context.Context, playerID string) (game.ProfileRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, _, err := s.client.From(TableProfiles).
		Select("*", "", false).
		Eq("player_id", playerID).
		ExecuteWithContext(ctx)
	if err != nil {
		return game.ProfileRecord{}, fmt.Errorf("failed to fetch profile: %w", err)
	}

	var rows []game.ProfileRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return game.ProfileRecord{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	if len(rows) == 0 {
		return game.ProfileRecord{}, game.ErrNotFound
	}
	return rows[0], nil
}

// UpsertProfile 按 player_id 插入或更新档案
func (s *SupabaseStore) UpsertProfile(ctx context.Context, rec game.ProfileRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, _, err := s.client.From(TableProfiles).
		Upsert(rec, "player_id", "minimal", "").
		ExecuteWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// InsertLeaderboardEntry 插入一条排行榜记录
func (s *SupabaseStore) InsertLeaderboardEntry(ctx context.Context, rec game.LeaderboardRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, _, err := s.client.From(TableLeaderboard).
		Insert(rec, false, "", "minimal", "").
		ExecuteWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert leaderboard entry: %w", err)
	}
	return nil
}

// TopScores 读取排行榜前 limit 名
func (s *SupabaseStore) TopScores(ctx context.Context, limit int) ([]game.LeaderboardRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, _, err := s.client.From(TableLeaderboard).
		Select("player_id,player_name,score,created_at", "", false).
		Order("score", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}

	var rows []game.LeaderboardRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return rows, nil
}

// Ping 探测远端是否可达
func (s *SupabaseStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, _, err := s.client.From(TableLeaderboard).
		Select("player_id", "", false).
		Limit(1, "").
		ExecuteWithContext(ctx)
	return err
}
