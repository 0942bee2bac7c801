package game

import (
	"fmt"
	"log"
	"maps"
	"sync"

	"github.com/quasilyte/gdata/v2"
)

// 本地存储键
const (
	storeObject           = "xrp-suika"
	KeyProfile            = "game-cache"
	KeyPlayerID           = "player-id"
	KeyPendingLeaderboard = "pending-leaderboard"
)

// LocalStore 本地持久化键值存储（值为 JSON）
type LocalStore interface {
	// Load 读取键值，键不存在时 ok 为 false
	Load(key string) (data []byte, ok bool, err error)
	Save(key string, data []byte) error
}

// MemoryStore 内存实现，用于测试和存储不可用时的降级
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Load 实现 LocalStore
func (s *MemoryStore) Load(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Save 实现 LocalStore
func (s *MemoryStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Snapshot 返回全部键值副本（测试用）
func (s *MemoryStore) Snapshot() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data)
}

// GdataStore 基于 gdata 的跨平台本地存储
//
// gdataManager 为 nil 时降级为内存存储（本次运行内有效），游戏仍可正常进行
type GdataStore struct {
	gdataManager *gdata.Manager
	fallback     *MemoryStore
}

// NewGdataStore 创建本地存储
//
// 参数：
//   - gdataManager: gdata 存储管理器，可为 nil（降级模式）
func NewGdataStore(gdataManager *gdata.Manager) *GdataStore {
	if gdataManager == nil {
		log.Printf("[GdataStore] Warning: gdata unavailable, progress will not survive restart")
	}
	return &GdataStore{
		gdataManager: gdataManager,
		fallback:     NewMemoryStore(),
	}
}

// OpenGdataStore 按应用名打开 gdata 存储，失败时返回降级存储和错误
func OpenGdataStore(appName string) (*GdataStore, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return NewGdataStore(nil), fmt.Errorf("failed to open gdata storage: %w", err)
	}
	return NewGdataStore(m), nil
}

// Degraded 是否处于降级模式
func (s *GdataStore) Degraded() bool {
	return s.gdataManager == nil
}

// Load 实现 LocalStore
func (s *GdataStore) Load(key string) ([]byte, bool, error) {
	if s.gdataManager == nil {
		return s.fallback.Load(key)
	}
	if !s.gdataManager.ObjectPropExists(storeObject, key) {
		return nil, false, nil
	}
	data, err := s.gdataManager.LoadObjectProp(storeObject, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return data, true, nil
}

// Save 实现 LocalStore
func (s *GdataStore) Save(key string, data []byte) error {
	if s.gdataManager == nil {
		return s.fallback.Save(key, data)
	}
	if err := s.gdataManager.SaveObjectProp(storeObject, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
