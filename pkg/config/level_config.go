package config

import (
	"fmt"

	"github.com/decker502/xrpsuika/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// DefaultLevelConfigPath 默认关卡表路径
const DefaultLevelConfigPath = "data/levels.yaml"

// UnlockConfig 关卡解锁阈值：累计分数达到 Threshold 时揭示奖励码
type UnlockConfig struct {
	Threshold int    `yaml:"threshold"` // 解锁所需分数
	Code      string `yaml:"code"`      // 奖励码，如 "TOTHEMOON"
	Message   string `yaml:"message"`   // 弹窗提示文字
}

// LevelConfig 关卡配置
type LevelConfig struct {
	ID           int          `yaml:"id"`           // 关卡ID，从 1 开始
	Name         string       `yaml:"name"`         // 关卡名称
	MaxTier      int          `yaml:"maxTier"`      // 本关可生成/合成的最高等级（含）
	SpawnMaxTier int          `yaml:"spawnMaxTier"` // 掉落预览最高等级，可选
	Unlock       UnlockConfig `yaml:"unlock"`       // 本关唯一的解锁阈值

	// Slot 是关卡在表中的位置，对应存档中 unlockedCodes 的下标
	Slot int `yaml:"-"`
}

// LevelCatalog 有序关卡表
type LevelCatalog struct {
	Levels []LevelConfig `yaml:"levels"`
}

// Threshold 一个解锁阈值及其存档槽位
type Threshold struct {
	Slot    int
	LevelID int
	UnlockConfig
}

// ParseLevelCatalog 从 YAML 数据解析关卡表，并根据代币等级表验证
//
// 参数：
//   - data: YAML 内容
//   - tiers: 已加载的代币等级表，用于校验 maxTier 和填充 spawnMaxTier 默认值
func ParseLevelCatalog(data []byte, tiers *TierCatalog) (*LevelCatalog, error) {
	var catalog LevelCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse level catalog YAML: %w", err)
	}

	applyLevelDefaults(&catalog, tiers)

	if err := validateLevelCatalog(&catalog, tiers); err != nil {
		return nil, fmt.Errorf("invalid level catalog: %w", err)
	}
	return &catalog, nil
}

// LoadLevelCatalog 从数据文件加载关卡表
func LoadLevelCatalog(path string, tiers *TierCatalog) (*LevelCatalog, error) {
	data, err := embedded.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level catalog %s: %w", path, err)
	}
	catalog, err := ParseLevelCatalog(data, tiers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// applyLevelDefaults 为缺失的可选字段设置默认值
func applyLevelDefaults(c *LevelCatalog, tiers *TierCatalog) {
	for i := range c.Levels {
		level := &c.Levels[i]
		level.Slot = i

		// 未配置表示使用整张等级表
		if level.MaxTier == 0 {
			level.MaxTier = tiers.Terminal()
		}
		if level.SpawnMaxTier == 0 {
			level.SpawnMaxTier = min(tiers.SpawnMaxTier, level.MaxTier)
		}
	}
}

func validateLevelCatalog(c *LevelCatalog, tiers *TierCatalog) error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("at least one level is required")
	}

	for i, level := range c.Levels {
		if level.ID != i+1 {
			return fmt.Errorf("level %d: id must be %d (ids are 1..N in order), got %d", i, i+1, level.ID)
		}
		if level.MaxTier < 0 || level.MaxTier > tiers.Terminal() {
			return fmt.Errorf("level %d: maxTier must be between 0 and %d, got %d", level.ID, tiers.Terminal(), level.MaxTier)
		}
		if level.SpawnMaxTier < 0 || level.SpawnMaxTier > level.MaxTier {
			return fmt.Errorf("level %d: spawnMaxTier must be between 0 and %d, got %d", level.ID, level.MaxTier, level.SpawnMaxTier)
		}
		if level.Unlock.Threshold <= 0 {
			return fmt.Errorf("level %d: unlock threshold must be positive, got %d", level.ID, level.Unlock.Threshold)
		}
		if level.Unlock.Code == "" {
			return fmt.Errorf("level %d: unlock code is required", level.ID)
		}
		if i > 0 && level.Unlock.Threshold <= c.Levels[i-1].Unlock.Threshold {
			return fmt.Errorf("level %d: unlock threshold %d must exceed level %d threshold %d",
				level.ID, level.Unlock.Threshold, c.Levels[i-1].ID, c.Levels[i-1].Unlock.Threshold)
		}
	}
	return nil
}

// Len 返回关卡数量
func (c *LevelCatalog) Len() int {
	return len(c.Levels)
}

// Get 按关卡ID获取配置
func (c *LevelCatalog) Get(id int) (LevelConfig, bool) {
	if id < 1 || id > len(c.Levels) {
		return LevelConfig{}, false
	}
	return c.Levels[id-1], true
}

// Thresholds 返回全部解锁阈值（按阈值升序，即关卡顺序）
func (c *LevelCatalog) Thresholds() []Threshold {
	result := make([]Threshold, 0, len(c.Levels))
	for _, level := range c.Levels {
		result = append(result, level.Threshold())
	}
	return result
}

// Threshold 返回本关的解锁阈值
func (l LevelConfig) Threshold() Threshold {
	return Threshold{Slot: l.Slot, LevelID: l.ID, UnlockConfig: l.Unlock}
}
