package config

import (
	"fmt"

	"github.com/decker502/xrpsuika/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// DefaultTierConfigPath 默认代币等级表路径
const DefaultTierConfigPath = "data/tiers.yaml"

// TierConfig 单个代币等级配置
//
// Index 由加载顺序决定，不从 YAML 读取
type TierConfig struct {
	Index      int     `yaml:"-"`
	Name       string  `yaml:"name"`       // 显示名称，如 "Baby Ripple"
	Radius     float64 `yaml:"radius"`     // 碰撞半径（像素）
	ScoreValue int     `yaml:"scoreValue"` // 每次合成该等级获得的分数
	Image      string  `yaml:"image"`      // 资源引用，核心逻辑不解析
}

// TierCatalog 有序的代币等级表
type TierCatalog struct {
	SpawnMaxTier int          `yaml:"spawnMaxTier"` // 掉落预览可出现的最高等级
	Tiers        []TierConfig `yaml:"tiers"`
}

// ParseTierCatalog 从 YAML 数据解析并验证代币等级表
//
// 验证规则：
//   - 至少一个等级
//   - 半径和分值必须为正
//   - 相邻等级 i+1 的半径和分值都严格大于等级 i
//   - spawnMaxTier 在等级范围内
func ParseTierCatalog(data []byte) (*TierCatalog, error) {
	var catalog TierCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse tier catalog YAML: %w", err)
	}

	for i := range catalog.Tiers {
		catalog.Tiers[i].Index = i
	}

	if err := validateTierCatalog(&catalog); err != nil {
		return nil, fmt.Errorf("invalid tier catalog: %w", err)
	}
	return &catalog, nil
}

// LoadTierCatalog 从数据文件加载代币等级表
func LoadTierCatalog(path string) (*TierCatalog, error) {
	data, err := embedded.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier catalog %s: %w", path, err)
	}
	catalog, err := ParseTierCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

func validateTierCatalog(c *TierCatalog) error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one tier is required")
	}

	for i, tier := range c.Tiers {
		if tier.Radius <= 0 {
			return fmt.Errorf("tier %d: radius must be positive, got %v", i, tier.Radius)
		}
		if tier.ScoreValue <= 0 {
			return fmt.Errorf("tier %d: scoreValue must be positive, got %d", i, tier.ScoreValue)
		}
		if i == 0 {
			continue
		}
		prev := c.Tiers[i-1]
		if tier.Radius <= prev.Radius {
			return fmt.Errorf("tier %d: radius %v must exceed tier %d radius %v", i, tier.Radius, i-1, prev.Radius)
		}
		if tier.ScoreValue <= prev.ScoreValue {
			return fmt.Errorf("tier %d: scoreValue %d must exceed tier %d scoreValue %d", i, tier.ScoreValue, i-1, prev.ScoreValue)
		}
	}

	if c.SpawnMaxTier < 0 || c.SpawnMaxTier > c.Terminal() {
		return fmt.Errorf("spawnMaxTier must be between 0 and %d, got %d", c.Terminal(), c.SpawnMaxTier)
	}
	return nil
}

// Len 返回等级数量
func (c *TierCatalog) Len() int {
	return len(c.Tiers)
}

// Terminal 返回最后一级的索引
func (c *TierCatalog) Terminal() int {
	return len(c.Tiers) - 1
}

// Valid 检查索引是否在等级表内
func (c *TierCatalog) Valid(index int) bool {
	return index >= 0 && index < len(c.Tiers)
}

// Get 获取指定等级配置
//
// 索引越界返回 false
func (c *TierCatalog) Get(index int) (TierConfig, bool) {
	if !c.Valid(index) {
		return TierConfig{}, false
	}
	return c.Tiers[index], true
}

// ScoreValue 返回等级分值，越界返回 0
func (c *TierCatalog) ScoreValue(index int) int {
	tier, ok := c.Get(index)
	if !ok {
		return 0
	}
	return tier.ScoreValue
}

// Next 返回合成后的等级
//
// terminal 是当前关卡允许的最高等级；合成两个 terminal 等级回到 0，
// 让游戏可以在最大代币之后继续进行
func (c *TierCatalog) Next(index, terminal int) int {
	if terminal < 0 || terminal > c.Terminal() {
		terminal = c.Terminal()
	}
	if index >= terminal {
		return 0
	}
	return index + 1
}
