package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/decker502/xrpsuika/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// DefaultGameConfigPath 默认调参文件路径
const DefaultGameConfigPath = "data/game.yaml"

// 远端存储环境变量
const (
	EnvSupabaseURL   = "SUPABASE_URL"
	EnvSupabaseKey   = "SUPABASE_ANON_KEY"
	EnvRemoteTimeout = "XRP_SUIKA_REMOTE_TIMEOUT"
	EnvProbeInterval = "XRP_SUIKA_PROBE_INTERVAL"

	// 网页版沿用的变量名，未设置上面两个时使用
	EnvViteSupabaseURL = "VITE_SUPABASE_URL"
	EnvViteSupabaseKey = "VITE_SUPABASE_ANON_KEY"
)

// PhysicsConfig 内置物理世界参数
type PhysicsConfig struct {
	Gravity     float64 `yaml:"gravity"`     // 重力加速度（像素/秒²）
	Friction    float64 `yaml:"friction"`    // 接触切向阻尼 0~1
	Restitution float64 `yaml:"restitution"` // 弹性系数 0~1
	AirFriction float64 `yaml:"airFriction"` // 每步速度衰减
	Substeps    int     `yaml:"substeps"`    // 每帧子步数
}

// GameConfig 游戏调参
//
// 坐标系与屏幕一致：Y 轴向下
type GameConfig struct {
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	WallPadding     float64       `yaml:"wallPadding"`     // 容器底部到画面底部的留白
	LoseHeight      float64       `yaml:"loseHeight"`      // 失败线 Y 坐标
	StatusBarHeight float64       `yaml:"statusBarHeight"` // 顶部状态栏高度
	PreviewHeight   float64       `yaml:"previewHeight"`   // 预览/掉落起点 Y 坐标
	DropCooldownMs  int           `yaml:"dropCooldownMs"`  // 两次掉落最小间隔
	Physics         PhysicsConfig `yaml:"physics"`
}

// DefaultGameConfig 返回默认调参
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Width:           640,
		Height:          960,
		WallPadding:     120,
		LoseHeight:      84,
		StatusBarHeight: 185,
		PreviewHeight:   150,
		DropCooldownMs:  800,
		Physics: PhysicsConfig{
			Gravity:     1800,
			Friction:    0.3,
			Restitution: 0.2,
			AirFriction: 0.001,
			Substeps:    4,
		},
	}
}

// DropCooldown 返回掉落冷却时长
func (c *GameConfig) DropCooldown() time.Duration {
	return time.Duration(c.DropCooldownMs) * time.Millisecond
}

// ParseGameConfig 解析调参，缺失字段使用默认值
func ParseGameConfig(data []byte) (*GameConfig, error) {
	cfg := DefaultGameConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse game config YAML: %w", err)
	}
	if err := validateGameConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	return cfg, nil
}

// LoadGameConfig 从数据文件加载调参
//
// 文件不存在时返回默认值（不是错误）
func LoadGameConfig(path string) (*GameConfig, error) {
	if !embedded.Exists(path) {
		return DefaultGameConfig(), nil
	}
	data, err := embedded.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config %s: %w", path, err)
	}
	cfg, err := ParseGameConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func validateGameConfig(c *GameConfig) error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("screen size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.LoseHeight < 0 || c.LoseHeight >= float64(c.Height) {
		return fmt.Errorf("loseHeight must be within the screen, got %v", c.LoseHeight)
	}
	if c.PreviewHeight <= c.LoseHeight {
		return fmt.Errorf("previewHeight %v must be below loseHeight %v", c.PreviewHeight, c.LoseHeight)
	}
	if c.DropCooldownMs < 0 {
		return fmt.Errorf("dropCooldownMs cannot be negative, got %d", c.DropCooldownMs)
	}
	if c.Physics.Substeps < 1 {
		return fmt.Errorf("physics.substeps must be at least 1, got %d", c.Physics.Substeps)
	}
	return nil
}

// RemoteConfig 远端存储连接配置
type RemoteConfig struct {
	URL           string        // Supabase 项目地址，如 https://xyz.supabase.co
	AnonKey       string        // 匿名访问 key
	Timeout       time.Duration // 单次请求超时
	ProbeInterval time.Duration // 连通性探测间隔
}

// Enabled 返回是否配置了远端存储
func (c RemoteConfig) Enabled() bool {
	return c.URL != "" && c.AnonKey != ""
}

// RESTURL 返回 PostgREST 入口地址
func (c RemoteConfig) RESTURL() string {
	return strings.TrimRight(c.URL, "/") + "/rest/v1"
}

// RemoteConfigFromEnv 从环境变量读取远端配置
//
// 未配置时返回 Enabled() == false 的配置，游戏以离线模式运行
func RemoteConfigFromEnv() (RemoteConfig, error) {
	return remoteConfigFrom(os.Getenv)
}

func remoteConfigFrom(getenv func(string) string) (RemoteConfig, error) {
	cfg := RemoteConfig{
		URL:           firstEnv(getenv, EnvSupabaseURL, EnvViteSupabaseURL),
		AnonKey:       firstEnv(getenv, EnvSupabaseKey, EnvViteSupabaseKey),
		Timeout:       5 * time.Second,
		ProbeInterval: 15 * time.Second,
	}

	if v := getenv(EnvRemoteTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvRemoteTimeout, v, err)
		}
		cfg.Timeout = d
	}
	if v := getenv(EnvProbeInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvProbeInterval, v, err)
		}
		cfg.ProbeInterval = d
	}
	return cfg, nil
}

// firstEnv 返回第一个非空的环境变量值
func firstEnv(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
