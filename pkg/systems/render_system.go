package systems

import (
	"image/color"
	"math"
	"strconv"

	"github.com/decker502/xrpsuika/pkg/components"
	"github.com/decker502/xrpsuika/pkg/config"
	"github.com/decker502/xrpsuika/pkg/ecs"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// tierPalette 各等级代币的填充色，超出范围时循环使用
var tierPalette = []color.RGBA{
	{R: 0x4f, G: 0xc3, B: 0xf7, A: 0xff},
	{R: 0x29, G: 0xb6, B: 0xf6, A: 0xff},
	{R: 0x26, G: 0xa6, B: 0x9a, A: 0xff},
	{R: 0x66, G: 0xbb, B: 0x6a, A: 0xff},
	{R: 0xd4, G: 0xe1, B: 0x57, A: 0xff},
	{R: 0xff, G: 0xca, B: 0x28, A: 0xff},
	{R: 0xff, G: 0xa7, B: 0x26, A: 0xff},
	{R: 0xff, G: 0x70, B: 0x43, A: 0xff},
	{R: 0xec, G: 0x40, B: 0x7a, A: 0xff},
	{R: 0xab, G: 0x47, B: 0xbc, A: 0xff},
	{R: 0x5c, G: 0x6b, B: 0xc0, A: 0xff},
}

// TierColor 返回等级对应的颜色
func TierColor(tier int) color.RGBA {
	if tier < 0 {
		tier = 0
	}
	return tierPalette[tier%len(tierPalette)]
}

// RenderSystem 绘制容器中的代币
//
// 查询拥有 Position + Collision + Token 组件的实体，按创建顺序绘制：
// 填充圆、描边、朝向刻线和等级标签
type RenderSystem struct {
	entityManager *ecs.EntityManager
	tiers         *config.TierCatalog
	labelFace     *text.GoTextFace
}

// NewRenderSystem 创建渲染系统
//
// labelFace 为 nil 时不绘制等级标签
func NewRenderSystem(em *ecs.EntityManager, tiers *config.TierCatalog, labelFace *text.GoTextFace) *RenderSystem {
	return &RenderSystem{
		entityManager: em,
		tiers:         tiers,
		labelFace:     labelFace,
	}
}

// Draw 绘制全部代币
func (s *RenderSystem) Draw(screen *ebiten.Image) {
	ids := ecs.GetEntitiesWith3[*components.PositionComponent, *components.CollisionComponent, *components.TokenComponent](s.entityManager)
	for _, id := range ids {
		pos, _ := ecs.GetComponent[*components.PositionComponent](s.entityManager, id)
		col, _ := ecs.GetComponent[*components.CollisionComponent](s.entityManager, id)
		token, _ := ecs.GetComponent[*components.TokenComponent](s.entityManager, id)
		s.DrawToken(screen, token.Tier, pos.X, pos.Y, col.Radius, pos.Angle, 1)
	}
}

// DrawToken 绘制单个代币（预览和状态栏也使用）
//
// 参数：
//   - tier: 代币等级
//   - x, y: 圆心
//   - radius: 半径
//   - angle: 朝向（弧度）
//   - alpha: 不透明度 0~1
func (s *RenderSystem) DrawToken(screen *ebiten.Image, tier int, x, y, radius, angle float64, alpha float32) {
	fill := scaleAlpha(TierColor(tier), alpha)
	edge := scaleAlpha(color.RGBA{R: 0x1a, G: 0x23, B: 0x7e, A: 0xff}, alpha)

	cx, cy, r := float32(x), float32(y), float32(radius)
	vector.DrawFilledCircle(screen, cx, cy, r, fill, true)
	vector.StrokeCircle(screen, cx, cy, r, 2, edge, true)

	// 朝向刻线，让旋转可见
	ex := cx + r*0.8*float32(math.Cos(angle))
	ey := cy + r*0.8*float32(math.Sin(angle))
	vector.StrokeLine(screen, cx, cy, ex, ey, 2, edge, true)

	if s.labelFace == nil {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.PrimaryAlign = text.AlignCenter
	op.SecondaryAlign = text.AlignCenter
	op.ColorScale.ScaleWithColor(color.White)
	op.ColorScale.ScaleAlpha(alpha)
	text.Draw(screen, s.label(tier), s.labelFace, op)
}

func (s *RenderSystem) label(tier int) string {
	if s.tiers != nil {
		if t, ok := s.tiers.Get(tier); ok && t.Name != "" {
			return initials(t.Name)
		}
	}
	return strconv.Itoa(tier)
}

// initials 取名称各单词首字母，如 "Baby Ripple" -> "BR"
func initials(name string) string {
	out := make([]rune, 0, 3)
	start := true
	for _, r := range name {
		if r == ' ' {
			start = true
			continue
		}
		if start {
			out = append(out, r)
			start = false
		}
	}
	return string(out)
}

func scaleAlpha(c color.RGBA, alpha float32) color.RGBA {
	if alpha >= 1 {
		return c
	}
	if alpha < 0 {
		alpha = 0
	}
	// 预乘 alpha
	return color.RGBA{
		R: uint8(float32(c.R) * alpha),
		G: uint8(float32(c.G) * alpha),
		B: uint8(float32(c.B) * alpha),
		A: uint8(float32(c.A) * alpha),
	}
}
