package app

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// popLifetime 合成爆开效果持续时间（秒）
const popLifetime = 0.1

type pop struct {
	x, y, r float64
	age     float64
}

// popEffects 合成时在合成点闪现的圆环
type popEffects struct {
	pops []pop
}

// Add 在合成点添加一个效果
func (e *popEffects) Add(x, y, r float64) {
	e.pops = append(e.pops, pop{x: x, y: y, r: r})
}

// Update 推进 dt 秒并移除过期效果
func (e *popEffects) Update(dt float64) {
	kept := e.pops[:0]
	for _, p := range e.pops {
		p.age += dt
		if p.age < popLifetime {
			kept = append(kept, p)
		}
	}
	e.pops = kept
}

// Len 当前效果数量
func (e *popEffects) Len() int {
	return len(e.pops)
}

// Draw 绘制全部效果
func (e *popEffects) Draw(screen *ebiten.Image) {
	for _, p := range e.pops {
		t := p.age / popLifetime
		r := float32(p.r * (1 + 0.4*t))
		a := uint8(255 * (1 - t))
		clr := color.RGBA{R: a, G: a, B: a, A: a}
		vector.StrokeCircle(screen, float32(p.x), float32(p.y), r, 4, clr, true)
	}
}

// pulsePeriod 进度条接近阈值时的脉动周期（秒），0 表示不脉动
func pulsePeriod(percent float64) float64 {
	switch {
	case percent >= 95:
		return 0.5
	case percent >= 90:
		return 0.8
	case percent >= 85:
		return 1
	default:
		return 0
	}
}

// pulseAlpha 给定时刻的脉动亮度 0.6~1
func pulseAlpha(period, seconds float64) float32 {
	if period <= 0 {
		return 1
	}
	phase := math.Mod(seconds, period) / period
	return float32(0.8 + 0.2*math.Cos(phase*2*math.Pi))
}
