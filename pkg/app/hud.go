package app

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/decker502/xrpsuika/pkg/game"
)

var (
	colorBackground = color.RGBA{R: 0xff, G: 0xf3, B: 0xe0, A: 0xff}
	colorStatusBar  = color.RGBA{R: 0x1a, G: 0x23, B: 0x7e, A: 0xe0}
	colorText       = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorDimText    = color.RGBA{R: 0xb0, G: 0xbe, B: 0xc5, A: 0xff}
	colorAccent     = color.RGBA{R: 0xff, G: 0xca, B: 0x28, A: 0xff}
	colorLoseLine   = color.RGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xa0}
	colorOverlay    = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xb0}
	colorOnline     = color.RGBA{R: 0x66, G: 0xbb, B: 0x6a, A: 0xff}
	colorOffline    = color.RGBA{R: 0xef, G: 0x53, B: 0x50, A: 0xff}
)

// drawText 绘制一行文字
//
// align 为水平对齐方式，y 为文字顶部
func drawText(screen *ebiten.Image, s string, face *text.GoTextFace, x, y float64, align text.Align, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.PrimaryAlign = align
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, s, face, op)
}

// drawStatusBar 顶部状态栏：分数、等级称号、关卡、进度、下一个代币、连接状态
func (a *App) drawStatusBar(screen *ebiten.Image) {
	w := float64(a.cfg.Width)
	h := a.cfg.StatusBarHeight
	vector.DrawFilledRect(screen, 0, 0, float32(w), float32(h), colorStatusBar, false)

	s := a.session
	drawText(screen, fmt.Sprintf("XRP Score: %d", s.Score()), a.fonts.Body, 20, 16, text.AlignStart, colorText)
	drawText(screen, fmt.Sprintf("Best: %d", s.HighScore()), a.fonts.Small, 20, 48, text.AlignStart, colorDimText)
	drawText(screen, s.RankTitle(), a.fonts.Small, 20, 72, text.AlignStart, colorAccent)

	level := s.Level()
	drawText(screen, fmt.Sprintf("Level %d: %s", level.ID, level.Name), a.fonts.Small, w/2, 16, text.AlignCenter, colorText)

	status, clr := "OFFLINE", colorOffline
	if s.Persistence().Online() {
		status, clr = "ONLINE", colorOnline
	}
	drawText(screen, status, a.fonts.Small, w-20, 16, text.AlignEnd, clr)

	// 下一个代币
	_, next, _ := s.Preview()
	if t, ok := a.tiers.Get(next); ok {
		drawText(screen, "Next", a.fonts.Small, w-60, 44, text.AlignCenter, colorDimText)
		r := min(t.Radius, 24)
		a.render.DrawToken(screen, next, w-60, 92, r, 0, 1)
	}

	a.drawProgress(screen, 20, h-56, w-150)
}

// drawProgress 解锁进度条，接近阈值时脉动
func (a *App) drawProgress(screen *ebiten.Image, x, y, width float64) {
	p := a.session.Progress()
	if p.Complete {
		drawText(screen, "All secret codes unlocked!", a.fonts.Small, x, y, text.AlignStart, colorAccent)
		return
	}

	label := fmt.Sprintf("%d more to unlock the code at %d", p.PointsNeeded, p.NextThreshold)
	drawText(screen, label, a.fonts.Small, x, y, text.AlignStart, colorText)

	barY := float32(y + 28)
	vector.DrawFilledRect(screen, float32(x), barY, float32(width), 14, colorDimText, false)

	fill := colorAccent
	alpha := pulseAlpha(pulsePeriod(p.Percent), a.elapsed)
	fill.A = uint8(float32(fill.A) * alpha)
	vector.DrawFilledRect(screen, float32(x), barY, float32(width*p.Percent/100), 14, fill, false)
}

// drawLoseLine 失败线
func (a *App) drawLoseLine(screen *ebiten.Image) {
	y := float32(a.cfg.LoseHeight)
	w := float32(a.cfg.Width)
	for x := float32(0); x < w; x += 24 {
		vector.StrokeLine(screen, x, y, min(x+12, w), y, 2, colorLoseLine, false)
	}
}

// drawPreview 跟随指针的待掉落代币
func (a *App) drawPreview(screen *ebiten.Image) {
	state := a.session.State()
	if state != game.StateReady && state != game.StateDropping {
		return
	}
	current, _, x := a.session.Preview()
	t, ok := a.tiers.Get(current)
	if !ok {
		return
	}
	alpha := float32(1)
	if state == game.StateDropping {
		alpha = 0.4
	}
	a.render.DrawToken(screen, current, x, a.cfg.PreviewHeight, t.Radius, 0, alpha)
}

func (a *App) drawOverlay(screen *ebiten.Image) {
	vector.DrawFilledRect(screen, 0, 0, float32(a.cfg.Width), float32(a.cfg.Height), colorOverlay, false)
}

// drawMenu 开始界面：标题和关卡列表
func (a *App) drawMenu(screen *ebiten.Image) {
	a.drawOverlay(screen)
	cx := float64(a.cfg.Width) / 2
	y := float64(a.cfg.Height) * 0.25

	drawText(screen, "XRP Crypto Meme Suika", a.fonts.Title, cx, y, text.AlignCenter, colorAccent)
	drawText(screen, "Click or press Enter to start", a.fonts.Body, cx, y+70, text.AlignCenter, colorText)
	drawText(screen, "Press 1-5 to choose a level", a.fonts.Small, cx, y+110, text.AlignCenter, colorDimText)

	profile := a.session.Persistence().Profile()
	current := a.session.Level().ID
	for i, lv := range a.levels.Levels {
		code := "???"
		if lv.Slot < len(profile.UnlockedCodes) && profile.UnlockedCodes[lv.Slot] {
			code = lv.Unlock.Code
		}
		line := fmt.Sprintf("%d. %s  (%d pts)  %s", lv.ID, lv.Name, lv.Unlock.Threshold, code)
		clr := color.Color(colorDimText)
		if lv.ID == current {
			clr = colorText
		}
		drawText(screen, line, a.fonts.Small, cx, y+160+float64(i)*30, text.AlignCenter, clr)
	}
}

// drawGameOver 失败结算
func (a *App) drawGameOver(screen *ebiten.Image) {
	over := a.session.GameOver()
	if over == nil {
		return
	}
	a.drawOverlay(screen)
	cx := float64(a.cfg.Width) / 2
	y := float64(a.cfg.Height) * 0.3

	drawText(screen, "GAME OVER", a.fonts.Title, cx, y, text.AlignCenter, colorOffline)
	drawText(screen, over.Phrase, a.fonts.Body, cx, y+70, text.AlignCenter, colorText)
	drawText(screen, fmt.Sprintf("Score: %d", over.Score), a.fonts.Body, cx, y+120, text.AlignCenter, colorText)
	drawText(screen, fmt.Sprintf("High score: %d", over.HighScore), a.fonts.Small, cx, y+156, text.AlignCenter, colorDimText)
	if over.NewRecord {
		drawText(screen, "NEW RECORD!", a.fonts.Body, cx, y+190, text.AlignCenter, colorAccent)
	}
	drawText(screen, a.session.RankTitle(), a.fonts.Small, cx, y+230, text.AlignCenter, colorAccent)
	stats := a.session.Stats()
	drawText(screen, fmt.Sprintf("Secret codes: %d/%d", stats.Unlocked, stats.Total), a.fonts.Small, cx, y+256, text.AlignCenter, colorDimText)
	drawText(screen, "Click or press R to play again", a.fonts.Small, cx, y+290, text.AlignCenter, colorText)
	a.drawLeaderboard(screen, cx, y+336)
}

// drawLeaderboard 排行榜前几名，离线或尚未拉取时不显示
func (a *App) drawLeaderboard(screen *ebiten.Image, cx, y float64) {
	board := a.session.Leaderboard()
	if len(board) == 0 {
		return
	}
	drawText(screen, "TOP HODLERS", a.fonts.Small, cx, y, text.AlignCenter, colorAccent)
	for i, e := range board {
		line := fmt.Sprintf("%d. %s  %d", i+1, e.PlayerName, e.Score)
		drawText(screen, line, a.fonts.Small, cx, y+28+float64(i)*26, text.AlignCenter, colorText)
	}
}

// drawPopup 奖励码弹窗
func (a *App) drawPopup(screen *ebiten.Image) {
	if !a.popup.Open() {
		return
	}
	a.drawOverlay(screen)
	cx := float64(a.cfg.Width) / 2
	y := float64(a.cfg.Height) * 0.35

	drawText(screen, "SECRET CODE UNLOCKED", a.fonts.Body, cx, y, text.AlignCenter, colorAccent)
	drawText(screen, a.popup.message, a.fonts.Small, cx, y+44, text.AlignCenter, colorText)
	drawText(screen, a.popup.code, a.fonts.Title, cx, y+90, text.AlignCenter, colorText)
	drawText(screen, "C: copy code   S: share   Esc: continue", a.fonts.Small, cx, y+160, text.AlignCenter, colorDimText)
	if fb := a.popup.Feedback(); fb != "" {
		drawText(screen, fb, a.fonts.Small, cx, y+196, text.AlignCenter, colorOnline)
	}
}
