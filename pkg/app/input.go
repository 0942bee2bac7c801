package app

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/decker502/xrpsuika/pkg/game"
)

// levelKeys 菜单中选择关卡的数字键，下标 + 1 即关卡 ID
var levelKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
	ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
}

// inputFrame 一帧内采集到的输入
type inputFrame struct {
	PointerX     float64
	PointerMoved bool
	Released     bool // 鼠标左键或触摸抬起
	Confirm      bool // Enter / Space
	Reset        bool // R
	Copy         bool // C
	Share        bool // S
	Dismiss      bool // Esc
	ResetCodes   bool // F9，调试用
	LevelID      int  // 0 表示未选择
}

// pointer 记录上一帧的指针位置，用于判断是否移动
type pointer struct {
	x, y  int
	valid bool
	touch ebiten.TouchID
}

// readInput 从 ebiten 采集一帧输入
func (p *pointer) readInput() inputFrame {
	var in inputFrame

	x, y := ebiten.CursorPosition()
	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		p.touch = id
	}
	if tx, ty := ebiten.TouchPosition(p.touch); tx != 0 || ty != 0 {
		x, y = tx, ty
	}
	if !p.valid || x != p.x || y != p.y {
		in.PointerMoved = true
	}
	p.x, p.y, p.valid = x, y, true
	in.PointerX = float64(x)

	in.Released = inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) ||
		inpututil.IsTouchJustReleased(p.touch)
	in.Confirm = inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace)
	in.Reset = inpututil.IsKeyJustPressed(ebiten.KeyR)
	in.Copy = inpututil.IsKeyJustPressed(ebiten.KeyC)
	in.Share = inpututil.IsKeyJustPressed(ebiten.KeyS)
	in.Dismiss = inpututil.IsKeyJustPressed(ebiten.KeyEscape)
	in.ResetCodes = inpututil.IsKeyJustPressed(ebiten.KeyF9)
	for i, k := range levelKeys {
		if inpututil.IsKeyJustPressed(k) {
			in.LevelID = i + 1
		}
	}
	return in
}

// translateInput 把一帧输入转换为会话消息
//
// 弹窗打开时输入只作用于弹窗，不产生会话消息
func translateInput(state game.State, popupOpen bool, in inputFrame) []game.Message {
	if popupOpen {
		return nil
	}

	var msgs []game.Message
	switch state {
	case game.StateMenu:
		if in.LevelID > 0 {
			msgs = append(msgs, game.SelectLevelInput{LevelID: in.LevelID})
		}
		if in.Confirm || in.Released {
			msgs = append(msgs, game.StartInput{})
		}
	case game.StateReady, game.StateDropping:
		if in.PointerMoved {
			msgs = append(msgs, game.MoveInput{X: in.PointerX})
		}
		if in.Released {
			msgs = append(msgs, game.DropInput{X: in.PointerX})
		}
	case game.StateLost:
		if in.Reset || in.Confirm || in.Released {
			msgs = append(msgs, game.ResetInput{})
		}
	}
	return msgs
}
