package app

import (
	"fmt"
	"log"
	"time"
)

// feedbackDuration 复制结果提示的显示时长
const feedbackDuration = 2 * time.Second

// codePopup 奖励码弹窗
//
// 打开期间物理世界暂停；关闭后恢复（失败状态下保持冻结由会话负责）
type codePopup struct {
	open    bool
	code    string
	message string
	score   int

	feedback      string
	feedbackUntil time.Time

	copyText func(string) error
	now      func() time.Time
}

func newCodePopup(copyText func(string) error, now func() time.Time) *codePopup {
	if now == nil {
		now = time.Now
	}
	return &codePopup{copyText: copyText, now: now}
}

// Show 打开弹窗
func (p *codePopup) Show(code, message string, score int) {
	p.open = true
	p.code = code
	p.message = message
	p.score = score
	p.feedback = ""
	log.Printf("[Popup] Reward code unlocked: %s", code)
}

// Hide 关闭弹窗
func (p *codePopup) Hide() {
	p.open = false
}

// Open 弹窗是否打开
func (p *codePopup) Open() bool {
	return p.open
}

// HandleInput 处理弹窗内的按键
func (p *codePopup) HandleInput(in inputFrame) {
	if !p.open {
		return
	}
	switch {
	case in.Copy:
		p.copy(p.code, "Code copied!")
	case in.Share:
		p.copy(shareText(p.code, p.score), "Copied to clipboard!")
	case in.Dismiss, in.Confirm, in.Released:
		p.Hide()
	}
}

func (p *codePopup) copy(text, ok string) {
	if p.copyText == nil {
		p.setFeedback("Copy failed")
		return
	}
	if err := p.copyText(text); err != nil {
		log.Printf("[Popup] Warning: failed to copy to clipboard: %v", err)
		p.setFeedback("Copy failed")
		return
	}
	p.setFeedback(ok)
}

func (p *codePopup) setFeedback(s string) {
	p.feedback = s
	p.feedbackUntil = p.now().Add(feedbackDuration)
}

// Feedback 当前的复制结果提示，过期后为空
func (p *codePopup) Feedback() string {
	if p.feedback == "" || !p.now().Before(p.feedbackUntil) {
		return ""
	}
	return p.feedback
}

// shareText 分享奖励码的文案
func shareText(code string, score int) string {
	return fmt.Sprintf("Just unlocked secret code %q in XRP Crypto Meme Suika with %d XRP Score!", code, score)
}
