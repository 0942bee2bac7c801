package app

import (
	"bytes"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// fontSet HUD 使用的字体
type fontSet struct {
	Title *text.GoTextFace
	Body  *text.GoTextFace
	Small *text.GoTextFace
	Label *text.GoTextFace
}

// loadFonts 从内置的 Go 字体创建字体
func loadFonts() (*fontSet, error) {
	regular, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("failed to create font source goregular: %w", err)
	}
	bold, err := text.NewGoTextFaceSource(bytes.NewReader(gobold.TTF))
	if err != nil {
		return nil, fmt.Errorf("failed to create font source gobold: %w", err)
	}

	face := func(src *text.GoTextFaceSource, size float64) *text.GoTextFace {
		return &text.GoTextFace{
			Source:    src,
			Size:      size,
			Direction: text.DirectionLeftToRight,
		}
	}
	return &fontSet{
		Title: face(bold, 44),
		Body:  face(regular, 24),
		Small: face(regular, 18),
		Label: face(bold, 16),
	}, nil
}
