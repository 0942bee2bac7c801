package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/xrpsuika/pkg/app"
	"github.com/decker502/xrpsuika/pkg/embedded"
)

var (
	verbose = flag.Bool("verbose", false, "显示详细日志")
	level   = flag.Int("level", 0, "起始关卡 ID（1-5），0 表示第 1 关")
	mode    = flag.String("mode", "per-level", "解锁评估模式：per-level 或 global")
	offline = flag.Bool("offline", false, "不连接远端存储")
)

func main() {
	flag.Parse()

	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	gameApp, err := app.NewApp(app.Config{
		Verbose: *verbose,
		Level:   *level,
		Mode:    *mode,
		Offline: *offline,
	})
	if err != nil {
		log.Fatalf("游戏初始化失败: %v", err)
	}
	defer gameApp.Close()

	ebiten.SetWindowSize(gameApp.WindowSize())
	ebiten.SetWindowTitle("XRP Crypto Meme Suika")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(gameApp); err != nil {
		log.Fatal(err)
	}
}
