// Package app 提供游戏应用的核心包装器
//
// 该包将游戏初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/decker502/xrpsuika/pkg/config"
	"github.com/decker502/xrpsuika/pkg/game"
	"github.com/decker502/xrpsuika/pkg/physics"
	"github.com/decker502/xrpsuika/pkg/remote"
	"github.com/decker502/xrpsuika/pkg/systems"
)

// AppName 本地存储使用的应用名
const AppName = "xrpsuika"

// tickSeconds 固定步长（ebiten 默认 60 TPS）
const tickSeconds = 1.0 / 60.0

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// Level 起始关卡 ID，0 表示第 1 关
	Level int
	// Mode 解锁评估模式："per-level"（默认）或 "global"
	Mode string
	// Offline 不连接远端存储
	Offline bool
}

// App 是游戏应用的核心包装器，实现 ebiten.Game 接口
type App struct {
	cfg    *config.GameConfig
	tiers  *config.TierCatalog
	levels *config.LevelCatalog

	world   *physics.World
	session *game.GameSession
	facade  *game.Facade
	monitor *remote.Monitor
	cancel  context.CancelFunc

	render *systems.RenderSystem
	fonts  *fontSet
	input  pointer
	popup  *codePopup
	pops   popEffects

	elapsed                  float64
	verbose                  bool
	pendingWindowSizeReset   bool // 延迟设置窗口大小标志
	windowSizeResetCountdown int  // 延迟帧数
}

// NewApp 创建并初始化游戏应用
//
// 调用此函数前，必须先调用 embedded.Init() 初始化嵌入资源。
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	tiers, err := config.LoadTierCatalog(config.DefaultTierConfigPath)
	if err != nil {
		return nil, fmt.Errorf("代币等级表加载失败: %w", err)
	}
	levels, err := config.LoadLevelCatalog(config.DefaultLevelConfigPath, tiers)
	if err != nil {
		return nil, fmt.Errorf("关卡表加载失败: %w", err)
	}
	gameCfg, err := config.LoadGameConfig(config.DefaultGameConfigPath)
	if err != nil {
		return nil, fmt.Errorf("游戏调参加载失败: %w", err)
	}
	log.Printf("[Config] Loaded %d tiers, %d levels", tiers.Len(), levels.Len())

	mode, err := game.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	// 打开失败时返回降级的内存存储，游戏照常进行
	local, err := game.OpenGdataStore(AppName)
	if err != nil {
		log.Printf("[App] Warning: %v", err)
	}

	var (
		remoteStore game.RemoteStore
		monitor     *remote.Monitor
	)
	if !cfg.Offline {
		// 远端凭据可放在工作目录的 .env 文件中
		if err := config.LoadEnvFiles(config.DefaultEnvFiles...); err != nil {
			log.Printf("[App] Warning: %v", err)
		}
		rc, err := config.RemoteConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if rc.Enabled() {
			store, err := remote.NewSupabaseStore(rc)
			if err != nil {
				return nil, err
			}
			remoteStore = store
			monitor = remote.NewMonitor(store, rc.ProbeInterval)
			log.Printf("[App] Remote store enabled: %s", rc.URL)
		} else {
			log.Printf("[App] Remote store not configured, playing offline")
		}
	}

	facade, err := game.NewFacade(local, remoteStore, game.FacadeOptions{Codes: levels.Len()})
	if err != nil {
		return nil, fmt.Errorf("存档初始化失败: %w", err)
	}

	world := physics.NewWorld(gameCfg)
	session, err := game.NewGameSession(game.SessionOptions{
		Tiers:       tiers,
		Levels:      levels,
		LevelID:     cfg.Level,
		Mode:        mode,
		Game:        gameCfg,
		World:       world,
		Persistence: facade,
	})
	if err != nil {
		return nil, fmt.Errorf("会话创建失败: %w", err)
	}

	fonts, err := loadFonts()
	if err != nil {
		return nil, fmt.Errorf("字体加载失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	facade.Start(ctx)
	if monitor != nil {
		go monitor.Run(ctx)
		// 启动时同步一次远端档案并补发离线排行榜
		session.Dispatch(game.ReconnectSignal{})
	}

	log.Printf("[App] Player %s, level %d, mode %s", facade.PlayerID(), session.Level().ID, mode)

	return &App{
		cfg:     gameCfg,
		tiers:   tiers,
		levels:  levels,
		world:   world,
		session: session,
		facade:  facade,
		monitor: monitor,
		cancel:  cancel,
		render:  systems.NewRenderSystem(world.EntityManager(), tiers, fonts.Label),
		fonts:   fonts,
		popup:   newCodePopup(clipboard.WriteAll, nil),
		verbose: cfg.Verbose,
	}, nil
}

// Update 更新游戏逻辑
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	// 延迟设置窗口大小（退出全屏后需要等待几帧才能正确设置）
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			ebiten.SetWindowSize(a.WindowSize())
			a.pendingWindowSizeReset = false
		}
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		if ebiten.IsFullscreen() {
			ebiten.SetFullscreen(false)
			if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
				ebiten.RestoreWindow()
			}
			a.pendingWindowSizeReset = true
			a.windowSizeResetCountdown = 3
			log.Printf("[App] Exit fullscreen, will reset window size in 3 frames")
		} else {
			ebiten.SetFullscreen(true)
		}
	}

	a.elapsed += tickSeconds
	a.pollConnectivity()

	in := a.input.readInput()
	if in.ResetCodes {
		a.session.ResetUnlocks()
	}
	if a.popup.Open() {
		a.popup.HandleInput(in)
	} else {
		for _, msg := range translateInput(a.session.State(), false, in) {
			a.handleEvents(a.session.Dispatch(msg))
		}
	}

	// 弹窗打开时暂停物理
	if !a.popup.Open() {
		batch := a.world.Step(tickSeconds)
		a.handleEvents(a.session.Dispatch(game.Tick{Batch: batch}))
	}
	a.pops.Update(tickSeconds)
	return nil
}

// pollConnectivity 把连通性变化转换为会话消息，不阻塞
func (a *App) pollConnectivity() {
	if a.monitor == nil {
		return
	}
	select {
	case online := <-a.monitor.Events():
		if online {
			a.session.Dispatch(game.ReconnectSignal{})
		} else {
			a.session.Dispatch(game.OfflineSignal{})
		}
	default:
	}
}

// handleEvents 处理会话事件：合成效果和奖励码弹窗
func (a *App) handleEvents(events []game.Event) {
	for _, ev := range events {
		switch e := ev.(type) {
		case game.MergeEvent:
			if t, ok := a.tiers.Get(e.NewTier); ok {
				a.pops.Add(e.X, e.Y, t.Radius)
			}
		case game.UnlockEvent:
			a.popup.Show(e.RewardCode, e.Message, a.session.Score())
		}
	}
}

// Draw 绘制游戏画面
// 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)
	a.drawLoseLine(screen)
	a.render.Draw(screen)
	a.pops.Draw(screen)
	a.drawPreview(screen)
	a.drawStatusBar(screen)

	switch a.session.State() {
	case game.StateMenu:
		a.drawMenu(screen)
	case game.StateLost:
		a.drawGameOver(screen)
	}
	a.drawPopup(screen)
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 用于控制全屏时的缩放和 letterbox 颜色
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回游戏的逻辑屏幕尺寸
// 此尺寸独立于实际窗口大小，Ebitengine 会自动处理缩放
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.cfg.Width, a.cfg.Height
}

// WindowSize 桌面窗口尺寸（逻辑尺寸的 3/4）
func (a *App) WindowSize() (int, int) {
	return a.cfg.Width * 3 / 4, a.cfg.Height * 3 / 4
}

// Close 停止后台协程
// 已排队的存档任务会先执行完
func (a *App) Close() {
	a.facade.Close()
	a.cancel()
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}
