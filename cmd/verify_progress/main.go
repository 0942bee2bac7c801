// verify_progress 无界面运行若干局游戏，检查分数与解锁进度的一致性
//
// 每局用固定种子随机掉落，直到失败或达到帧数上限。检查项：
//   - 分数等于合成事件分值之和，且不递减
//   - 解锁事件发生时分数已达到阈值，每个槽位只揭示一次
//   - 进度百分比在 0~100 之间
//   - 失败后恰好产生一次 GameOverEvent
//
// 用法（在项目根目录运行）：
//
//	go run ./cmd/verify_progress -games 20 -mode global
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/decker502/xrpsuika/pkg/config"
	"github.com/decker502/xrpsuika/pkg/game"
	"github.com/decker502/xrpsuika/pkg/physics"
)

const frameDuration = time.Second / 60

var (
	verbose   = flag.Bool("verbose", false, "显示详细调试信息")
	games     = flag.Int("games", 10, "运行局数")
	maxFrames = flag.Int("frames", 60*60*10, "每局最多帧数")
	seed      = flag.Uint64("seed", 1, "随机种子")
	levelID   = flag.Int("level", 1, "关卡 ID")
	modeFlag  = flag.String("mode", "per-level", "解锁评估模式：per-level 或 global")
)

// result 一局的统计
type result struct {
	frames   int
	drops    int
	merges   int
	score    int
	unlocks  []string
	lost     bool
	failures []string
}

func (r *result) fail(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func main() {
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	tiers, err := config.LoadTierCatalog(config.DefaultTierConfigPath)
	if err != nil {
		fmt.Printf("FAIL: %v\n", err)
		os.Exit(1)
	}
	levels, err := config.LoadLevelCatalog(config.DefaultLevelConfigPath, tiers)
	if err != nil {
		fmt.Printf("FAIL: %v\n", err)
		os.Exit(1)
	}
	gameCfg, err := config.LoadGameConfig(config.DefaultGameConfigPath)
	if err != nil {
		fmt.Printf("FAIL: %v\n", err)
		os.Exit(1)
	}
	mode, err := game.ParseMode(*modeFlag)
	if err != nil {
		fmt.Printf("FAIL: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	best := 0
	for i := 0; i < *games; i++ {
		r := runGame(tiers, levels, gameCfg, mode, *seed+uint64(i))
		status := "PASS"
		if len(r.failures) > 0 {
			status = "FAIL"
			failed++
		}
		best = max(best, r.score)
		fmt.Printf("%s: game %2d - frames=%d drops=%d merges=%d score=%d lost=%v unlocks=%v\n",
			status, i+1, r.frames, r.drops, r.merges, r.score, r.lost, r.unlocks)
		for _, f := range r.failures {
			fmt.Printf("     %s\n", f)
		}
	}

	fmt.Printf("\n%d/%d games passed, best score %d\n", *games-failed, *games, best)
	if failed > 0 {
		os.Exit(1)
	}
}

func runGame(tiers *config.TierCatalog, levels *config.LevelCatalog, gameCfg *config.GameConfig, mode game.Mode, seed uint64) result {
	var r result

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	world := physics.NewWorld(gameCfg)
	session, err := game.NewGameSession(game.SessionOptions{
		Tiers:   tiers,
		Levels:  levels,
		LevelID: *levelID,
		Mode:    mode,
		Game:    gameCfg,
		World:   world,
		Clock:   clock,
		Rand:    rng,
	})
	if err != nil {
		r.fail("failed to create session: %v", err)
		return r
	}

	expected := 0
	revealed := make(map[int]bool)
	gameOvers := 0

	check := func(events []game.Event) {
		for _, ev := range events {
			switch e := ev.(type) {
			case game.DropEvent:
				r.drops++
			case game.MergeEvent:
				r.merges++
				expected += tiers.ScoreValue(e.ConsumedTier)
			case game.UnlockEvent:
				if revealed[e.Slot] {
					r.fail("slot %d revealed twice", e.Slot)
				}
				revealed[e.Slot] = true
				if s := session.Score(); s < e.Threshold {
					r.fail("code %s revealed at score %d below threshold %d", e.RewardCode, s, e.Threshold)
				}
				r.unlocks = append(r.unlocks, e.RewardCode)
			case game.GameOverEvent:
				gameOvers++
			}
		}
	}

	check(session.Dispatch(game.StartInput{}))
	last := 0
	for r.frames < *maxFrames && session.State() != game.StateLost {
		r.frames++
		now = now.Add(frameDuration)

		if session.State() == game.StateReady {
			x := rng.Float64() * float64(gameCfg.Width)
			check(session.Dispatch(game.DropInput{X: x}))
		}
		check(session.Dispatch(game.Tick{Batch: world.Step(frameDuration.Seconds())}))

		score := session.Score()
		if score < last {
			r.fail("frame %d: score decreased %d -> %d", r.frames, last, score)
		}
		if score != expected {
			r.fail("frame %d: score %d != sum of merges %d", r.frames, score, expected)
			expected = score
		}
		last = score

		if p := session.Progress(); !p.Complete && (p.Percent < 0 || p.Percent > 100) {
			r.fail("frame %d: progress %.2f%% out of range", r.frames, p.Percent)
		}
	}

	r.score = session.Score()
	r.lost = session.State() == game.StateLost
	if r.lost && gameOvers != 1 {
		r.fail("expected one game over event, got %d", gameOvers)
	}
	return r
}
