// check_config 校验 data/ 下的代币等级表、关卡表和游戏调参
//
// 用法（在项目根目录运行）：
//
//	go run ./cmd/check_config
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/decker502/xrpsuika/pkg/config"
)

var (
	tiersPath  = flag.String("tiers", config.DefaultTierConfigPath, "代币等级表路径")
	levelsPath = flag.String("levels", config.DefaultLevelConfigPath, "关卡表路径")
	gamePath   = flag.String("game", config.DefaultGameConfigPath, "游戏调参路径")
)

func main() {
	flag.Parse()
	failed := false

	tiers, err := config.LoadTierCatalog(*tiersPath)
	if err != nil {
		fmt.Printf("FAIL: %s - %v\n", *tiersPath, err)
		os.Exit(1)
	}
	fmt.Printf("OK: %s - %d tiers, spawnMaxTier=%d\n", *tiersPath, tiers.Len(), tiers.SpawnMaxTier)
	for _, t := range tiers.Tiers {
		fmt.Printf("     [%2d] %-20s radius=%-5.1f score=%d\n", t.Index, t.Name, t.Radius, t.ScoreValue)
	}

	levels, err := config.LoadLevelCatalog(*levelsPath, tiers)
	if err != nil {
		fmt.Printf("FAIL: %s - %v\n", *levelsPath, err)
		failed = true
	} else {
		fmt.Printf("OK: %s - %d levels\n", *levelsPath, levels.Len())
		for _, lv := range levels.Levels {
			fmt.Printf("     Level %d: %-14s maxTier=%-2d spawnMaxTier=%-2d unlock=%d %s\n",
				lv.ID, lv.Name, lv.MaxTier, lv.SpawnMaxTier, lv.Unlock.Threshold, lv.Unlock.Code)
		}
	}

	gameCfg, err := config.LoadGameConfig(*gamePath)
	if err != nil {
		fmt.Printf("FAIL: %s - %v\n", *gamePath, err)
		failed = true
	} else {
		fmt.Printf("OK: %s - %dx%d, loseHeight=%.0f, cooldown=%s, gravity=%.0f\n",
			*gamePath, gameCfg.Width, gameCfg.Height, gameCfg.LoseHeight, gameCfg.DropCooldown(), gameCfg.Physics.Gravity)
	}

	if err := config.LoadEnvFiles(config.DefaultEnvFiles...); err != nil {
		fmt.Printf("FAIL: env file - %v\n", err)
		failed = true
	}
	remote, err := config.RemoteConfigFromEnv()
	switch {
	case err != nil:
		fmt.Printf("FAIL: remote config - %v\n", err)
		failed = true
	case remote.Enabled():
		fmt.Printf("OK: remote store %s (timeout %s)\n", remote.RESTURL(), remote.Timeout)
	default:
		fmt.Printf("OK: remote store not configured (offline mode)\n")
	}

	if failed {
		os.Exit(1)
	}
}
