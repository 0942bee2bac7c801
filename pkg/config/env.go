package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles 启动时尝试加载的环境变量文件
var DefaultEnvFiles = []string{".env.local", ".env"}

// LoadEnvFiles 把 .env 文件中的变量写入进程环境
//
// 不存在的文件会被跳过。已存在的环境变量不会被覆盖，先列出的文件优先
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
		log.Printf("[Config] Loaded env file %s", p)
	}
	return nil
}
