package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"threadpool/internal/logger"
	"threadpool/internal/scenario"
)

// 環境変数名
const (
	EnvWorkers      = "THREADPOOL_WORKERS"
	EnvJobs         = "THREADPOOL_JOBS"
	EnvJitter       = "THREADPOOL_JITTER"
	EnvWorkDuration = "THREADPOOL_WORK_DURATION"
	EnvLogLevel     = "THREADPOOL_LOG_LEVEL"
)

// LoadEnv は.envファイルを読み込む。ファイルが存在しなければ何もしない。
// 既に設定済みの環境変数は上書きしない。
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv は環境変数の値でシナリオ設定を上書きする
func ApplyEnv(cfg *scenario.Config) error {
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(EnvJobs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJobs, err)
		}
		cfg.Jobs = n
	}
	if v := os.Getenv(EnvJitter); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJitter, err)
		}
		cfg.Jitter = d
	}
	if v := os.Getenv(EnvWorkDuration); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkDuration, err)
		}
		cfg.WorkDuration = d
	}
	return nil
}

// EnvLogLevel は環境変数のログレベルを返す。未設定ならok=false
func EnvLogLevel() (level logger.Level, ok bool, err error) {
	v := os.Getenv(EnvLogLevel)
	if v == "" {
		return logger.LevelInfo, false, nil
	}
	level, err = logger.ParseLevel(v)
	if err != nil {
		return level, false, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	return level, true, nil
}
