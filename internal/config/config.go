package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"threadpool/internal/logger"
	"threadpool/internal/scenario"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Scenario ScenarioConfig `yaml:"scenario" json:"scenario"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// ScenarioConfig はシナリオ設定
type ScenarioConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Preset      string `yaml:"preset" json:"preset"`
	Workers     int    `yaml:"workers" json:"workers"`
	Jobs        *int   `yaml:"jobs" json:"jobs"`

	Jitter            string  `yaml:"jitter" json:"jitter"`
	JitterProbability float64 `yaml:"jitter_probability" json:"jitter_probability"`
	WorkDuration      string  `yaml:"work_duration" json:"work_duration"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToScenarioConfig はFileConfigをscenario.Configに変換する
func (f *FileConfig) ToScenarioConfig() (scenario.Config, error) {
	sc := f.Scenario

	// ベースはプリセットかデフォルト値
	config := scenario.DefaultConfig()
	if sc.Preset != "" {
		preset, ok := scenario.GetPreset(sc.Preset)
		if !ok {
			return config, fmt.Errorf("unknown preset: %s", sc.Preset)
		}
		config = preset
	}

	if sc.Name != "" {
		config.Name = sc.Name
	}
	if sc.Description != "" {
		config.Description = sc.Description
	}
	if sc.Workers > 0 {
		config.Workers = sc.Workers
	}
	if sc.Jobs != nil {
		config.Jobs = *sc.Jobs
	}

	if sc.Jitter != "" {
		d, err := time.ParseDuration(sc.Jitter)
		if err != nil {
			return config, fmt.Errorf("invalid jitter: %w", err)
		}
		config.Jitter = d
	}
	if sc.JitterProbability > 0 {
		config.JitterProbability = sc.JitterProbability
	}
	if sc.WorkDuration != "" {
		d, err := time.ParseDuration(sc.WorkDuration)
		if err != nil {
			return config, fmt.Errorf("invalid work_duration: %w", err)
		}
		config.WorkDuration = d
	}

	return config, nil
}

// LogLevel は設定されたログレベルを返す
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	sc := f.Scenario

	if sc.Workers < 0 {
		return fmt.Errorf("scenario.workers must be non-negative")
	}

	if sc.Jobs != nil && *sc.Jobs < 0 {
		return fmt.Errorf("scenario.jobs must be non-negative")
	}

	if sc.JitterProbability < 0 || sc.JitterProbability > 1 {
		return fmt.Errorf("scenario.jitter_probability must be between 0 and 1")
	}

	if _, err := f.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
