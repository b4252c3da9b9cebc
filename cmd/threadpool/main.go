// Package main is the entry point for threadpool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadpool/internal/api"
	"threadpool/internal/config"
	"threadpool/internal/logger"
	"threadpool/internal/scenario"
)

var (
	version = "dev"
)

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		envFile     = flag.String("env", ".env", "環境変数ファイル (存在しなければ無視)")
		presetName  = flag.String("preset", "", "プリセットシナリオ名 (reference, empty, single, stress, quick)")
		workers     = flag.Int("workers", 0, "ワーカー数")
		jobs        = flag.Int("jobs", -1, "投入ジョブ数")
		jitter      = flag.Duration("jitter", -1, "投入間の待機時間の上限 (例: 10ns, 1ms)")
		logLevel    = flag.String("log-level", "", "ログレベル (debug, info, warn, error)")
		listPresets = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
		showVersion = flag.Bool("version", false, "バージョンを表示")
		serverMode  = flag.Bool("server", false, "APIサーバーモードで起動")
		serverAddr  = flag.String("addr", ":8080", "サーバーアドレス (例: :8080, 0.0.0.0:3000)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `threadpool - Fixed-size worker pool over a shared FIFO job queue

Usage:
  threadpool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # 基準シナリオ（10ワーカー、30ジョブ）を実行
  threadpool

  # プリセットシナリオを実行
  threadpool --preset stress

  # 設定ファイルから実行
  threadpool --config pool.yaml

  # フラグでカスタマイズ
  threadpool --workers 4 --jobs 100 --jitter 1ms

  # APIサーバーモードで起動
  threadpool --server --addr :3000
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("threadpool version %s\n", version)
		return
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	if err := config.LoadEnv(*envFile); err != nil {
		logger.Error("", "環境変数ファイル読み込みエラー: %v", err)
		os.Exit(1)
	}

	// APIサーバーモード
	if *serverMode {
		addrSet := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "addr" {
				addrSet = true
			}
		})
		addr, err := buildServerAddr(*configFile, *serverAddr, addrSet, *logLevel)
		if err != nil {
			logger.Error("", "設定エラー: %v", err)
			os.Exit(1)
		}
		if err := runServer(addr); err != nil {
			logger.Error("", "サーバーエラー: %v", err)
			os.Exit(1)
		}
		return
	}

	// シナリオ設定の決定
	scenarioConfig, err := buildScenarioConfig(*configFile, *presetName, *workers, *jobs, *jitter, *logLevel)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	// シナリオ実行
	if err := runScenario(scenarioConfig); err != nil {
		logger.Error("", "シナリオ実行エラー: %v", err)
		os.Exit(1)
	}
}

// buildScenarioConfig はシナリオ設定を構築する
// 優先順位: フラグ > 環境変数 > 設定ファイル/プリセット > デフォルト
func buildScenarioConfig(
	configFile, presetName string,
	workers, jobs int, jitter time.Duration, logLevel string,
) (scenario.Config, error) {
	var cfg scenario.Config
	var fileConfig *config.FileConfig

	// 1. 設定ファイルから読み込み
	if configFile != "" {
		var err error
		fileConfig, err = config.LoadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, fmt.Errorf("設定検証エラー: %w", err)
		}
		cfg, err = fileConfig.ToScenarioConfig()
		if err != nil {
			return cfg, fmt.Errorf("設定変換エラー: %w", err)
		}
	} else if presetName != "" {
		// 2. プリセットから読み込み
		preset, ok := scenario.GetPreset(presetName)
		if !ok {
			return cfg, fmt.Errorf("不明なプリセット: %s (利用可能: %v)", presetName, scenario.ListPresets())
		}
		cfg = preset
	} else {
		// 3. デフォルト（referenceシナリオ）
		cfg = scenario.ReferenceScenario()
	}

	// 環境変数でオーバーライド
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("環境変数エラー: %w", err)
	}

	// フラグでオーバーライド
	if workers > 0 {
		cfg.Workers = workers
	}
	if jobs >= 0 {
		cfg.Jobs = jobs
	}
	if jitter >= 0 {
		cfg.Jitter = jitter
		if cfg.JitterProbability == 0 {
			cfg.JitterProbability = 0.25
		}
	}

	if err := applyLogLevel(fileConfig, logLevel); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// buildServerAddr はサーバーモードの設定を読み込み、待ち受けアドレスを返す
// 優先順位: 明示された--addr > 設定ファイルのserver.addr > --addrのデフォルト
func buildServerAddr(configFile, addrFlag string, addrSet bool, logLevel string) (string, error) {
	var fileConfig *config.FileConfig
	if configFile != "" {
		var err error
		fileConfig, err = config.LoadFile(configFile)
		if err != nil {
			return "", fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return "", fmt.Errorf("設定検証エラー: %w", err)
		}
	}

	if err := applyLogLevel(fileConfig, logLevel); err != nil {
		return "", err
	}

	addr := addrFlag
	if !addrSet && fileConfig != nil && fileConfig.Server.Addr != "" {
		addr = fileConfig.Server.Addr
	}
	return addr, nil
}

// applyLogLevel はデフォルトロガーのレベルを設定する
// 優先順位: フラグ > 環境変数 > 設定ファイル
func applyLogLevel(fileConfig *config.FileConfig, flagLevel string) error {
	if fileConfig != nil && fileConfig.Log.Level != "" {
		level, err := fileConfig.LogLevel()
		if err != nil {
			return err
		}
		logger.Default.SetLevel(level)
	}

	level, ok, err := config.EnvLogLevel()
	if err != nil {
		return err
	}
	if ok {
		logger.Default.SetLevel(level)
	}

	if flagLevel != "" {
		level, err := logger.ParseLevel(flagLevel)
		if err != nil {
			return err
		}
		logger.Default.SetLevel(level)
	}
	return nil
}

// runScenario はシナリオを実行する
func runScenario(cfg scenario.Config) error {
	fmt.Println("threadpool - Fixed-size worker pool")
	fmt.Println("====================================================")
	fmt.Printf("Scenario: %s\n", cfg.Name)
	fmt.Printf("Workers: %d, Jobs: %d\n", cfg.Workers, cfg.Jobs)
	fmt.Printf("Jitter: %v (p=%.2f), Work: %v\n", cfg.Jitter, cfg.JitterProbability, cfg.WorkDuration)
	fmt.Println("====================================================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング: 投入を止め、投入済みジョブは処理してから終了する
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n中断シグナルを受信、投入を停止して残りのジョブを処理中...")
			cancel()
		case <-ctx.Done():
		}
	}()

	engine := scenario.New(cfg)
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	// レポート出力
	fmt.Println(result.Report())
	fmt.Println("Program exiting")

	return nil
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なプリセットシナリオ:")
	fmt.Println()

	for _, p := range scenario.Presets() {
		fmt.Printf("  %-12s %s\n", p.Name, p.Description)
	}

	fmt.Println()
	fmt.Println("使用例: threadpool --preset reference")
}

// runServer はAPIサーバーを起動する
func runServer(addr string) error {
	fmt.Println("threadpool - API Server")
	fmt.Println("=======================")
	fmt.Printf("Starting server on http://%s\n", addr)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
		cancel()
	}()

	server := api.NewServer(addr)
	return server.Start(ctx)
}
