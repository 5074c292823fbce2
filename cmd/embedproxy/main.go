// =============================================================================
// EmbedProxy 主入口
// =============================================================================
// 完整服务入口点，包含 HTTP 服务、健康检查、Prometheus 指标
//
// 使用方法:
//
//	embedproxy serve                       # 启动服务
//	embedproxy serve --config config.yaml  # 指定配置文件
//	embedproxy version                     # 显示版本信息
//	embedproxy health                      # 健康检查
// =============================================================================

// @title EmbedProxy API
// @version 1.0.0
// @description EmbedProxy coalesces many small embedding requests from
// @description concurrent clients into fewer, larger upstream calls.

// @contact.name EmbedProxy Team

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vectorflow/embedbatch/config"
	"github.com/vectorflow/embedbatch/internal/audit"
	"github.com/vectorflow/embedbatch/internal/database"
	"github.com/vectorflow/embedbatch/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	maxBatchSize := fs.Int("max-batch-size", 0, "Override batch.max_batch_size")
	maxTotalInputs := fs.Int("max-total-inputs", 0, "Override batch.max_total_inputs")
	maxWaitMS := fs.Int("max-wait-time-ms", 0, "Override batch.max_wait, in milliseconds")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *maxBatchSize > 0 {
		cfg.Batch.MaxBatchSize = *maxBatchSize
	}
	if *maxTotalInputs > 0 {
		cfg.Batch.MaxTotalInputs = *maxTotalInputs
	}
	if *maxWaitMS > 0 {
		cfg.Batch.MaxWait = time.Duration(*maxWaitMS) * time.Millisecond
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting EmbedProxy",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	_ = otelProviders

	srv := NewServer(cfg, *configPath, logger)

	if cfg.Database.Enabled {
		pool, err := openDatabase(cfg.Database, logger)
		if err != nil {
			logger.Warn("audit database not available, flights will not be recorded", zap.Error(err))
		} else {
			recorder, err := audit.NewDBRecorder(pool.DB(), audit.DefaultDBRecorderConfig(), logger)
			if err != nil {
				logger.Warn("audit recorder init failed, flights will not be recorded", zap.Error(err))
				pool.Close()
			} else {
				srv.SetAuditRecorder(recorder)
				srv.SetDBPool(pool)
			}
		}
	}

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	srv.WaitForShutdown()

	logger.Info("EmbedProxy stopped")
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("EmbedProxy %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`EmbedProxy - Embedding Batch Proxy

Usage:
  embedproxy <command> [options]

Commands:
  serve     Start the embedding batch proxy
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve':
  --config <path>             Path to configuration file (YAML)
  --max-batch-size <n>        Override batch.max_batch_size
  --max-total-inputs <n>      Override batch.max_total_inputs
  --max-wait-time-ms <n>      Override batch.max_wait, in milliseconds

Examples:
  embedproxy serve
  embedproxy serve --config /etc/embedproxy/config.yaml
  embedproxy health --addr http://localhost:8080
  embedproxy version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

// openDatabase opens the flight audit log database connection per cfg and
// wraps it in a pool manager with the configured idle/open connection limits.
func openDatabase(dbCfg config.DatabaseConfig, logger *zap.Logger) (*database.PoolManager, error) {
	if dbCfg.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}

	var dialector gorm.Dialector
	switch dbCfg.Driver {
	case "postgres":
		dialector = postgres.Open(dbCfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres)", dbCfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	poolCfg := database.PoolConfig{
		MaxIdleConns:        dbCfg.MaxIdleConns,
		MaxOpenConns:        dbCfg.MaxOpenConns,
		ConnMaxLifetime:     dbCfg.ConnMaxLifetime,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}

	pool, err := database.NewPoolManager(db, poolCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init connection pool: %w", err)
	}

	logger.Info("Database connected", zap.String("driver", dbCfg.Driver))
	return pool, nil
}
