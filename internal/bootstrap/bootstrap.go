// Package bootstrap 按配置组装日志、Neo4j 驱动、指标和部分提交事件发布器。
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"neo4jorm/biz/dal/neo4jdal"
	"neo4jorm/biz/repo/neo4jrepo"
	"neo4jorm/infrastructure/database"
	"neo4jorm/infrastructure/rabbitmq"
	"neo4jorm/pkg/config"
	"neo4jorm/pkg/metrics"
)

// App 持有初始化完成的依赖，仓库和关系管理器通过 RepoOptions 获得统一的选项。
type App struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Sessions  *database.SessionFactory
	Publisher *rabbitmq.Publisher // rabbitmq.enabled 为 false 时为 nil
}

// ParseLevel 把配置中的日志级别转换为 zapcore.Level，无法识别时使用 info。
func ParseLevel(level string) (zapcore.Level, bool) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// NewLogger 创建写到 w 的 JSON 格式 logger。
func NewLogger(level string, w io.Writer) *zap.Logger {
	logLevel, ok := ParseLevel(level)
	if !ok {
		log.Printf("Warning: 无效的日志级别 '%s' 在配置中，将使用 'info'", level)
	}
	// Development 编码配置输出更易读，包括调用者信息
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		logLevel,
	)
	return zap.New(core, zap.AddCaller())
}

// Init 执行所有初始化步骤
func Init(ctx context.Context, configPath string) (*App, error) {
	// 1. 加载配置
	cfg, err := config.InitConfig(configPath)
	if err != nil {
		// 在 logger 初始化前，只能用标准 log
		log.Printf("Error: 加载配置失败: %v", err)
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 初始化 Zap Logger
	logger := NewLogger(cfg.Logging.Level, os.Stderr)
	zap.ReplaceGlobals(logger)
	neo4jdal.SetLogger(logger)
	logger.Info("Zap Logger 初始化完成", zap.String("level", cfg.Logging.Level))

	// 3. 指标
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("注册指标失败: %w", err)
	}

	// 4. 初始化数据库连接
	driver, err := database.InitNeo4j(ctx, &cfg.Database.Neo4j, logger)
	if err != nil {
		logger.Error("初始化 Neo4j 失败", zap.Error(err))
		return nil, fmt.Errorf("初始化 Neo4j 失败: %w", err)
	}
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Sessions: database.NewSessionFactory(driver, cfg.Database.Neo4j.Database),
	}

	// 5. 部分提交事件发布器（可选）
	if cfg.RabbitMQ.Enabled {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("初始化 RabbitMQ 失败: %w", err)
		}
		app.Publisher = pub
	}

	logger.Info("初始化完成", zap.Bool("use_transaction", cfg.Repo.UseTransaction), zap.Bool("rabbitmq", cfg.RabbitMQ.Enabled))
	return app, nil
}

// RepoOptions 返回由配置决定的仓库选项：logger、事务模式，以及启用 RabbitMQ 时的部分提交通知。
func (a *App) RepoOptions() []neo4jrepo.Option {
	opts := []neo4jrepo.Option{
		neo4jrepo.WithLogger(a.Logger),
		neo4jrepo.WithTransaction(a.Config.Repo.UseTransaction),
	}
	if a.Publisher != nil {
		opts = append(opts, neo4jrepo.WithPartialCommitHandler(
			rabbitmq.PartialCommitNotifier(a.Publisher, a.Config.RabbitMQ.RoutingKey)))
	}
	return opts
}

// EnsureSidIndexes 为给定的节点标签和关系类型创建 sid 索引。
func (a *App) EnsureSidIndexes(ctx context.Context, nodeLabels, relationTypes []string) error {
	session := a.Sessions.Write(ctx)
	defer session.Close(ctx)
	return database.ApplySidIndexes(ctx, session, nodeLabels, relationTypes, a.Logger)
}

// Close 关闭发布器和驱动并刷新日志。
func (a *App) Close(ctx context.Context) error {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	err := a.Sessions.Close(ctx)
	_ = a.Logger.Sync()
	return err
}
