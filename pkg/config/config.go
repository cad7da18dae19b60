package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppConfig 包含所有应用程序的配置
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Repo      RepoConfig      `mapstructure:"repository"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Generator GeneratorConfig `mapstructure:"generator"`
}

// DatabaseConfig 包含所有数据库的配置
type DatabaseConfig struct {
	Neo4j Neo4jConfig `mapstructure:"neo4j"`
}

// Neo4jConfig Neo4j 连接配置
type Neo4jConfig struct {
	URI                          string `mapstructure:"uri" validate:"required"`
	Username                     string `mapstructure:"username"`
	Password                     string `mapstructure:"password"`
	Database                     string `mapstructure:"database"`                                                // 为空时使用服务器默认库
	MaxConnectionPoolSize        int    `mapstructure:"max_connection_pool_size" validate:"gte=0"`               // 最大连接池大小
	ConnectionAcquisitionTimeout int    `mapstructure:"connection_acquisition_timeout_seconds" validate:"gte=0"` // 连接获取超时时间（秒）
	MaxConnectionLifetime        int    `mapstructure:"max_connection_lifetime_seconds" validate:"gte=0"`        // 连接最大生命周期（秒）
}

// LoggingConfig 日志相关配置
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// RepoConfig 仓库层相关配置
type RepoConfig struct {
	// UseTransaction 为 true 时每条查询都在独立的显式事务中执行
	UseTransaction bool `mapstructure:"use_transaction"`
}

// RabbitMQConfig RabbitMQ 连接配置，用于发布双向关系部分提交事件
type RabbitMQConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url" validate:"required_if=Enabled true"`
	Exchange   string `mapstructure:"exchange" validate:"required_if=Enabled true"`
	RoutingKey string `mapstructure:"routing_key"`
	Queue      string `mapstructure:"queue"`
}

// GeneratorConfig 是代码生成命令的默认参数，命令行参数优先
type GeneratorConfig struct {
	DirModel        string `mapstructure:"dir_model"`
	DirRelation     string `mapstructure:"dir_relation"`
	ModelsImport    string `mapstructure:"models_import"`
	RelationsImport string `mapstructure:"relations_import"`
	WriteTo         string `mapstructure:"write_to"`
	FileName        string `mapstructure:"file_name"`
	Package         string `mapstructure:"package"`
	Sid             bool   `mapstructure:"sid"`
	Scd             bool   `mapstructure:"scd"`
}

// GlobalConfig 是全局配置实例
var GlobalConfig = new(AppConfig)

var (
	mu       sync.RWMutex
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Current 返回当前生效配置的副本，配置热加载期间也可以安全调用。
func Current() AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	return *GlobalConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("rabbitmq.routing_key", "graph.partial_commit")
	v.SetDefault("rabbitmq.queue", "graph.partial_commit")
	v.SetDefault("generator.file_name", "library")
	v.SetDefault("generator.package", "library")
}

// Validate 校验配置的必填项和取值范围。
func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	cfg := new(AppConfig)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load 读取并校验配置文件，不修改全局配置，也不监听变化。
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return decode(v)
}

// InitConfig 读取配置文件到 GlobalConfig 并监听文件变化。
// 重新加载后校验失败的配置会被丢弃，继续使用旧配置。
func InitConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)   // 设置配置文件路径
	v.SetConfigType("yaml") // 设置配置文件类型
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	*GlobalConfig = *cfg
	mu.Unlock()

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		logger := zap.L().Named("config")
		logger.Info("配置文件已更改", zap.String("file", e.Name))
		reloaded, err := decode(v)
		if err != nil {
			logger.Warn("重新解析配置文件失败，继续使用旧配置", zap.Error(err))
			return
		}
		mu.Lock()
		*GlobalConfig = *reloaded
		mu.Unlock()
		logger.Info("配置已重新加载")
	})

	zap.L().Info("成功加载并解析配置文件", zap.String("path", path))
	return GlobalConfig, nil
}
