// Package cli 实现 neo4jgen 命令行。
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions 是所有子命令共享的全局参数。
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// Logger 在 --verbose 时输出 debug 日志，否则只输出 info 及以上。
func (o *RootOptions) Logger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !o.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewRootCommand 创建 neo4jgen 根命令。
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "neo4jgen",
		Short: "Neo4j repository scaffolding",
		Long:  "Generates typed repositories and relation managers from model and relation directories, and maintains sid indexes and partial commit events.",
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML 配置文件路径")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "输出 debug 日志")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewSidIndexesCommand(opts))
	cmd.AddCommand(NewPartialCommitsCommand(opts))

	return cmd
}
