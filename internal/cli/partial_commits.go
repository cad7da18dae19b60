package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neo4jorm/infrastructure/rabbitmq"
	"neo4jorm/pkg/config"
)

// PartialCommitsOptions 是 partial-commits 命令的参数。
type PartialCommitsOptions struct {
	*RootOptions
	Queue string
}

// NewPartialCommitsCommand 创建 partial-commits 命令，持续消费双向关系部分提交事件。
func NewPartialCommitsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PartialCommitsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "partial-commits",
		Short: "Print partial commit events published by bidirectional managers",
		Long: `Consumes partial commit events from the RabbitMQ exchange in --config and
prints one JSON object per line, so the half-written edges can be reconciled.
Runs until interrupted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartialCommits(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Queue, "queue", "", "队列名，默认使用配置中的 rabbitmq.queue")

	return cmd
}

// consumerOptions 由配置得到消费者参数，RabbitMQ 未启用时返回错误。
func consumerOptions(cfg config.RabbitMQConfig, queue string) (rabbitmq.ConsumerOptions, error) {
	if !cfg.Enabled {
		return rabbitmq.ConsumerOptions{}, errors.New("rabbitmq.enabled is false in the config")
	}
	if queue == "" {
		queue = cfg.Queue
	}
	return rabbitmq.ConsumerOptions{
		ExchangeName: cfg.Exchange,
		QueueName:    queue,
		RoutingKey:   cfg.RoutingKey,
		DurableQueue: true,
	}, nil
}

// printPartialCommit 把每个事件写成一行 JSON。
func printPartialCommit(w io.Writer, logger *zap.Logger) func(context.Context, rabbitmq.PartialCommitEvent) error {
	enc := json.NewEncoder(w)
	return func(_ context.Context, event rabbitmq.PartialCommitEvent) error {
		logger.Warn("收到部分提交事件",
			zap.String("event_id", event.EventID),
			zap.String("op", event.Op),
			zap.Any("keys", event.Keys))
		return enc.Encode(event)
	}
}

func runPartialCommits(cmd *cobra.Command, opts *PartialCommitsOptions) error {
	if opts.ConfigPath == "" {
		return errors.New("--config is required")
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	consumerOpts, err := consumerOptions(cfg.RabbitMQ, opts.Queue)
	if err != nil {
		return err
	}

	logger := opts.Logger()
	defer logger.Sync()

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ.URL,
		rabbitmq.PartialCommitEventHandler(printPartialCommit(cmd.OutOrStdout(), logger)),
		consumerOpts, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case <-consumer.Done():
		logger.Warn("消费循环提前退出", zap.Error(consumer.Err()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := consumer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown consumer: %w", err)
	}
	return nil
}
