package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler 处理一条消息。返回非 nil 错误时消息被 Nack 且不重新入队。
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// PartialCommitEventHandler 把消息解码为 PartialCommitEvent 后交给 fn 处理。
// 无法解码或缺少字段的消息直接返回错误，由 Consumer Nack 到死信。
func PartialCommitEventHandler(fn func(ctx context.Context, event PartialCommitEvent) error) MessageHandler {
	return func(ctx context.Context, delivery amqp.Delivery) error {
		var event PartialCommitEvent
		if err := json.Unmarshal(delivery.Body, &event); err != nil {
			return fmt.Errorf("decode partial commit event: %w", err)
		}
		if err := event.Validate(); err != nil {
			return err
		}
		return fn(ctx, event)
	}
}

// Consumer 从绑定到交换机的队列消费消息
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queueName   string
	consumerTag string
	handler     MessageHandler
	autoAck     bool
	logger      *zap.Logger
	cancel      context.CancelFunc
	stopped     chan struct{}
	err         error // 消费循环的退出原因，stopped 关闭后可读
}

// ConsumerOptions 用于配置 Consumer
type ConsumerOptions struct {
	ExchangeName string // 必须: 绑定的交换机名称
	ExchangeType string // 可选: 默认为 "direct"
	QueueName    string // 为空时由服务器生成临时队列名
	RoutingKey   string // 必须: 绑定队列到交换机的路由键
	ConsumerTag  string // 可选: 为空时自动生成
	AutoAck      bool
	DurableQueue bool
	Exclusive    bool
	NoWait       bool
}

// NewConsumer 声明交换机和队列、完成绑定，并在后台 goroutine 中开始消费。
func NewConsumer(amqpURL string, handler MessageHandler, opts ConsumerOptions, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("无法打开 RabbitMQ 通道", zap.Error(err))
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	queueName, err := declareTopology(ch, &opts)
	if err != nil {
		ch.Close()
		conn.Close()
		logger.Error("声明 RabbitMQ 拓扑失败", zap.Error(err))
		return nil, err
	}
	logger.Info("RabbitMQ 队列成功绑定到交换机",
		zap.String("queue", queueName),
		zap.String("exchange", opts.ExchangeName),
		zap.String("routingKey", opts.RoutingKey),
	)

	consumerTag := opts.ConsumerTag
	if consumerTag == "" {
		consumerTag = fmt.Sprintf("consumer-%s-%d", queueName, time.Now().UnixNano())
	}
	deliveries, err := ch.Consume(
		queueName,    // queue
		consumerTag,  // consumer tag
		opts.AutoAck, // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		logger.Error("启动消费者失败", zap.Error(err))
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		conn:        conn,
		channel:     ch,
		queueName:   queueName,
		consumerTag: consumerTag,
		handler:     handler,
		autoAck:     opts.AutoAck,
		logger:      logger.Named("rabbitmq_consumer").With(zap.String("queue", queueName), zap.String("tag", consumerTag)),
		cancel:      cancel,
		stopped:     make(chan struct{}),
	}
	go func() {
		defer close(c.stopped)
		c.err = c.consume(ctx, deliveries)
	}()
	c.logger.Info("RabbitMQ Consumer 已启动并开始监听消息")
	return c, nil
}

// declareTopology 声明交换机和队列并完成绑定，返回实际的队列名。
func declareTopology(ch *amqp.Channel, opts *ConsumerOptions) (string, error) {
	if opts.ExchangeType == "" {
		opts.ExchangeType = "direct"
	}
	if err := ch.ExchangeDeclare(opts.ExchangeName, opts.ExchangeType, true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("failed to declare exchange '%s': %w", opts.ExchangeName, err)
	}
	q, err := ch.QueueDeclare(opts.QueueName, opts.DurableQueue, false, opts.Exclusive, opts.NoWait, nil)
	if err != nil {
		return "", fmt.Errorf("failed to declare queue '%s': %w", opts.QueueName, err)
	}
	if err := ch.QueueBind(q.Name, opts.RoutingKey, opts.ExchangeName, opts.NoWait, nil); err != nil {
		return "", fmt.Errorf("failed to bind queue '%s' to exchange '%s' with key '%s': %w", q.Name, opts.ExchangeName, opts.RoutingKey, err)
	}
	return q.Name, nil
}

// consume 处理消息直到 deliveries 被关闭或 ctx 被取消。
func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Info("消息通道已关闭，消费者正在停止")
				return nil
			}
			c.handleDelivery(ctx, delivery)
		case <-ctx.Done():
			c.logger.Info("收到关闭信号，消费者正在停止")
			return ctx.Err()
		}
	}
}

// handleDelivery 调用 handler 并在手动确认模式下 Ack 或 Nack。
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	c.logger.Debug("收到消息", zap.Uint64("delivery_tag", delivery.DeliveryTag))
	err := c.handler(ctx, delivery)
	if c.autoAck {
		if err != nil {
			c.logger.Error("消息处理失败", zap.Error(err))
		}
		return
	}
	if err != nil {
		// 不重新入队，避免无法处理的消息反复投递
		c.logger.Error("消息处理失败，将发送 Nack", zap.Error(err))
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("发送 Nack 失败", zap.Error(nackErr))
		}
		return
	}
	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.Error("发送 Ack 失败", zap.Error(ackErr))
	}
}

// Done 在消费循环退出后关闭，例如服务器关闭了通道。
func (c *Consumer) Done() <-chan struct{} { return c.stopped }

// Err 返回消费循环的退出原因，只在 Done 关闭后有意义。通道被关闭时为 nil。
func (c *Consumer) Err() error {
	select {
	case <-c.stopped:
		return c.err
	default:
		return nil
	}
}

// Shutdown 取消消费者注册，等待消费循环退出后关闭通道和连接。
func (c *Consumer) Shutdown(ctx context.Context) error {
	cancelErr := c.channel.Cancel(c.consumerTag, false)
	if cancelErr != nil {
		c.logger.Error("取消 RabbitMQ 消费者失败", zap.Error(cancelErr))
	}
	c.cancel()

	select {
	case <-c.stopped:
	case <-ctx.Done():
		c.logger.Warn("等待消费者循环完成超时")
	}

	if err := c.channel.Close(); err != nil {
		c.logger.Error("关闭 RabbitMQ 通道失败", zap.Error(err))
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Error("关闭 RabbitMQ 连接失败", zap.Error(err))
	}
	c.logger.Info("RabbitMQ Consumer 已成功关闭")
	return cancelErr
}
