package rabbitmq

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"neo4jorm/biz/repo/neo4jrepo"
)

// PartialCommitEvent 是双向关系部分提交时发布到 RabbitMQ 的消息体，
// 下游对账服务根据 Keys 定位已提交的正向边并补齐或撤销。
type PartialCommitEvent struct {
	EventID    string            `json:"event_id"`
	Op         string            `json:"op"`
	Committed  string            `json:"committed"`
	Keys       map[string]string `json:"keys,omitempty"`
	Error      string            `json:"error"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewPartialCommitEvent 从 PartialCommitError 构造事件。
func NewPartialCommitEvent(pce *neo4jrepo.PartialCommitError) PartialCommitEvent {
	event := PartialCommitEvent{
		EventID:    uuid.NewString(),
		Op:         pce.Op,
		Committed:  pce.Committed,
		Keys:       pce.Keys,
		OccurredAt: time.Now().UTC(),
	}
	if pce.Err != nil {
		event.Error = pce.Err.Error()
	}
	return event
}

// Validate 检查消费到的事件是否带有对账所需的字段。
func (e PartialCommitEvent) Validate() error {
	if e.Op == "" {
		return errors.New("partial commit event: missing op")
	}
	if len(e.Keys) == 0 {
		return errors.New("partial commit event: missing keys")
	}
	return nil
}
