package neo4jdal

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Session 是查询执行所需的会话能力，neo4j.SessionWithContext 天然满足该接口。
// DAL 层不持有 driver，会话由调用方创建和关闭。
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any, configurers ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error)
	BeginTransaction(ctx context.Context, configurers ...func(*neo4j.TransactionConfig)) (neo4j.ExplicitTransaction, error)
}

var _ Session = (neo4j.SessionWithContext)(nil)

// TxSession 把一个已打开的显式事务适配为 Session，
// 使多个查询可以在同一个事务中执行。事务的提交与回滚由创建者负责。
type TxSession struct {
	tx neo4j.ExplicitTransaction
}

// NewTxSession 用已打开的事务创建 TxSession。
func NewTxSession(tx neo4j.ExplicitTransaction) *TxSession {
	return &TxSession{tx: tx}
}

// Run 在事务内执行查询，事务配置参数被忽略（事务已经开启）。
func (s *TxSession) Run(ctx context.Context, cypher string, params map[string]any, _ ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error) {
	return s.tx.Run(ctx, cypher, params)
}

// BeginTransaction 不支持嵌套事务。
func (s *TxSession) BeginTransaction(context.Context, ...func(*neo4j.TransactionConfig)) (neo4j.ExplicitTransaction, error) {
	return nil, ErrNestedTransaction
}

var _ Session = (*TxSession)(nil)
