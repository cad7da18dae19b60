// Package neo4jdaltest 提供 neo4jdal.Session 及驱动结果、事务的测试替身。
package neo4jdaltest

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"
)

// MockSession 用于模拟 neo4j.SessionWithContext。
// 只模拟 Run 和 BeginTransaction，其余方法由嵌入的接口提供（调用会 panic）。
type MockSession struct {
	mock.Mock
	neo4j.SessionWithContext
}

// Run 期望以 (ctx, cypher, params) 注册。
func (m *MockSession) Run(ctx context.Context, cypher string, params map[string]any, _ ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error) {
	args := m.Called(ctx, cypher, params)
	result, _ := args.Get(0).(neo4j.ResultWithContext)
	return result, args.Error(1)
}

// BeginTransaction 期望以 (ctx) 注册。
func (m *MockSession) BeginTransaction(ctx context.Context, _ ...func(*neo4j.TransactionConfig)) (neo4j.ExplicitTransaction, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(neo4j.ExplicitTransaction)
	return tx, args.Error(1)
}

// MockTransaction 模拟 neo4j.ExplicitTransaction。
type MockTransaction struct {
	mock.Mock
	neo4j.ExplicitTransaction
}

func (m *MockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error) {
	args := m.Called(ctx, cypher, params)
	result, _ := args.Get(0).(neo4j.ResultWithContext)
	return result, args.Error(1)
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Result 是一个预置记录的 neo4j.ResultWithContext，只实现 Collect。
// 字段名不能与接口方法（Records、Err）重名，否则会遮蔽嵌入接口提升的方法。
type Result struct {
	neo4j.ResultWithContext
	Rows       []*neo4j.Record
	CollectErr error
}

var _ neo4j.ResultWithContext = (*Result)(nil)

// NewResult 创建返回给定记录的 Result。
func NewResult(records ...*neo4j.Record) *Result {
	if records == nil {
		records = []*neo4j.Record{}
	}
	return &Result{Rows: records}
}

// FailingResult 创建 Collect 返回 err 的 Result。
func FailingResult(err error) *Result {
	return &Result{CollectErr: err}
}

func (r *Result) Collect(context.Context) ([]*neo4j.Record, error) {
	if r.CollectErr != nil {
		return nil, r.CollectErr
	}
	return r.Rows, nil
}

// Record 按 key/value 交替的参数构造一条记录，例如 Record("n", node)。
func Record(pairs ...any) *neo4j.Record {
	rec := &neo4j.Record{}
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Keys = append(rec.Keys, pairs[i].(string))
		rec.Values = append(rec.Values, pairs[i+1])
	}
	return rec
}
