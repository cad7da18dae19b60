package neo4jdal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"neo4jorm/pkg/metrics"
)

var pkgLogger atomic.Pointer[zap.Logger]

// 使用全局 TracerProvider，未配置时为 no-op。
var tracer = otel.Tracer("neo4jorm/neo4jdal")

func init() {
	pkgLogger.Store(zap.NewNop())
}

// SetLogger 设置 DAL 层使用的 logger，传入 nil 时恢复为不输出日志。
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	pkgLogger.Store(l.Named("neo4jdal"))
}

func logger() *zap.Logger {
	return pkgLogger.Load()
}

// 执行失败的阶段，用于指标和日志。
const (
	stageBegin   = "begin"
	stageRun     = "run"
	stageCollect = "collect"
	stageCommit  = "commit"
)

// Execute 渲染当前计划并通过 session 执行。
// useTransaction 为 true 时，在一个显式事务中执行这一条查询：成功则提交，
// 任何失败都会回滚并把原始错误返回给调用方，不做重试。
// builder 本身不访问网络，所有副作用都委托给 session。
func (b QueryBuilder) Execute(ctx context.Context, session Session, useTransaction bool) ([]*neo4j.Record, error) {
	if len(b.clauses) == 0 {
		return nil, ErrEmptyQuery
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	query := b.Build()

	// 驱动不读取 trace 上下文，session 仍使用调用方的 ctx
	_, span := tracer.Start(ctx, "neo4jdal.Execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "neo4j"),
			attribute.String("db.statement", query.Cypher),
			attribute.Bool("db.transaction", useTransaction),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		records []*neo4j.Record
		stage   string
		err     error
	)
	if useTransaction {
		records, stage, err = runInTransaction(ctx, session, query)
	} else {
		records, stage, err = runInSession(ctx, session, query)
	}
	elapsed := time.Since(start)
	metrics.ObserveQuery(useTransaction, elapsed, stage)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		logger().Debug("查询执行失败",
			zap.String("cypher", query.Cypher),
			zap.String("stage", stage),
			zap.Bool("transaction", useTransaction),
			zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.records", len(records)))
	logger().Debug("查询执行完成",
		zap.String("cypher", query.Cypher),
		zap.Int("records", len(records)),
		zap.Bool("transaction", useTransaction),
		zap.Duration("elapsed", elapsed))
	return records, nil
}

func runInSession(ctx context.Context, session Session, query Query) ([]*neo4j.Record, string, error) {
	result, err := session.Run(ctx, query.Cypher, query.Params)
	if err != nil {
		return nil, stageRun, fmt.Errorf("%w: 运行查询失败: %w", ErrExecutionFailed, err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, stageCollect, fmt.Errorf("%w: 收集查询结果失败: %w", ErrExecutionFailed, err)
	}
	return records, "", nil
}

func runInTransaction(ctx context.Context, session Session, query Query) ([]*neo4j.Record, string, error) {
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return nil, stageBegin, fmt.Errorf("%w: 开启事务失败: %w", ErrExecutionFailed, err)
	}

	result, err := tx.Run(ctx, query.Cypher, query.Params)
	if err != nil {
		return nil, stageRun, rollback(ctx, tx, fmt.Errorf("%w: 事务中运行查询失败: %w", ErrExecutionFailed, err))
	}
	// 结果必须在提交前收集完毕，提交后游标不可再读。
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, stageCollect, rollback(ctx, tx, fmt.Errorf("%w: 收集事务查询结果失败: %w", ErrExecutionFailed, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, stageCommit, rollback(ctx, tx, fmt.Errorf("%w: 提交事务失败: %w", ErrExecutionFailed, err))
	}
	return records, "", nil
}

// WithTransaction 开启一个显式事务，把绑定到该事务的 Session 交给 fn。
// fn 返回 nil 时提交，否则回滚并返回 fn 的错误。
// fn 内执行的查询必须以 useTransaction=false 调用 Execute，事务不支持嵌套。
func WithTransaction(ctx context.Context, session Session, fn func(tx Session) error) error {
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("%w: 开启事务失败: %w", ErrExecutionFailed, err)
	}
	if err := fn(NewTxSession(tx)); err != nil {
		return rollback(ctx, tx, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return rollback(ctx, tx, fmt.Errorf("%w: 提交事务失败: %w", ErrExecutionFailed, err))
	}
	return nil
}

// rollback 回滚事务并返回 cause。回滚自身的错误会与 cause 合并，而不会覆盖它。
func rollback(ctx context.Context, tx neo4j.ExplicitTransaction, cause error) error {
	if rbErr := tx.Rollback(ctx); rbErr != nil {
		return errors.Join(cause, fmt.Errorf("neo4jdal: 回滚事务失败: %w", rbErr))
	}
	return cause
}
