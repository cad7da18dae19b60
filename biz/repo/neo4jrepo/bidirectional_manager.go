package neo4jrepo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"neo4jorm/biz/dal/neo4jdal"
	"neo4jorm/biz/model/graph"
	"neo4jorm/pkg/metrics"
)

// Pair 是一条逻辑双向关系对应的两条边。
type Pair[T, U any] struct {
	Forward graph.Relationship[T]
	Reverse graph.Relationship[U]
}

// KeyedPair 是 FindAll 的结果。Reverse 中每条边的端点已互换，
// 与 Forward 使用相同的 (起点, 终点) 方向。
type KeyedPair[T, U any] struct {
	Forward []graph.Relationship[T]
	Reverse []graph.Relationship[U]
}

// PartialCommitHandler 在双向操作只提交了正向一半时被调用，用于告警或触发对账。
type PartialCommitHandler func(ctx context.Context, err *PartialCommitError)

// BidirectionalManager 用两个关系管理器（正向和反向）维护一条逻辑上的双向关系。
// 每个操作先执行正向、再执行反向，两步不共享事务：反向失败时正向的修改已经提交，
// 此时返回 *PartialCommitError。需要原子性时使用 Transactional。
type BidirectionalManager[T, U graph.SidCarrier] struct {
	forward   SidRelationRepository[T]
	reverse   SidRelationRepository[U]
	logger    *zap.Logger
	onPartial PartialCommitHandler
}

// NewBidirectionalManager 组合正向和反向关系管理器。
// 只有 WithLogger 和 WithPartialCommitHandler 选项对它生效。
func NewBidirectionalManager[T, U graph.SidCarrier](forward SidRelationRepository[T], reverse SidRelationRepository[U], opts ...Option) *BidirectionalManager[T, U] {
	o := newOptions(opts)
	return &BidirectionalManager[T, U]{
		forward:   forward,
		reverse:   reverse,
		logger:    o.logger.Named("bidirectional"),
		onPartial: o.onPartial,
	}
}

// partial 包装反向步骤的错误并通知观察者。
func (m *BidirectionalManager[T, U]) partial(ctx context.Context, op string, keys map[string]string, err error) error {
	pce := &PartialCommitError{Op: op, Committed: DirectionForward, Keys: keys, Err: err}
	m.logger.Warn("双向关系只提交了正向一半",
		zap.String("op", op),
		zap.Any("keys", keys),
		zap.Error(err))
	metrics.IncPartialCommit(op)
	if m.onPartial != nil {
		m.onPartial(ctx, pce)
	}
	return pce
}

// Create 创建 start->end 的正向边和 end->start 的反向边。
func (m *BidirectionalManager[T, U]) Create(ctx context.Context, session neo4jdal.Session, startNodeID, endNodeID string, forwardProps T, reverseProps U) (Pair[T, U], error) {
	var pair Pair[T, U]
	var err error
	if pair.Forward, err = m.forward.Create(ctx, session, startNodeID, endNodeID, forwardProps); err != nil {
		return Pair[T, U]{}, err
	}
	if pair.Reverse, err = m.reverse.Create(ctx, session, endNodeID, startNodeID, reverseProps); err != nil {
		return pair, m.partial(ctx, "create", map[string]string{
			"startNodeId": startNodeID,
			"endNodeId":   endNodeID,
			"forwardSid":  pair.Forward.Properties.GetSid(),
		}, err)
	}
	return pair, nil
}

// FindByID 分别按内部 ID 读取两条边。
func (m *BidirectionalManager[T, U]) FindByID(ctx context.Context, session neo4jdal.Session, forwardID, reverseID string) (Pair[T, U], error) {
	var pair Pair[T, U]
	var err error
	if pair.Forward, err = m.forward.FindByID(ctx, session, forwardID); err != nil {
		return Pair[T, U]{}, err
	}
	if pair.Reverse, err = m.reverse.FindByID(ctx, session, reverseID); err != nil {
		return Pair[T, U]{}, err
	}
	return pair, nil
}

// FindBySid 按两条边共用的业务 ID 读取。
func (m *BidirectionalManager[T, U]) FindBySid(ctx context.Context, session neo4jdal.Session, sid string) (Pair[T, U], error) {
	var pair Pair[T, U]
	var err error
	if pair.Forward, err = m.forward.FindBySid(ctx, session, sid); err != nil {
		return Pair[T, U]{}, err
	}
	if pair.Reverse, err = m.reverse.FindBySid(ctx, session, sid); err != nil {
		return Pair[T, U]{}, err
	}
	return pair, nil
}

// FindAll 返回两个方向的所有边，反向边的端点会被互换。
func (m *BidirectionalManager[T, U]) FindAll(ctx context.Context, session neo4jdal.Session) (KeyedPair[T, U], error) {
	forward, err := m.forward.FindAll(ctx, session)
	if err != nil {
		return KeyedPair[T, U]{}, err
	}
	reverse, err := m.reverse.FindAll(ctx, session)
	if err != nil {
		return KeyedPair[T, U]{}, err
	}
	return KeyedPair[T, U]{Forward: forward, Reverse: swapEndpoints(reverse)}, nil
}

func swapEndpoints[U any](rels []graph.Relationship[U]) []graph.Relationship[U] {
	out := make([]graph.Relationship[U], len(rels))
	for i, rel := range rels {
		out[i] = rel.Reversed()
	}
	return out
}

func (m *BidirectionalManager[T, U]) UpdateByID(ctx context.Context, session neo4jdal.Session, forwardID, reverseID string, forwardPartial, reversePartial map[string]any) (Pair[T, U], error) {
	var pair Pair[T, U]
	var err error
	if pair.Forward, err = m.forward.UpdateByID(ctx, session, forwardID, forwardPartial); err != nil {
		return Pair[T, U]{}, err
	}
	if pair.Reverse, err = m.reverse.UpdateByID(ctx, session, reverseID, reversePartial); err != nil {
		return pair, m.partial(ctx, "updateById", map[string]string{"forwardId": forwardID, "reverseId": reverseID}, err)
	}
	return pair, nil
}

func (m *BidirectionalManager[T, U]) UpdateBySid(ctx context.Context, session neo4jdal.Session, sid string, forwardPartial, reversePartial map[string]any) (Pair[T, U], error) {
	var pair Pair[T, U]
	var err error
	if pair.Forward, err = m.forward.UpdateBySid(ctx, session, sid, forwardPartial); err != nil {
		return Pair[T, U]{}, err
	}
	if pair.Reverse, err = m.reverse.UpdateBySid(ctx, session, sid, reversePartial); err != nil {
		return pair, m.partial(ctx, "updateBySid", map[string]string{"sid": sid}, err)
	}
	return pair, nil
}

func (m *BidirectionalManager[T, U]) DeleteByID(ctx context.Context, session neo4jdal.Session, forwardID, reverseID string) error {
	if err := m.forward.DeleteByID(ctx, session, forwardID); err != nil {
		return err
	}
	if err := m.reverse.DeleteByID(ctx, session, reverseID); err != nil {
		return m.partial(ctx, "deleteById", map[string]string{"forwardId": forwardID, "reverseId": reverseID}, err)
	}
	return nil
}

func (m *BidirectionalManager[T, U]) DeleteBySid(ctx context.Context, session neo4jdal.Session, sid string) error {
	if err := m.forward.DeleteBySid(ctx, session, sid); err != nil {
		return err
	}
	if err := m.reverse.DeleteBySid(ctx, session, sid); err != nil {
		return m.partial(ctx, "deleteBySid", map[string]string{"sid": sid}, err)
	}
	return nil
}

// transactionUser 可报告自身是否开启了 WithTransaction，RelationManager 实现了它。
type transactionUser interface {
	UsesTransaction() bool
}

// Transactional 返回在单个事务中执行两步写入的变体。
// 任一底层管理器开启了 WithTransaction 时返回 neo4jdal.ErrNestedTransaction。
func (m *BidirectionalManager[T, U]) Transactional() (*TxBidirectionalManager[T, U], error) {
	for _, r := range []any{m.forward, m.reverse} {
		if tu, ok := r.(transactionUser); ok && tu.UsesTransaction() {
			return nil, fmt.Errorf("repo: 组合事务的关系管理器不能开启 WithTransaction: %w", neo4jdal.ErrNestedTransaction)
		}
	}
	return &TxBidirectionalManager[T, U]{m: m}, nil
}

// TxBidirectionalManager 在同一个显式事务中执行正向和反向两步，
// 任一步失败都会整体回滚，不会出现只提交一半的情况。
type TxBidirectionalManager[T, U graph.SidCarrier] struct {
	m *BidirectionalManager[T, U]
}

func (t *TxBidirectionalManager[T, U]) Create(ctx context.Context, session neo4jdal.Session, startNodeID, endNodeID string, forwardProps T, reverseProps U) (Pair[T, U], error) {
	var pair Pair[T, U]
	err := neo4jdal.WithTransaction(ctx, session, func(tx neo4jdal.Session) error {
		var err error
		if pair.Forward, err = t.m.forward.Create(ctx, tx, startNodeID, endNodeID, forwardProps); err != nil {
			return err
		}
		pair.Reverse, err = t.m.reverse.Create(ctx, tx, endNodeID, startNodeID, reverseProps)
		return err
	})
	if err != nil {
		return Pair[T, U]{}, err
	}
	return pair, nil
}

func (t *TxBidirectionalManager[T, U]) UpdateByID(ctx context.Context, session neo4jdal.Session, forwardID, reverseID string, forwardPartial, reversePartial map[string]any) (Pair[T, U], error) {
	var pair Pair[T, U]
	err := neo4jdal.WithTransaction(ctx, session, func(tx neo4jdal.Session) error {
		var err error
		if pair.Forward, err = t.m.forward.UpdateByID(ctx, tx, forwardID, forwardPartial); err != nil {
			return err
		}
		pair.Reverse, err = t.m.reverse.UpdateByID(ctx, tx, reverseID, reversePartial)
		return err
	})
	if err != nil {
		return Pair[T, U]{}, err
	}
	return pair, nil
}

func (t *TxBidirectionalManager[T, U]) UpdateBySid(ctx context.Context, session neo4jdal.Session, sid string, forwardPartial, reversePartial map[string]any) (Pair[T, U], error) {
	var pair Pair[T, U]
	err := neo4jdal.WithTransaction(ctx, session, func(tx neo4jdal.Session) error {
		var err error
		if pair.Forward, err = t.m.forward.UpdateBySid(ctx, tx, sid, forwardPartial); err != nil {
			return err
		}
		pair.Reverse, err = t.m.reverse.UpdateBySid(ctx, tx, sid, reversePartial)
		return err
	})
	if err != nil {
		return Pair[T, U]{}, err
	}
	return pair, nil
}

func (t *TxBidirectionalManager[T, U]) DeleteByID(ctx context.Context, session neo4jdal.Session, forwardID, reverseID string) error {
	return neo4jdal.WithTransaction(ctx, session, func(tx neo4jdal.Session) error {
		if err := t.m.forward.DeleteByID(ctx, tx, forwardID); err != nil {
			return err
		}
		return t.m.reverse.DeleteByID(ctx, tx, reverseID)
	})
}

func (t *TxBidirectionalManager[T, U]) DeleteBySid(ctx context.Context, session neo4jdal.Session, sid string) error {
	return neo4jdal.WithTransaction(ctx, session, func(tx neo4jdal.Session) error {
		if err := t.m.forward.DeleteBySid(ctx, tx, sid); err != nil {
			return err
		}
		return t.m.reverse.DeleteBySid(ctx, tx, sid)
	})
}

// 读操作不修改数据，直接委托给非事务版本。

func (t *TxBidirectionalManager[T, U]) FindByID(ctx context.Context, session neo4jdal.Session, forwardID, reverseID string) (Pair[T, U], error) {
	return t.m.FindByID(ctx, session, forwardID, reverseID)
}

func (t *TxBidirectionalManager[T, U]) FindBySid(ctx context.Context, session neo4jdal.Session, sid string) (Pair[T, U], error) {
	return t.m.FindBySid(ctx, session, sid)
}

func (t *TxBidirectionalManager[T, U]) FindAll(ctx context.Context, session neo4jdal.Session) (KeyedPair[T, U], error) {
	return t.m.FindAll(ctx, session)
}
