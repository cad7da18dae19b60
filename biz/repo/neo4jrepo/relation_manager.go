package neo4jrepo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"neo4jorm/biz/dal/neo4jdal"
	"neo4jorm/biz/model/graph"
)

// RelationManager 是 (startLabel)-[relationType]->(endLabel) 三元组上的通用关系 CRUD。
type RelationManager[T any] struct {
	startLabel   string
	endLabel     string
	relationType string
	qb           neo4jdal.QueryBuilder
	useTx        bool
	logger       *zap.Logger
}

// NewRelationManager 创建绑定到给定三元组的关系管理器，三元组在创建后不可修改。
func NewRelationManager[T any](startLabel, endLabel, relationType string, opts ...Option) (*RelationManager[T], error) {
	for _, id := range []struct{ kind, name string }{
		{"start label", startLabel},
		{"end label", endLabel},
		{"relation type", relationType},
	} {
		if err := checkIdentifier(id.kind, id.name); err != nil {
			return nil, err
		}
	}
	o := newOptions(opts)
	return &RelationManager[T]{
		startLabel:   startLabel,
		endLabel:     endLabel,
		relationType: relationType,
		qb:           o.builder,
		useTx:        o.useTransaction,
		logger: o.logger.With(
			zap.String("relation", fmt.Sprintf("%s-%s->%s", startLabel, relationType, endLabel))),
	}, nil
}

func (m *RelationManager[T]) StartLabel() string   { return m.startLabel }
func (m *RelationManager[T]) EndLabel() string     { return m.endLabel }
func (m *RelationManager[T]) RelationType() string { return m.relationType }

// UsesTransaction 报告每条查询是否在独立的显式事务中执行（WithTransaction）。
func (m *RelationManager[T]) UsesTransaction() bool { return m.useTx }

func (m *RelationManager[T]) matchEdge() neo4jdal.QueryBuilder {
	return m.qb.Match(fmt.Sprintf("(startNode:%s)-[r:%s]->(endNode:%s)", m.startLabel, m.relationType, m.endLabel))
}

func (m *RelationManager[T]) matchByID(id string) neo4jdal.QueryBuilder {
	return m.matchEdge().Where("id(r) = toInteger($id)", map[string]any{"id": id})
}

func (m *RelationManager[T]) run(ctx context.Context, session neo4jdal.Session, op string, q neo4jdal.QueryBuilder) ([]graph.Relationship[T], error) {
	records, err := q.Execute(ctx, session, m.useTx)
	if err != nil {
		m.logger.Warn("关系操作失败", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("repo: %s %s: %w", m.relationType, op, err)
	}
	rels, err := mapRecordsToRelationships[T](records)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("关系操作完成", zap.String("op", op), zap.Int("count", len(rels)))
	return rels, nil
}

func (m *RelationManager[T]) runOne(ctx context.Context, session neo4jdal.Session, op string, q neo4jdal.QueryBuilder, attribute string, value any) (graph.Relationship[T], error) {
	rels, err := m.run(ctx, session, op, q)
	if err != nil {
		return graph.Relationship[T]{}, err
	}
	if len(rels) == 0 {
		m.logger.Debug("关系不存在", zap.String("op", op), zap.String("attribute", attribute), zap.Any("value", value))
		return graph.Relationship[T]{}, notFound(m.relationType, attribute, value)
	}
	return rels[0], nil
}

// Create 在内部 ID 为 startNodeID 和 endNodeID 的两个节点之间创建关系。
// 任一端点不存在时不会创建任何关系，并返回 NotFoundError。
func (m *RelationManager[T]) Create(ctx context.Context, session neo4jdal.Session, startNodeID, endNodeID string, properties T) (graph.Relationship[T], error) {
	props, err := toProperties(properties)
	if err != nil {
		return graph.Relationship[T]{}, err
	}
	q := m.qb.
		Match(fmt.Sprintf("(startNode:%s)", m.startLabel), fmt.Sprintf("(endNode:%s)", m.endLabel)).
		Where("id(startNode) = toInteger($startNodeId) AND id(endNode) = toInteger($endNodeId)",
			map[string]any{"startNodeId": startNodeID, "endNodeId": endNodeID}).
		Create(fmt.Sprintf("(startNode)-[r:%s $relationProperties]->(endNode)", m.relationType),
			map[string]any{"relationProperties": props}).
		Return(relationReturn...)
	return m.runOne(ctx, session, "create", q, "startNodeId/endNodeId", startNodeID+"/"+endNodeID)
}

func (m *RelationManager[T]) FindByID(ctx context.Context, session neo4jdal.Session, id string) (graph.Relationship[T], error) {
	return m.runOne(ctx, session, "findById", m.matchByID(id).Return(relationReturn...), "id", id)
}

func (m *RelationManager[T]) FindByAttribute(ctx context.Context, session neo4jdal.Session, attribute string, value any) (graph.Relationship[T], error) {
	if err := checkIdentifier("attribute", attribute); err != nil {
		return graph.Relationship[T]{}, err
	}
	q := m.matchEdge().
		Where(fmt.Sprintf("r.%s = $value", attribute), map[string]any{"value": value}).
		Return(relationReturn...)
	return m.runOne(ctx, session, "findByAttribute", q, attribute, value)
}

func (m *RelationManager[T]) FindAll(ctx context.Context, session neo4jdal.Session) ([]graph.Relationship[T], error) {
	return m.run(ctx, session, "findAll", m.matchEdge().Return(relationReturn...))
}

func (m *RelationManager[T]) UpdateByID(ctx context.Context, session neo4jdal.Session, id string, partial map[string]any) (graph.Relationship[T], error) {
	q := m.matchByID(id).
		Set("r += $relationProperties", map[string]any{"relationProperties": partialProperties(partial)}).
		Return(relationReturn...)
	return m.runOne(ctx, session, "updateById", q, "id", id)
}

// DeleteByID 删除关系，不检查关系是否存在。
func (m *RelationManager[T]) DeleteByID(ctx context.Context, session neo4jdal.Session, id string) error {
	_, err := m.run(ctx, session, "deleteById", m.matchByID(id).Delete("r"))
	return err
}

// SidRelationManager 在 RelationManager 的基础上提供按业务 sid 访问的操作。
type SidRelationManager[T graph.SidCarrier] struct {
	*RelationManager[T]
}

// NewSidRelationManager 创建带业务 ID 的关系管理器。
func NewSidRelationManager[T graph.SidCarrier](startLabel, endLabel, relationType string, opts ...Option) (*SidRelationManager[T], error) {
	base, err := NewRelationManager[T](startLabel, endLabel, relationType, opts...)
	if err != nil {
		return nil, err
	}
	return &SidRelationManager[T]{RelationManager: base}, nil
}

func (m *SidRelationManager[T]) matchBySid(sid string) neo4jdal.QueryBuilder {
	return m.matchEdge().Where("r.sid = $sid", map[string]any{"sid": sid})
}

func (m *SidRelationManager[T]) FindBySid(ctx context.Context, session neo4jdal.Session, sid string) (graph.Relationship[T], error) {
	return m.runOne(ctx, session, "findBySid", m.matchBySid(sid).Return(relationReturn...), "sid", sid)
}

func (m *SidRelationManager[T]) UpdateBySid(ctx context.Context, session neo4jdal.Session, sid string, partial map[string]any) (graph.Relationship[T], error) {
	q := m.matchBySid(sid).
		Set("r += $relationProperties", map[string]any{"relationProperties": partialProperties(partial)}).
		Return(relationReturn...)
	return m.runOne(ctx, session, "updateBySid", q, "sid", sid)
}

func (m *SidRelationManager[T]) DeleteBySid(ctx context.Context, session neo4jdal.Session, sid string) error {
	_, err := m.run(ctx, session, "deleteBySid", m.matchBySid(sid).Delete("r"))
	return err
}
