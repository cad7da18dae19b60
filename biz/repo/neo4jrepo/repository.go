package neo4jrepo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"neo4jorm/biz/dal/neo4jdal"
	"neo4jorm/biz/model/graph"
)

// Option 配置仓库和关系管理器。
type Option func(*options)

type options struct {
	builder        neo4jdal.QueryBuilder
	useTransaction bool
	logger         *zap.Logger
	onPartial      PartialCommitHandler
}

func newOptions(opts []Option) options {
	o := options{builder: neo4jdal.NewQueryBuilder(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// WithLogger 设置日志输出。
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTransaction 设置每条查询是否在独立的显式事务中执行。
// 开启该选项的关系管理器不能再由 BidirectionalManager.Transactional 组合进同一个事务，
// 否则 Transactional 返回 neo4jdal.ErrNestedTransaction。
func WithTransaction(use bool) Option {
	return func(o *options) { o.useTransaction = use }
}

// WithQueryBuilder 设置所有查询的起始 builder，默认是空 builder。
func WithQueryBuilder(b neo4jdal.QueryBuilder) Option {
	return func(o *options) { o.builder = b }
}

// WithPartialCommitHandler 设置双向操作只提交了一半时的回调，只对 BidirectionalManager 生效。
func WithPartialCommitHandler(h PartialCommitHandler) Option {
	return func(o *options) { o.onPartial = h }
}

// Repository 是单一标签节点上的通用 CRUD。
type Repository[T any] struct {
	label  string
	qb     neo4jdal.QueryBuilder
	useTx  bool
	logger *zap.Logger
}

// NewRepository 创建绑定到 label 的节点仓库。
func NewRepository[T any](label string, opts ...Option) (*Repository[T], error) {
	if err := checkIdentifier("label", label); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &Repository[T]{
		label:  label,
		qb:     o.builder,
		useTx:  o.useTransaction,
		logger: o.logger.With(zap.String("label", label)),
	}, nil
}

// Label 返回仓库绑定的节点标签。
func (r *Repository[T]) Label() string { return r.label }

func (r *Repository[T]) match() neo4jdal.QueryBuilder {
	return r.qb.Match(fmt.Sprintf("(n:%s)", r.label))
}

func (r *Repository[T]) matchByID(id string) neo4jdal.QueryBuilder {
	return r.match().Where("id(n) = toInteger($id)", map[string]any{"id": id})
}

func (r *Repository[T]) run(ctx context.Context, session neo4jdal.Session, op string, q neo4jdal.QueryBuilder) ([]T, error) {
	records, err := q.Execute(ctx, session, r.useTx)
	if err != nil {
		r.logger.Warn("节点操作失败", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("repo: %s %s: %w", r.label, op, err)
	}
	nodes, err := mapRecordsToNodes[T](records, "n")
	if err != nil {
		return nil, err
	}
	r.logger.Debug("节点操作完成", zap.String("op", op), zap.Int("count", len(nodes)))
	return nodes, nil
}

func (r *Repository[T]) runOne(ctx context.Context, session neo4jdal.Session, op string, q neo4jdal.QueryBuilder, attribute string, value any) (T, error) {
	var zero T
	nodes, err := r.run(ctx, session, op, q)
	if err != nil {
		return zero, err
	}
	if len(nodes) == 0 {
		r.logger.Debug("节点不存在", zap.String("op", op), zap.String("attribute", attribute), zap.Any("value", value))
		return zero, notFound(r.label, attribute, value)
	}
	return nodes[0], nil
}

// Create 把 node 的属性合并到该标签下所有已有节点上并返回它们。
// 它不会新建节点：没有匹配节点时返回空列表。需要新建节点时使用 Insert。
func (r *Repository[T]) Create(ctx context.Context, session neo4jdal.Session, node T) ([]T, error) {
	props, err := toProperties(node)
	if err != nil {
		return nil, err
	}
	q := r.match().Set("n += $node", map[string]any{"node": props}).Return("n")
	return r.run(ctx, session, "create", q)
}

// Insert 新建一个节点。
func (r *Repository[T]) Insert(ctx context.Context, session neo4jdal.Session, node T) (T, error) {
	var zero T
	props, err := toProperties(node)
	if err != nil {
		return zero, err
	}
	q := r.qb.Create(fmt.Sprintf("(n:%s $node)", r.label), map[string]any{"node": props}).Return("n")
	nodes, err := r.run(ctx, session, "insert", q)
	if err != nil {
		return zero, err
	}
	if len(nodes) == 0 {
		return zero, fmt.Errorf("repo: %s insert: %w", r.label, neo4jdal.ErrExecutionFailed)
	}
	return nodes[0], nil
}

func (r *Repository[T]) FindBy(ctx context.Context, session neo4jdal.Session, attribute string, value any) ([]T, error) {
	if err := checkIdentifier("attribute", attribute); err != nil {
		return nil, err
	}
	q := r.match().Where(fmt.Sprintf("n.%s = $value", attribute), map[string]any{"value": value}).Return("n")
	return r.run(ctx, session, "findBy", q)
}

func (r *Repository[T]) FindByID(ctx context.Context, session neo4jdal.Session, id string) (T, error) {
	return r.runOne(ctx, session, "findById", r.matchByID(id).Return("n"), "id", id)
}

func (r *Repository[T]) FindAll(ctx context.Context, session neo4jdal.Session) ([]T, error) {
	return r.run(ctx, session, "findAll", r.match().Return("n"))
}

func (r *Repository[T]) UpdateByID(ctx context.Context, session neo4jdal.Session, id string, partial map[string]any) (T, error) {
	q := r.matchByID(id).Set("n += $node", map[string]any{"node": partialProperties(partial)}).Return("n")
	return r.runOne(ctx, session, "updateById", q, "id", id)
}

// DeleteByID 删除节点，不检查节点是否存在。
func (r *Repository[T]) DeleteByID(ctx context.Context, session neo4jdal.Session, id string) error {
	_, err := r.run(ctx, session, "deleteById", r.matchByID(id).Delete("n"))
	return err
}

// SidRepository 在 Repository 的基础上提供按业务 sid 访问的操作。
type SidRepository[T graph.SidCarrier] struct {
	*Repository[T]
}

// NewSidRepository 创建绑定到 label 的带业务 ID 的节点仓库。
func NewSidRepository[T graph.SidCarrier](label string, opts ...Option) (*SidRepository[T], error) {
	base, err := NewRepository[T](label, opts...)
	if err != nil {
		return nil, err
	}
	return &SidRepository[T]{Repository: base}, nil
}

func (r *SidRepository[T]) matchBySid(sid string) neo4jdal.QueryBuilder {
	return r.match().Where("n.sid = $sid", map[string]any{"sid": sid})
}

func (r *SidRepository[T]) FindBySid(ctx context.Context, session neo4jdal.Session, sid string) (T, error) {
	return r.runOne(ctx, session, "findBySid", r.matchBySid(sid).Return("n"), "sid", sid)
}

func (r *SidRepository[T]) UpdateBySid(ctx context.Context, session neo4jdal.Session, sid string, partial map[string]any) (T, error) {
	q := r.matchBySid(sid).Set("n += $node", map[string]any{"node": partialProperties(partial)}).Return("n")
	return r.runOne(ctx, session, "updateBySid", q, "sid", sid)
}

func (r *SidRepository[T]) DeleteBySid(ctx context.Context, session neo4jdal.Session, sid string) error {
	_, err := r.run(ctx, session, "deleteBySid", r.matchBySid(sid).Delete("n"))
	return err
}
