package neo4jrepo

import (
	"context"

	"neo4jorm/biz/dal/neo4jdal"
	"neo4jorm/biz/model/graph"
)

// NodeRepository 定义了单一标签节点的数据访问操作。
// 会话由调用方创建并负责关闭，Repo 层只负责构建查询、执行以及模型转换。
type NodeRepository[T any] interface {
	// Create 把 node 的属性合并到所有带该标签的已有节点上（MATCH ... SET n += $node）。
	// 输出：被更新的节点列表；没有匹配节点时为空列表且不创建任何节点。
	Create(ctx context.Context, session neo4jdal.Session, node T) ([]T, error)

	// Insert 新建一个带该标签的节点。
	// 输出：新建的节点，身份字段由数据库内部 ID 填充。
	Insert(ctx context.Context, session neo4jdal.Session, node T) (T, error)

	// FindBy 返回属性 attribute 等于 value 的所有节点。
	FindBy(ctx context.Context, session neo4jdal.Session, attribute string, value any) ([]T, error)

	// FindByID 根据内部 ID 获取节点。
	// 输出：找到的节点或 NotFoundError。
	FindByID(ctx context.Context, session neo4jdal.Session, id string) (T, error)

	// FindAll 返回带该标签的所有节点。
	FindAll(ctx context.Context, session neo4jdal.Session) ([]T, error)

	// UpdateByID 把 partial 合并到指定节点上。
	// 输出：更新后的节点或 NotFoundError。
	UpdateByID(ctx context.Context, session neo4jdal.Session, id string, partial map[string]any) (T, error)

	// DeleteByID 删除指定节点；仍有关系的节点会由数据库拒绝删除。
	DeleteByID(ctx context.Context, session neo4jdal.Session, id string) error
}

// SidNodeRepository 在 NodeRepository 的基础上增加按业务 sid 访问的操作。
type SidNodeRepository[T graph.SidCarrier] interface {
	NodeRepository[T]

	FindBySid(ctx context.Context, session neo4jdal.Session, sid string) (T, error)
	UpdateBySid(ctx context.Context, session neo4jdal.Session, sid string, partial map[string]any) (T, error)
	DeleteBySid(ctx context.Context, session neo4jdal.Session, sid string) error
}

// RelationRepository 定义了固定 (起点标签, 关系类型, 终点标签) 三元组上的关系操作。
type RelationRepository[T any] interface {
	// Create 在两个已有节点之间新建一条关系。
	// 输入：起点和终点的内部 ID，以及关系属性。
	// 输出：新建的关系；任一端点不存在时返回 NotFoundError。
	Create(ctx context.Context, session neo4jdal.Session, startNodeID, endNodeID string, properties T) (graph.Relationship[T], error)

	// FindByID 根据关系的内部 ID 获取关系。
	FindByID(ctx context.Context, session neo4jdal.Session, id string) (graph.Relationship[T], error)

	// FindByAttribute 返回第一条属性 attribute 等于 value 的关系。
	FindByAttribute(ctx context.Context, session neo4jdal.Session, attribute string, value any) (graph.Relationship[T], error)

	// FindAll 返回该三元组上的所有关系。
	FindAll(ctx context.Context, session neo4jdal.Session) ([]graph.Relationship[T], error)

	// UpdateByID 把 partial 合并到指定关系的属性上。
	UpdateByID(ctx context.Context, session neo4jdal.Session, id string, partial map[string]any) (graph.Relationship[T], error)

	// DeleteByID 删除指定关系。
	DeleteByID(ctx context.Context, session neo4jdal.Session, id string) error
}

// SidRelationRepository 在 RelationRepository 的基础上增加按业务 sid 访问的操作。
type SidRelationRepository[T graph.SidCarrier] interface {
	RelationRepository[T]

	FindBySid(ctx context.Context, session neo4jdal.Session, sid string) (graph.Relationship[T], error)
	UpdateBySid(ctx context.Context, session neo4jdal.Session, sid string, partial map[string]any) (graph.Relationship[T], error)
	DeleteBySid(ctx context.Context, session neo4jdal.Session, sid string) error
}

var (
	_ NodeRepository[graph.Node]           = (*Repository[graph.Node])(nil)
	_ SidNodeRepository[graph.SidData]     = (*SidRepository[graph.SidData])(nil)
	_ RelationRepository[map[string]any]   = (*RelationManager[map[string]any])(nil)
	_ SidRelationRepository[graph.SidData] = (*SidRelationManager[graph.SidData])(nil)
)
