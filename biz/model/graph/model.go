// Package graph 定义节点与关系记录共用的基础数据形状。
// 业务模型通过嵌入这些类型获得身份字段、业务 ID 和生命周期字段。
package graph

import (
	"time"

	"github.com/google/uuid"
)

// Node 是所有记录都带有的身份字段，ID 为数据库内部 ID 的字符串形式。
// 写入数据库时 id 不作为属性保存，读取时由仓库层回填。
type Node struct {
	ID string `json:"id"`
}

// GetID 返回数据库内部 ID。
func (n Node) GetID() string { return n.ID }

// Identified 是带有身份字段的记录。
type Identified interface {
	GetID() string
}

// SidData 是应用层定义的业务 ID（surrogate id），与数据库内部 ID 无关。
type SidData struct {
	Sid string `json:"sid,omitempty"`
}

// GetSid 返回业务 ID。
func (s SidData) GetSid() string { return s.Sid }

// SidCarrier 是带业务 ID 的记录，按业务 ID 查找、更新、删除的操作要求记录满足该能力。
type SidCarrier interface {
	GetSid() string
}

// NewSid 生成一个新的业务 ID。
func NewSid() SidData {
	return SidData{Sid: uuid.NewString()}
}

// ScdData 是生命周期字段（创建、删除标记）。
// Neo4j 属性不支持嵌套 map，因此字段展开为扁平属性。
type ScdData struct {
	CreatedAt string `json:"created_at,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	DeletedAt string `json:"deleted_at,omitempty"`
	DeletedBy string `json:"deleted_by,omitempty"`
}

// Stamp 记录创建时间和创建者。
func (s *ScdData) Stamp(by string) {
	s.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	s.CreatedBy = by
}

// MarkDeleted 记录逻辑删除时间和操作者。
func (s *ScdData) MarkDeleted(by string) {
	s.DeletedAt = time.Now().UTC().Format(time.RFC3339)
	s.DeletedBy = by
}

// IsDeleted 报告记录是否已被逻辑删除。
func (s ScdData) IsDeleted() bool {
	return s.DeletedAt != ""
}

// Relationship 是关系记录：类型、属性以及两端节点的数据库内部 ID。
// 无论关系是按内部 ID 还是业务 ID 定位的，端点 ID 总是数据库内部 ID 的字符串形式。
type Relationship[T any] struct {
	Type        string `json:"type"`
	Properties  T      `json:"properties"`
	StartNodeID string `json:"startNodeId"`
	EndNodeID   string `json:"endNodeId"`
}

// Reversed 返回端点互换后的副本。
func (r Relationship[T]) Reversed() Relationship[T] {
	r.StartNodeID, r.EndNodeID = r.EndNodeID, r.StartNodeID
	return r
}
