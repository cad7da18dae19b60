package neo4jrepo

import (
	"errors"
	"fmt"

	"neo4jorm/biz/dal/neo4jdal"
)

var (
	// ErrInvalidIdentifier 表示标签、关系类型或属性名不是合法的 Cypher 标识符。
	// 这些标识符会直接拼接进查询文本（无法参数化），因此只接受白名单字符。
	ErrInvalidIdentifier = errors.New("repo: invalid identifier")

	// ErrPartialCommit 表示双向关系操作只完成了正向一半。
	ErrPartialCommit = errors.New("repo: bidirectional operation partially committed")
)

// NotFoundError 表示期望恰好一条记录的查询没有返回任何记录。
type NotFoundError struct {
	Label     string // 节点标签或关系类型
	Attribute string
	Value     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("repo: %s with %s %v not found", e.Label, e.Attribute, e.Value)
}

// Is 使 errors.Is(err, neo4jdal.ErrNotFound) 对 NotFoundError 成立。
func (e *NotFoundError) Is(target error) bool {
	return target == neo4jdal.ErrNotFound
}

func notFound(label, attribute string, value any) error {
	return &NotFoundError{Label: label, Attribute: attribute, Value: value}
}

// 双向关系中已经提交的一侧。
const (
	DirectionForward = "forward"
	DirectionReverse = "reverse"
)

// PartialCommitError 表示双向操作中第一步（正向）已提交、第二步（反向）失败，
// 两条边的状态已经不一致，需要调用方对账修复。
type PartialCommitError struct {
	Op        string            `json:"op"`
	Committed string            `json:"committed"`
	Keys      map[string]string `json:"keys,omitempty"` // 定位两条边所用的 ID / sid，供对账使用
	Err       error             `json:"-"`
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("repo: bidirectional %s committed only the %s edge: %v", e.Op, e.Committed, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrPartialCommit) 对 PartialCommitError 成立。
func (e *PartialCommitError) Is(target error) bool {
	return target == ErrPartialCommit
}
