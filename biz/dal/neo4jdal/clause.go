package neo4jdal

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
)

// ClauseKind 表示查询片段的种类。
type ClauseKind int

const (
	KindSelect ClauseKind = iota + 1
	KindMatch
	KindWhere
	KindSet
	KindCreate
	KindDelete
	KindReturn
)

func (k ClauseKind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindMatch:
		return "MATCH"
	case KindWhere:
		return "WHERE"
	case KindSet:
		return "SET"
	case KindCreate:
		return "CREATE"
	case KindDelete:
		return "DELETE"
	case KindReturn:
		return "RETURN"
	default:
		return fmt.Sprintf("ClauseKind(%d)", int(k))
	}
}

// Clause 是查询计划中的一个片段，追加后不可再修改。
// Text 是渲染后的 Cypher 文本，Params 是该片段绑定的参数。
type Clause struct {
	Kind   ClauseKind
	Text   string
	Params map[string]any
}

// clone 返回一个参数 map 独立的副本，保证调用方后续修改传入的 map 不会影响已追加的片段。
func (c Clause) clone() Clause {
	if c.Params != nil {
		c.Params = maps.Clone(c.Params)
	}
	return c
}

func newClause(kind ClauseKind, keyword string, body string, params map[string]any) Clause {
	return Clause{
		Kind:   kind,
		Text:   keyword + " " + body,
		Params: params,
	}
}

// firstParams 取可选参数中的第一个，未提供时返回 nil（渲染时视为空 map）。
func firstParams(params []map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	return params[0]
}

func joinFragments(fragments []string) string {
	return strings.Join(fragments, ", ")
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier 报告 name 能否不加转义直接拼接进 Cypher 文本。
// 标签、关系类型和属性名无法参数化，拼接前必须通过该检查。
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// allowedPredecessors 描述每种片段合法的前驱片段。
// 空前驱（即查询的第一个片段）用 0 表示。
var allowedPredecessors = map[ClauseKind][]ClauseKind{
	KindSelect: {0, KindMatch, KindWhere, KindSet, KindCreate, KindDelete, KindSelect},
	KindMatch:  {0, KindMatch, KindWhere, KindSelect},
	KindWhere:  {KindMatch, KindSelect},
	KindSet:    {KindMatch, KindWhere, KindCreate, KindSet},
	KindCreate: {0, KindMatch, KindWhere, KindSet, KindCreate, KindDelete, KindSelect},
	KindDelete: {KindMatch, KindWhere, KindSet, KindCreate, KindDelete},
	KindReturn: {KindMatch, KindWhere, KindSet, KindCreate, KindDelete, KindSelect},
}

// validatePlan 按状态机检查片段顺序，RETURN 之后不允许再出现任何片段。
func validatePlan(clauses []Clause) error {
	var prev ClauseKind
	for i, c := range clauses {
		if prev == KindReturn {
			return fmt.Errorf("%w: %s at position %d follows terminal RETURN", ErrInvalidClauseOrder, c.Kind, i)
		}
		allowed, ok := allowedPredecessors[c.Kind]
		if !ok {
			return fmt.Errorf("%w: unknown clause kind %s at position %d", ErrInvalidClauseOrder, c.Kind, i)
		}
		legal := false
		for _, p := range allowed {
			if p == prev {
				legal = true
				break
			}
		}
		if !legal {
			if prev == 0 {
				return fmt.Errorf("%w: query cannot start with %s", ErrInvalidClauseOrder, c.Kind)
			}
			return fmt.Errorf("%w: %s cannot follow %s (position %d)", ErrInvalidClauseOrder, c.Kind, prev, i)
		}
		prev = c.Kind
	}
	return nil
}
