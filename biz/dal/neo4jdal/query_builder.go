package neo4jdal

import (
	"maps"
	"strings"
)

// Query 是渲染后的查询语句及其合并后的参数。
type Query struct {
	Cypher string
	Params map[string]any
}

// QueryBuilder 按顺序累积查询片段，最终渲染为一条 Cypher 语句。
// QueryBuilder 是不可变的值类型：每个追加方法都返回新的实例，原实例保持不变，
// 因此同一个 builder 可以在多个请求之间安全共享，无需加锁。
type QueryBuilder struct {
	clauses []Clause
}

// NewQueryBuilder 创建一个空的 QueryBuilder。
func NewQueryBuilder() QueryBuilder {
	return QueryBuilder{}
}

// with 返回在当前计划末尾追加一个片段后的新 builder。
// 必须复制底层切片：直接 append 可能与其他派生出的 builder 共享同一底层数组。
func (b QueryBuilder) with(c Clause) QueryBuilder {
	next := make([]Clause, len(b.clauses), len(b.clauses)+1)
	copy(next, b.clauses)
	next = append(next, c.clone())
	return QueryBuilder{clauses: next}
}

// Select 追加投影片段。Cypher 没有 SELECT，渲染为 WITH。
func (b QueryBuilder) Select(columns ...string) QueryBuilder {
	return b.with(newClause(KindSelect, "WITH", joinFragments(columns), nil))
}

// Match 追加一个 MATCH 片段，所有模式片段放在同一个 MATCH 中，以逗号分隔。
func (b QueryBuilder) Match(pattern string, more ...string) QueryBuilder {
	fragments := append([]string{pattern}, more...)
	return b.with(newClause(KindMatch, "MATCH", joinFragments(fragments), nil))
}

// Where 追加过滤条件，params 可选。
func (b QueryBuilder) Where(condition string, params ...map[string]any) QueryBuilder {
	return b.with(newClause(KindWhere, "WHERE", condition, firstParams(params)))
}

// Set 追加属性赋值片段，params 可选。
func (b QueryBuilder) Set(assignment string, params ...map[string]any) QueryBuilder {
	return b.with(newClause(KindSet, "SET", assignment, firstParams(params)))
}

// Create 追加创建片段，params 可选。
func (b QueryBuilder) Create(pattern string, params ...map[string]any) QueryBuilder {
	return b.with(newClause(KindCreate, "CREATE", pattern, firstParams(params)))
}

// Delete 追加删除片段。
func (b QueryBuilder) Delete(variables ...string) QueryBuilder {
	return b.with(newClause(KindDelete, "DELETE", joinFragments(variables), nil))
}

// DetachDelete 追加 DETACH DELETE 片段，删除节点的同时删除其所有关系。
func (b QueryBuilder) DetachDelete(variables ...string) QueryBuilder {
	return b.with(newClause(KindDelete, "DETACH DELETE", joinFragments(variables), nil))
}

// Return 追加返回片段。
func (b QueryBuilder) Return(keys ...string) QueryBuilder {
	return b.with(newClause(KindReturn, "RETURN", joinFragments(keys), nil))
}

// Clauses 返回当前计划的副本。
func (b QueryBuilder) Clauses() []Clause {
	out := make([]Clause, len(b.clauses))
	for i, c := range b.clauses {
		out[i] = c.clone()
	}
	return out
}

// Len 返回计划中片段的数量。
func (b QueryBuilder) Len() int {
	return len(b.clauses)
}

// Validate 检查片段顺序是否合法（例如 WHERE 必须紧跟 MATCH，RETURN 必须是最后一个片段）。
func (b QueryBuilder) Validate() error {
	return validatePlan(b.clauses)
}

// Build 渲染当前计划。
// 每个片段文本后面跟一个空格；参数按片段顺序从左到右合并，同名参数后者覆盖前者。
// 这是已知行为，不作为错误处理。
func (b QueryBuilder) Build() Query {
	var sb strings.Builder
	params := make(map[string]any)
	for _, c := range b.clauses {
		sb.WriteString(c.Text)
		sb.WriteByte(' ')
		maps.Copy(params, c.Params)
	}
	return Query{Cypher: sb.String(), Params: params}
}

// String 返回渲染后的 Cypher 文本。
func (b QueryBuilder) String() string {
	return b.Build().Cypher
}
