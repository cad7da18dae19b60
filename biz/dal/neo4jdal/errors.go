package neo4jdal

import "errors"

var (
	// ErrNotFound 表示在数据库中未找到请求的记录。
	ErrNotFound = errors.New("neo4jdal: record not found")

	// ErrExecutionFailed 包装执行阶段（驱动、事务）返回的所有错误。
	ErrExecutionFailed = errors.New("neo4jdal: query execution failed")

	// ErrEmptyQuery 表示试图执行一个没有任何片段的查询。
	ErrEmptyQuery = errors.New("neo4jdal: empty query")

	// ErrInvalidClauseOrder 表示片段顺序不符合 Cypher 语法要求。
	ErrInvalidClauseOrder = errors.New("neo4jdal: invalid clause order")

	// ErrNestedTransaction 表示在已打开的事务内再次请求开启事务。
	ErrNestedTransaction = errors.New("neo4jdal: nested transaction not supported")
)
