package database

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// SessionFactory 按配置的数据库名创建会话。
// 会话不是并发安全的，每个请求创建自己的会话并在结束时关闭。
type SessionFactory struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewSessionFactory(driver neo4j.DriverWithContext, database string) *SessionFactory {
	return &SessionFactory{driver: driver, database: database}
}

// Write 创建写会话。
func (f *SessionFactory) Write(ctx context.Context) neo4j.SessionWithContext {
	return f.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: f.database})
}

// Read 创建读会话，集群部署时可以路由到只读副本。
func (f *SessionFactory) Read(ctx context.Context) neo4j.SessionWithContext {
	return f.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: f.database})
}

// Close 关闭底层驱动。
func (f *SessionFactory) Close(ctx context.Context) error {
	return f.driver.Close(ctx)
}
