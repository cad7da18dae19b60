package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"neo4jorm/biz/dal/neo4jdal"
	appconfig "neo4jorm/pkg/config"
)

const verifyTimeout = 10 * time.Second

// driverConfigurers 把配置中的连接池参数转换为驱动配置，值为 0 的项保持驱动默认值。
func driverConfigurers(cfg *appconfig.Neo4jConfig) func(*config.Config) {
	return func(c *config.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.ConnectionAcquisitionTimeout > 0 {
			c.ConnectionAcquisitionTimeout = time.Duration(cfg.ConnectionAcquisitionTimeout) * time.Second
		}
		if cfg.MaxConnectionLifetime > 0 {
			c.MaxConnectionLifetime = time.Duration(cfg.MaxConnectionLifetime) * time.Second
		}
	}
}

// InitNeo4j 根据配置创建 Neo4j 驱动并验证连接。
// 返回创建好的驱动实例，如果初始化失败则返回错误。
func InitNeo4j(ctx context.Context, cfg *appconfig.Neo4jConfig, logger *zap.Logger) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		driverConfigurers(cfg),
	)
	if err != nil {
		return nil, fmt.Errorf("无法创建 Neo4j 驱动: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	// 检查连接性
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		driver.Close(ctx) // 关闭无效的驱动
		return nil, fmt.Errorf("无法连接到 Neo4j: %w", err)
	}
	logger.Info("成功连接到 Neo4j", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return driver, nil
}

// SidIndexStatements 为按业务 ID 查找的节点标签和关系类型生成索引语句。
func SidIndexStatements(nodeLabels, relationTypes []string) ([]string, error) {
	queries := make([]string, 0, len(nodeLabels)+len(relationTypes))
	for _, label := range nodeLabels {
		if !neo4jdal.ValidIdentifier(label) {
			return nil, fmt.Errorf("非法的节点标签 %q", label)
		}
		queries = append(queries, fmt.Sprintf(
			"CREATE INDEX %s_sid_index IF NOT EXISTS FOR (n:%s) ON (n.sid)", strings.ToLower(label), label))
	}
	for _, relType := range relationTypes {
		if !neo4jdal.ValidIdentifier(relType) {
			return nil, fmt.Errorf("非法的关系类型 %q", relType)
		}
		queries = append(queries, fmt.Sprintf(
			"CREATE INDEX %s_sid_index IF NOT EXISTS FOR ()-[r:%s]-() ON (r.sid)", strings.ToLower(relType), relType))
	}
	return queries, nil
}

// ApplySidIndexes 为 sid 属性创建索引，加速 FindBySid / UpdateBySid / DeleteBySid。
// 索引已存在时跳过。
func ApplySidIndexes(ctx context.Context, session neo4jdal.Session, nodeLabels, relationTypes []string, logger *zap.Logger) error {
	queries, err := SidIndexStatements(nodeLabels, relationTypes)
	if err != nil {
		return err
	}

	logger.Info("开始应用 Neo4j schema...")
	var appliedCount int
	for _, query := range queries {
		result, err := session.Run(ctx, query, nil)
		if err == nil {
			_, err = result.Collect(ctx)
		}
		if err != nil {
			// 如果错误是索引已存在，则忽略
			if strings.Contains(err.Error(), "already exists") {
				logger.Debug("Schema (索引) 已存在，跳过", zap.String("query", query))
				continue
			}
			logger.Error("执行 schema 查询失败", zap.String("query", query), zap.Error(err))
			return fmt.Errorf("执行 schema 查询失败 '%s': %w", query, err)
		}
		logger.Info("成功应用 schema", zap.String("query", query))
		appliedCount++
	}

	logger.Info("Neo4j schema 应用完成", zap.Int("applied_count", appliedCount))
	return nil
}
