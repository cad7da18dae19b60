package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "neo4jorm"

var (
	// QueryDuration 记录每次查询执行耗时，按执行模式和结果状态分组。
	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Duration of executed Cypher queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode", "status"})

	// QueryFailures 按失败阶段（begin/run/collect/commit）统计执行失败次数。
	QueryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "query_failures_total",
		Help:      "Number of failed Cypher query executions by stage.",
	}, []string{"stage"})

	// PartialCommits 统计双向关系操作中只完成正向一半的次数。
	PartialCommits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bidirectional_partial_commits_total",
		Help:      "Number of bidirectional operations that committed only the forward edge.",
	}, []string{"op"})
)

// Register 把所有指标注册到 reg。重复注册不视为错误。
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{QueryDuration, QueryFailures, PartialCommits} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveQuery 记录一次查询执行。stage 为空表示执行成功。
func ObserveQuery(transactional bool, elapsed time.Duration, stage string) {
	mode := "session"
	if transactional {
		mode = "transaction"
	}
	status := "ok"
	if stage != "" {
		status = "error"
		QueryFailures.WithLabelValues(stage).Inc()
	}
	QueryDuration.WithLabelValues(mode, status).Observe(elapsed.Seconds())
}

// IncPartialCommit 记录一次部分提交。
func IncPartialCommit(op string) {
	PartialCommits.WithLabelValues(op).Inc()
}
