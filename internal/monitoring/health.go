package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailagent/backend/internal/storage"
)

// Pinger 定义可探活的外部依赖（例如 Redis 去重缓存）。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	store  storage.Store
	dedup  Pinger // 可为 nil，表示未启用去重缓存
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.Store, dedup Pinger, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		store:  store,
		dedup:  dedup,
		logger: logger,
	}
}

// CheckHealth 执行各依赖的健康检查并返回逐项结果。
//
// 任一依赖异常时 healthy 为 false，结果仍包含全部检查项。
func (hc *HealthChecker) CheckHealth(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	results := make(map[string]string)
	healthy := true

	if err := hc.store.Health(ctx); err != nil {
		results["store"] = fmt.Sprintf("ERROR: %v", err)
		healthy = false
		hc.logger.Warn("store health check failed", zap.Error(err))
	} else {
		results["store"] = "OK"
	}

	if hc.dedup != nil {
		if err := hc.dedup.Ping(ctx); err != nil {
			results["dedup_cache"] = fmt.Sprintf("ERROR: %v", err)
			healthy = false
			hc.logger.Warn("dedup cache health check failed", zap.Error(err))
		} else {
			results["dedup_cache"] = "OK"
		}
	} else {
		results["dedup_cache"] = "NOT_ENABLED"
	}

	results["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return results, healthy
}
