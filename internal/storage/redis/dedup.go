package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mailagent/backend/internal/config"
)

// 已处理标记的保留时长。过期后同一邮件会被重新处理，
// 处理历史本身仍以审计库为准。
const markTTL = 7 * 24 * time.Hour

// keyPrefix 去重键前缀
const keyPrefix = "mailagent:processed:"

// Dedup 基于 Redis 的已处理邮件去重缓存。
//
// 批处理前查询，处理成功后标记，避免重复对同一邮件执行副作用动作。
// 缓存失效只会导致重复处理而非漏处理，因此所有操作失败都按
// "未标记" 降级，不向上传播错误。
type Dedup struct {
	rdb *goredis.Client
	log *zap.Logger
}

// NewDedup 创建去重缓存客户端并验证连通性。
func NewDedup(cfg config.RedisConfig, log *zap.Logger) (*Dedup, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("connected to Redis",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB),
	)

	return &Dedup{rdb: rdb, log: log}, nil
}

// Seen 判断邮件是否已处理过。查询失败时按未处理对待。
func (d *Dedup) Seen(ctx context.Context, messageID string) bool {
	n, err := d.rdb.Exists(ctx, keyPrefix+messageID).Result()
	if err != nil {
		d.log.Warn("dedup lookup failed, treating as unseen",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return false
	}
	return n > 0
}

// Mark 标记邮件已处理。标记失败只记日志，不影响主流程。
func (d *Dedup) Mark(ctx context.Context, messageID string) {
	if err := d.rdb.Set(ctx, keyPrefix+messageID, 1, markTTL).Err(); err != nil {
		d.log.Warn("dedup mark failed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}

// Ping 探测 Redis 连通性，用于健康检查。
func (d *Dedup) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接。
func (d *Dedup) Close() error {
	return d.rdb.Close()
}
