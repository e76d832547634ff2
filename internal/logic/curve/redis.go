package curve

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pump-indexer-sol/internal/types"
)

// Redis key 前缀与 TTL
const (
	progressKeyPrefix = "curve:progress"
	progressTTL       = 7 * 24 * time.Hour
)

// RedisProgressStore 把进度判重缓存落到 Redis，进程重启后接着判重
type RedisProgressStore struct {
	rdb *redis.Client
}

func NewRedisProgressStore(rdb *redis.Client) *RedisProgressStore {
	return &RedisProgressStore{rdb: rdb}
}

func (r *RedisProgressStore) key(curve types.Pubkey) string {
	return fmt.Sprintf("%s:%s", progressKeyPrefix, curve)
}

// Get 读取某条曲线最近下发的进度记录，key 不存在返回 found=false
func (r *RedisProgressStore) Get(ctx context.Context, curve types.Pubkey) (ProgressRecord, bool, error) {
	val, err := r.rdb.Get(ctx, r.key(curve)).Result()
	switch {
	case err == redis.Nil:
		return ProgressRecord{}, false, nil
	case err != nil:
		return ProgressRecord{}, false, fmt.Errorf("redis get error: %w", err)
	}

	rec, err := parseProgressValue(val)
	if err != nil {
		// 脏数据按不存在处理，不阻塞判重
		return ProgressRecord{}, false, nil
	}
	return rec, true, nil
}

// Set 写入进度记录并刷新 TTL
func (r *RedisProgressStore) Set(ctx context.Context, curve types.Pubkey, rec ProgressRecord) error {
	val := fmt.Sprintf("%.6f:%d", rec.Progress, boolToInt(rec.Complete))
	return r.rdb.Set(ctx, r.key(curve), val, progressTTL).Err()
}

// parseProgressValue 解析 "<progress>:<0|1>" 格式的缓存值
func parseProgressValue(val string) (ProgressRecord, error) {
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return ProgressRecord{}, fmt.Errorf("invalid progress value %q", val)
	}
	progress, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return ProgressRecord{}, fmt.Errorf("invalid progress value %q: %w", val, err)
	}
	return ProgressRecord{
		Progress: progress,
		Complete: parts[1] == "1",
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
