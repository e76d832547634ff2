package curve

import (
	"context"
	"math"
	"sync"

	"pump-indexer-sol/internal/pkg/logger"
	"pump-indexer-sol/internal/types"
)

// ProgressRecord 记录某条 Bonding Curve 最近一次下发的 {progress, complete}
type ProgressRecord struct {
	Progress float64
	Complete bool
}

// ProgressStore 是可选的跨进程持久化后端（如 Redis），nil 表示纯内存
type ProgressStore interface {
	Get(ctx context.Context, curve types.Pubkey) (ProgressRecord, bool, error)
	Set(ctx context.Context, curve types.Pubkey, rec ProgressRecord) error
}

// progressEpsilon 判断进度"未变化"的容差
const progressEpsilon = 1e-9

// Tracker 缓存每条 Bonding Curve 最近下发的进度，用于抑制下游的重复推送。
// 判重只作用于"下发"这一步，不影响解码——解码永远基于最新输入重算。
// 条目跨消息存续于进程生命期内；多 worker 并发写，内部用读写锁保护。
//
// 已知局限：判重假定链上更新只增加信息；上游乱序 / 回放时可能误抑一次
// 本应下发的更新。保持原样，下游按"至少最终一致"消费。
type Tracker struct {
	mu      sync.RWMutex
	records map[types.Pubkey]ProgressRecord
	store   ProgressStore // 可为 nil
}

func NewTracker(store ProgressStore) *Tracker {
	return &Tracker{
		records: make(map[types.Pubkey]ProgressRecord),
		store:   store,
	}
}

// ShouldEmit 判断这次的 {progress, complete} 是否需要下发。
// 变化（或首次出现）时更新缓存并返回 true；完全相同返回 false。
// 持久化后端故障只打日志，按"需要下发"处理，宁可重复不可丢失。
func (t *Tracker) ShouldEmit(ctx context.Context, curve types.Pubkey, progress float64, complete bool) bool {
	t.mu.RLock()
	last, ok := t.records[curve]
	t.mu.RUnlock()

	if !ok && t.store != nil {
		rec, found, err := t.store.Get(ctx, curve)
		if err != nil {
			logger.Warnf("[Curve:Tracker] 进度读取失败: curve=%s, err=%v", curve, err)
		} else if found {
			last, ok = rec, true
		}
	}

	if ok && last.Complete == complete && math.Abs(last.Progress-progress) < progressEpsilon {
		return false
	}

	rec := ProgressRecord{Progress: progress, Complete: complete}
	t.mu.Lock()
	t.records[curve] = rec
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Set(ctx, curve, rec); err != nil {
			logger.Warnf("[Curve:Tracker] 进度写入失败: curve=%s, err=%v", curve, err)
		}
	}
	return true
}

// Len 返回当前缓存的曲线数量
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
