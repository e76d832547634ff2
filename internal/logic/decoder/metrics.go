package decoder

import (
	"sort"
	"sync"
	"sync/atomic"

	"pump-indexer-sol/internal/types"
)

// counterKey 按策略名 + 归属程序分组
type counterKey struct {
	strategy string
	program  types.Pubkey
}

type counters struct {
	attempts  atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
}

// Metrics 记录每个策略的尝试 / 成功 / 失败次数。
// 多 worker 并发驱动解码时唯一的跨消息可变状态之一，计数全部走原子操作，
// map 本身用读写锁保护（新 key 只在首次出现时写入）。
type Metrics struct {
	mu sync.RWMutex
	m  map[counterKey]*counters
}

func NewMetrics() *Metrics {
	return &Metrics{m: make(map[counterKey]*counters)}
}

func (m *Metrics) get(strategy string, program types.Pubkey) *counters {
	key := counterKey{strategy: strategy, program: program}

	m.mu.RLock()
	c, ok := m.m[key]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.m[key]; ok {
		return c
	}
	c = &counters{}
	m.m[key] = c
	return c
}

func (m *Metrics) RecordAttempt(strategy string, program types.Pubkey) {
	m.get(strategy, program).attempts.Add(1)
}

func (m *Metrics) RecordSuccess(strategy string, program types.Pubkey) {
	m.get(strategy, program).successes.Add(1)
}

func (m *Metrics) RecordFailure(strategy string, program types.Pubkey) {
	m.get(strategy, program).failures.Add(1)
}

// StrategySnapshot 是某一 (策略, 程序) 分组的计数快照
type StrategySnapshot struct {
	Strategy  string
	Program   types.Pubkey
	Attempts  uint64
	Successes uint64
	Failures  uint64
}

// Snapshot 导出当前所有计数，按策略名排序，供日志或外部上报使用
func (m *Metrics) Snapshot() []StrategySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]StrategySnapshot, 0, len(m.m))
	for key, c := range m.m {
		result = append(result, StrategySnapshot{
			Strategy:  key.strategy,
			Program:   key.program,
			Attempts:  c.attempts.Load(),
			Successes: c.successes.Load(),
			Failures:  c.failures.Load(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Strategy != result[j].Strategy {
			return result[i].Strategy < result[j].Strategy
		}
		return result[i].Program.String() < result[j].Program.String()
	})
	return result
}

// Counts 返回指定分组的 (attempts, successes, failures)，测试与自检用
func (m *Metrics) Counts(strategy string, program types.Pubkey) (uint64, uint64, uint64) {
	c := m.get(strategy, program)
	return c.attempts.Load(), c.successes.Load(), c.failures.Load()
}
