package curve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pump-indexer-sol/internal/types"
)

type fakeStore struct {
	records map[types.Pubkey]ProgressRecord
	getErr  error
	setErr  error
	sets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[types.Pubkey]ProgressRecord)}
}

func (s *fakeStore) Get(_ context.Context, curve types.Pubkey) (ProgressRecord, bool, error) {
	if s.getErr != nil {
		return ProgressRecord{}, false, s.getErr
	}
	rec, ok := s.records[curve]
	return rec, ok, nil
}

func (s *fakeStore) Set(_ context.Context, curve types.Pubkey, rec ProgressRecord) error {
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.records[curve] = rec
	return nil
}

var testCurveAddr = types.PubkeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

// 相同 {progress, complete} 去重，任一变化放行
func TestShouldEmit_Dedup(t *testing.T) {
	tracker := NewTracker(nil)
	ctx := context.Background()

	assert.True(t, tracker.ShouldEmit(ctx, testCurveAddr, 10.5, false), "首次必须放行")
	assert.False(t, tracker.ShouldEmit(ctx, testCurveAddr, 10.5, false), "未变化必须拦截")
	assert.True(t, tracker.ShouldEmit(ctx, testCurveAddr, 11.0, false), "进度变化放行")
	assert.True(t, tracker.ShouldEmit(ctx, testCurveAddr, 11.0, true), "complete 变化放行")
	assert.False(t, tracker.ShouldEmit(ctx, testCurveAddr, 11.0, true))
	assert.Equal(t, 1, tracker.Len())
}

// 内存未命中时回查外部存储（进程重启后的续点场景）
func TestShouldEmit_StoreFallback(t *testing.T) {
	store := newFakeStore()
	store.records[testCurveAddr] = ProgressRecord{Progress: 50.0, Complete: false}

	tracker := NewTracker(store)
	ctx := context.Background()

	assert.False(t, tracker.ShouldEmit(ctx, testCurveAddr, 50.0, false), "外部存储命中相同值必须拦截")
	assert.True(t, tracker.ShouldEmit(ctx, testCurveAddr, 60.0, false))
	assert.Equal(t, 60.0, store.records[testCurveAddr].Progress, "放行后回写外部存储")
}

// 存储故障只降级不拦截：宁可重复下发也不丢失
func TestShouldEmit_StoreErrorDegrades(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")

	tracker := NewTracker(store)
	ctx := context.Background()

	assert.True(t, tracker.ShouldEmit(ctx, testCurveAddr, 5.0, false))
	assert.False(t, tracker.ShouldEmit(ctx, testCurveAddr, 5.0, false), "内存去重不受存储故障影响")
}
