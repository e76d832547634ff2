package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
)

func newAccountContext(lamports uint64, data []byte) *core.NormalizedContext {
	return &core.NormalizedContext{
		Slot: 123,
		Account: &core.AccountSnapshot{
			Address:  testCurveAddr,
			Owner:    consts.PumpFunProgram,
			Lamports: lamports,
			Data:     data,
		},
	}
}

func TestAccountStateStrategy_Decode(t *testing.T) {
	s := NewAccountStateStrategy(NewDecoder(84))

	data := buildCurveAccountData(10, 20, 30, 40, 50, 0, testCreator)
	ctx := newAccountContext(42*consts.LamportsPerSOL, data)
	require.True(t, s.CanApply(ctx))

	event, err := s.Decode(ctx)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, core.EventKindAccountState, event.Kind)

	state := event.AccountState
	assert.Equal(t, testCurveAddr, state.BondingCurve)
	assert.Equal(t, testCreator, state.Creator)
	assert.Equal(t, uint64(20), state.VirtualSolReserves)
	assert.Equal(t, uint64(10), state.VirtualTokenReserves)
	assert.InDelta(t, 50.0, state.Progress, 1e-9)
	assert.False(t, state.Complete)
}

// 非交易消息 / 非本程序账户不进入该策略
func TestAccountStateStrategy_CanApply(t *testing.T) {
	s := NewAccountStateStrategy(NewDecoder(0))

	assert.False(t, s.CanApply(&core.NormalizedContext{}), "无账户快照")

	short := newAccountContext(0, []byte{1, 2, 3})
	assert.False(t, s.CanApply(short), "数据不足 8 字节")

	other := newAccountContext(0, buildCurveAccountData(1, 2, 3, 4, 5, 0, testCreator))
	other.Account.Owner = consts.TokenProgram
	assert.False(t, s.CanApply(other), "owner 不是 Pump.fun 程序")
}

// discriminator 未命中时返回 (nil, nil)，交给后续策略
func TestAccountStateStrategy_PassThrough(t *testing.T) {
	s := NewAccountStateStrategy(NewDecoder(0))

	data := buildCurveAccountData(1, 2, 3, 4, 5, 0, testCreator)
	data[3] ^= 0x10
	event, err := s.Decode(newAccountContext(0, data))
	assert.NoError(t, err)
	assert.Nil(t, event)
}
