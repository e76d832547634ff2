package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
)

func TestEncodeDecodeEvent(t *testing.T) {
	event := &core.Event{
		Kind:      core.EventKindTrade,
		Signature: "sig",
		Slot:      100,
		BlockTime: 1700000000,
		Trade: &core.TradeEvent{
			Venue:       consts.VenuePumpfun,
			TradeType:   core.TradeBuy,
			Mint:        consts.WSOLMint,
			SolAmount:   1_000_000_000,
			TokenAmount: 5_000_000,
		},
	}

	data, err := EncodeEvent(event)
	require.NoError(t, err)
	require.Greater(t, len(data), 4)

	// 前 4 字节为小端序事件类别，下游可不解包体直接路由
	assert.Equal(t, []byte{1, 0, 0, 0}, data[:4])

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	// 长度不足
	_, err := DecodeEvent([]byte{1, 0})
	assert.Error(t, err)

	// 前缀与包体类别不一致
	data, err := EncodeEvent(&core.Event{Kind: core.EventKindLiquidity, Liquidity: &core.LiquidityEvent{Kind: core.LiquidityAdd}})
	require.NoError(t, err)
	data[0] = byte(core.EventKindTrade)
	_, err = DecodeEvent(data)
	assert.Error(t, err)
}

func TestPartitionHashBytes(t *testing.T) {
	key := consts.WSOLMint

	// 同一 key 稳定映射
	p1 := PartitionHashBytes(key[:], 8)
	p2 := PartitionHashBytes(key[:], 8)
	assert.Equal(t, p1, p2)
	assert.Less(t, p1, uint32(8))

	// 短输入与零分区数回退 0
	assert.Equal(t, uint32(0), PartitionHashBytes(key[:16], 8))
	assert.Equal(t, uint32(0), PartitionHashBytes(key[:], 0))
}
