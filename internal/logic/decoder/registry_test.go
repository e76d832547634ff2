package decoder

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/logic/decoder/pumpfun"
	"pump-indexer-sol/internal/types"
)

var (
	testMint = mustPubkey(1)
	testUser = mustPubkey(2)
)

func mustPubkey(seed byte) types.Pubkey {
	var p types.Pubkey
	p[0] = seed
	p[31] = seed
	return p
}

// buildTradeEventLog 编一行 Pump.fun TradeEvent 日志（Program data: + base64）
func buildTradeEventLog(mint, user types.Pubkey, sol, token uint64, isBuy bool) string {
	payload := make([]byte, 8, 8+32+8+8+1+32+8+8+8)
	binary.BigEndian.PutUint64(payload[:8], pumpfun.TradeEvent)
	payload = append(payload, mint[:]...)
	payload = binary.LittleEndian.AppendUint64(payload, sol)
	payload = binary.LittleEndian.AppendUint64(payload, token)
	if isBuy {
		payload = append(payload, 1)
	} else {
		payload = append(payload, 0)
	}
	payload = append(payload, user[:]...)
	payload = binary.LittleEndian.AppendUint64(payload, 1_722_000_000)         // timestamp
	payload = binary.LittleEndian.AppendUint64(payload, 31_000_000_000)        // virtual sol
	payload = binary.LittleEndian.AppendUint64(payload, 1_050_000_000_000_000) // virtual token
	return "Program data: " + base64.StdEncoding.EncodeToString(payload)
}

// 事件日志式的买入消息走完整默认链：1 SOL 买入 10 亿最小单位 token
func TestDefaultDispatcher_EventLogBuy(t *testing.T) {
	d := NewDefaultDispatcher(nil, nil, nil)

	ctx := &core.NormalizedContext{
		Signature: "scenario-buy",
		Slot:      100,
		LogMessages: []string{
			"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
			buildTradeEventLog(testMint, testUser, 1_000_000_000, 1_000_000_000, true),
			"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P success",
		},
	}

	event := d.Decode(ctx)
	require.NotNil(t, event)
	require.Equal(t, core.EventKindTrade, event.Kind)

	trade := event.Trade
	assert.Equal(t, core.TradeBuy, trade.TradeType)
	assert.Equal(t, testMint, trade.Mint)
	assert.Equal(t, testUser, trade.User)
	assert.Equal(t, uint64(1_000_000_000), trade.SolAmount)
	assert.Equal(t, uint64(1_000_000_000), trade.TokenAmount)
	assert.Equal(t, consts.VenuePumpfun, trade.Venue)
	assert.Equal(t, uint64(31_000_000_000), trade.VirtualSolReserves)

	// 确认生效的是事件日志策略，且启发式策略从未被尝试
	attempts, successes, _ := d.Metrics().Counts("pumpfun_event_log", consts.PumpFunProgram)
	assert.Equal(t, uint64(1), attempts)
	assert.Equal(t, uint64(1), successes)
	attempts, _, _ = d.Metrics().Counts("pumpfun_instruction_args", consts.PumpFunProgram)
	assert.Zero(t, attempts)
}

// 卖出方向同样从事件标志位还原
func TestDefaultDispatcher_EventLogSell(t *testing.T) {
	d := NewDefaultDispatcher(nil, nil, nil)

	ctx := &core.NormalizedContext{
		Signature:   "scenario-sell",
		LogMessages: []string{buildTradeEventLog(testMint, testUser, 5_000_000, 123_456, false)},
	}

	event := d.Decode(ctx)
	require.NotNil(t, event)
	assert.Equal(t, core.TradeSell, event.Trade.TradeType)
	assert.Equal(t, uint64(5_000_000), event.Trade.SolAmount)
}

// 完全无关的消息：所有策略未命中，无事件且不报错
func TestDefaultDispatcher_NoEvent(t *testing.T) {
	d := NewDefaultDispatcher(nil, nil, nil)

	assert.Nil(t, d.Decode(&core.NormalizedContext{Signature: "unrelated"}))
	assert.Nil(t, d.Decode(&core.NormalizedContext{
		LogMessages: []string{"Program data: bm90LWFuLWV2ZW50"}, // 合法 base64，非事件
	}))
}
