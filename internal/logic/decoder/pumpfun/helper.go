package pumpfun

import (
	"encoding/binary"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/types"
)

// swapInstruction 是一条已定位的 Pump.fun buy / sell 主指令及其解析出的关键账户
type swapInstruction struct {
	ix           *core.TopInstruction
	isBuy        bool
	mint         types.Pubkey
	bondingCurve types.Pubkey
	curveVault   types.Pubkey // 曲线的 token 金库（ATA），token 腿必经账户
	user         types.Pubkey
}

// findSwapInstruction 定位第一条 Pump.fun buy / sell 主指令并解出关键账户。
// 指令结构不完整（账户 / 数据长度不足、账户下标越界）视为未命中。
func findSwapInstruction(ctx *core.NormalizedContext) (*swapInstruction, bool) {
	ix, ok := ctx.FirstInstructionByProgram(consts.PumpFunProgram)
	if !ok || len(ix.Data) < minSwapDataLen || len(ix.AccountIndices) < minSwapAccounts {
		return nil, false
	}

	var isBuy bool
	switch binary.BigEndian.Uint64(ix.Data[:8]) {
	case Buy:
		isBuy = true
	case Sell:
		isBuy = false
	default:
		return nil, false
	}

	mint, ok1 := ctx.AccountAt(ix.AccountIndices[ixAccountMint])
	curve, ok2 := ctx.AccountAt(ix.AccountIndices[ixAccountBondingCurve])
	vault, ok3 := ctx.AccountAt(ix.AccountIndices[ixAccountCurveVault])
	user, ok4 := ctx.AccountAt(ix.AccountIndices[ixAccountUser])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}

	return &swapInstruction{
		ix:           ix,
		isBuy:        isBuy,
		mint:         mint,
		bondingCurve: curve,
		curveVault:   vault,
		user:         user,
	}, true
}

func tradeTypeOf(isBuy bool) core.TradeType {
	if isBuy {
		return core.TradeBuy
	}
	return core.TradeSell
}

// newTradeEvent 组装统一的 Trade 事件壳，金额由调用方填充
func newTradeEvent(ctx *core.NormalizedContext, trade *core.TradeEvent) *core.Event {
	trade.Venue = consts.VenuePumpfun
	return &core.Event{
		Kind:      core.EventKindTrade,
		Signature: ctx.Signature,
		Slot:      ctx.Slot,
		BlockTime: ctx.BlockTime,
		Trade:     trade,
	}
}
