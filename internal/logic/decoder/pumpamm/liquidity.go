package pumpamm

import (
	"encoding/binary"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/logic/transfer"
	"pump-indexer-sol/internal/tools"
	"pump-indexer-sol/internal/types"
)

// LiquidityStrategy 解码 Pump.fun AMM 的 deposit / withdraw / collect_coin_creator_fee。
// 与 swap 相同，金额取自 inner 转账而非指令参数。
type LiquidityStrategy struct{}

func NewLiquidityStrategy() *LiquidityStrategy {
	return &LiquidityStrategy{}
}

func (s *LiquidityStrategy) Name() string {
	return "pumpamm_liquidity"
}

func (s *LiquidityStrategy) Program() types.Pubkey {
	return consts.PumpFunAMMProgram
}

func (s *LiquidityStrategy) CanApply(ctx *core.NormalizedContext) bool {
	if ctx.Account != nil {
		return false
	}
	_, _, ok := liquidityInstruction(ctx)
	return ok
}

func (s *LiquidityStrategy) Decode(ctx *core.NormalizedContext) (*core.Event, error) {
	ix, kind, ok := liquidityInstruction(ctx)
	if !ok {
		return nil, nil
	}
	if kind == core.LiquidityFeeCollect {
		return s.decodeFeeCollect(ctx, ix)
	}

	pool, ok1 := ctx.AccountAt(ix.AccountIndices[liqAccountPool])
	user, ok2 := ctx.AccountAt(ix.AccountIndices[liqAccountUser])
	baseMint, ok3 := ctx.AccountAt(ix.AccountIndices[liqAccountBaseMint])
	quoteMint, ok4 := ctx.AccountAt(ix.AccountIndices[liqAccountQuoteMint])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, nil
	}

	// base / quote 两腿金额按转账 mint 归集（同 mint 多笔时取首笔，LP mint 最后铸造不会混入）
	var baseAmount, quoteAmount uint64
	transfers := transfer.ExtractForInstruction(ctx, ix.IxIndex)
	for i := range transfers {
		t := &transfers[i]
		switch t.Mint {
		case baseMint:
			if baseAmount == 0 {
				baseAmount = t.Amount
			}
		case quoteMint:
			if quoteAmount == 0 {
				quoteAmount = t.Amount
			}
		}
	}
	if baseAmount == 0 && quoteAmount == 0 {
		return nil, nil
	}

	return &core.Event{
		Kind:      core.EventKindLiquidity,
		Signature: ctx.Signature,
		Slot:      ctx.Slot,
		BlockTime: ctx.BlockTime,
		Liquidity: &core.LiquidityEvent{
			Kind:        kind,
			Pool:        pool,
			Mint:        baseMint,
			User:        user,
			SolAmount:   quoteAmount,
			TokenAmount: baseAmount,
		},
	}, nil
}

// decodeFeeCollect 解码 creator 手续费提取。指令只声明 quote mint，
// 金额取 inner 转账中 quote 腿的合计（可能分账给多个接收方）。
func (s *LiquidityStrategy) decodeFeeCollect(ctx *core.NormalizedContext, ix *core.TopInstruction) (*core.Event, error) {
	quoteMint, ok := ctx.AccountAt(ix.AccountIndices[0])
	if !ok || !tools.IsQuote(quoteMint) {
		return nil, nil
	}

	var amount uint64
	transfers := transfer.ExtractForInstruction(ctx, ix.IxIndex)
	for i := range transfers {
		if transfers[i].Mint == quoteMint {
			amount += transfers[i].Amount
		}
	}
	if amount == 0 {
		return nil, nil
	}

	return &core.Event{
		Kind:      core.EventKindLiquidity,
		Signature: ctx.Signature,
		Slot:      ctx.Slot,
		BlockTime: ctx.BlockTime,
		Liquidity: &core.LiquidityEvent{
			Kind:      core.LiquidityFeeCollect,
			Mint:      quoteMint,
			SolAmount: amount,
		},
	}, nil
}

// liquidityInstruction 定位第一条流动性相关主指令并给出事件类别
func liquidityInstruction(ctx *core.NormalizedContext) (*core.TopInstruction, core.LiquidityKind, bool) {
	ix, ok := ctx.FirstInstructionByProgram(consts.PumpFunAMMProgram)
	if !ok || len(ix.Data) < 8 {
		return nil, 0, false
	}
	switch binary.BigEndian.Uint64(ix.Data[:8]) {
	case Deposit:
		if len(ix.AccountIndices) >= minLiqAccounts {
			return ix, core.LiquidityAdd, true
		}
	case Withdraw:
		if len(ix.AccountIndices) >= minLiqAccounts {
			return ix, core.LiquidityRemove, true
		}
	case CollectCoinCreatorFee:
		if len(ix.AccountIndices) >= minFeeAccounts {
			return ix, core.LiquidityFeeCollect, true
		}
	}
	return nil, 0, false
}
