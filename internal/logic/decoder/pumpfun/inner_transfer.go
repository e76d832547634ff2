package pumpfun

import (
	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/logic/transfer"
	"pump-indexer-sol/internal/types"
)

// InnerTransferStrategy 在事件日志缺失时（RPC 截断、旧客户端编码差异），
// 从 buy / sell 主指令派生的 inner 转账中还原成交金额：
// token 腿取经过曲线金库的 SPL 转账，SOL 腿取金额最大的原生转账
// （同组内手续费、creator 分成等小额转账一并存在，主腿金额恒为最大）。
type InnerTransferStrategy struct{}

func NewInnerTransferStrategy() *InnerTransferStrategy {
	return &InnerTransferStrategy{}
}

func (s *InnerTransferStrategy) Name() string {
	return "pumpfun_inner_transfer"
}

func (s *InnerTransferStrategy) Program() types.Pubkey {
	return consts.PumpFunProgram
}

func (s *InnerTransferStrategy) CanApply(ctx *core.NormalizedContext) bool {
	if ctx.Account != nil {
		return false
	}
	swap, ok := findSwapInstruction(ctx)
	if !ok {
		return false
	}
	_, ok = ctx.InnerGroupByIxIndex(swap.ix.IxIndex)
	return ok
}

func (s *InnerTransferStrategy) Decode(ctx *core.NormalizedContext) (*core.Event, error) {
	swap, ok := findSwapInstruction(ctx)
	if !ok {
		return nil, nil
	}

	// 1. 提取本条主指令派生的全部转账
	transfers := transfer.ExtractForInstruction(ctx, swap.ix.IxIndex)
	if len(transfers) == 0 {
		return nil, nil
	}

	// 2. 拆腿：token 腿优先取经过曲线金库的 SPL 转账（主腿必经金库，
	// creator 分成等旁路转账不经过），SOL 腿取最大原生转账
	var tokenLeg, solLeg *transfer.TokenTransfer
	for i := range transfers {
		t := &transfers[i]
		if t.IsNative() {
			if solLeg == nil || t.Amount > solLeg.Amount {
				solLeg = t
			}
			continue
		}
		if t.Source == swap.curveVault || t.Destination == swap.curveVault {
			if tokenLeg == nil || !(tokenLeg.Source == swap.curveVault || tokenLeg.Destination == swap.curveVault) {
				tokenLeg = t
			}
		} else if tokenLeg == nil {
			tokenLeg = t
		}
	}
	// sell 路径 SOL 由程序直接调账，不产生原生转账指令，两腿不齐交给后续策略
	if tokenLeg == nil || solLeg == nil {
		return nil, nil
	}

	// 3. mint 以转账反查结果优先，反查失败回退指令账户布局
	mint := tokenLeg.Mint
	if mint == consts.InvalidAddress || mint == consts.NativeSOLMint {
		mint = swap.mint
	}
	if mint == consts.NativeSOLMint {
		return nil, nil
	}

	return newTradeEvent(ctx, &core.TradeEvent{
		TradeType:   tradeTypeOf(swap.isBuy),
		Mint:        mint,
		User:        swap.user,
		Pool:        swap.bondingCurve,
		SolAmount:   solLeg.Amount,
		TokenAmount: tokenLeg.Amount,
	}), nil
}
