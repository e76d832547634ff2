package pumpamm

import (
	"encoding/binary"
	"fmt"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/logic/transfer"
	"pump-indexer-sol/internal/tools"
	"pump-indexer-sol/internal/types"
)

// SwapStrategy 解码 Pump.fun AMM 的 buy / sell。
// 金额不取指令参数（参数只是滑点边界），而是从 inner 转账中
// 配对出 用户→池子 与 池子→用户 两腿，以实际到账为准。
type SwapStrategy struct{}

func NewSwapStrategy() *SwapStrategy {
	return &SwapStrategy{}
}

func (s *SwapStrategy) Name() string {
	return "pumpamm_swap"
}

func (s *SwapStrategy) Program() types.Pubkey {
	return consts.PumpFunAMMProgram
}

func (s *SwapStrategy) CanApply(ctx *core.NormalizedContext) bool {
	if ctx.Account != nil {
		return false
	}
	ix, ok := swapInstruction(ctx)
	if !ok {
		return false
	}
	_, ok = ctx.InnerGroupByIxIndex(ix.IxIndex)
	return ok
}

func (s *SwapStrategy) Decode(ctx *core.NormalizedContext) (*core.Event, error) {
	ix, ok := swapInstruction(ctx)
	if !ok {
		return nil, nil
	}

	pool, ok1 := ctx.AccountAt(ix.AccountIndices[swapAccountPool])
	user, ok2 := ctx.AccountAt(ix.AccountIndices[swapAccountUser])
	baseMint, ok3 := ctx.AccountAt(ix.AccountIndices[swapAccountBaseMint])
	quoteMint, ok4 := ctx.AccountAt(ix.AccountIndices[swapAccountQuoteMint])
	userBase, ok5 := ctx.AccountAt(ix.AccountIndices[swapAccountUserBase])
	userQuote, ok6 := ctx.AccountAt(ix.AccountIndices[swapAccountUserQuote])
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, nil
	}

	// 1. 从 inner 转账配对两腿：source 属于用户 token 账户的为 用户→池子，反之为 池子→用户
	var userToPool, poolToUser *transfer.TokenTransfer
	transfers := transfer.ExtractForInstruction(ctx, ix.IxIndex)
	for i := range transfers {
		t := &transfers[i]
		if t.IsNative() {
			continue
		}
		switch {
		case t.Source == userBase || t.Source == userQuote:
			if userToPool == nil {
				userToPool = t
			}
		case t.Destination == userBase || t.Destination == userQuote:
			if poolToUser == nil {
				poolToUser = t
			}
		}
	}
	if userToPool == nil || poolToUser == nil {
		return nil, nil
	}

	// 2. 合约未开源，严格校验两腿 mint 与指令账户声明一致
	if !(userToPool.Mint == baseMint && poolToUser.Mint == quoteMint ||
		userToPool.Mint == quoteMint && poolToUser.Mint == baseMint) {
		return nil, fmt.Errorf("swap mint mismatch: userToPool=%s, poolToUser=%s, base=%s, quote=%s",
			userToPool.Mint, poolToUser.Mint, baseMint, quoteMint)
	}

	// 3. 优先用内置优先级选 quote（WSOL > USDC > USDT），选不出回退池子声明
	quote, ok := tools.ChooseQuote(userToPool.Mint, poolToUser.Mint)
	if !ok {
		quote = quoteMint
	}

	// 4. 方向判定：用户付出 quote 即买入 base
	var tradeType core.TradeType
	var solAmount, tokenAmount uint64
	var mint types.Pubkey
	if userToPool.Mint == quote {
		tradeType = core.TradeBuy
		mint = poolToUser.Mint
		solAmount = userToPool.Amount
		tokenAmount = poolToUser.Amount
	} else {
		tradeType = core.TradeSell
		mint = userToPool.Mint
		solAmount = poolToUser.Amount
		tokenAmount = userToPool.Amount
	}
	if mint == consts.NativeSOLMint || mint == consts.InvalidAddress {
		return nil, nil
	}

	return &core.Event{
		Kind:      core.EventKindTrade,
		Signature: ctx.Signature,
		Slot:      ctx.Slot,
		BlockTime: ctx.BlockTime,
		Trade: &core.TradeEvent{
			Venue:       consts.VenuePumpfunAMM,
			TradeType:   tradeType,
			Mint:        mint,
			User:        user,
			Pool:        pool,
			SolAmount:   solAmount,
			TokenAmount: tokenAmount,
		},
	}, nil
}

// swapInstruction 定位第一条 Pump.fun AMM buy / sell 主指令
func swapInstruction(ctx *core.NormalizedContext) (*core.TopInstruction, bool) {
	ix, ok := ctx.FirstInstructionByProgram(consts.PumpFunAMMProgram)
	if !ok || len(ix.Data) < 8 || len(ix.AccountIndices) < minSwapAccounts {
		return nil, false
	}
	switch binary.BigEndian.Uint64(ix.Data[:8]) {
	case Buy, Sell:
		return ix, true
	}
	return nil, false
}
