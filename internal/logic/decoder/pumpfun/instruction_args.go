package pumpfun

import (
	"encoding/binary"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/logic/heuristic"
	"pump-indexer-sol/internal/pkg/logger"
	"pump-indexer-sol/internal/types"
)

// InstructionArgsStrategy 是最后兜底的启发式策略：事件日志与 inner 转账都拿不到时，
// 直接读 buy / sell 指令参数。token 数量是准确的；SOL 侧只有滑点边界
// （buy 的 maxSolCost / sell 的 minSolOutput），交由 heuristic.Resolver 估算实际金额。
// 产出的 SolAmount 置信度低，必须注册在所有权威策略之后。
type InstructionArgsStrategy struct {
	resolver *heuristic.Resolver
}

func NewInstructionArgsStrategy(resolver *heuristic.Resolver) *InstructionArgsStrategy {
	if resolver == nil {
		resolver = heuristic.NewResolver(heuristic.DefaultScalingPolicy())
	}
	return &InstructionArgsStrategy{resolver: resolver}
}

func (s *InstructionArgsStrategy) Name() string {
	return "pumpfun_instruction_args"
}

func (s *InstructionArgsStrategy) Program() types.Pubkey {
	return consts.PumpFunProgram
}

func (s *InstructionArgsStrategy) CanApply(ctx *core.NormalizedContext) bool {
	if ctx.Account != nil {
		return false
	}
	_, ok := findSwapInstruction(ctx)
	return ok
}

func (s *InstructionArgsStrategy) Decode(ctx *core.NormalizedContext) (*core.Event, error) {
	swap, ok := findSwapInstruction(ctx)
	if !ok {
		return nil, nil
	}
	if swap.mint == consts.NativeSOLMint {
		return nil, nil
	}

	tokenAmount := binary.LittleEndian.Uint64(swap.ix.Data[8:16])
	solBound := binary.LittleEndian.Uint64(swap.ix.Data[16:24])
	solAmount, rescaled := s.resolver.Resolve(solBound)
	if rescaled {
		logger.Debugf("[Pumpfun:Args] SOL 边界触发缩放: bound=%d, resolved=%d, tx=%s",
			solBound, solAmount, ctx.Signature)
	}

	return newTradeEvent(ctx, &core.TradeEvent{
		TradeType:   tradeTypeOf(swap.isBuy),
		Mint:        swap.mint,
		User:        swap.user,
		Pool:        swap.bondingCurve,
		SolAmount:   solAmount,
		TokenAmount: tokenAmount,
	}), nil
}
