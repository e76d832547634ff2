package decoder

import (
	"pump-indexer-sol/internal/logic/curve"
	"pump-indexer-sol/internal/logic/decoder/pumpamm"
	"pump-indexer-sol/internal/logic/decoder/pumpfun"
	"pump-indexer-sol/internal/logic/heuristic"
)

// NewDefaultDispatcher 按权威度装配默认策略链：
//
//	1. curve_account_state       账户数据自带 discriminator，最权威
//	2. pumpfun_event_log         程序自证的 Anchor 事件
//	3. pumpamm_swap              inner 转账交叉校验的 AMM 成交
//	4. pumpamm_liquidity         inner 转账交叉校验的流动性操作
//	5. pumpfun_inner_transfer    从转账还原的 Bonding Curve 成交
//	6. pumpfun_instruction_args  纯启发式估算，置信度最低，永远打底
//
// 策略只会追加在已有身位之后，调整顺序会改变同一消息的解码结果，需整体评估。
func NewDefaultDispatcher(curveDec *curve.Decoder, resolver *heuristic.Resolver, metrics *Metrics) *Dispatcher {
	if curveDec == nil {
		curveDec = curve.NewDecoder(curve.DefaultGraduationTargetSOL)
	}
	return NewDispatcher(metrics,
		curve.NewAccountStateStrategy(curveDec),
		pumpfun.NewEventLogStrategy(),
		pumpamm.NewSwapStrategy(),
		pumpamm.NewLiquidityStrategy(),
		pumpfun.NewInnerTransferStrategy(),
		pumpfun.NewInstructionArgsStrategy(resolver),
	)
}
