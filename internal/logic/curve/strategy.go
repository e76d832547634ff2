package curve

import (
	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/types"
)

// AccountStateStrategy 把账户更新消息解码为 AccountState 事件。
// 账户数据自带 discriminator，是最权威的数据来源，因此在调度器中排最前。
type AccountStateStrategy struct {
	dec *Decoder
}

func NewAccountStateStrategy(dec *Decoder) *AccountStateStrategy {
	return &AccountStateStrategy{dec: dec}
}

func (s *AccountStateStrategy) Name() string {
	return "curve_account_state"
}

func (s *AccountStateStrategy) Program() types.Pubkey {
	return consts.PumpFunProgram
}

// CanApply 要求消息携带账户快照，且 owner 未知或确属 Pump.fun 程序
func (s *AccountStateStrategy) CanApply(ctx *core.NormalizedContext) bool {
	if ctx.Account == nil || len(ctx.Account.Data) < 8 {
		return false
	}
	owner := ctx.Account.Owner
	return owner.IsZero() || owner == consts.PumpFunProgram
}

// Decode 解码账户快照。进度总是基于本次输入的余额重新计算，
// Complete 只取结构体里的标志位，绝不从进度倒推。
func (s *AccountStateStrategy) Decode(ctx *core.NormalizedContext) (*core.Event, error) {
	account, err := s.dec.DecodeAccount(ctx.Account.Data)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil // 不是 Bonding Curve 账户，交给后续策略
	}

	return &core.Event{
		Kind:      core.EventKindAccountState,
		Slot:      ctx.Slot,
		BlockTime: ctx.BlockTime,
		AccountState: &core.AccountStateEvent{
			BondingCurve:         ctx.Account.Address,
			Creator:              account.Creator,
			VirtualSolReserves:   account.VirtualSolReserves,
			VirtualTokenReserves: account.VirtualTokenReserves,
			RealSolReserves:      account.RealSolReserves,
			RealTokenReserves:    account.RealTokenReserves,
			TokenTotalSupply:     account.TokenTotalSupply,
			Complete:             account.Complete,
			Progress:             s.dec.Progress(ctx.Account.Lamports),
		},
	}, nil
}
