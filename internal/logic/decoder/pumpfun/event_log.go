package pumpfun

import (
	"encoding/binary"
	"fmt"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/logic/layout"
	"pump-indexer-sol/internal/types"
)

// PumpTradeEvent 是 Pump.fun 程序发出的 TradeEvent 的 borsh 布局。
// 协议升级会在尾部追加字段，注册表容忍并忽略多余字节。
type PumpTradeEvent struct {
	Mint                 types.Pubkey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                uint8 // 单字节 bool，非 0 视为 true
	User                 types.Pubkey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// EventLogStrategy 从 Anchor 事件中提取成交数据，是交易路径最权威的策略。
// 事件有两条载体：较新交易通过 self-CPI inner 指令携带
// （EventCPIPrefix + 事件 discriminator + borsh 负载），
// 旧格式则内嵌在 `Program data:` 日志行里，后者作为兜底。
type EventLogStrategy struct {
	registry *layout.Registry
}

func NewEventLogStrategy() *EventLogStrategy {
	return &EventLogStrategy{registry: newEventRegistry()}
}

func (s *EventLogStrategy) Name() string {
	return "pumpfun_event_log"
}

func (s *EventLogStrategy) Program() types.Pubkey {
	return consts.PumpFunProgram
}

func (s *EventLogStrategy) CanApply(ctx *core.NormalizedContext) bool {
	if ctx.Account != nil {
		return false
	}
	if _, ok := ctx.FirstInstructionByProgram(consts.PumpFunProgram); ok {
		return true
	}
	return len(ctx.LogMessages) > 0
}

func (s *EventLogStrategy) Decode(ctx *core.NormalizedContext) (*core.Event, error) {
	// 1. 收集候选事件负载：先扫 self-CPI inner 指令，再兜底扫日志
	for _, payload := range s.eventPayloads(ctx) {
		decoded, err := s.registry.Decode(payload)
		if err != nil {
			return nil, err
		}
		if decoded == nil {
			continue // CompleteEvent 等其它事件类型，跳过
		}

		// 2. 组装 Trade 事件
		event := decoded.Value.(*PumpTradeEvent)
		if event.Mint == consts.NativeSOLMint {
			return nil, fmt.Errorf("trade event carries native mint, user=%s", event.User)
		}
		return newTradeEvent(ctx, &core.TradeEvent{
			TradeType:            tradeTypeOf(event.IsBuy != 0),
			Mint:                 event.Mint,
			User:                 event.User,
			SolAmount:            event.SolAmount,
			TokenAmount:          event.TokenAmount,
			VirtualSolReserves:   event.VirtualSolReserves,
			VirtualTokenReserves: event.VirtualTokenReserves,
		}), nil
	}
	return nil, nil
}

// eventPayloads 返回本条消息内所有候选事件数据（已剥去 self-CPI 前缀，
// 首 8 字节为事件自身的 discriminator），按指令顺序排列
func (s *EventLogStrategy) eventPayloads(ctx *core.NormalizedContext) [][]byte {
	var payloads [][]byte
	for gi := range ctx.InnerGroups {
		group := &ctx.InnerGroups[gi]
		for ii := range group.Instructions {
			inner := &group.Instructions[ii]
			program, ok := ctx.AccountAt(inner.ProgramIndex)
			if !ok || program != consts.PumpFunProgram {
				continue
			}
			// self-CPI 事件指令: [0:8]=EventCPIPrefix, [8:16]=事件 discriminator, [16:]=borsh
			if len(inner.Data) < 16 || binary.BigEndian.Uint64(inner.Data[:8]) != EventCPIPrefix {
				continue
			}
			payloads = append(payloads, inner.Data[8:])
		}
	}
	if data, ok := ctx.ProgramDataFromLogs(); ok && len(data) >= 8 {
		payloads = append(payloads, data)
	}
	return payloads
}
