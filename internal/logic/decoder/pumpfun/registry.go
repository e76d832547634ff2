// Package pumpfun 实现 Pump.fun Bonding Curve 程序的交易解码策略。
// 同一笔交易按数据来源可信度提供三套互补策略：
// Anchor 事件日志（权威）→ inner 转账还原（次级）→ 指令参数启发式估算（兜底）。
package pumpfun

import (
	"pump-indexer-sol/internal/logic/layout"
)

// Pump.fun 指令 discriminator（Anchor 规则: sha256("global:<name>")[:8]，大端书写）
const (
	Create  uint64 = 0x181ec828051c0777
	Buy     uint64 = 0x66063d1201daebea
	Sell    uint64 = 0x33e685a4017f83ad
	Migrate uint64 = 0x9beae792ec9ea21e
)

// Anchor 事件相关 discriminator
const (
	// EventCPIPrefix 是 Anchor self-CPI 事件指令的 8 字节前缀（sha256("anchor:event")[:8]），
	// 其后紧跟事件自身的 discriminator 与 borsh 负载
	EventCPIPrefix uint64 = 0xe445a52e51cb9a1d

	TradeEvent    uint64 = 0xbddb7fd34ee661ee
	CompleteEvent uint64 = 0x5f72619cd42e9808
)

// Pump.fun buy / sell 指令账户布局：
//
// #0  - Global 配置账户（不可变）
// #1  - 手续费账户
// #2  - 被交易代币的 Mint
// #3  - Bonding Curve 主账户（池子地址）
// #4  - Bonding Curve Vault（池子 TokenAccount）
// #5  - 用户 Associated Token Account
// #6  - 用户主账户（用户钱包）
// #7  - System Program
// #8  - Token Program
// #9  - Creator Vault
// #10 - Event Authority
// #11 - Pump.fun 程序账户
const (
	ixAccountMint         = 2
	ixAccountBondingCurve = 3
	ixAccountCurveVault   = 4
	ixAccountUser         = 6
	minSwapAccounts       = 12
)

// buy / sell 指令数据布局: [0:8]=discriminator, [8:16]=token 数量, [16:24]=SOL 边界
// （buy 为 maxSolCost 上界，sell 为 minSolOutput 下界）
const minSwapDataLen = 24

// newEventRegistry 构造 Anchor 事件布局注册表，进程内只构造一次
func newEventRegistry() *layout.Registry {
	r := layout.NewRegistry()
	r.MustRegister("trade_event", layout.DiscriminatorFromUint64(TradeEvent), func() interface{} {
		return &PumpTradeEvent{}
	})
	return r
}
