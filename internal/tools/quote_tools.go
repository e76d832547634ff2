package tools

import (
	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/types"
)

const (
	WSOLDecimals = 9
	USDCDecimals = 6
	USDTDecimals = 6
)

// QuoteDecimals 内置报价币精度表
var QuoteDecimals = map[types.Pubkey]uint8{
	consts.WSOLMint: WSOLDecimals,
	consts.USDCMint: USDCDecimals,
	consts.USDTMint: USDTDecimals,
}

// QuotePriority 定义系统内置 quote token 的优先级（数值越小优先级越高）。
// Pump.fun AMM 池子绝大多数以 WSOL 计价，USDC / USDT 为少数长尾池兜底。
var QuotePriority = map[types.Pubkey]int{
	consts.WSOLMint: 1,
	consts.USDCMint: 2,
	consts.USDTMint: 3,
}

// ChooseQuote 在交易对双边中选出报价币（右对）。
// 返回 false 表示双方都不是内置 quote，调用方需回退池子声明的默认 quote。
func ChooseQuote(a, b types.Pubkey) (quote types.Pubkey, ok bool) {
	pa, oka := QuotePriority[a]
	pb, okb := QuotePriority[b]

	switch {
	case oka && okb:
		if pa < pb {
			return a, true
		}
		if pb < pa {
			return b, true
		}
	case oka:
		return a, true
	case okb:
		return b, true
	}

	return types.Pubkey{}, false
}

// IsQuote 判断某 mint 是否为内置报价币
func IsQuote(mint types.Pubkey) bool {
	_, ok := QuotePriority[mint]
	return ok
}
