// Package pumpamm 实现 Pump.fun AMM（毕业池）程序的交易与流动性解码策略。
// 合约未开源，账户布局与金额均以 inner 转账交叉校验为准。
package pumpamm

// Pump.fun AMM 指令 discriminator（Anchor 规则: sha256("global:<name>")[:8]，大端书写）
const (
	Buy  uint64 = 0x66063d1201daebea
	Sell uint64 = 0x33e685a4017f83ad

	Deposit               uint64 = 0xf223c68952e1f2b6
	Withdraw              uint64 = 0xb712469c946da122
	CollectCoinCreatorFee uint64 = 0xa039592ab58b2b42
)

// Pump.fun AMM swap 指令账户布局：
//
// #0 - Pool
// #1 - User
// #2 - Global Config
// #3 - Base Mint
// #4 - Quote Mint
// #5 - User Base Token Account
// #6 - User Quote Token Account
// #7 - Pool Base Token Account
// #8 - Pool Quote Token Account
const (
	swapAccountPool      = 0
	swapAccountUser      = 1
	swapAccountBaseMint  = 3
	swapAccountQuoteMint = 4
	swapAccountUserBase  = 5
	swapAccountUserQuote = 6
	swapAccountPoolBase  = 7
	swapAccountPoolQuote = 8
	minSwapAccounts      = 9
)

// Pump.fun AMM 添加 / 移除流动性指令账户布局：
//
// #0  - Pool
// #1  - Global Config
// #2  - User
// #3  - Base Mint
// #4  - Quote Mint
// #5  - LP Mint
// #6  - User Base Token Account
// #7  - User Quote Token Account
// #8  - User Pool Token Account
// #9  - Pool Base Token Account
// #10 - Pool Quote Token Account
const (
	liqAccountPool      = 0
	liqAccountUser      = 2
	liqAccountBaseMint  = 3
	liqAccountQuoteMint = 4
	minLiqAccounts      = 11
)

// collect_coin_creator_fee 指令账户数（0=Quote Mint，creator 及其分账账户在后）
const minFeeAccounts = 2
