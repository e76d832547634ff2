package core

import "pump-indexer-sol/internal/types"

// EventKind 枚举型，表示事件类别
type EventKind uint32

const (
	EventKindTrade        EventKind = 1
	EventKindLiquidity    EventKind = 2
	EventKindAccountState EventKind = 3
)

// TradeType 交易方向
type TradeType uint8

const (
	TradeBuy TradeType = iota + 1
	TradeSell
)

func (t TradeType) String() string {
	switch t {
	case TradeBuy:
		return "buy"
	case TradeSell:
		return "sell"
	default:
		return "unknown"
	}
}

// LiquidityKind 流动性操作类别
type LiquidityKind uint8

const (
	LiquidityAdd LiquidityKind = iota + 1
	LiquidityRemove
	LiquidityFeeCollect
)

func (k LiquidityKind) String() string {
	switch k {
	case LiquidityAdd:
		return "add"
	case LiquidityRemove:
		return "remove"
	case LiquidityFeeCollect:
		return "fee_collect"
	default:
		return "unknown"
	}
}

// TradeEvent 表示一笔已确认的买入 / 卖出。
// Pool、VirtualSolReserves、VirtualTokenReserves 为可选字段，零值表示未知。
type TradeEvent struct {
	Venue                int          `json:"venue"`
	TradeType            TradeType    `json:"trade_type"`
	Mint                 types.Pubkey `json:"mint"`
	User                 types.Pubkey `json:"user"`
	Pool                 types.Pubkey `json:"pool,omitempty"`
	SolAmount            uint64       `json:"sol_amount"`
	TokenAmount          uint64       `json:"token_amount"`
	VirtualSolReserves   uint64       `json:"virtual_sol_reserves,omitempty"`
	VirtualTokenReserves uint64       `json:"virtual_token_reserves,omitempty"`
}

// LiquidityEvent 表示一次流动性增删或手续费提取
type LiquidityEvent struct {
	Kind        LiquidityKind `json:"kind"`
	Pool        types.Pubkey  `json:"pool"`
	Mint        types.Pubkey  `json:"mint"`
	User        types.Pubkey  `json:"user,omitempty"`
	SolAmount   uint64        `json:"sol_amount"`
	TokenAmount uint64        `json:"token_amount"`
}

// AccountStateEvent 表示 Bonding Curve 账户的最新状态快照
type AccountStateEvent struct {
	BondingCurve         types.Pubkey `json:"bonding_curve"`
	Mint                 types.Pubkey `json:"mint,omitempty"`
	Creator              types.Pubkey `json:"creator,omitempty"`
	VirtualSolReserves   uint64       `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64       `json:"virtual_token_reserves"`
	RealSolReserves      uint64       `json:"real_sol_reserves"`
	RealTokenReserves    uint64       `json:"real_token_reserves"`
	TokenTotalSupply     uint64       `json:"token_total_supply"`
	Complete             bool         `json:"complete"`
	Progress             float64      `json:"progress"` // 毕业进度，始终在 [0,100]
}

// Event 是解码输出的统一载体（tagged union）。
// Kind 决定哪一个变体字段非 nil，其余保持 nil。
type Event struct {
	Kind      EventKind `json:"kind"`
	Signature string    `json:"signature,omitempty"`
	Slot      uint64    `json:"slot"`
	BlockTime int64     `json:"block_time,omitempty"`

	Trade        *TradeEvent        `json:"trade,omitempty"`
	Liquidity    *LiquidityEvent    `json:"liquidity,omitempty"`
	AccountState *AccountStateEvent `json:"account_state,omitempty"`
}

// PartitionKey 返回事件的分区 key（mint 或池子地址），用于下游消息队列分区
func (e *Event) PartitionKey() []byte {
	switch e.Kind {
	case EventKindTrade:
		if e.Trade != nil {
			return e.Trade.Mint[:]
		}
	case EventKindLiquidity:
		if e.Liquidity != nil {
			return e.Liquidity.Pool[:]
		}
	case EventKindAccountState:
		if e.AccountState != nil {
			return e.AccountState.BondingCurve[:]
		}
	}
	return nil
}
