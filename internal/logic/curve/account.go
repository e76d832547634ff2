// Package curve 负责 Bonding Curve 账户快照的解码与毕业进度计算。
package curve

import (
	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/layout"
	"pump-indexer-sol/internal/types"
)

// BondingCurveDiscriminator 是 Bonding Curve 账户数据的 8 字节类型前缀（链上协议事实）
const BondingCurveDiscriminator uint64 = 0x17b7f83760d8ac60

// DefaultGraduationTargetSOL 毕业阈值（协议常量，单位：整 SOL）。
// 账户余额达到该值后代币迁移到 AMM 池子交易。仅测试允许覆盖。
const DefaultGraduationTargetSOL = 85.0

// BondingCurveAccount 是解码后的 Bonding Curve 账户状态
type BondingCurveAccount struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              types.Pubkey
}

// bondingCurveLayout 是账户数据的线上布局（discriminator 之后的部分）。
// Complete 在链上是单字节 bool，这里按 u8 读取、非 0 视为 true。
// Creator 字段是后期协议升级追加的，再往后的尾部字节容忍并忽略。
type bondingCurveLayout struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             uint8
	Creator              types.Pubkey
}

// Decoder 解码 Bonding Curve 账户并计算毕业进度。构造后只读，可并发使用。
type Decoder struct {
	registry            *layout.Registry
	graduationTargetSOL float64
}

// NewDecoder 构造解码器。graduationTargetSOL <= 0 时使用协议默认值。
func NewDecoder(graduationTargetSOL float64) *Decoder {
	if graduationTargetSOL <= 0 {
		graduationTargetSOL = DefaultGraduationTargetSOL
	}

	registry := layout.NewRegistry()
	registry.MustRegister("bonding_curve",
		layout.DiscriminatorFromUint64(BondingCurveDiscriminator),
		func() interface{} { return &bondingCurveLayout{} },
	)

	return &Decoder{
		registry:            registry,
		graduationTargetSOL: graduationTargetSOL,
	}
}

// DecodeAccount 解码一段账户数据。
// (nil, nil) 表示不是 Bonding Curve 账户（discriminator 未命中）；
// error 表示命中但数据截断 / 非法。
func (d *Decoder) DecodeAccount(data []byte) (*BondingCurveAccount, error) {
	decoded, err := d.registry.Decode(data)
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, nil
	}

	raw := decoded.Value.(*bondingCurveLayout)
	return &BondingCurveAccount{
		VirtualTokenReserves: raw.VirtualTokenReserves,
		VirtualSolReserves:   raw.VirtualSolReserves,
		RealTokenReserves:    raw.RealTokenReserves,
		RealSolReserves:      raw.RealSolReserves,
		TokenTotalSupply:     raw.TokenTotalSupply,
		Complete:             raw.Complete != 0,
		Creator:              raw.Creator,
	}, nil
}

// Progress 由账户当前 SOL 余额计算毕业进度，结果始终夹取在 [0,100]。
// progress = min(balance / 1e9 / target * 100, 100)
func (d *Decoder) Progress(lamports uint64) float64 {
	progress := float64(lamports) / float64(consts.LamportsPerSOL) / d.graduationTargetSOL * 100
	if progress > 100 {
		return 100
	}
	if progress < 0 {
		return 0
	}
	return progress
}
