// Package heuristic 在拿不到权威转账数据时，从指令声明的滑点边界估算成交金额。
// 边界值（maxSolCost / minSolOutput）只是上下限而非实际成交额，
// 这里的缩放规则是从线上流量逆向总结的经验值，不是协议事实，
// 因此全部收敛为具名常量并允许配置覆盖，方便单独验证与调整。
package heuristic

import "pump-indexer-sol/internal/consts"

// 缩放策略默认值（经验值，可被配置覆盖）
const (
	// DefaultCeilingLamports 单笔交易的可信上限：超过它视为编码异常而非真实金额
	DefaultCeilingLamports = 100 * consts.LamportsPerSOL

	// DefaultTriggerFactor 触发缩放的数量级阈值：边界值超出上限该倍数才认为单位错位
	DefaultTriggerFactor uint64 = 1_000

	// DefaultPrimaryDivisor 第一次缩放除数，对应把 lamports 再乘了一层 1e9 的客户端编码错误
	DefaultPrimaryDivisor uint64 = 1_000_000_000

	// DefaultSecondaryDivisor 第二次缩放除数，第一次缩放后仍超上限时再除
	DefaultSecondaryDivisor uint64 = 1_000

	// DefaultFloorLamports / DefaultCapLamports 估算结果的合理区间
	DefaultFloorLamports uint64 = 1_000
	DefaultCapLamports          = 100 * consts.LamportsPerSOL
)

// ScalingPolicy 描述一套完整的金额缩放规则。零值字段在 normalize 时回填默认值。
type ScalingPolicy struct {
	CeilingLamports  uint64 // 可信单笔上限
	TriggerFactor    uint64 // 触发缩放的倍数阈值
	PrimaryDivisor   uint64 // 第一次缩放除数
	SecondaryDivisor uint64 // 第二次缩放除数
	FloorLamports    uint64 // 结果下限
	CapLamports      uint64 // 结果上限
}

// DefaultScalingPolicy 返回默认缩放策略
func DefaultScalingPolicy() ScalingPolicy {
	return ScalingPolicy{
		CeilingLamports:  DefaultCeilingLamports,
		TriggerFactor:    DefaultTriggerFactor,
		PrimaryDivisor:   DefaultPrimaryDivisor,
		SecondaryDivisor: DefaultSecondaryDivisor,
		FloorLamports:    DefaultFloorLamports,
		CapLamports:      DefaultCapLamports,
	}
}

func (p ScalingPolicy) normalize() ScalingPolicy {
	def := DefaultScalingPolicy()
	if p.CeilingLamports == 0 {
		p.CeilingLamports = def.CeilingLamports
	}
	if p.TriggerFactor == 0 {
		p.TriggerFactor = def.TriggerFactor
	}
	if p.PrimaryDivisor == 0 {
		p.PrimaryDivisor = def.PrimaryDivisor
	}
	if p.SecondaryDivisor == 0 {
		p.SecondaryDivisor = def.SecondaryDivisor
	}
	if p.FloorLamports == 0 {
		p.FloorLamports = def.FloorLamports
	}
	if p.CapLamports == 0 {
		p.CapLamports = def.CapLamports
	}
	return p
}

// Resolver 是基于 ScalingPolicy 的金额估算器。构造后只读，可并发使用。
type Resolver struct {
	policy ScalingPolicy
}

func NewResolver(policy ScalingPolicy) *Resolver {
	return &Resolver{policy: policy.normalize()}
}

// Resolve 把指令声明的边界值折算为一个落在合理区间内的估算金额。
// 返回的 rescaled 标记该值是否发生过缩放或夹取（供调用方记录置信度）。
// 规则固定为两级除法，绝不在运行时推断倍率：
//  1. bound > Ceiling*TriggerFactor 时除以 PrimaryDivisor；
//  2. 仍超过 Ceiling 再除以 SecondaryDivisor；
//  3. 最终夹取进 [Floor, Cap]。
func (r *Resolver) Resolve(bound uint64) (amount uint64, rescaled bool) {
	p := r.policy
	amount = bound

	// Ceiling*TriggerFactor 可能溢出 uint64，用除法形式比较
	if amount/p.TriggerFactor > p.CeilingLamports {
		amount /= p.PrimaryDivisor
		rescaled = true
	}
	if amount > p.CeilingLamports && rescaled {
		amount /= p.SecondaryDivisor
	}

	if amount < p.FloorLamports {
		amount = p.FloorLamports
		rescaled = true
	}
	if amount > p.CapLamports {
		amount = p.CapLamports
		rescaled = true
	}
	return amount, rescaled
}
