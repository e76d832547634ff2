// Package decoder 把若干相互独立的解码策略按优先级串起来。
// 没有任何一种策略能覆盖链上观察到的全部消息形态（协议升级漂移、
// 客户端编码差异、日志截断），所以每条消息依次尝试，第一个出事件的策略生效。
package decoder

import (
	"runtime/debug"

	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/pkg/logger"
	"pump-indexer-sol/internal/types"
)

// Strategy 是单个解码策略。
//   - CanApply 只做廉价的结构判断，不命中属于正常情况，不计失败；
//   - Decode 返回 (nil, nil) 表示形态匹配但确实没有事件；返回 error 表示
//     字节级解码失败，记一次失败计数后继续尝试后续策略。
type Strategy interface {
	Name() string
	Program() types.Pubkey // 归属的链上程序，用于指标分组
	CanApply(ctx *core.NormalizedContext) bool
	Decode(ctx *core.NormalizedContext) (*core.Event, error)
}

// Dispatcher 按注册顺序调度策略。
// 注册顺序即优先级：有权威结构化数据支撑的策略（事件日志、可校验的
// inner 转账）排在纯启发式策略之前，后者的估算误差明显更大。
// 构造一次后全程只读（除 metrics 计数），可被多个 worker 并发调用。
type Dispatcher struct {
	strategies []Strategy
	metrics    *Metrics
}

// NewDispatcher 显式构造调度器，不依赖任何包级可变状态
func NewDispatcher(metrics *Metrics, strategies ...Strategy) *Dispatcher {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Dispatcher{
		strategies: strategies,
		metrics:    metrics,
	}
}

// Metrics 暴露计数器，供外部定期快照上报
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Decode 对一条归一化消息执行一轮完整调度，返回零或一个事件。
// 所有策略都未命中时返回 nil——这是正常结果而非错误；
// 单个策略的 panic / error 被就地吸收，绝不中断整条消息或影响宿主进程。
func (d *Dispatcher) Decode(ctx *core.NormalizedContext) *core.Event {
	for _, s := range d.strategies {
		if !s.CanApply(ctx) {
			continue
		}
		d.metrics.RecordAttempt(s.Name(), s.Program())

		if event := d.tryDecode(s, ctx); event != nil {
			d.metrics.RecordSuccess(s.Name(), s.Program())
			return event
		}
	}
	return nil
}

// tryDecode 执行单个策略并吞掉它抛出的一切异常
func (d *Dispatcher) tryDecode(s Strategy, ctx *core.NormalizedContext) (event *core.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Decoder:%s] panic: %v, tx=%s, stack=%s", s.Name(), r, ctx.Signature, debug.Stack())
			d.metrics.RecordFailure(s.Name(), s.Program())
			event = nil
		}
	}()

	event, err := s.Decode(ctx)
	if err != nil {
		logger.Debugf("[Decoder:%s] decode failed: %v, tx=%s", s.Name(), err, ctx.Signature)
		d.metrics.RecordFailure(s.Name(), s.Program())
		return nil
	}
	return event
}
