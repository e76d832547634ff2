package stream

import (
	"context"
	"errors"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/logic/normalizer"
	"pump-indexer-sol/internal/mq"
	"pump-indexer-sol/internal/svc"
	"pump-indexer-sol/pkg/utils"
)

// Processor 消费订阅更新：归一化 → 解码 → 进度去重 → Kafka 下发
type Processor struct {
	sc         *svc.ServiceContext
	updateChan chan *pb.SubscribeUpdate
	ctx        context.Context
	cancel     func(err error)
	logx.Logger
}

func NewProcessor(sc *svc.ServiceContext, updateChan chan *pb.SubscribeUpdate) *Processor {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Processor{
		sc:         sc,
		updateChan: updateChan,
		Logger:     logx.WithContext(ctx).WithFields(logx.Field("service", "processor")),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (p *Processor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case update := <-p.updateChan:
			switch u := update.GetUpdateOneof().(type) {
			case *pb.SubscribeUpdate_Block:
				p.procBlock(u.Block)
			case *pb.SubscribeUpdate_Account:
				p.procAccount(u.Account)
			}
			if len(p.updateChan) > 10 {
				p.Debugf("update chan len:%v", len(p.updateChan))
			}
		}
	}
}

func (p *Processor) Stop() {
	p.cancel(errors.New("service stop"))
}

func (p *Processor) procBlock(block *pb.SubscribeUpdateBlock) {
	startTime := time.Now()
	defer func() {
		p.Infof("区块处理总耗时: %v, slot: %d", time.Since(startTime), block.Slot)
	}()

	// 1. 过滤合法交易
	validTxs := make([]*pb.SubscribeUpdateTransactionInfo, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		if IsValidGrpcTx(tx) {
			validTxs = append(validTxs, tx)
		}
	}

	var blockTime int64
	if block.BlockTime != nil {
		blockTime = block.BlockTime.Timestamp
	}

	// 2. 并发解码
	results := utils.ParallelMap(validTxs, consts.CpuCount+2,
		func(tx *pb.SubscribeUpdateTransactionInfo) *core.Event {
			return p.decodeTx(block.Slot, blockTime, tx)
		})

	events := make([]*core.Event, 0, len(results))
	for _, event := range results {
		if event == nil {
			continue
		}
		// 交易路径也可能解出账户状态（日志兜底），同样走去重
		if event.Kind == core.EventKindAccountState && !p.shouldEmit(event) {
			continue
		}
		if event.Trade != nil {
			p.Debugf("trade: venue=%s, type=%s, mint=%s, sol=%d",
				consts.VenueName(event.Trade.Venue), event.Trade.TradeType, event.Trade.Mint, event.Trade.SolAmount)
		}
		events = append(events, event)
	}
	p.Infof("总tx数量: %v, 有效tx数量: %v, 事件数量: %v", len(block.Transactions), len(validTxs), len(events))

	// 3. 下发 Kafka，按事件类别分 topic
	p.sendEvents(events)
}

func (p *Processor) procAccount(update *pb.SubscribeUpdateAccount) {
	ctx, err := normalizer.NormalizeGeyserAccount(update.Slot, update.Account)
	if err != nil {
		p.Errorf("账户更新归一化失败: %v, slot=%d", err, update.Slot)
		return
	}

	event := p.sc.Dispatcher.Decode(ctx)
	if event == nil {
		return // 非 Bonding Curve 账户，正常无事件
	}
	if event.Kind == core.EventKindAccountState && !p.shouldEmit(event) {
		return
	}
	p.sendEvents([]*core.Event{event})
}

func (p *Processor) decodeTx(slot uint64, blockTime int64, tx *pb.SubscribeUpdateTransactionInfo) *core.Event {
	ctx, err := normalizer.NormalizeGeyserTx(slot, blockTime, tx)
	if err != nil {
		p.Debugf("交易归一化失败: %v", err)
		return nil
	}
	return p.sc.Dispatcher.Decode(ctx)
}

// shouldEmit 对账户状态事件做 {progress, complete} 去重
func (p *Processor) shouldEmit(event *core.Event) bool {
	state := event.AccountState
	if state == nil {
		return false
	}
	return p.sc.Tracker.ShouldEmit(p.ctx, state.BondingCurve, state.Progress, state.Complete)
}

// sendEvents 按事件类别拆分 topic 并发送
func (p *Processor) sendEvents(events []*core.Event) {
	if len(events) == 0 {
		return
	}
	var tradeEvents, curveEvents []*core.Event
	for _, event := range events {
		if event.Kind == core.EventKindAccountState {
			curveEvents = append(curveEvents, event)
		} else {
			tradeEvents = append(tradeEvents, event)
		}
	}

	kafkaConf := p.sc.Config.KafkaProducerConf
	timeout := time.Duration(p.sc.Config.TimeConf.EventSendTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sendCtx, cancel := context.WithTimeout(p.ctx, timeout*2)
	defer cancel()
	mq.SendEventsAndWait(sendCtx, p.sc.Producer, tradeEvents, kafkaConf.Topics.Event, kafkaConf.Partitions.Event, timeout)
	mq.SendEventsAndWait(sendCtx, p.sc.Producer, curveEvents, kafkaConf.Topics.Curve, kafkaConf.Partitions.Curve, timeout)
}

// IsValidGrpcTx 过滤不完整、投票与执行失败的交易
func IsValidGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) bool {
	if tx == nil ||
		tx.Transaction == nil ||
		tx.Transaction.Message == nil ||
		len(tx.Transaction.Signatures) == 0 ||
		len(tx.Transaction.Signatures[0]) != 64 ||
		tx.IsVote ||
		tx.Meta == nil ||
		tx.Meta.Err != nil {
		return false
	}
	return true
}
