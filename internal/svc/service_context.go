package svc

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"

	"pump-indexer-sol/internal/config"
	"pump-indexer-sol/internal/logic/curve"
	"pump-indexer-sol/internal/logic/decoder"
	"pump-indexer-sol/internal/logic/heuristic"
	"pump-indexer-sol/internal/mq"
	"pump-indexer-sol/internal/pkg/logger"
)

// ServiceContext 持有索引器的全部共享资源
type ServiceContext struct {
	Config     config.IndexerConfig
	Producer   *kafka.Producer
	Redis      *redis.Client
	Dispatcher *decoder.Dispatcher
	Tracker    *curve.Tracker
}

// NewServiceContext 创建服务上下文
func NewServiceContext(c config.IndexerConfig) (*ServiceContext, error) {
	// 1. 初始化 Kafka 生产者
	producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}

	// 2. 初始化 Redis（可选）。未配置时进度去重只依赖进程内存，
	// 重启后首条更新会重复下发，消费侧按幂等处理。
	var rdb *redis.Client
	var store curve.ProgressStore
	if c.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		store = curve.NewRedisProgressStore(rdb)
	}

	// 3. 组装解码链
	target := c.CurveConf.GraduationTargetSOL
	if target <= 0 {
		target = curve.DefaultGraduationTargetSOL
	}
	dispatcher := decoder.NewDefaultDispatcher(
		curve.NewDecoder(target),
		heuristic.NewResolver(c.HeuristicConf.ToScalingPolicy()),
		decoder.NewMetrics(),
	)

	ctx := &ServiceContext{
		Config:     c,
		Producer:   producer,
		Redis:      rdb,
		Dispatcher: dispatcher,
		Tracker:    curve.NewTracker(store),
	}

	logger.Infof("服务上下文初始化完成: graduation_target=%.1f SOL, redis=%v", target, rdb != nil)
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Close()
	}
	if ctx.Redis != nil {
		_ = ctx.Redis.Close()
	}
}
