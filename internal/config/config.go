package config

import (
	"pump-indexer-sol/internal/logic/heuristic"
	"pump-indexer-sol/internal/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）

	Topics struct {
		Event string `yaml:"event"` // 交易 / 流动性事件的 Kafka topic
		Curve string `yaml:"curve"` // Bonding Curve 状态事件的 Kafka topic
	} `yaml:"topics"`

	Partitions struct {
		Event int `yaml:"event"` // event topic 的分区数
		Curve int `yaml:"curve"` // curve topic 的分区数
	} `yaml:"partitions"`
}

// HeuristicConfig 表示金额估算的缩放策略配置，零值项使用内置默认
type HeuristicConfig struct {
	CeilingLamports  uint64 `yaml:"ceiling_lamports"`  // 单笔可信上限
	TriggerFactor    uint64 `yaml:"trigger_factor"`    // 触发缩放的数量级阈值
	PrimaryDivisor   uint64 `yaml:"primary_divisor"`   // 第一次缩放除数
	SecondaryDivisor uint64 `yaml:"secondary_divisor"` // 第二次缩放除数
	FloorLamports    uint64 `yaml:"floor_lamports"`    // 结果下限
	CapLamports      uint64 `yaml:"cap_lamports"`      // 结果上限
}

func (c *HeuristicConfig) ToScalingPolicy() heuristic.ScalingPolicy {
	return heuristic.ScalingPolicy{
		CeilingLamports:  c.CeilingLamports,
		TriggerFactor:    c.TriggerFactor,
		PrimaryDivisor:   c.PrimaryDivisor,
		SecondaryDivisor: c.SecondaryDivisor,
		FloorLamports:    c.FloorLamports,
		CapLamports:      c.CapLamports,
	}
}

// CurveConfig 表示 Bonding Curve 进度计算与去重配置
type CurveConfig struct {
	GraduationTargetSOL float64 `yaml:"graduation_target_sol"` // 毕业目标（整 SOL），0 用协议默认 85
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	SlotDispatchTimeoutMs int `yaml:"slot_dispatch_timeout_ms"` // 每个 slot 的处理最大耗时
	EventSendTimeoutMs    int `yaml:"event_send_timeout_ms"`    // 单条事件发送到 Kafka 并等待 ack 的超时时间
}

// IndexerConfig 是主配置结构体，用于驱动索引器服务
type IndexerConfig struct {
	LogConf           LogConfig           `yaml:"logger"`         // 日志配置
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"` // Kafka 生产者配置
	HeuristicConf     HeuristicConfig     `yaml:"heuristic"`      // 金额估算配置
	CurveConf         CurveConfig         `yaml:"curve"`          // Bonding Curve 配置
	TimeConf          TimeConfig          `yaml:"time_conf"`      // 时间相关配置

	RedisAddr string `yaml:"redis_addr"` // Redis 地址，空则进度去重只走内存

	// gRPC 客户端连接相关配置
	Grpc struct {
		Endpoint string `yaml:"endpoint"` // gRPC 服务端地址
		XToken   string `yaml:"x_token"`  // x-token 认证

		// 应用级逻辑心跳（ping）配置
		StreamPingIntervalSec int `yaml:"stream_ping_interval_sec"` // 应用层 ping 心跳间隔（秒）

		// gRPC Keepalive 底层连接检测配置
		KeepalivePingIntervalSec int `yaml:"keepalive_ping_interval_sec"` // 底层 keepalive 间隔（秒）
		KeepalivePingTimeoutSec  int `yaml:"keepalive_ping_timeout_sec"`  // 底层 keepalive 超时（秒）

		// gRPC 窗口大小调优（用于大数据流推送）
		InitialWindowSize     int `yaml:"initial_window_size"`      // 单流窗口大小（字节）
		InitialConnWindowSize int `yaml:"initial_conn_window_size"` // 整体连接窗口大小（字节）

		// 消息体大小限制
		MaxCallSendMsgSize int `yaml:"max_call_send_msg_size"` // 单条消息最大发送字节数
		MaxCallRecvMsgSize int `yaml:"max_call_recv_msg_size"` // 单条消息最大接收字节数

		// 超时与重连策略
		ReconnectIntervalSec int `yaml:"reconnect_interval_sec"` // 重连最小间隔（秒）
		ConnectTimeoutSec    int `yaml:"connect_timeout_sec"`    // 连接建立超时（秒）
		SendTimeoutSec       int `yaml:"send_timeout_sec"`       // 发送超时（秒）
		BlockRecvTimeoutSec  int `yaml:"block_recv_timeout_sec"` // 区块接收超时（秒），超时触发重连
	} `yaml:"grpc"`
}
