package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/pkg/logger"
	"pump-indexer-sol/internal/utils"
)

// KafkaJob 表示一条需要发送的 Kafka 消息
type KafkaJob struct {
	Topic     string
	Partition int32
	Value     []byte
}

// KafkaSendResult 表示每条消息的发送结果
type KafkaSendResult struct {
	Job *KafkaJob
	Err error
}

// BuildEventJob 将一个事件编码为 KafkaJob。
// 分区由事件的 PartitionKey（mint / 池子 / curve 地址）决定，
// 同一标的的事件落入同一分区，下游按分区消费即得到有序流。
func BuildEventJob(event *core.Event, topic string, partitions int) (*KafkaJob, error) {
	value, err := utils.EncodeEvent(event)
	if err != nil {
		return nil, err
	}
	return &KafkaJob{
		Topic:     topic,
		Partition: int32(utils.PartitionHashBytes(event.PartitionKey(), uint32(partitions))),
		Value:     value,
	}, nil
}

// SendKafkaJobs 并发发送多条 Kafka 消息，支持外部 context 控制超时/取消
func SendKafkaJobs(
	ctx context.Context,
	producer *kafka.Producer,
	jobs []*KafkaJob,
	perMessageTimeout time.Duration,
) (ok []*KafkaJob, failed []KafkaSendResult) {
	var wg sync.WaitGroup
	resultCh := make(chan KafkaSendResult, len(jobs)) // 缓冲避免阻塞

	for _, job := range jobs {
		wg.Add(1)
		go func(job *KafkaJob) {
			defer wg.Done()

			deliveryChan := make(chan kafka.Event, 1)
			err := producer.Produce(&kafka.Message{
				TopicPartition: kafka.TopicPartition{
					Topic:     &job.Topic,
					Partition: job.Partition,
				},
				Value: job.Value,
			}, deliveryChan)
			if err != nil {
				resultCh <- KafkaSendResult{Job: job, Err: fmt.Errorf("produce error: %w", err)}
				return
			}

			select {
			case e, open := <-deliveryChan:
				if !open {
					resultCh <- KafkaSendResult{Job: job, Err: fmt.Errorf("delivery channel closed unexpectedly")}
					return
				}
				msg, isMsg := e.(*kafka.Message)
				if !isMsg {
					resultCh <- KafkaSendResult{Job: job, Err: fmt.Errorf("invalid message type: %T", e)}
					return
				}
				resultCh <- KafkaSendResult{Job: job, Err: msg.TopicPartition.Error}
			case <-time.After(perMessageTimeout):
				go safeDrain(deliveryChan)
				resultCh <- KafkaSendResult{Job: job, Err: fmt.Errorf("delivery timeout (>%v)", perMessageTimeout)}
			case <-ctx.Done():
				go safeDrain(deliveryChan)
				resultCh <- KafkaSendResult{Job: job, Err: fmt.Errorf("ctx cancelled: %w", ctx.Err())}
			}
		}(job)
	}

	// 等待所有发送完成再关闭结果通道
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if res.Err != nil {
			failed = append(failed, res)
		} else {
			ok = append(ok, res.Job)
		}
	}
	return ok, failed
}

// SendEventsAndWait 编码并发送一批事件，返回成功条数。
// 单条编码失败只记日志跳过，不影响同批其它事件。
func SendEventsAndWait(
	ctx context.Context,
	producer *kafka.Producer,
	events []*core.Event,
	topic string,
	partitions int,
	perMessageTimeout time.Duration,
) int {
	if len(events) == 0 {
		return 0
	}
	jobs := make([]*KafkaJob, 0, len(events))
	for _, event := range events {
		job, err := BuildEventJob(event, topic, partitions)
		if err != nil {
			logger.Errorf("[MQ:Send] 事件编码失败: %v, sig=%s", err, event.Signature)
			continue
		}
		jobs = append(jobs, job)
	}

	ok, failed := SendKafkaJobs(ctx, producer, jobs, perMessageTimeout)
	for _, f := range failed {
		logger.Errorf("[MQ:Send] 发送失败: topic=%s, partition=%d, err=%v", f.Job.Topic, f.Job.Partition, f.Err)
	}
	return len(ok)
}

// safeDrain 用于确保 deliveryChan 被 drain 避免 Kafka 回调阻塞
func safeDrain(ch <-chan kafka.Event) {
	defer func() {
		_ = recover() // deliveryChan 已被回收导致 panic 时吞掉
	}()
	select {
	case <-ch:
	case <-time.After(2 * time.Second): // 最多等 2 秒
	}
}
