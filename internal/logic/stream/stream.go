// Package stream 维护 Geyser gRPC 订阅：拉取 Pump.fun 相关的区块与账户更新，
// 归一化后交给解码链，并把产出的事件下发 Kafka。
package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/pkg/logger"
	"pump-indexer-sol/internal/svc"
)

// StreamManager 管理 Geyser 订阅流的生命周期：连接、心跳、断线重连
type StreamManager struct {
	mu                    sync.Mutex
	conn                  *grpc.ClientConn
	client                pb.GeyserClient
	stream                pb.Geyser_SubscribeClient
	stopped               bool
	reconnectAttempts     int
	reconnectInterval     time.Duration
	xToken                string
	streamPingIntervalSec int
	updateChan            chan *pb.SubscribeUpdate // 区块 / 账户更新统一通道
	connCtx               context.Context
	connCancel            context.CancelFunc
	sendTimeoutSec        int
	blockRecvTimeoutSec   int
}

func NewStreamManager(sc *svc.ServiceContext, updateChan chan *pb.SubscribeUpdate) (*StreamManager, error) {
	grpcConf := sc.Config.Grpc

	configTls := &tls.Config{
		InsecureSkipVerify: true,
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(grpcConf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		grpcConf.Endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(configTls)),
		grpc.WithInitialWindowSize(int32(grpcConf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(grpcConf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(grpcConf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(grpcConf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(grpcConf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(grpcConf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %v", err)
	}

	return &StreamManager{
		conn:                  conn,
		client:                pb.NewGeyserClient(conn),
		reconnectInterval:     time.Duration(grpcConf.ReconnectIntervalSec) * time.Second,
		xToken:                grpcConf.XToken,
		streamPingIntervalSec: grpcConf.StreamPingIntervalSec,
		updateChan:            updateChan,
		sendTimeoutSec:        grpcConf.SendTimeoutSec,
		blockRecvTimeoutSec:   grpcConf.BlockRecvTimeoutSec,
	}, nil
}

func (m *StreamManager) Start() {
	m.mustConnect()
}

func (m *StreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// mustConnect 内部循环直到连接成功
func (m *StreamManager) mustConnect() {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		if m.reconnectAttempts > 0 {
			if m.reconnectAttempts > 3 {
				time.Sleep(m.reconnectInterval * 2)
			} else {
				time.Sleep(m.reconnectInterval)
			}
		}
		logger.Infof("[Stream] 连接中... 第 %d 次", m.reconnectAttempts+1)
		m.reconnectAttempts++
		if err := m.connect(); err == nil {
			return
		} else {
			logger.Warnf("[Stream] 连接失败: %v, 即将重试", err)
		}
	}
}

// buildSubscribeRequest 构造订阅请求：
// - blocks: 只收引用 Pump.fun / Pump.fun AMM 的交易
// - accounts: 只收 Pump.fun 程序名下的账户（Bonding Curve 状态）
func buildSubscribeRequest() *pb.SubscribeRequest {
	blocks := map[string]*pb.SubscribeRequestFilterBlocks{
		"blocks": {
			AccountInclude:      []string{consts.PumpFunProgramStr, consts.PumpFunAMMProgramStr},
			IncludeTransactions: boolPtr(true),
			IncludeAccounts:     boolPtr(false),
			IncludeEntries:      boolPtr(false),
		},
	}
	accounts := map[string]*pb.SubscribeRequestFilterAccounts{
		"curves": {
			Owner: []string{consts.PumpFunProgramStr},
		},
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Blocks:     blocks,
		Accounts:   accounts,
		Commitment: &commitment,
	}
}

// connect 只尝试一次连接
func (m *StreamManager) connect() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return errors.New("manager is stopped")
	}
	defer m.mu.Unlock()

	// 先关闭旧的 context，优雅退出旧 goroutine
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.connCtx, m.connCancel = context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(
		m.connCtx,
		metadata.New(map[string]string{"x-token": m.xToken}),
	)
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	req := buildSubscribeRequest()
	if err := sendWithTimeout(m.connCtx, stream.Send, req, time.Duration(m.sendTimeoutSec)*time.Second); err != nil {
		return fmt.Errorf("send subscribe request failed: %w", err)
	}

	m.stream = stream
	m.reconnectAttempts = 0
	logger.Infof("[Stream] 连接建立")

	go m.pingLoop(m.connCtx)
	go m.recvLoop(m.connCtx)
	return nil
}

func (m *StreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.mustConnect()
}

func (m *StreamManager) recvLoop(ctx context.Context) {
	last := time.Now()
	blockTimeout := time.Duration(m.blockRecvTimeoutSec) * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
			update, err := m.stream.Recv()
			now := time.Now()
			if err != nil {
				if errors.Is(err, io.EOF) {
					logger.Warnf("[Stream] 服务端关闭流 (EOF)，重连")
					m.reconnect()
					return
				}
				logger.Warnf("[Stream] 接收错误: %v", err)
				if now.Sub(last) > blockTimeout {
					m.reconnect()
					return
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}

			switch update.GetUpdateOneof().(type) {
			case *pb.SubscribeUpdate_Block, *pb.SubscribeUpdate_Account:
				last = now
				select {
				case m.updateChan <- update:
				default:
					logger.Warnf("[Stream] 更新通道已满，丢弃一条更新")
				}
			}
		}

		if time.Since(last) > blockTimeout {
			logger.Warnf("[Stream] 超过 %v 未收到区块，重连", blockTimeout)
			m.reconnect()
			return
		}
	}
}

// pingLoop 应用层心跳
func (m *StreamManager) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(m.streamPingIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingReq := &pb.SubscribeRequest{
				Ping: &pb.SubscribeRequestPing{Id: 1},
			}
			if err := sendWithTimeout(ctx, m.stream.Send, pingReq, time.Duration(m.sendTimeoutSec)*time.Second); err != nil {
				logger.Warnf("[Stream] ping 失败: %v", err)
			}
		}
	}
}

// sendWithTimeout 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

func boolPtr(b bool) *bool {
	return &b
}
