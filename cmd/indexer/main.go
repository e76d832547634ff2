package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"

	"pump-indexer-sol/internal/config"
	"pump-indexer-sol/internal/logic/stream"
	"pump-indexer-sol/internal/pkg/logger"
	"pump-indexer-sol/internal/svc"
)

var configFile = flag.String("f", "etc/indexer.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.IndexerConfig
	conf.MustLoad(*configFile, &c)

	logger.Init(c.LogConf.ToLogOption())
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	updateChan := make(chan *pb.SubscribeUpdate, 200)

	streamService, err := stream.NewStreamManager(serviceContext, updateChan)
	if err != nil {
		panic(err)
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(streamService)
	sg.Add(stream.NewProcessor(serviceContext, updateChan))

	logx.Infof("Starting pump indexer")
	sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
