package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"thalrakshak-assistant/internal/config"
	"thalrakshak-assistant/internal/logger"
	"thalrakshak-assistant/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "thalrakshak-assistant")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建服务
	assistant, err := service.NewAssistantService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create assistant service", zap.Error(err))
	}
	defer assistant.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动服务
	serviceErrChan := make(chan error, 1)
	go func() {
		serviceErrChan <- assistant.Start(ctx)
	}()

	// 6. 等待信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := <-serviceErrChan; err != nil {
			log.Error("Shutdown error", zap.Error(err))
		}
	case err := <-serviceErrChan:
		if err != nil {
			log.Error("Service error", zap.Error(err))
			assistant.Stop()
			os.Exit(1)
		}
	}

	log.Info("Assistant service stopped")
}
