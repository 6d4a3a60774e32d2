// Package service 组装助手服务（库存来源、会话管理、HTTP 接口）
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"thalrakshak-assistant/internal/config"
	"thalrakshak-assistant/internal/consumer"
	"thalrakshak-assistant/internal/conversation"
	"thalrakshak-assistant/internal/document"
	"thalrakshak-assistant/internal/httpapi"
	"thalrakshak-assistant/internal/intent"
	"thalrakshak-assistant/internal/inventory"
	"thalrakshak-assistant/internal/metrics"
	"thalrakshak-assistant/internal/mqtt"
	"thalrakshak-assistant/internal/repository"
	"thalrakshak-assistant/internal/responder"
	"thalrakshak-assistant/internal/vitals"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const metricsNamespace = "thalrakshak"

// AssistantService 助手服务（整合各层）
type AssistantService struct {
	config      *config.Config
	db          *sql.DB       // 仅 postgres 来源 / 推送落库时
	redisClient *redis.Client // 仅配置 REDIS_ADDR 时
	mqttClient  *mqtt.Client  // 仅配置 MQTT_BROKER 时
	logger      *zap.Logger

	recorder  *metrics.Recorder
	store     *inventory.Store
	fallback  *inventory.Fallback
	refresher *inventory.Refresher
	consumer  *consumer.InventoryMQTTConsumer
	manager   *conversation.Manager
	router    *httpapi.Router
	server    *Server

	stopOnce sync.Once
}

// NewAssistantService 创建助手服务
func NewAssistantService(cfg *config.Config, logger *zap.Logger) (*AssistantService, error) {
	s := &AssistantService{
		config:   cfg,
		logger:   logger,
		recorder: metrics.NewRecorder(metricsNamespace),
		store:    inventory.NewStore(),
	}

	// 1. 连接数据库（postgres 来源或推送落库）
	var repo *repository.InventoryRepository
	if cfg.Inventory.Source == config.InventorySourcePostgres || cfg.Inventory.PersistPush {
		db, err := sql.Open("postgres", cfg.Database.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := pingWithTimeout(db.PingContext); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		s.db = db
		repo = repository.NewInventoryRepository(db, logger)
	}

	// 2. 连接 Redis（快照缓存）
	var kv inventory.KVStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := pingWithTimeout(func(ctx context.Context) error { return client.Ping(ctx).Err() }); err != nil {
			client.Close()
			s.closeDB()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		s.redisClient = client
		kv = inventory.NewRedisKVStore(client)
	}

	// 3. 库存来源
	var fetcher inventory.Fetcher
	switch cfg.Inventory.Source {
	case config.InventorySourceAPI:
		fetcher = inventory.NewHTTPFetcher(cfg.Inventory.APIURL, cfg.Inventory.APIKey, cfg.Inventory.Timeout, logger)
	case config.InventorySourcePostgres:
		fetcher = repo
	}

	fallback, err := inventory.NewFallback(cfg.Inventory.FallbackFile, logger)
	if err != nil {
		s.closeConnections()
		return nil, fmt.Errorf("failed to load fallback inventory: %w", err)
	}
	s.fallback = fallback
	s.refresher = inventory.NewRefresher(fetcher, kv, fallback, s.store, inventory.RefresherConfig{
		CacheTTL: cfg.Inventory.CacheTTL,
		Interval: cfg.Inventory.RefreshInterval,
	}, s.recorder, logger)

	// 4. 库存推送（MQTT）
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.closeConnections()
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		s.mqttClient = client

		var saver consumer.SnapshotSaver
		if cfg.Inventory.PersistPush && repo != nil {
			saver = repo
		}
		s.consumer = consumer.NewInventoryMQTTConsumer(client, cfg.MQTT.Topic, cfg.MQTT.QoS, s.store, saver, s.recorder, logger)
	}

	// 5. 会话
	limits := document.Limits{MaxBytes: cfg.Document.MaxBytes, MaxPages: cfg.Document.MaxPages}
	evaluator := vitals.NewEvaluator(nil)
	s.manager = conversation.NewManager(conversation.Dependencies{
		Classifier: intent.NewClassifier(nil).WithObserver(s.recorder),
		Generator: responder.NewGenerator(responder.Options{
			Thresholds:   evaluator.Thresholds(),
			MaxFileBytes: limits.MaxBytes,
			MaxPages:     limits.MaxPages,
		}),
		Inventory: s.store,
		Reader:    document.NewPDFReader(),
		Limits:    limits,
		Extractor: vitals.NewExtractor(nil),
		Evaluator: evaluator,
		Uploads:   s.recorder,
		Logger:    logger,
	}, conversation.ManagerConfig{
		IdleTTL:   cfg.Session.IdleTTL,
		QueueSize: cfg.Session.QueueSize,
	}, s.recorder)

	// 6. HTTP
	s.router = httpapi.NewRouter(logger)
	s.router.RegisterChatRoutes(httpapi.NewChatHandler(s.manager, limits, logger))
	s.router.RegisterInventoryRoutes(httpapi.NewInventoryHandler(s.store, logger))
	s.router.RegisterHealthRoutes(s.manager, s.store)
	s.router.HandleHandler("/metrics", s.recorder.Handler())
	s.server = NewServer(cfg.HTTP.Addr, s.router, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, logger)

	return s, nil
}

// Start 启动后台任务与 HTTP 服务，阻塞到 ctx 结束或 HTTP 服务出错
func (s *AssistantService) Start(ctx context.Context) error {
	s.logger.Info("Starting assistant service",
		zap.String("inventory_source", s.config.Inventory.Source),
		zap.Bool("redis_cache", s.redisClient != nil),
		zap.Bool("mqtt_push", s.consumer != nil),
	)

	// 首次加载完成前请求会得到"库存加载中"
	go s.refresher.Run(ctx)
	go s.manager.Run(ctx)

	if err := s.fallback.Watch(ctx); err != nil {
		s.logger.Warn("Fallback inventory watch disabled", zap.Error(err))
	}

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Start(ctx); err != nil {
				s.logger.Error("Inventory MQTT consumer failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Handler HTTP 路由（测试用）
func (s *AssistantService) Handler() http.Handler {
	return s.router
}

// RefreshInventory 立即刷新一次库存
func (s *AssistantService) RefreshInventory(ctx context.Context) {
	s.refresher.Refresh(ctx)
}

// Stop 停止服务
func (s *AssistantService) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping assistant service")

		if s.consumer != nil {
			_ = s.consumer.Stop()
		}
		s.manager.CloseAll()
		s.closeConnections()
	})
	return nil
}

func (s *AssistantService) closeConnections() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	s.closeDB()
}

func (s *AssistantService) closeDB() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}
}

func pingWithTimeout(ping func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ping(ctx)
}
