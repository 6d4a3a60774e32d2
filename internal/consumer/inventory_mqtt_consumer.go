// Package consumer 库存推送消费者
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thalrakshak-assistant/internal/models"
	"thalrakshak-assistant/internal/mqtt"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅能力（mqtt.Client 实现；测试中替换）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// SnapshotStore 接收推送的快照（inventory.Store 实现）
type SnapshotStore interface {
	Set(snapshot *models.InventorySnapshot)
}

// SnapshotSaver 推送快照落库（repository.InventoryRepository 实现，可选）
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, snapshot *models.InventorySnapshot) error
}

// RefreshObserver 记录快照来源
type RefreshObserver interface {
	ObserveRefresh(source string)
}

// InventoryMQTTConsumer 订阅库存推送主题，收到后替换当前快照
type InventoryMQTTConsumer struct {
	subscriber Subscriber
	topic      string
	qos        byte
	store      SnapshotStore
	saver      SnapshotSaver
	observer   RefreshObserver
	logger     *zap.Logger
	now        func() time.Time
}

// NewInventoryMQTTConsumer 创建库存推送消费者；saver / observer 可为 nil
func NewInventoryMQTTConsumer(
	subscriber Subscriber,
	topic string,
	qos byte,
	store SnapshotStore,
	saver SnapshotSaver,
	observer RefreshObserver,
	logger *zap.Logger,
) *InventoryMQTTConsumer {
	return &InventoryMQTTConsumer{
		subscriber: subscriber,
		topic:      topic,
		qos:        qos,
		store:      store,
		saver:      saver,
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// Start 订阅主题并阻塞到 ctx 结束
func (c *InventoryMQTTConsumer) Start(ctx context.Context) error {
	if c.topic == "" {
		return fmt.Errorf("inventory MQTT topic not configured")
	}

	handler := func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload)
	}
	if err := c.subscriber.Subscribe(c.topic, c.qos, handler); err != nil {
		return fmt.Errorf("failed to subscribe to inventory topic: %w", err)
	}

	c.logger.Info("Inventory MQTT consumer started",
		zap.String("topic", c.topic),
	)

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *InventoryMQTTConsumer) Stop() error {
	if c.topic != "" {
		if err := c.subscriber.Unsubscribe(c.topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	c.logger.Info("Inventory MQTT consumer stopped")
	return nil
}

// handleMessage 解析推送的库存 JSON（与库存 API 相同格式）
func (c *InventoryMQTTConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	c.logger.Debug("Received inventory push",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var snapshot models.InventorySnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		c.logger.Warn("Failed to unmarshal inventory push",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal inventory push: %w", err)
	}
	snapshot.Source = models.SourcePush
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = c.now()
	}

	c.store.Set(&snapshot)
	if c.observer != nil {
		c.observer.ObserveRefresh(models.SourcePush)
	}

	if c.saver != nil {
		if err := c.saver.SaveSnapshot(ctx, &snapshot); err != nil {
			// 内存快照已更新，落库失败只记录
			c.logger.Error("Failed to persist inventory push", zap.Error(err))
		}
	}

	c.logger.Info("Applied inventory push",
		zap.Int("total_units", snapshot.Total()),
	)
	return nil
}
