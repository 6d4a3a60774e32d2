// Package config 服务配置（环境变量，启动时可选加载 .env）
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// 库存来源
const (
	InventorySourceAPI      = "api"
	InventorySourcePostgres = "postgres"
	InventorySourceFallback = "fallback"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置（Addr 为空表示不使用缓存）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（Broker 为空表示不订阅库存推送）
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Config 助手服务配置
type Config struct {
	HTTP struct {
		Addr         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}

	Log struct {
		Level  string
		Format string
	}

	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 库存来源与刷新
	Inventory struct {
		Source          string // api / postgres / fallback
		APIURL          string // 库存服务地址
		APIKey          string
		Timeout         time.Duration // 单次请求超时
		RefreshInterval time.Duration // 0 = 只在启动时加载一次
		CacheTTL        time.Duration // Redis 快照缓存 TTL
		FallbackFile    string        // 兜底 JSON 文件（可选，修改后自动重载）
		PersistPush     bool          // MQTT 推送是否写回 postgres
	}

	// 上传文档限制
	Document struct {
		MaxBytes int64
		MaxPages int
	}

	Session struct {
		IdleTTL   time.Duration // 空闲会话回收
		QueueSize int           // 每个会话的待处理输入上限
	}
}

// Load 加载配置（.env 存在时先加载，已有环境变量优先）
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")
	cfg.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	cfg.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "thalrakshak")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "thalrakshak-assistant")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("INVENTORY_MQTT_TOPIC", "thalrakshak/inventory")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.Inventory.Source = getEnv("INVENTORY_SOURCE", InventorySourceFallback)
	cfg.Inventory.APIURL = getEnv("INVENTORY_API_URL", "http://localhost:8080/api")
	cfg.Inventory.APIKey = getEnv("INVENTORY_API_KEY", "")
	cfg.Inventory.Timeout = getEnvDuration("INVENTORY_TIMEOUT", 5*time.Second)
	cfg.Inventory.RefreshInterval = getEnvDuration("INVENTORY_REFRESH_INTERVAL", time.Minute)
	cfg.Inventory.CacheTTL = getEnvDuration("INVENTORY_CACHE_TTL", 10*time.Minute)
	cfg.Inventory.FallbackFile = getEnv("INVENTORY_FALLBACK_FILE", "")
	cfg.Inventory.PersistPush = getEnvBool("INVENTORY_PERSIST_PUSH", false)

	cfg.Document.MaxBytes = int64(getEnvInt("DOCUMENT_MAX_BYTES", 5*1024*1024))
	cfg.Document.MaxPages = getEnvInt("DOCUMENT_MAX_PAGES", 10)

	cfg.Session.IdleTTL = getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute)
	cfg.Session.QueueSize = getEnvInt("SESSION_QUEUE_SIZE", 16)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Inventory.Source {
	case InventorySourceAPI, InventorySourcePostgres, InventorySourceFallback:
	default:
		return fmt.Errorf("invalid INVENTORY_SOURCE %q (want api, postgres or fallback)", c.Inventory.Source)
	}
	if c.Document.MaxBytes <= 0 {
		return fmt.Errorf("DOCUMENT_MAX_BYTES must be positive")
	}
	if c.Document.MaxPages <= 0 {
		return fmt.Errorf("DOCUMENT_MAX_PAGES must be positive")
	}
	if c.Session.QueueSize <= 0 {
		return fmt.Errorf("SESSION_QUEUE_SIZE must be positive")
	}
	if c.Inventory.PersistPush && c.Inventory.Source != InventorySourcePostgres {
		return fmt.Errorf("INVENTORY_PERSIST_PUSH requires INVENTORY_SOURCE=postgres")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
