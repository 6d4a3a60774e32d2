package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.Equal(t, InventorySourceFallback, cfg.Inventory.Source)
	assert.Equal(t, int64(5*1024*1024), cfg.Document.MaxBytes)
	assert.Equal(t, 10, cfg.Document.MaxPages)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.MQTT.Broker)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("INVENTORY_SOURCE", "api")
	t.Setenv("INVENTORY_API_URL", "http://inventory:9000")
	t.Setenv("INVENTORY_REFRESH_INTERVAL", "15s")
	t.Setenv("DOCUMENT_MAX_PAGES", "4")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("MQTT_QOS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, InventorySourceAPI, cfg.Inventory.Source)
	assert.Equal(t, "http://inventory:9000", cfg.Inventory.APIURL)
	assert.Equal(t, 15*time.Second, cfg.Inventory.RefreshInterval)
	assert.Equal(t, 4, cfg.Document.MaxPages)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, byte(0), cfg.MQTT.QoS)
}

func TestLoad_InvalidValuesFallBackToDefault(t *testing.T) {
	t.Setenv("DOCUMENT_MAX_PAGES", "ten")
	t.Setenv("SESSION_IDLE_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Document.MaxPages)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
}

func TestValidate(t *testing.T) {
	t.Setenv("INVENTORY_SOURCE", "kafka")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("INVENTORY_SOURCE", "api")
	t.Setenv("INVENTORY_PERSIST_PUSH", "true")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("INVENTORY_SOURCE", "postgres")
	_, err = Load()
	assert.NoError(t, err)
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", c.GetDSN())
}
