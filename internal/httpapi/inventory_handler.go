package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"thalrakshak-assistant/internal/export"
	"thalrakshak-assistant/internal/inventory"

	"go.uber.org/zap"
)

const inventoryPath = "/api/v1/inventory"

// InventoryHandler 库存查询 / 导出
type InventoryHandler struct {
	source InventorySource
	logger *zap.Logger
}

// NewInventoryHandler 创建库存 Handler
func NewInventoryHandler(source InventorySource, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{source: source, logger: logger}
}

// ServeHTTP 路由分发
func (h *InventoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case inventoryPath:
		h.GetInventory(w, r)
	case inventoryPath + "/export":
		h.ExportInventory(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// GetInventory 当前快照 + 各血型等级
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	snapshot := h.source.Current()
	if snapshot == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("inventory not loaded"))
		return
	}

	cities := make(map[string]map[string]int, len(snapshot.Cities))
	for _, city := range snapshot.CityNames() {
		m := make(map[string]int, len(snapshot.Cities[city]))
		for bt, n := range snapshot.Cities[city] {
			m[string(bt)] = n
		}
		cities[city] = m
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"source":     snapshot.Source,
		"fetched_at": snapshot.FetchedAt.UTC().Format(time.RFC3339),
		"total":      snapshot.Total(),
		"types":      inventory.Summarize(snapshot),
		"cities":     cities,
	}))
}

// ExportInventory 导出库存 xlsx
func (h *InventoryHandler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	snapshot := h.source.Current()
	if snapshot == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("inventory not loaded"))
		return
	}
	data, err := export.InventoryWorkbook(snapshot)
	if err != nil {
		h.logger.Error("InventoryWorkbook failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}
	writeXLSX(w, "inventory.xlsx", data)
}
