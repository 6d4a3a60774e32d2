// Package httpapi 对话与库存的 HTTP 接口
package httpapi

import (
	"net/http"

	"thalrakshak-assistant/internal/models"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（/metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterChatRoutes 会话接口
func (r *Router) RegisterChatRoutes(h *ChatHandler) {
	r.HandleHandler(chatPrefix, h)
	r.HandleHandler(chatPrefix+"/", h)
}

// RegisterInventoryRoutes 库存接口
func (r *Router) RegisterInventoryRoutes(h *InventoryHandler) {
	r.HandleHandler(inventoryPath, h)
	r.HandleHandler(inventoryPath+"/", h)
}

// SessionCounter 当前会话数
type SessionCounter interface {
	Len() int
}

// InventorySource 当前库存快照（nil = 尚未加载）
type InventorySource interface {
	Current() *models.InventorySnapshot
}

// RegisterHealthRoutes /health
func (r *Router) RegisterHealthRoutes(sessions SessionCounter, inventory InventorySource) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		out := map[string]any{
			"status":           "ok",
			"inventory_loaded": false,
		}
		if sessions != nil {
			out["sessions"] = sessions.Len()
		}
		if inventory != nil {
			if snap := inventory.Current(); snap != nil {
				out["inventory_loaded"] = true
				out["inventory_source"] = snap.Source
			}
		}
		writeJSON(w, http.StatusOK, Ok(out))
	})
}
