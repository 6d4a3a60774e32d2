// Package responder 按意图生成助手回复
//
// 每个意图对应一个模板函数；模板只读取 Context，不修改会话状态。
package responder

import (
	"thalrakshak-assistant/internal/models"
	"thalrakshak-assistant/internal/vitals"
)

// Context 生成回复所需的会话状态（只读）
type Context struct {
	Text          string
	Inventory     *models.InventorySnapshot // nil = 库存尚未加载
	ActiveRequest *models.ActiveRequest
	Profile       *models.UserProfile
}

// TemplateFunc 单个意图的模板
type TemplateFunc func(ctx Context) string

// Options 模板中引用的配置
type Options struct {
	Thresholds   []models.ThresholdRange
	MaxFileBytes int64
	MaxPages     int
}

// Generator 回复生成器
type Generator struct {
	templates map[models.Intent]TemplateFunc
	opts      Options
}

// NewGenerator 创建生成器；未设置的选项使用默认值
func NewGenerator(opts Options) *Generator {
	if len(opts.Thresholds) == 0 {
		opts.Thresholds = vitals.DefaultThresholds()
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 5 * 1024 * 1024
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}

	g := &Generator{opts: opts}
	g.templates = map[models.Intent]TemplateFunc{
		models.IntentRequestBlood: requestBlood,
		models.IntentTrackRequest: trackRequest,
		models.IntentCheckStock:   checkStock,
		models.IntentSchedule:     schedule,
		models.IntentDonate:       donate,
		models.IntentEligibility:  g.eligibility,
		models.IntentRegister:     register,
		models.IntentEmergency:    emergency,
		models.IntentHelp:         help,
		models.IntentInventory:    inventoryListing,
		models.IntentFallback:     fallback,
	}
	return g
}

// Generate 生成回复；未知意图按 fallback 处理
func (g *Generator) Generate(intent models.Intent, ctx Context) string {
	tmpl, ok := g.templates[intent]
	if !ok {
		tmpl = fallback
	}
	return tmpl(ctx)
}
