// Package inventory 血库库存：快照持有、分级、来源（接口 / 缓存 / 兜底 / 推送）
package inventory

import "thalrakshak-assistant/internal/models"

// Tier 库存等级
type Tier string

const (
	TierCritical Tier = "critical"
	TierModerate Tier = "moderate"
	TierGood     Tier = "good"
)

// 分级阈值：<10 critical，10..19 moderate，>=20 good
const (
	ModerateFrom = 10
	GoodFrom     = 20
)

// ClassifyTier 按单位数分级（负数按 critical 处理）
func ClassifyTier(count int) Tier {
	switch {
	case count < ModerateFrom:
		return TierCritical
	case count < GoodFrom:
		return TierModerate
	default:
		return TierGood
	}
}

// TypeStatus 单个血型的库存状态
type TypeStatus struct {
	BloodType models.BloodType `json:"blood_type"`
	Units     int              `json:"units"`
	Tier      Tier             `json:"tier"`
}

// Summarize 按 AllBloodTypes 顺序输出每个血型的单位数与等级
func Summarize(snapshot *models.InventorySnapshot) []TypeStatus {
	if snapshot == nil {
		return nil
	}
	out := make([]TypeStatus, 0, len(models.AllBloodTypes))
	for _, bt := range models.AllBloodTypes {
		n := snapshot.UnitsFor(bt)
		out = append(out, TypeStatus{BloodType: bt, Units: n, Tier: ClassifyTier(n)})
	}
	return out
}
