package bloodtype

import (
	"sort"

	"thalrakshak-assistant/internal/models"
)

// canReceiveFrom 受血者 ← 可接受的献血者血型
var canReceiveFrom = map[models.BloodType][]models.BloodType{
	models.APositive:  {models.APositive, models.ANegative, models.OPositive, models.ONegative},
	models.ANegative:  {models.ANegative, models.ONegative},
	models.BPositive:  {models.BPositive, models.BNegative, models.OPositive, models.ONegative},
	models.BNegative:  {models.BNegative, models.ONegative},
	models.ABPositive: {models.APositive, models.ANegative, models.BPositive, models.BNegative, models.ABPositive, models.ABNegative, models.OPositive, models.ONegative},
	models.ABNegative: {models.ANegative, models.BNegative, models.ABNegative, models.ONegative},
	models.OPositive:  {models.OPositive, models.ONegative},
	models.ONegative:  {models.ONegative},
}

// canDonateTo 献血者 → 可输给的受血者血型
var canDonateTo = map[models.BloodType][]models.BloodType{
	models.APositive:  {models.APositive, models.ABPositive},
	models.ANegative:  {models.APositive, models.ANegative, models.ABPositive, models.ABNegative},
	models.BPositive:  {models.BPositive, models.ABPositive},
	models.BNegative:  {models.BPositive, models.BNegative, models.ABPositive, models.ABNegative},
	models.ABPositive: {models.ABPositive},
	models.ABNegative: {models.ABPositive, models.ABNegative},
	models.OPositive:  {models.APositive, models.BPositive, models.ABPositive, models.OPositive},
	models.ONegative:  {models.APositive, models.ANegative, models.BPositive, models.BNegative, models.ABPositive, models.ABNegative, models.OPositive, models.ONegative},
}

// CompatibilityEdge 某血型的相容关系
type CompatibilityEdge struct {
	BloodType      models.BloodType
	CanDonateTo    []models.BloodType
	CanReceiveFrom []models.BloodType
}

// CanReceiveFrom 可以给 bt 献血的血型；未知血型返回空
func CanReceiveFrom(bt models.BloodType) []models.BloodType {
	return clone(canReceiveFrom[bt])
}

// CanDonateTo bt 可以献给的血型；未知血型返回空
func CanDonateTo(bt models.BloodType) []models.BloodType {
	return clone(canDonateTo[bt])
}

// Edge 返回完整相容关系
func Edge(bt models.BloodType) (CompatibilityEdge, bool) {
	if !bt.Valid() {
		return CompatibilityEdge{BloodType: bt}, false
	}
	return CompatibilityEdge{
		BloodType:      bt,
		CanDonateTo:    CanDonateTo(bt),
		CanReceiveFrom: CanReceiveFrom(bt),
	}, true
}

// DonorStock 有库存的相容献血血型
type DonorStock struct {
	BloodType models.BloodType
	Units     int
}

// CompatibleDonorsInStock 当前有库存、且可输给 bt 的血型（按单位数降序，同数按固定顺序）
func CompatibleDonorsInStock(bt models.BloodType, snapshot *models.InventorySnapshot) []DonorStock {
	if snapshot == nil {
		return nil
	}
	var out []DonorStock
	for _, donor := range canReceiveFrom[bt] {
		if n := snapshot.UnitsFor(donor); n > 0 {
			out = append(out, DonorStock{BloodType: donor, Units: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Units > out[j].Units
	})
	return out
}

func clone(in []models.BloodType) []models.BloodType {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.BloodType, len(in))
	copy(out, in)
	return out
}
