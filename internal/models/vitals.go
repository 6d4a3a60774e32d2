package models

// VitalField 体检报告中的生命体征字段
type VitalField string

const (
	VitalHemoglobin  VitalField = "hemoglobin"  // g/dL
	VitalSystolic    VitalField = "systolic"    // mmHg
	VitalDiastolic   VitalField = "diastolic"   // mmHg
	VitalPulse       VitalField = "pulse"       // bpm
	VitalTemperature VitalField = "temperature" // °C
	VitalWeight      VitalField = "weight"      // kg
	VitalAge         VitalField = "age"         // years
)

// VitalFields 固定顺序
var VitalFields = []VitalField{
	VitalHemoglobin,
	VitalSystolic,
	VitalDiastolic,
	VitalPulse,
	VitalTemperature,
	VitalWeight,
	VitalAge,
}

// VitalsReport 提取结果：字段缺失即 "absent"
type VitalsReport map[VitalField]float64

// Get 读取字段
func (r VitalsReport) Get(field VitalField) (float64, bool) {
	v, ok := r[field]
	return v, ok
}

// Has 字段是否存在
func (r VitalsReport) Has(field VitalField) bool {
	_, ok := r[field]
	return ok
}

// Set 写入字段
func (r VitalsReport) Set(field VitalField, value float64) {
	r[field] = value
}

// EligibilityResult 献血资格评估结果
type EligibilityResult struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// ThresholdRange 阈值范围（nil 表示该侧不限）
type ThresholdRange struct {
	Field VitalField
	Label string
	Unit  string
	Min   *float64
	Max   *float64
}
