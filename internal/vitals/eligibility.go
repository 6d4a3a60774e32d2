package vitals

import (
	"fmt"
	"strconv"

	"thalrakshak-assistant/internal/models"
)

func bound(v float64) *float64 { return &v }

// defaultThresholds 献血阈值（闭区间）
var defaultThresholds = []models.ThresholdRange{
	{Field: models.VitalHemoglobin, Label: "Hemoglobin", Unit: "g/dL", Min: bound(12.5), Max: bound(18)},
	{Field: models.VitalSystolic, Label: "Systolic blood pressure", Unit: "mmHg", Min: bound(90), Max: bound(180)},
	{Field: models.VitalDiastolic, Label: "Diastolic blood pressure", Unit: "mmHg", Min: bound(60), Max: bound(100)},
	{Field: models.VitalPulse, Label: "Pulse", Unit: "bpm", Min: bound(60), Max: bound(100)},
	{Field: models.VitalTemperature, Label: "Temperature", Unit: "°C", Min: bound(36.5), Max: bound(37.5)},
	{Field: models.VitalWeight, Label: "Weight", Unit: "kg", Min: bound(50)},
	{Field: models.VitalAge, Label: "Age", Unit: "years", Min: bound(18), Max: bound(65)},
}

// DefaultThresholds 默认阈值表的副本
func DefaultThresholds() []models.ThresholdRange {
	out := make([]models.ThresholdRange, len(defaultThresholds))
	copy(out, defaultThresholds)
	return out
}

// Evaluate 评估报告中出现的每个字段；缺失字段跳过。Reasons 按阈值表顺序，且从不为 nil
func Evaluate(report models.VitalsReport, thresholds []models.ThresholdRange) models.EligibilityResult {
	reasons := []string{}
	for _, th := range thresholds {
		v, ok := report.Get(th.Field)
		if !ok {
			continue
		}
		if reason, violated := check(th, v); violated {
			reasons = append(reasons, reason)
		}
	}
	return models.EligibilityResult{
		Eligible: len(reasons) == 0,
		Reasons:  reasons,
	}
}

func check(th models.ThresholdRange, v float64) (string, bool) {
	switch {
	case th.Min != nil && v < *th.Min:
		return fmt.Sprintf("%s %s %s is below the minimum of %s %s",
			th.Label, FormatValue(v), th.Unit, FormatValue(*th.Min), th.Unit), true
	case th.Max != nil && v > *th.Max:
		return fmt.Sprintf("%s %s %s is above the maximum of %s %s",
			th.Label, FormatValue(v), th.Unit, FormatValue(*th.Max), th.Unit), true
	}
	return "", false
}

// FormatValue 数值的最短表示（12.5、120）
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Evaluator 绑定阈值表的评估器
type Evaluator struct {
	thresholds []models.ThresholdRange
}

// NewEvaluator thresholds 为空时使用默认阈值
func NewEvaluator(thresholds []models.ThresholdRange) *Evaluator {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	return &Evaluator{thresholds: thresholds}
}

// Evaluate 评估献血资格
func (e *Evaluator) Evaluate(report models.VitalsReport) models.EligibilityResult {
	return Evaluate(report, e.thresholds)
}

// Thresholds 阈值表副本（用于展示资格标准）
func (e *Evaluator) Thresholds() []models.ThresholdRange {
	out := make([]models.ThresholdRange, len(e.thresholds))
	copy(out, e.thresholds)
	return out
}
