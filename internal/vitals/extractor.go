// Package vitals 从报告文本中提取生命体征，并按阈值评估献血资格
package vitals

import (
	"regexp"
	"strconv"

	"thalrakshak-assistant/internal/models"
)

// FieldPattern 一个字段的提取规则；Group 为数值所在的捕获组
type FieldPattern struct {
	Field   models.VitalField
	Pattern *regexp.Regexp
	Group   int
}

// label 与数值之间允许的非数字间隔（如 "Hemoglobin (Hb): "）
const gap = `[^0-9\n]{0,24}?`

// numEnd 数值之后不得紧跟数字，否则 "135 g/L" 会被截成 13
// 句末的 "." 允许（"Hb 14.2."）
const numEnd = `(?:[^0-9.]|\.(?:[^0-9]|$)|$)`

var bloodPressurePattern = regexp.MustCompile(`(?i)\b(?:bp|blood\s*pressure)\b` + gap + `(\d{2,3})\s*/\s*(\d{2,3})` + numEnd)

// DefaultPatterns 默认提取表；同一字段按顺序尝试，第一条命中即生效
var DefaultPatterns = []FieldPattern{
	{models.VitalHemoglobin, regexp.MustCompile(`(?i)\b(?:ha?emoglobin|hgb|hb)\b` + gap + `(\d{1,2}(?:\.\d+)?)` + numEnd), 1},
	{models.VitalSystolic, bloodPressurePattern, 1},
	{models.VitalDiastolic, bloodPressurePattern, 2},
	{models.VitalSystolic, regexp.MustCompile(`(?i)\bsystolic\b` + gap + `(\d{2,3})` + numEnd), 1},
	{models.VitalDiastolic, regexp.MustCompile(`(?i)\bdiastolic\b` + gap + `(\d{2,3})` + numEnd), 1},
	{models.VitalPulse, regexp.MustCompile(`(?i)\b(?:pulse(?:\s*rate)?|heart\s*rate|hr)\b` + gap + `(\d{2,3})` + numEnd), 1},
	{models.VitalTemperature, regexp.MustCompile(`(?i)\b(?:temperature|temp)\b` + gap + `(\d{2}(?:\.\d+)?)` + numEnd), 1},
	{models.VitalWeight, regexp.MustCompile(`(?i)\b(?:body\s*)?weight\b` + gap + `(\d{2,3}(?:\.\d+)?)` + numEnd), 1},
	{models.VitalAge, regexp.MustCompile(`(?i)\bage\b` + gap + `(\d{1,3})` + numEnd), 1},
}

// Extract 按提取表读取各字段的第一个数值；未匹配的字段不出现在结果中
func Extract(text string, table []FieldPattern) models.VitalsReport {
	report := make(models.VitalsReport)
	for _, fp := range table {
		if report.Has(fp.Field) {
			continue
		}
		m := fp.Pattern.FindStringSubmatch(text)
		if m == nil || fp.Group >= len(m) {
			continue
		}
		v, err := strconv.ParseFloat(m[fp.Group], 64)
		if err != nil {
			continue
		}
		report.Set(fp.Field, v)
	}
	return report
}

// Extractor 绑定提取表的提取器
type Extractor struct {
	table []FieldPattern
}

// NewExtractor table 为空时使用 DefaultPatterns
func NewExtractor(table []FieldPattern) *Extractor {
	if len(table) == 0 {
		table = DefaultPatterns
	}
	return &Extractor{table: table}
}

// Extract 提取生命体征
func (e *Extractor) Extract(text string) models.VitalsReport {
	return Extract(text, e.table)
}
