// Package bloodtype 血型识别与输血相容性
package bloodtype

import (
	"regexp"
	"strings"

	"thalrakshak-assistant/internal/models"

	"golang.org/x/text/unicode/norm"
)

// AB 必须排在 A、B 之前，否则 "AB+" 会被截成 "B+"
// 紧凑写法（"O+"、"O+ve"）：符号后须为非单词字符或文本结尾
// 带一个空格（"A -"）：符号后只能是标点或文本结尾，"Plan A - call me" 不算血型
var bloodTypePattern = regexp.MustCompile(
	`(?i)\b(?:(AB|A|B|O)([+-])(?:ve)?(?:\W|$)|(AB|A|B|O) ([+-])(?:[^\w\s]|$))`)

// NFKC 不会处理的减号变体
var minusReplacer = strings.NewReplacer(
	"−", "-", // minus sign
	"–", "-", // en dash
	"‒", "-", // figure dash
)

// Normalize 统一全角字符与各种减号
func Normalize(text string) string {
	return minusReplacer.Replace(norm.NFKC.String(text))
}

// Extract 从文本中提取第一个血型
// 只接受 "组别 + 符号"，单独的 "A" 不算匹配
func Extract(text string) (models.BloodType, bool) {
	m := bloodTypePattern.FindStringSubmatch(Normalize(text))
	if m == nil {
		return "", false
	}
	group, sign := m[1], m[2]
	if group == "" {
		group, sign = m[3], m[4]
	}
	bt := models.BloodType(strings.ToUpper(group) + sign)
	if !bt.Valid() {
		return "", false
	}
	return bt, true
}

// Parse 解析单个血型字符串（如 "ab-"、"O +"），整个字符串必须是血型
func Parse(s string) (models.BloodType, bool) {
	s = strings.TrimSpace(Normalize(s))
	bt, ok := Extract(s)
	if !ok {
		return "", false
	}
	if compact := strings.ReplaceAll(s, " ", ""); !strings.EqualFold(compact, string(bt)) {
		return "", false
	}
	return bt, true
}
