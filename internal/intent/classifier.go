// Package intent 基于有序关键词规则的意图分类
package intent

import (
	"strings"

	"thalrakshak-assistant/internal/models"

	"golang.org/x/text/unicode/norm"
)

// Rule 一条分类规则：任一触发词（子串、不区分大小写）出现即命中
type Rule struct {
	Intent   models.Intent
	Triggers []string
}

// defaultRules 顺序即优先级；"inventory" 必须在最后，它的 "blood" 会覆盖大部分输入
var defaultRules = []Rule{
	{models.IntentRequestBlood, []string{"request blood", "need blood", "units of", "require blood", "blood needed", "urgently need"}},
	{models.IntentTrackRequest, []string{"track", "request status", "status of my request", "my request"}},
	{models.IntentCheckStock, []string{"do you have", "in stock", "stock", "available", "availability"}},
	{models.IntentSchedule, []string{"schedule", "appointment", "slot", "book"}},
	{models.IntentDonate, []string{"donate", "donation", "donor", "give blood", "compatible", "compatibility", "receive from"}},
	{models.IntentEligibility, []string{"eligible", "eligibility", "qualify", "requirements", "criteria"}},
	{models.IntentRegister, []string{"register", "sign up", "signup", "join", "create account"}},
	{models.IntentEmergency, []string{"emergency", "urgent", "critical", "accident", "asap"}},
	{models.IntentHelp, []string{"help", "what can you do", "how do i", "hello", "hey", "guide"}},
	{models.IntentInventory, []string{"blood", "inventory", "units", "supply", "levels"}},
}

// DefaultRules 默认规则表的副本
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	for i, r := range defaultRules {
		out[i] = Rule{Intent: r.Intent, Triggers: append([]string(nil), r.Triggers...)}
	}
	return out
}

// Observer 记录分类结果（由 metrics 实现）
type Observer interface {
	ObserveIntent(intent string)
}

// Classifier 有序规则分类器；无规则命中时返回 fallback
type Classifier struct {
	rules    []Rule
	observer Observer
}

// NewClassifier rules 为空时使用默认规则；触发词统一转为小写
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		triggers := make([]string, 0, len(r.Triggers))
		for _, t := range r.Triggers {
			if t = normalize(t); t != "" {
				triggers = append(triggers, t)
			}
		}
		normalized = append(normalized, Rule{Intent: r.Intent, Triggers: triggers})
	}
	return &Classifier{rules: normalized}
}

// WithObserver 设置分类观察者
func (c *Classifier) WithObserver(o Observer) *Classifier {
	c.observer = o
	return c
}

// Classify 返回第一条命中规则的意图
func (c *Classifier) Classify(text string) models.Intent {
	intent := c.match(normalize(text))
	if c.observer != nil {
		c.observer.ObserveIntent(string(intent))
	}
	return intent
}

func (c *Classifier) match(text string) models.Intent {
	if text == "" {
		return models.IntentFallback
	}
	for _, r := range c.rules {
		for _, t := range r.Triggers {
			if strings.Contains(text, t) {
				return r.Intent
			}
		}
	}
	return models.IntentFallback
}

var defaultClassifier = NewClassifier(nil)

// Classify 使用默认规则分类
func Classify(text string) models.Intent {
	return defaultClassifier.match(normalize(text))
}

// normalize NFKC + 小写 + 折叠空白
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFKC.String(s))), " ")
}
