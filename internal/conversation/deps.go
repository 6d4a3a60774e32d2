package conversation

import (
	"errors"
	"strings"
	"time"

	"thalrakshak-assistant/internal/document"
	"thalrakshak-assistant/internal/intent"
	"thalrakshak-assistant/internal/models"
	"thalrakshak-assistant/internal/responder"
	"thalrakshak-assistant/internal/vitals"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound 会话不存在（或已回收）
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("session closed")
)

// IntentClassifier 意图分类
type IntentClassifier interface {
	Classify(text string) models.Intent
}

// VitalsExtractor 生命体征提取
type VitalsExtractor interface {
	Extract(text string) models.VitalsReport
}

// EligibilityEvaluator 献血资格评估
type EligibilityEvaluator interface {
	Evaluate(report models.VitalsReport) models.EligibilityResult
}

// InventorySource 当前库存快照（nil = 尚未加载）
type InventorySource interface {
	Current() *models.InventorySnapshot
}

// UploadObserver 记录上传结果（metrics）
type UploadObserver interface {
	ObserveUpload(outcome string)
}

// SessionObserver 记录会话数（metrics）
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}

// Dependencies 会话共享的只读组件；零值字段在 withDefaults 中补齐
type Dependencies struct {
	Classifier IntentClassifier
	Generator  *responder.Generator
	Inventory  InventorySource
	Reader     document.Reader
	Limits     document.Limits
	Extractor  VitalsExtractor
	Evaluator  EligibilityEvaluator
	Uploads    UploadObserver
	Logger     *zap.Logger
	Now        func() time.Time
	NewID      func() string
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Classifier == nil {
		d.Classifier = intent.NewClassifier(nil)
	}
	if d.Limits.MaxBytes <= 0 {
		d.Limits.MaxBytes = document.DefaultLimits.MaxBytes
	}
	if d.Limits.MaxPages <= 0 {
		d.Limits.MaxPages = document.DefaultLimits.MaxPages
	}
	if d.Generator == nil {
		d.Generator = responder.NewGenerator(responder.Options{
			MaxFileBytes: d.Limits.MaxBytes,
			MaxPages:     d.Limits.MaxPages,
		})
	}
	if d.Inventory == nil {
		d.Inventory = noInventory{}
	}
	if d.Reader == nil {
		d.Reader = document.NewPDFReader()
	}
	if d.Extractor == nil {
		d.Extractor = vitals.NewExtractor(nil)
	}
	if d.Evaluator == nil {
		d.Evaluator = vitals.NewEvaluator(nil)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.New().String() }
	}
	return d
}

type noInventory struct{}

func (noInventory) Current() *models.InventorySnapshot { return nil }

// requestID 由 uuid 派生的短申请号
func requestID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "REQ-" + strings.ToUpper(id)
}
