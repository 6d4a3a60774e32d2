package models

import (
	"time"
)

// Intent 用户意图
type Intent string

const (
	IntentRequestBlood Intent = "request_blood"
	IntentTrackRequest Intent = "track_request"
	IntentCheckStock   Intent = "check_stock"
	IntentSchedule     Intent = "schedule"
	IntentDonate       Intent = "donate"
	IntentEligibility  Intent = "eligibility"
	IntentRegister     Intent = "register"
	IntentEmergency    Intent = "emergency"
	IntentHelp         Intent = "help"
	IntentInventory    Intent = "inventory"
	IntentFallback     Intent = "fallback"
)

// AllIntents 全部意图（与分类优先级一致，fallback 在最后）
var AllIntents = []Intent{
	IntentRequestBlood,
	IntentTrackRequest,
	IntentCheckStock,
	IntentSchedule,
	IntentDonate,
	IntentEligibility,
	IntentRegister,
	IntentEmergency,
	IntentHelp,
	IntentInventory,
	IntentFallback,
}

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// 附件类型
const (
	AttachmentPDF         = "pdf"
	AttachmentImage       = "image"
	AttachmentUnsupported = "unsupported"
)

// Attachment 附件描述
type Attachment struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ConversationTurn 会话中的一条消息（只追加）
type ConversationTurn struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// 血液申请状态
const (
	RequestStatusPending   = "pending"
	RequestStatusMatched   = "matched"
	RequestStatusFulfilled = "fulfilled"
)

// ActiveRequest 当前会话中的血液申请
type ActiveRequest struct {
	RequestID string    `json:"request_id"`
	BloodType BloodType `json:"blood_type"`
	Units     int       `json:"units"`
	Urgent    bool      `json:"urgent"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile 用户档案（由宿主提供，引擎只读）
type UserProfile struct {
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	BloodType     BloodType  `json:"blood_type,omitempty"`
	City          string     `json:"city,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	LastDonation  *time.Time `json:"last_donation,omitempty"`
	DonationCount int        `json:"donation_count"`
}
