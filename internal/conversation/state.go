// Package conversation 会话编排：每个会话一个串行状态机
package conversation

// State 会话状态
type State string

const (
	StateIdle             State = "idle"
	StateClassifying      State = "classifying"
	StateResponding       State = "responding"
	StateValidatingUpload State = "validating_upload"
	StateExtracting       State = "extracting"
	StateEvaluating       State = "evaluating"
)

// TransitionFunc 状态变化回调（在会话的 worker goroutine 中调用，不能阻塞）
type TransitionFunc func(from, to State)
