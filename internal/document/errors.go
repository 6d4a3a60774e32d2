package document

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge 文件超过大小限制
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrTooManyPages 页数超过限制
	ErrTooManyPages = errors.New("document exceeds page limit")
	// ErrUnreadable 无法解码（损坏、加密、非 PDF）
	ErrUnreadable = errors.New("document cannot be decoded")
	// ErrNoText 没有可提取的文本（扫描件等）
	ErrNoText = errors.New("document has no extractable text")
)

// ValidationError 上传超出限制；提取不会被执行
type ValidationError struct {
	Err    error // ErrFileTooLarge / ErrTooManyPages
	Limit  int64
	Actual int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %d > %d", e.Err, e.Actual, e.Limit)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ParseError 文档无法解析或没有文本
type ParseError struct {
	Err   error // ErrUnreadable / ErrNoText
	Cause error // 底层错误（可为 nil）
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Err, e.Cause)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Encrypted 是否因加密无法读取
func (e *ParseError) Encrypted() bool {
	return errors.Is(e.Cause, errEncrypted)
}
