// Package document 上传文档的校验、解码与文本提取
package document

import (
	"bytes"
	"path/filepath"
	"strings"

	"thalrakshak-assistant/internal/models"
)

// Upload 用户上传的文件
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
	// DeclaredSize 文件实际大小；超限文件只保留开头部分，此时大于 len(Data)
	DeclaredSize int64
}

// Size 文件大小
func (u Upload) Size() int64 {
	if n := int64(len(u.Data)); u.DeclaredSize < n {
		return n
	}
	return u.DeclaredSize
}

var pdfMagic = []byte("%PDF-")

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".heic": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// Kind 附件类型：pdf / image / unsupported
func (u Upload) Kind() string {
	ct := strings.ToLower(u.ContentType)
	ext := strings.ToLower(filepath.Ext(u.Name))
	switch {
	case bytes.HasPrefix(u.Data, pdfMagic), ct == "application/pdf", ext == ".pdf":
		return models.AttachmentPDF
	case strings.HasPrefix(ct, "image/"), imageExtensions[ext]:
		return models.AttachmentImage
	}
	return models.AttachmentUnsupported
}

// Attachment 转为会话附件描述
func (u Upload) Attachment() *models.Attachment {
	return &models.Attachment{
		Kind: u.Kind(),
		Name: u.Name,
		Size: u.Size(),
	}
}

// Limits 上传限制
type Limits struct {
	MaxBytes int64
	MaxPages int
}

// DefaultLimits 5 MB / 10 页
var DefaultLimits = Limits{
	MaxBytes: 5 * 1024 * 1024,
	MaxPages: 10,
}

// CheckSize 解码前检查大小
func (l Limits) CheckSize(u Upload) error {
	if u.Size() > l.MaxBytes {
		return &ValidationError{Err: ErrFileTooLarge, Limit: l.MaxBytes, Actual: u.Size()}
	}
	return nil
}

// CheckPages 读取任何页面之前检查页数
func (l Limits) CheckPages(doc Document) error {
	if n := doc.NumPages(); n > l.MaxPages {
		return &ValidationError{Err: ErrTooManyPages, Limit: int64(l.MaxPages), Actual: int64(n)}
	}
	return nil
}
