package conversation

import "thalrakshak-assistant/internal/metrics"

// 上传结果（与 metrics 标签一致）
const (
	uploadAnalyzed     = metrics.UploadAnalyzed
	uploadTooLarge     = metrics.UploadTooLarge
	uploadTooManyPages = metrics.UploadTooManyPages
	uploadUnreadable   = metrics.UploadUnreadable
	uploadNoVitals     = metrics.UploadNoVitals
	uploadImage        = metrics.UploadImage
	uploadUnsupported  = metrics.UploadUnsupported
	uploadCancelled    = metrics.UploadCancelled
)
