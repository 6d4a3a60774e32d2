// Package metrics Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 上传处理结果
const (
	UploadAnalyzed     = "analyzed"
	UploadTooLarge     = "too_large"
	UploadTooManyPages = "too_many_pages"
	UploadUnreadable   = "unreadable"
	UploadNoVitals     = "no_vitals"
	UploadImage        = "image"
	UploadUnsupported  = "unsupported"
	UploadCancelled    = "cancelled"
)

// Recorder 服务指标（独立 registry，避免污染全局 DefaultRegisterer）
type Recorder struct {
	registry  *prometheus.Registry
	intents   *prometheus.CounterVec
	uploads   *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	sessions  prometheus.Gauge
}

// NewRecorder 创建并注册指标
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_classified_total",
			Help:      "Number of user messages classified, by intent.",
		}, []string{"intent"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_uploads_total",
			Help:      "Number of document uploads, by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_refreshes_total",
			Help:      "Number of inventory snapshot loads, by source.",
		}, []string{"source"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open conversation sessions.",
		}),
	}
	r.registry.MustRegister(
		r.intents,
		r.uploads,
		r.refreshes,
		r.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveIntent 记录一次意图分类
func (r *Recorder) ObserveIntent(intent string) {
	r.intents.WithLabelValues(intent).Inc()
}

// ObserveUpload 记录一次上传结果
func (r *Recorder) ObserveUpload(outcome string) {
	r.uploads.WithLabelValues(outcome).Inc()
}

// ObserveRefresh 记录一次库存加载来源
func (r *Recorder) ObserveRefresh(source string) {
	r.refreshes.WithLabelValues(source).Inc()
}

// SessionOpened / SessionClosed 会话数
func (r *Recorder) SessionOpened() { r.sessions.Inc() }
func (r *Recorder) SessionClosed() { r.sessions.Dec() }

// Registry 暴露 registry（测试用）
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler /metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
