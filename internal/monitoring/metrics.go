package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 分类指标
	ClassificationsTotal *prometheus.CounterVec

	// 工作流动作指标
	ActionsTotal *prometheus.CounterVec

	// 流水线指标
	EmailProcessingTime prometheus.Histogram
	BatchRunsTotal      prometheus.Counter
	BatchMessagesTotal  *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailagent_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailagent_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		ClassificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailagent_classifications_total",
				Help: "Total number of classified messages",
			},
			[]string{"intent", "priority"},
		),

		ActionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailagent_workflow_actions_total",
				Help: "Total number of workflow action attempts",
			},
			[]string{"action", "status"},
		),

		EmailProcessingTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailagent_email_processing_duration_seconds",
				Help:    "End to end processing duration per message in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		BatchRunsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailagent_batch_runs_total",
				Help: "Total number of batch agent runs",
			},
		),

		BatchMessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailagent_batch_messages_total",
				Help: "Total number of messages handled by batch runs",
			},
			[]string{"result"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailagent_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailagent_panics_total",
				Help: "Total number of panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordClassification 记录一次分类结果
func (m *Metrics) RecordClassification(intent, priority string) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(intent, priority).Inc()
}

// RecordAction 记录一次工作流动作尝试
func (m *Metrics) RecordAction(action, status string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(action, status).Inc()
}

// RecordProcessingTime 记录单封邮件的端到端处理耗时
func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	if m == nil {
		return
	}
	m.EmailProcessingTime.Observe(duration.Seconds())
}

// RecordBatchRun 记录一次批处理执行及其各类结果数量
func (m *Metrics) RecordBatchRun(processed, skipped, failed int) {
	if m == nil {
		return
	}
	m.BatchRunsTotal.Inc()
	m.BatchMessagesTotal.WithLabelValues("processed").Add(float64(processed))
	m.BatchMessagesTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.BatchMessagesTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
