// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	ObserveRequest(method, path string, statusCode int, duration time.Duration)
	RecordPersonCreated()
	RecordPersonUpdated()
	RecordPersonDeleted()
	RecordValidationFailure()
	RecordChangeBroadcast(action string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	personsCreated   prometheus.Counter
	personsUpdated   prometheus.Counter
	personsDeleted   prometheus.Counter
	validationFails  prometheus.Counter
	changeBroadcasts *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "personbook_http_requests_total",
			Help: "メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "personbook_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		personsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "personbook_persons_created_total",
			Help: "作成されたPersonの合計数",
		}),
		personsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "personbook_persons_updated_total",
			Help: "更新されたPersonの合計数",
		}),
		personsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "personbook_persons_deleted_total",
			Help: "削除されたPersonの合計数",
		}),
		validationFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "personbook_validation_failures_total",
			Help: "検証エラーで拒否されたリクエストの合計数",
		}),
		changeBroadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "personbook_change_broadcasts_total",
			Help: "アクション別の変更通知発行数",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestLatency,
		c.personsCreated,
		c.personsUpdated,
		c.personsDeleted,
		c.validationFails,
		c.changeBroadcasts,
	)

	return c
}

// ObserveRequest はHTTPリクエストの結果とレイテンシを記録する。
// pathはラベルに含めない（IDを含むパスでカーディナリティが発散するため）。
func (c *Collector) ObserveRequest(method, path string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.Observe(duration.Seconds())
}

// RecordPersonCreated はPerson作成を記録する。
func (c *Collector) RecordPersonCreated() {
	c.personsCreated.Inc()
}

// RecordPersonUpdated はPerson更新を記録する。
func (c *Collector) RecordPersonUpdated() {
	c.personsUpdated.Inc()
}

// RecordPersonDeleted はPerson削除を記録する。
func (c *Collector) RecordPersonDeleted() {
	c.personsDeleted.Inc()
}

// RecordValidationFailure は検証エラーを記録する。
func (c *Collector) RecordValidationFailure() {
	c.validationFails.Inc()
}

// RecordChangeBroadcast は変更通知の発行を記録する。
func (c *Collector) RecordChangeBroadcast(action string) {
	c.changeBroadcasts.WithLabelValues(action).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
