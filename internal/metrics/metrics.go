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
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordTrialStarted()
	RecordDealsDeleted(count int)
	RecordDigestSent()
	RecordDigestFailed(reason string)
	RecordDigestLatency(duration time.Duration)
	RecordDealsDeactivated(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus       *prometheus.CounterVec
	trialStarted     prometheus.Counter
	dealsDeleted     prometheus.Counter
	digestSent       prometheus.Counter
	digestFailed     *prometheus.CounterVec
	digestLatency    prometheus.Histogram
	dealsDeactivated prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travira_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		trialStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travira_trial_started_total",
			Help: "トライアル開始の合計数",
		}),
		dealsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travira_deals_deleted_total",
			Help: "削除されたディールの合計数",
		}),
		digestSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travira_digest_sent_total",
			Help: "送信されたダイジェストメールの合計数",
		}),
		digestFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travira_digest_failed_total",
			Help: "ダイジェストメール送信失敗の合計数",
		}, []string{"reason"}),
		digestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "travira_digest_latency_seconds",
			Help:    "ダイジェスト送信サイクルのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		dealsDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travira_deals_deactivated_total",
			Help: "保持期間超過で非アクティブ化されたディールの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.trialStarted,
		c.dealsDeleted,
		c.digestSent,
		c.digestFailed,
		c.digestLatency,
		c.dealsDeactivated,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTrialStarted はトライアル開始を記録する。
func (c *Collector) RecordTrialStarted() {
	c.trialStarted.Inc()
}

// RecordDealsDeleted は削除されたディール数を記録する。
func (c *Collector) RecordDealsDeleted(count int) {
	c.dealsDeleted.Add(float64(count))
}

// RecordDigestSent はダイジェスト送信成功を記録する。
func (c *Collector) RecordDigestSent() {
	c.digestSent.Inc()
}

// RecordDigestFailed はダイジェスト送信失敗を記録する。
func (c *Collector) RecordDigestFailed(reason string) {
	c.digestFailed.WithLabelValues(reason).Inc()
}

// RecordDigestLatency はダイジェスト送信サイクルのレイテンシを記録する。
func (c *Collector) RecordDigestLatency(duration time.Duration) {
	c.digestLatency.Observe(duration.Seconds())
}

// RecordDealsDeactivated は非アクティブ化されたディール数を記録する。
func (c *Collector) RecordDealsDeactivated(count int) {
	c.dealsDeactivated.Add(float64(count))
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

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
