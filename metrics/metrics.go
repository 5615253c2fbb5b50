// Package metrics はリポジトリとAPIのPrometheusメトリクスを提供します。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "printledger"

// Metrics は専用レジストリに登録されたカウンタ群です。
// nil レシーバのメソッド呼び出しは何もしません。
type Metrics struct {
	registry        *prometheus.Registry
	mutations       *prometheus.CounterVec
	saveFailures    *prometheus.CounterVec
	skippedProjects prometheus.Counter
	requests        *prometheus.CounterVec
}

// New は新しいMetricsを作成します。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Number of successful repository mutations.",
		}, []string{"collection", "op"}),
		saveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_failures_total",
			Help:      "Number of failed saves to the backing store.",
		}, []string{"collection"}),
		skippedProjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_projects_total",
			Help:      "Number of project records skipped on load because their material was missing.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(
		m.mutations,
		m.saveFailures,
		m.skippedProjects,
		m.requests,
		collectors.NewGoCollector(),
	)
	return m
}

// Mutation は成功した変更操作を記録します。
func (m *Metrics) Mutation(collection, op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(collection, op).Inc()
}

// SaveFailure は保存の失敗を記録します。
func (m *Metrics) SaveFailure(collection string) {
	if m == nil {
		return
	}
	m.saveFailures.WithLabelValues(collection).Inc()
}

// SkippedProject は読み込み時にスキップしたプロジェクトを記録します。
func (m *Metrics) SkippedProject() {
	if m == nil {
		return
	}
	m.skippedProjects.Inc()
}

// Request はHTTPリクエストを記録します。
func (m *Metrics) Request(method, code string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, code).Inc()
}

// Handler は /metrics 用のハンドラを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SaveFailures は保存失敗のカウンタを返します。
func (m *Metrics) SaveFailures() *prometheus.CounterVec {
	return m.saveFailures
}

// SkippedProjects はスキップしたプロジェクトのカウンタを返します。
func (m *Metrics) SkippedProjects() prometheus.Counter {
	return m.skippedProjects
}
