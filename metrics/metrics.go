// Package metrics 求解器运行指标
package metrics

import (
	"errors"
	"net/http"
	"time"

	"airnet/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 求解结果标签
const (
	ResultConverged    = "converged"
	ResultNotConverged = "not_converged"
	ResultError        = "error"
)

// Registry 求解指标集合
type Registry struct {
	SolvesTotal   *prometheus.CounterVec
	Iterations    prometheus.Histogram
	LastResidual  prometheus.Gauge
	NotConverged  prometheus.Counter
	SolveDuration prometheus.Histogram
	registry      *prometheus.Registry
}

// NewRegistry 创建独立的指标注册表
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)
	r.SolvesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_solves_total",
			Help: "Total number of airflow network solves",
		},
		[]string{"result"},
	)
	r.Iterations = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "airnet_solve_iterations",
		Help:    "Newton-Raphson iterations per solve",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
	})
	r.LastResidual = f.NewGauge(prometheus.GaugeOpts{
		Name: "airnet_last_relative_residual",
		Help: "Relative residual sum|SUMF|/sum SUMAF of the last iteration",
	})
	r.NotConverged = f.NewCounter(prometheus.CounterOpts{
		Name: "airnet_not_converged_total",
		Help: "Total number of solves that hit the iteration limit",
	})
	r.SolveDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "airnet_solve_duration_seconds",
		Help:    "Solve duration in seconds",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 10.0},
	})
	return r
}

// ObserveSolve 记录一次求解。
// 未收敛但按警告策略返回 nil 错误的求解同样计入未收敛。
func (r *Registry) ObserveSolve(iterations int, residual float64, elapsed time.Duration, converged bool, err error) {
	result := ResultConverged
	switch {
	case err != nil && !errors.Is(err, types.ErrNotConverged):
		result = ResultError
	case err != nil || !converged:
		result = ResultNotConverged
		r.NotConverged.Inc()
	}
	r.SolvesTotal.WithLabelValues(result).Inc()
	r.Iterations.Observe(float64(iterations))
	r.LastResidual.Set(residual)
	r.SolveDuration.Observe(elapsed.Seconds())
}

// Handler 以 Prometheus 文本格式输出
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// GetPrometheusRegistry 底层注册表
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
