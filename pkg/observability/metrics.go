package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the observability port consumed by the order workflow. It is
// injected rather than reached through package globals so tests can pass a
// no-op and the workflow stays free of process-wide counters.
type Metrics interface {
	OrderOperation(operation string, ok bool)
	StockAdjustFailure(direction string)
}

type PrometheusMetrics struct {
	orderOperations *prometheus.CounterVec
	stockFailures   *prometheus.CounterVec
}

func NewPrometheusMetrics(service string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		orderOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: service + "_order_operations_total",
			Help: "Total number of order operations.",
		}, []string{"operation", "status"}),
		stockFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: service + "_stock_adjust_failures_total",
			Help: "Stock adjustments that failed after the order was committed.",
		}, []string{"direction"}),
	}
	prometheus.MustRegister(m.orderOperations, m.stockFailures)
	return m
}

func (m *PrometheusMetrics) OrderOperation(operation string, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	m.orderOperations.WithLabelValues(operation, status).Inc()
}

func (m *PrometheusMetrics) StockAdjustFailure(direction string) {
	m.stockFailures.WithLabelValues(direction).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type NopMetrics struct{}

func (NopMetrics) OrderOperation(string, bool) {}
func (NopMetrics) StockAdjustFailure(string)   {}
