package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amoylab/atelier/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	namespace     string
	httpReqCnt    *prometheus.CounterVec
	httpDur       *prometheus.HistogramVec
	httpInfl      *prometheus.GaugeVec
	guardDecision *prometheus.CounterVec
	guardCache    *prometheus.CounterVec
	mutationCnt   *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	guardDecision := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "guard", Name: "decisions_total",
		Help: "API guard outcomes by result.",
	}, []string{"outcome"})
	guardCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "guard", Name: "cache_lookups_total",
		Help: "Principal cache lookups by result.",
	}, []string{"result"})
	mutationCnt := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "authz", Name: "mutations_total",
		Help: "Hierarchy-gated mutations by action and result.",
	}, []string{"action", "result"})
	r.MustRegister(guardDecision, guardCache, mutationCnt)

	return &Metrics{
		registry:      r,
		namespace:     ns,
		httpReqCnt:    httpReqCnt,
		httpDur:       httpDur,
		httpInfl:      httpInfl,
		guardDecision: guardDecision,
		guardCache:    guardCache,
		mutationCnt:   mutationCnt,
	}
}

// GuardDecision counts one guard outcome, e.g. "allowed", "unauthenticated", "inactive".
func (m *Metrics) GuardDecision(outcome string) {
	if m == nil {
		return
	}
	m.guardDecision.WithLabelValues(outcome).Inc()
}

// GuardCache counts a principal cache hit or miss.
func (m *Metrics) GuardCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.guardCache.WithLabelValues(result).Inc()
}

// Mutation counts a team mutation; err == nil is recorded as "ok".
func (m *Metrics) Mutation(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutationCnt.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func httpStatus(code int) string { return strconv.Itoa(code) }
