package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath - маршрут экспозиции метрик
const MetricsPath = "/metrics"

// PrometheusMiddleware считает HTTP-метрики API карты.
// Служебные маршруты (/metrics, /health) не учитываются, чтобы scrape
// и проверки живости не размывали латентность запросов рендера.
//
// Метрики (namespace = имя сервиса):
//   - http_request_duration_seconds{method,route,status}
//   - http_response_size_bytes{route} - размер тела; меши бывают крупными
//   - http_requests_inflight
//   - http_request_errors_total{method,route,status} - 4xx/5xx
type PrometheusMiddleware struct {
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inflight prometheus.Gauge
	errors   *prometheus.CounterVec
	gatherer prometheus.Gatherer
	skip     map[string]bool
}

// NewPrometheusMiddleware регистрирует метрики в reg.
// reg == nil - дефолтный регистр, и /metrics отдаёт заодно метрики процесса.
func NewPrometheusMiddleware(service string, reg *prometheus.Registry) *PrometheusMiddleware {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	pm := &PrometheusMiddleware{
		gatherer: gatherer,
		skip:     map[string]bool{MetricsPath: true, "/health": true},
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_response_size_bytes",
			Help:      "Размер тела ответа.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Запросы, завершившиеся статусом 4xx/5xx.",
		}, []string{"method", "route", "status"}),
	}

	registerer.MustRegister(pm.duration, pm.size, pm.inflight, pm.errors)
	return pm
}

// Handler возвращает middleware для router.Use()
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched" // не плодим серии по произвольным URL
		}
		if pm.skip[route] {
			c.Next()
			return
		}

		start := time.Now()
		pm.inflight.Inc()
		defer pm.inflight.Dec()

		c.Next()

		code := c.Writer.Status()
		status := strconv.Itoa(code)
		method := c.Request.Method

		pm.duration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n > 0 {
			pm.size.WithLabelValues(route).Observe(float64(n))
		}
		if code >= 400 {
			pm.errors.WithLabelValues(method, route, status).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(pm.gatherer, promhttp.HandlerOpts{})))
}
