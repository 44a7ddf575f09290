package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "househub"

type Prom struct {
	gatherer prometheus.Gatherer

	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// image cleanup (api inline purge + worker)
	CleanupDuration *prometheus.HistogramVec
	CleanupResults  *prometheus.CounterVec
	CleanupInFlight prometheus.Gauge

	UploadsTotal     *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	RateLimitedTotal *prometheus.CounterVec
}

// NewProm registers every collector on reg. Pass prometheus.NewRegistry() in
// tests so repeated construction does not panic on duplicate registration.
func NewProm(reg *prometheus.Registry) *Prom {
	p := &Prom{
		gatherer: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		CleanupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cleanup",
				Name:      "duration_seconds",
				Help:      "Image cleanup batch duration by source",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"source"}, // source=inline|worker
		),
		CleanupResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cleanup",
				Name:      "results_total",
				Help:      "Image cleanup outcomes.",
			},
			[]string{"source", "result"}, // result=removed|retry|failed
		),
		CleanupInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cleanup",
				Name:      "in_flight",
				Help:      "Cleanup tasks currently being processed (per process)",
			},
		),
		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "uploads",
				Name:      "files_total",
				Help:      "Uploaded image parts by result.",
			},
			[]string{"result"}, // result=stored|rejected|discarded
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Domain events by type and result.",
			},
			[]string{"type", "result"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter.",
			},
			[]string{"route"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.CleanupDuration, p.CleanupResults, p.CleanupInFlight,
		p.UploadsTotal, p.EventsPublished, p.RateLimitedTotal,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// Handler serves the registry in the Prometheus text format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// ObserveCleanup records a finished cleanup batch.
func (p *Prom) ObserveCleanup(source string, removed, retried, failed int, took time.Duration) {
	if p == nil {
		return
	}
	p.CleanupDuration.WithLabelValues(source).Observe(took.Seconds())
	p.CleanupResults.WithLabelValues(source, "removed").Add(float64(removed))
	p.CleanupResults.WithLabelValues(source, "retry").Add(float64(retried))
	p.CleanupResults.WithLabelValues(source, "failed").Add(float64(failed))
}

func (p *Prom) IncUploads(result string, n int) {
	if p == nil || n == 0 {
		return
	}
	p.UploadsTotal.WithLabelValues(result).Add(float64(n))
}

func (p *Prom) IncEvent(eventType, result string) {
	if p == nil {
		return
	}
	p.EventsPublished.WithLabelValues(eventType, result).Inc()
}

func (p *Prom) IncRateLimited(route string) {
	if p == nil {
		return
	}
	p.RateLimitedTotal.WithLabelValues(route).Inc()
}
