package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes the service metrics on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	resetEvents     *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	adminActions    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmax_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmax_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route", "method"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmax_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		resetEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmax_password_reset_events_total",
				Help: "Password reset flow events by stage and result",
			},
			[]string{"stage", "result"},
		),
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmax_recommendations_total",
				Help: "Recommendations served by bond and action",
			},
			[]string{"bond", "action"},
		),
		adminActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmax_admin_actions_total",
				Help: "Admin user-management actions by kind and result",
			},
			[]string{"action", "result"},
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request
func (r *Recorder) ObserveRequest(route, method, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(route, method, status).Inc()
	r.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Login records a login attempt
func (r *Recorder) Login(ok bool) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(result(ok)).Inc()
}

// ResetEvent records a step of the password reset flow
func (r *Recorder) ResetEvent(stage string, ok bool) {
	if r == nil {
		return
	}
	r.resetEvents.WithLabelValues(stage, result(ok)).Inc()
}

// Recommendation records a served recommendation
func (r *Recorder) Recommendation(bondID, action string) {
	if r == nil {
		return
	}
	r.recommendations.WithLabelValues(bondID, action).Inc()
}

// AdminAction records an admin user-management action
func (r *Recorder) AdminAction(action string, ok bool) {
	if r == nil {
		return
	}
	r.adminActions.WithLabelValues(action, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
