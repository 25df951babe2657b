package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	supportMessages *prometheus.CounterVec
	chatFetches     *prometheus.CounterVec
	chatSends       *prometheus.CounterVec
	sessions        prometheus.Gauge
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_support_http_requests_total",
			Help: "HTTP requests handled, by route, method and status",
		}, []string{"path", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profile_support_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_support_http_errors_total",
			Help: "HTTP requests that ended in a domain error",
		}, []string{"path", "method", "code"}),
		supportMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_support_messages_total",
			Help: "Support messages stored, by sender",
		}, []string{"sender"}), // sender = "user", "support", "admin"
		chatFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_support_chat_fetches_total",
			Help: "Support log fetches issued by chat components",
		}, []string{"result"}),
		chatSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_support_chat_sends_total",
			Help: "Messages sent by chat components",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profile_support_sessions",
			Help: "Current number of live browser sessions",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestLatency,
		m.errors,
		m.supportMessages,
		m.chatFetches,
		m.chatSends,
		m.sessions,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordSupportMessage counts a stored support message.
func (m *Metrics) RecordSupportMessage(sender string) {
	if m == nil {
		return
	}
	m.supportMessages.WithLabelValues(sender).Inc()
}

// RecordChatFetch counts a chat log fetch.
func (m *Metrics) RecordChatFetch(err error) {
	if m == nil {
		return
	}
	m.chatFetches.WithLabelValues(result(err)).Inc()
}

// RecordChatSend counts a chat send attempt that reached the network.
func (m *Metrics) RecordChatSend(err error) {
	if m == nil {
		return
	}
	m.chatSends.WithLabelValues(result(err)).Inc()
}

// SetSessions reports the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
