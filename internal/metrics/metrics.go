package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder abstracts metric recording so handlers and services never depend
// on Prometheus directly. Disabled metrics use the noop implementation.
type Recorder interface {
	// Credential lifecycle
	RecordAuthorizationStarted(provider string, success bool)
	RecordCallback(provider, outcome string)
	RecordTokenRefresh(provider string, success bool, duration time.Duration)
	RecordRevocation(provider string, remoteRevoked bool)
	RecordCredentialRead(provider, result string)

	// HTTP
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// Callback outcome labels
const (
	CallbackOutcomeCompleted = "completed"
	CallbackOutcomeDenied    = "denied"
	CallbackOutcomeRejected  = "rejected" // CSRF/state violation
	CallbackOutcomeFailed    = "failed"   // exchange or storage failure
)

// Credential read result labels
const (
	ReadResultOK               = "ok"
	ReadResultRefreshed        = "refreshed"
	ReadResultNotAuthenticated = "not_authenticated"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	AuthorizationsStartedTotal *prometheus.CounterVec
	CallbacksTotal             *prometheus.CounterVec
	TokenRefreshesTotal        *prometheus.CounterVec
	TokenRefreshDuration       *prometheus.HistogramVec
	RevocationsTotal           *prometheus.CounterVec
	CredentialReadsTotal       *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns a Prometheus-backed Recorder when enabled, otherwise a noop
// Recorder with zero overhead. sync.Once guards double registration.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		AuthorizationsStartedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zerotask_authorizations_started_total",
				Help: "Authorization flows started, by provider and success",
			},
			[]string{"provider", "success"},
		),
		CallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zerotask_oauth_callbacks_total",
				Help: "OAuth callbacks handled, by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		TokenRefreshesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zerotask_token_refreshes_total",
				Help: "Access token refresh attempts, by provider and success",
			},
			[]string{"provider", "success"},
		),
		TokenRefreshDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zerotask_token_refresh_duration_seconds",
				Help:    "Duration of token refresh round trips",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		RevocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zerotask_revocations_total",
				Help: "Credential revocations, by provider and remote outcome",
			},
			[]string{"provider", "remote_revoked"},
		),
		CredentialReadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zerotask_credential_reads_total",
				Help: "get-valid-credential calls, by provider and result",
			},
			[]string{"provider", "result"},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zerotask_http_requests_total",
				Help: "HTTP requests, by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zerotask_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (m *Metrics) RecordAuthorizationStarted(provider string, success bool) {
	m.AuthorizationsStartedTotal.WithLabelValues(provider, boolLabel(success)).Inc()
}

func (m *Metrics) RecordCallback(provider, outcome string) {
	m.CallbacksTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordTokenRefresh(provider string, success bool, duration time.Duration) {
	m.TokenRefreshesTotal.WithLabelValues(provider, boolLabel(success)).Inc()
	m.TokenRefreshDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordRevocation(provider string, remoteRevoked bool) {
	m.RevocationsTotal.WithLabelValues(provider, boolLabel(remoteRevoked)).Inc()
}

func (m *Metrics) RecordCredentialRead(provider, result string) {
	m.CredentialReadsTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
