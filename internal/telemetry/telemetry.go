package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Session open origins.
const (
	OriginNew      = "new"
	OriginExisting = "existing"
)

// Session close reasons.
const (
	ReasonSubmitted = "submitted"
	ReasonCancelled = "cancelled"
	ReasonExpired   = "expired"
	ReasonShutdown  = "shutdown"
)

// Device save sources.
const (
	SourceSession = "session"
	SourceAPI     = "api"
)

// Collector receives the console's operational events. Calls happen inline
// on request paths.
type Collector interface {
	IncSessionOpened(origin string)
	IncSessionClosed(reason string, count int)
	IncDeviceSaved(source string)
	ObserveProbe(protocol string, reachable bool, elapsed time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncSessionOpened(string)                  {}
func (noopCollector) IncSessionClosed(string, int)             {}
func (noopCollector) IncDeviceSaved(string)                    {}
func (noopCollector) ObserveProbe(string, bool, time.Duration) {}

// PrometheusCollector exposes the events as Prometheus metrics.
type PrometheusCollector struct {
	sessionsOpened *prometheus.CounterVec
	sessionsClosed *prometheus.CounterVec
	devicesSaved   *prometheus.CounterVec
	probeDuration  *prometheus.HistogramVec
}

// NewPrometheusCollector registers the metrics with reg, or with the default
// registerer when reg is nil. Registering twice on the same registry reuses
// the existing metrics.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	opened, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plc_console_sessions_opened_total",
		Help: "Number of device edit sessions opened, by origin.",
	}, []string{"origin"}))
	if err != nil {
		return nil, err
	}

	closed, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plc_console_sessions_closed_total",
		Help: "Number of device edit sessions closed, by reason.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}

	saved, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plc_console_devices_saved_total",
		Help: "Number of device records persisted, by source.",
	}, []string{"source"}))
	if err != nil {
		return nil, err
	}

	probe, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plc_console_probe_duration_seconds",
		Help:    "Duration of Modbus device probes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"protocol", "reachable"}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		sessionsOpened: opened,
		sessionsClosed: closed,
		devicesSaved:   saved,
		probeDuration:  probe,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func (p *PrometheusCollector) IncSessionOpened(origin string) {
	if p == nil {
		return
	}
	p.sessionsOpened.WithLabelValues(origin).Inc()
}

func (p *PrometheusCollector) IncSessionClosed(reason string, count int) {
	if p == nil || count <= 0 {
		return
	}
	p.sessionsClosed.WithLabelValues(reason).Add(float64(count))
}

func (p *PrometheusCollector) IncDeviceSaved(source string) {
	if p == nil {
		return
	}
	p.devicesSaved.WithLabelValues(source).Inc()
}

func (p *PrometheusCollector) ObserveProbe(protocol string, reachable bool, elapsed time.Duration) {
	if p == nil {
		return
	}
	label := "false"
	if reachable {
		label = "true"
	}
	p.probeDuration.WithLabelValues(protocol, label).Observe(elapsed.Seconds())
}
