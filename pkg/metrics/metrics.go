package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all scan-gateway metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics (control-plane API)
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Scan pipeline metrics
	ScansTotal          *prometheus.CounterVec
	ScansRejectedTotal  prometheus.Counter
	ProcessingBusy      prometheus.Gauge
	PendingCandidate    prometheus.Gauge
	KeystrokeEmits      prometheus.Counter
	KeystrokeEmitErrors prometheus.Counter

	// Remote call metrics
	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec

	// Pairing metrics
	AssignmentsTotal *prometheus.CounterVec

	// Serial device metrics
	SerialConnected    prometheus.Gauge
	DeviceErrorsTotal  prometheus.Counter
	ScanLinesFramed    prometheus.Counter
	SerialBytesRead    prometheus.Counter

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a Metrics instance with its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto{registry: registry, namespace: config.Namespace, service: config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: factory.counterVec("http_requests_total",
			"Total HTTP requests", []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.histogramVec("http_request_duration_seconds",
			"HTTP request duration", []string{"method", "path"},
			[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}),
		HTTPRequestsInFlight: factory.gauge("http_requests_in_flight",
			"HTTP requests currently being served"),

		ScansTotal: factory.counterVec("scans_total",
			"Total barcode scans routed, by operating mode", []string{"mode"}),
		ScansRejectedTotal: factory.counter("scans_rejected_total",
			"Scans dropped because the processing slot was occupied"),
		ProcessingBusy: factory.gauge("processing_busy",
			"Whether the single-flight processing slot is occupied"),
		PendingCandidate: factory.gauge("pending_candidate",
			"Whether a container candidate is pending pairing"),
		KeystrokeEmits: factory.counter("keystroke_emits_total",
			"Scans replayed as keyboard input"),
		KeystrokeEmitErrors: factory.counter("keystroke_emit_errors_total",
			"Failed keyboard replay attempts"),

		RemoteCallsTotal: factory.counterVec("remote_calls_total",
			"Remote lookup/link calls", []string{"operation", "outcome"}),
		RemoteCallDuration: factory.histogramVec("remote_call_duration_seconds",
			"Remote call duration", []string{"operation"},
			[]float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}),

		AssignmentsTotal: factory.counterVec("assignments_total",
			"Container-tag link attempts", []string{"outcome"}),

		SerialConnected: factory.gauge("serial_connected",
			"Whether the serial scanner connection is open"),
		DeviceErrorsTotal: factory.counter("device_errors_total",
			"Serial device read errors"),
		ScanLinesFramed: factory.counter("scan_lines_framed_total",
			"Complete barcode lines produced by the framer"),
		SerialBytesRead: factory.counter("serial_bytes_read_total",
			"Raw bytes read from the serial device"),

		KafkaEventsPublished: factory.counterVec("kafka_events_published_total",
			"Kafka events published", []string{"topic", "event_type", "status"}),
		KafkaPublishDuration: factory.histogramVec("kafka_publish_duration_seconds",
			"Kafka publish duration", []string{"topic"},
			[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}),

		CircuitBreakerState: factory.gaugeVec("circuit_breaker_state",
			"Circuit breaker state (0=closed, 1=half-open, 2=open)", []string{"name"}),
		CircuitBreakerTrips: factory.counterVec("circuit_breaker_trips_total",
			"Circuit breaker trips", []string{"name"}),
	}

	return m
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() { m.HTTPRequestsInFlight.Inc() }

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() { m.HTTPRequestsInFlight.Dec() }

// RecordScan records a routed scan for the given mode
func (m *Metrics) RecordScan(mode string) {
	m.ScansTotal.WithLabelValues(mode).Inc()
}

// RecordScanRejected records a contention rejection
func (m *Metrics) RecordScanRejected() {
	m.ScansRejectedTotal.Inc()
}

// SetProcessingBusy records single-flight slot occupancy
func (m *Metrics) SetProcessingBusy(busy bool) {
	m.ProcessingBusy.Set(boolToFloat(busy))
}

// SetPendingCandidate records whether a container candidate is held
func (m *Metrics) SetPendingCandidate(pending bool) {
	m.PendingCandidate.Set(boolToFloat(pending))
}

// RecordKeystrokeEmit records a keyboard replay attempt
func (m *Metrics) RecordKeystrokeEmit(success bool) {
	m.KeystrokeEmits.Inc()
	if !success {
		m.KeystrokeEmitErrors.Inc()
	}
}

// RecordRemoteCall records a remote lookup/link call
func (m *Metrics) RecordRemoteCall(operation, outcome string, duration time.Duration) {
	m.RemoteCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.RemoteCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAssignment records a completed link attempt
func (m *Metrics) RecordAssignment(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.AssignmentsTotal.WithLabelValues(outcome).Inc()
}

// SetSerialConnected records serial connection state
func (m *Metrics) SetSerialConnected(connected bool) {
	m.SerialConnected.Set(boolToFloat(connected))
}

// RecordDeviceError records a serial read error
func (m *Metrics) RecordDeviceError() {
	m.DeviceErrorsTotal.Inc()
}

// RecordFramedLine records a complete line produced by the framer
func (m *Metrics) RecordFramedLine() {
	m.ScanLinesFramed.Inc()
}

// RecordSerialBytes records raw bytes read from the device
func (m *Metrics) RecordSerialBytes(n int) {
	m.SerialBytesRead.Add(float64(n))
}

// RecordKafkaPublish records a Kafka publish attempt
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.KafkaEventsPublished.WithLabelValues(topic, eventType, status).Inc()
	m.KafkaPublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// SetCircuitBreakerState records circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(name).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// promauto is a small helper that registers collectors with consistent labels
type promauto struct {
	registry  *prometheus.Registry
	namespace string
	service   string
}

func (f promauto) counter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   f.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": f.service},
	})
	f.registry.MustRegister(c)
	return c
}

func (f promauto) counterVec(name, help string, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   f.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": f.service},
	}, labels)
	f.registry.MustRegister(c)
	return c
}

func (f promauto) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   f.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": f.service},
	})
	f.registry.MustRegister(g)
	return g
}

func (f promauto) gaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   f.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": f.service},
	}, labels)
	f.registry.MustRegister(g)
	return g
}

func (f promauto) histogramVec(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   f.namespace,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: prometheus.Labels{"service": f.service},
	}, labels)
	f.registry.MustRegister(h)
	return h
}
