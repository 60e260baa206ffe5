// Package metrics exposes the bot's Prometheus collectors. A Collector
// satisfies the observer interfaces of the registry, the orchestrator, the
// callback handler, the dispatcher and the work-item client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskbot/internal/pending"
)

const namespace = "taskbot"

// Collector records bot metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	pendingAuths    prometheus.Gauge
	pendingOutcomes *prometheus.CounterVec
	authStarted     prometheus.Counter
	authFinished    *prometheus.CounterVec
	callbacks       *prometheus.CounterVec
	commands        *prometheus.CounterVec
	workItemCalls   *prometheus.CounterVec
	workItemLatency *prometheus.HistogramVec
}

// New creates a collector with the Go and process collectors registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry: reg,
		pendingAuths: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_authentications",
			Help:      "Authentication attempts waiting for their callback",
		}),
		pendingOutcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_completions_total",
			Help:      "Pending attempts completed, by how they completed",
		}, []string{"outcome"}), // resolved, rejected, timeout, superseded
		authStarted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_started_total",
			Help:      "Authentication attempts started",
		}),
		authFinished: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_finished_total",
			Help:      "Authentication attempts reported to users, by result",
		}, []string{"result"}),
		callbacks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks received, by whether a pending attempt matched",
		}, []string{"result"}),
		commands: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched, by type",
		}, []string{"type"}),
		workItemCalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workitem_calls_total",
			Help:      "Work-item service calls, by operation and status",
		}, []string{"operation", "status"}),
		workItemLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workitem_call_duration_seconds",
			Help:      "Duration of work-item service calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) PendingChanged(n int) {
	c.pendingAuths.Set(float64(n))
}

func (c *Collector) Completed(outcome pending.Outcome) {
	c.pendingOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (c *Collector) AuthStarted() {
	c.authStarted.Inc()
}

func (c *Collector) AuthFinished(result string) {
	c.authFinished.WithLabelValues(result).Inc()
}

func (c *Collector) CallbackReceived(result string) {
	c.callbacks.WithLabelValues(result).Inc()
}

func (c *Collector) CommandHandled(commandType string) {
	c.commands.WithLabelValues(commandType).Inc()
}

func (c *Collector) ObserveCall(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.workItemCalls.WithLabelValues(operation, status).Inc()
	c.workItemLatency.WithLabelValues(operation).Observe(duration.Seconds())
}
