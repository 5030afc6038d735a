package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the scheduling metrics.
type MetricsService struct {
	registry *prometheus.Registry

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	unscheduledCourses prometheus.Histogram
	conflictsDetected  *prometheus.CounterVec
	simulationsTotal   prometheus.Counter
	queueDepth         prometheus.Gauge
}

func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &MetricsService{
		registry: registry,
		generationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "generations_total",
			Help:      "Generation runs by optimization level and outcome.",
		}, []string{"level", "status"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "generation_duration_seconds",
			Help:      "Wall clock duration of generation runs.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"level"}),
		unscheduledCourses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "unscheduled_courses",
			Help:      "Courses left unscheduled per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		conflictsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "conflicts_detected_total",
			Help:      "Conflicts reported by the detector, by kind.",
		}, []string{"kind"}),
		simulationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "simulations_total",
			Help:      "What-if simulations executed.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "timetable",
			Name:      "async_runs_pending",
			Help:      "Generation runs queued or in flight.",
		}),
	}
	registry.MustRegister(
		m.generationsTotal,
		m.generationDuration,
		m.unscheduledCourses,
		m.conflictsDetected,
		m.simulationsTotal,
		m.queueDepth,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registerer lets other layers attach their own collectors, such as the HTTP
// middleware.
func (m *MetricsService) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *MetricsService) ObserveGeneration(level, status string, elapsed time.Duration, unscheduled int) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(level, status).Inc()
	m.generationDuration.WithLabelValues(level).Observe(elapsed.Seconds())
	m.unscheduledCourses.Observe(float64(unscheduled))
}

func (m *MetricsService) ObserveConflict(kind string) {
	if m == nil {
		return
	}
	m.conflictsDetected.WithLabelValues(kind).Inc()
}

func (m *MetricsService) ObserveSimulation() {
	if m == nil {
		return
	}
	m.simulationsTotal.Inc()
}

func (m *MetricsService) SetPendingRuns(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
