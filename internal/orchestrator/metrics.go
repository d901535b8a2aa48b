package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ShayCichocki/taskengine/pkg/models"
)

// Metrics exposes Prometheus collectors that report engine activity.
type Metrics struct {
	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	iterations   prometheus.Histogram
	tasksActive  prometheus.Gauge
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Callers that build more than one engine per process should pass a fresh
// registry per engine. Registration errors panic, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskengine",
				Subsystem: "engine",
				Name:      "tasks_total",
				Help:      "Tasks that reached a terminal status, by status.",
			},
			[]string{"status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskengine",
				Subsystem: "engine",
				Name:      "task_duration_seconds",
				Help:      "Wall-clock time spent executing a task's command.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskengine",
				Subsystem: "engine",
				Name:      "runs_total",
				Help:      "Finished runs, by success and git outcome.",
			},
			[]string{"success", "git_outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "taskengine",
				Subsystem: "engine",
				Name:      "run_duration_seconds",
				Help:      "Duration of complete runs.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "taskengine",
				Subsystem: "engine",
				Name:      "run_iterations",
				Help:      "Scheduling passes per run.",
				Buckets:   prometheus.LinearBuckets(1, 2, 10),
			},
		),
		tasksActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskengine",
				Subsystem: "engine",
				Name:      "tasks_active",
				Help:      "Tasks currently executing.",
			},
		),
	}
	reg.MustRegister(m.tasks, m.taskDuration, m.runs, m.runDuration, m.iterations, m.tasksActive)
	return m
}

// TaskStarted marks a task as executing.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksActive.Inc()
}

// TaskFinished records a task's terminal status and execution time.
func (m *Metrics) TaskFinished(status models.TaskStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.tasksActive.Dec()
	m.tasks.WithLabelValues(string(status)).Inc()
	m.taskDuration.WithLabelValues(string(status)).Observe(d.Seconds())
}

// TasksBlocked counts tasks blocked by the deadlock step.
func (m *Metrics) TasksBlocked(n int) {
	if m == nil || n == 0 {
		return
	}
	m.tasks.WithLabelValues(string(models.TaskStatusBlocked)).Add(float64(n))
}

// RunFinished records the outcome of a run.
func (m *Metrics) RunFinished(s *models.RunSummary) {
	if m == nil || s == nil {
		return
	}
	success := "false"
	if s.Success {
		success = "true"
	}
	m.runs.WithLabelValues(success, string(s.GitOutcome)).Inc()
	m.runDuration.Observe(s.Duration.Seconds())
	m.iterations.Observe(float64(s.Iterations))
}
