package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns every collector the service exports. It implements
// exam.Observer.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	examsAssembled  *prometheus.CounterVec
	examQuestions   *prometheus.HistogramVec
	denials         *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	ledgerFailures  prometheus.Counter
	statsFoldErrors prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		examsAssembled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_papers_assembled_total",
				Help: "Papers returned to learners, by mode",
			},
			[]string{"mode"},
		),
		examQuestions: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exam_paper_questions",
				Help:    "Questions per assembled paper, by mode",
				Buckets: []float64{10, 20, 30, 40, 60, 80},
			},
			[]string{"mode"},
		),
		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_entitlement_denials_total",
				Help: "Exam requests refused by the entitlement gate, by code",
			},
			[]string{"code"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_submissions_total",
				Help: "Recorded submissions, by tier",
			},
			[]string{"tier"},
		),
		ledgerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_ledger_update_failures_total",
			Help: "Learner ledger updates that failed after a submission was saved",
		}),
		statsFoldErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_stats_fold_failures_total",
			Help: "Per-question statistics updates that were skipped",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.examsAssembled,
		m.examQuestions,
		m.denials,
		m.submissions,
		m.ledgerFailures,
		m.statsFoldErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ── exam.Observer ──────────────────────────────────────

func (m *Metrics) ExamAssembled(mode string, questions int) {
	m.examsAssembled.WithLabelValues(mode).Inc()
	m.examQuestions.WithLabelValues(mode).Observe(float64(questions))
}

func (m *Metrics) EntitlementDenied(code string) {
	m.denials.WithLabelValues(code).Inc()
}

func (m *Metrics) SubmissionRecorded(premium bool) {
	tier := "free"
	if premium {
		tier = "premium"
	}
	m.submissions.WithLabelValues(tier).Inc()
}

func (m *Metrics) LedgerUpdateFailed() { m.ledgerFailures.Inc() }
func (m *Metrics) StatsFoldFailed()    { m.statsFoldErrors.Inc() }

// ── HTTP ───────────────────────────────────────────────

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by the mux
// route template, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		endpoint := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		m.requests.WithLabelValues(r.Method, endpoint, strconv.Itoa(sw.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
