package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	signInsTotal          *prometheus.CounterVec
	surveySubmissionTotal *prometheus.CounterVec
	screenTransitions     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors of the survey API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "survey_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		signInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_sign_ins_total",
			Help: "Sign-in attempts by method and outcome.",
		}, []string{"method", "outcome"})

		surveySubmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_submissions_total",
			Help: "Accepted survey submissions by grade.",
		}, []string{"grade"})

		screenTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_screen_transitions_total",
			Help: "Screen state transitions by event and resulting state.",
		}, []string{"event", "state"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, signInsTotal, surveySubmissionTotal, screenTransitions)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SignIns exposes the sign-in counter.
func SignIns() *prometheus.CounterVec {
	RegisterMetrics()
	return signInsTotal
}

// SurveySubmissions exposes the submission counter.
func SurveySubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return surveySubmissionTotal
}

// ScreenTransitions exposes the screen transition counter.
func ScreenTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return screenTransitions
}
