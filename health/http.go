package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Report is the JSON body of the detailed health endpoints.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is the JSON form of a single Result.
type CheckReport struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func newCheckReport(r Result) CheckReport {
	report := CheckReport{
		Status:   r.Status,
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		report.Error = r.Error.Error()
	}
	return report
}

// httpStatus maps Degraded to 200: a cache reading through to the store
// still serves traffic.
func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Routes returns a router serving:
//
//	GET /healthz        liveness, always 200
//	GET /readyz         readiness as plain text
//	GET /health         every check as JSON
//	GET /health/{name}  one check as JSON
func Routes(agg *Aggregator) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", LivenessHandler())
	r.Get("/readyz", ReadinessHandler(agg))
	r.Get("/health", DetailedHandler(agg))
	r.Get("/health/{name}", SingleCheckHandler(agg))
	return r
}

// LivenessHandler reports that the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs every check and writes the overall status.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := agg.OverallStatus(agg.CheckAll(r.Context()))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(httpStatus(status))
		switch status {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// DetailedHandler writes a Report covering every check.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		report := Report{
			Status:    agg.OverallStatus(results),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckReport, len(results)),
		}
		for name, result := range results {
			report.Checks[name] = newCheckReport(result)
		}
		writeJSON(w, httpStatus(report.Status), report)
	}
}

// SingleCheckHandler writes the CheckReport of the checker named by the
// {name} route parameter.
func SingleCheckHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := agg.Check(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, httpStatus(result.Status), newCheckReport(result))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
