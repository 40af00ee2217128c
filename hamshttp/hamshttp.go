// Package hamshttp implements the HTTP surface exposed under /hams: the
// routes an orchestrator polls for liveness/readiness, plus version and
// shutdown endpoints. It depends only on the small Facade interface so
// it never imports package hams (no import cycle) and is testable with
// a fake.
package hamshttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	jsonContentType    = "application/json; charset=utf-8"
	metricsContentType = "text/plain; version=0.0.4"
)

// CheckResult is the JSON shape returned by /hams/alive and /hams/ready.
type CheckResult struct {
	Name    string       `json:"name"`
	Valid   bool         `json:"valid"`
	Details []ProbeEntry `json:"details,omitempty"`
}

// ProbeEntry is one probe's contribution to a CheckResult.
type ProbeEntry struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
}

// VersionInfo is the JSON body returned by /hams/version.
type VersionInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	HamsName    string `json:"hams_name"`
	HamsVersion string `json:"hams_version"`
}

// Facade is the subset of a Hams instance this package needs to serve
// requests. It is satisfied by *hams.Hams.
type Facade interface {
	VersionInfo() VersionInfo
	CheckAlive(ctx context.Context, t time.Time, verbose bool) CheckResult
	CheckReady(ctx context.Context, t time.Time, verbose bool) CheckResult
	RequestShutdown()
	// Metrics returns the current Prometheus exposition text and whether
	// a formatter is registered at all.
	Metrics(ctx context.Context) (io.Reader, bool, error)
}

// New builds the /hams mux wired to the given Facade, instrumented with
// OpenTelemetry the way the teacher wraps its runtime HTTP handler.
func New(f Facade) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hams/version", versionHandler(f))
	mux.HandleFunc("/hams/alive", checkHandler(f, f.CheckAlive))
	mux.HandleFunc("/hams/ready", checkHandler(f, f.CheckReady))
	mux.HandleFunc("/hams/shutdown", shutdownHandler(f))
	mux.HandleFunc("/hams/metrics", metricsHandler(f))

	return otelhttp.NewHandler(mux, "hams")
}

func versionHandler(f Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, f.VersionInfo())
	}
}

func checkHandler(f Facade, check func(ctx context.Context, t time.Time, verbose bool) CheckResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose"))
		result := check(r.Context(), time.Now(), verbose)

		status := http.StatusOK
		if !result.Valid {
			status = http.StatusNotAcceptable
		}
		writeJSON(w, status, result)
	}
}

func shutdownHandler(f Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		f.RequestShutdown()
		writeJSON(w, http.StatusOK, f.VersionInfo())
	}
}

func metricsHandler(f Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		body, registered, err := f.Metrics(r.Context())
		if !registered {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", metricsContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, body)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
