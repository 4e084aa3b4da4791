package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"movie-review-service/internal/metrics"
)

// wrap applies the shared request plumbing: the concurrency semaphore, the
// request body cap, and per-route metrics.
func (h *Handler) wrap(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case h.sem <- struct{}{}:
			defer func() { <-h.sem }()
		default:
			metrics.HTTPRequests.WithLabelValues(route, "429").Inc()
			writeError(w, http.StatusTooManyRequests, "Server busy, retry later.")
			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodySize)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// currentUser reads the caller identity. The fake-auth header stands in for
// a real auth collaborator; handlers only ever see the plain user id.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.Header.Get("X-User-ID")
	if user == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header.")
		return "", false
	}
	return user, true
}

func isAdmin(r *http.Request) bool {
	return r.Header.Get("X-Admin") == "true"
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !isAdmin(r) {
		writeError(w, http.StatusForbidden, "Admin privileges required.")
		return false
	}
	return true
}

// decodeBody parses a JSON request body, rejecting unknown fields the way
// the schema layer used to.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter, writing a 400 and
// returning ok=false when it is present but malformed.
func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}
