package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// statusResponseWriter captures the status code written by a handler.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// metricsMiddleware records request counts and latencies per route template.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(srw, r)

		s.metrics.RecordHTTPRequest(r.Method, routeTemplate(r), srw.statusCode, time.Since(start))
	})
}

// routeTemplate returns the matched route pattern rather than the raw path,
// keeping metric cardinality bounded.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	return template
}

// adminOnly requires HTTP basic auth matching the ledger's admin credential.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !s.ledger.VerifyAdmin(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="bankd admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
