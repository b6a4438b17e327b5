package errors

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/copyleftdev/TRITMAP/internal/logging"
)

// Response is the JSON body written for failed REST requests.
type Response struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteJSON writes err as a JSON error body with its mapped status code.
func WriteJSON(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Error: err.Error(), Status: status})
}

// RecoveryMiddleware returns a middleware that recovers from panics.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					logger.Error("Recovered from panic", map[string]interface{}{
						"error":      rec,
						"stack":      string(debug.Stack()),
						"method":     r.Method,
						"path":       r.URL.Path,
						"query":      r.URL.RawQuery,
						"request_id": middleware.GetReqID(r.Context()),
					})

					WriteJSON(w, New("internal server error").WithStatus(http.StatusInternalServerError))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorHandler is a middleware that logs every request answered with a
// status of 400 or above.
func ErrorHandler(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusBadRequest {
				logger.Warn("Request error", map[string]interface{}{
					"status": ww.Status(),
					"method": r.Method,
					"path":   r.URL.Path,
					"query":  r.URL.RawQuery,
					"ip":     r.RemoteAddr,
				})
			}
		})
	}
}
