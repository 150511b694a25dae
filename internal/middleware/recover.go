package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer is the single top-level catch-all boundary. It converts any
// panic escaping the pipeline into a 500 with the error serialized into the
// JSON body, and logs it at error severity with the request's trace ID.
// Secrets never appear here: the panic values the pipeline produces are
// domain errors and their messages carry no credential material.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("exception occurred handling request",
					"request_id", RequestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"error", rec,
					"stack", string(debug.Stack()),
				)

				serialized := map[string]interface{}{"message": "internal error"}
				switch v := rec.(type) {
				case error:
					serialized["message"] = v.Error()
				case string:
					serialized["message"] = v
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(serialized)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSONMessage writes a JSON error body with a message field.
func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": message})
}
