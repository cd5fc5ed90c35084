package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	"github.com/routepeer-io/routepeer/pkg/log"
)

const HeaderRequestID = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger gives every request an id and a logger carrying it, and
// observes the latency per route template.
func RequestLogger(name string) mux.MiddlewareFunc {
	base := log.WithName(name)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			logger := base.WithValues("requestID", id, "method", r.Method, "path", r.URL.Path)
			rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(log.NewContext(r.Context(), logger)))

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			elapsed := time.Since(start)
			metrics.RequestLatency.WithLabelValues(route, strconv.Itoa(rec.code)).Observe(elapsed.Seconds())
			logger.Debug("Request served", "code", rec.code, "duration", elapsed)
		})
	}
}
