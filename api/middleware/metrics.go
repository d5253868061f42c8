package middleware

import (
	"net/http"
	"time"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/metrics"
)

// Metrics records request counts and latency keyed by the matched chi route,
// so /orders/{orderID} stays one series regardless of the id.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newRecorder(w)
			next.ServeHTTP(rec, r)
			m.Observe(routePattern(r), r.Method, rec.Status(), time.Since(start))
		})
	}
}
