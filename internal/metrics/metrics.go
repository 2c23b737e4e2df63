// Package metrics declares the Prometheus collectors exported by the studio
// service and the HTTP middleware that feeds them.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var LegacyFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "studio_legacy_fetch_total",
	Help: "Number of legacy configuration service fetches, partitioned by endpoint and outcome.",
}, []string{"endpoint", "outcome"})

var LegacyFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "studio_legacy_fetch_duration_seconds",
	Help:    "Latency of legacy configuration service fetches.",
	Buckets: prometheus.DefBuckets,
}, []string{"endpoint"})

var CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "studio_legacy_cache_total",
	Help: "Legacy document cache lookups, partitioned by document kind and result.",
}, []string{"kind", "result"})

var ContentTypesServed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "studio_content_types_normalized_total",
	Help: "Content types normalised, partitioned by operation.",
}, []string{"operation"})

var AuditEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "studio_audit_events_dropped_total",
	Help: "Audit events dropped because the write queue was full.",
})

var HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "studio_http_requests_total",
	Help: "How many HTTP requests processed, partitioned by status code and HTTP method.",
}, []string{"code", "method"})

// Register adds every collector to the given registerer.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		LegacyFetches,
		LegacyFetchDuration,
		CacheLookups,
		ContentTypesServed,
		AuditEventsDropped,
		HTTPRequests,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

type codedResponseWriter struct {
	http.ResponseWriter
	code int
}

func (c *codedResponseWriter) WriteHeader(statusCode int) {
	c.code = statusCode
	c.ResponseWriter.WriteHeader(statusCode)
}

// TrackHTTP counts every request passing through handler.
func TrackHTTP(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &codedResponseWriter{ResponseWriter: w, code: http.StatusOK}
		handler.ServeHTTP(ww, r)
		HTTPRequests.WithLabelValues(strconv.Itoa(ww.code), r.Method).Inc()
	})
}
