package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	TicketsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_issued_total",
			Help: "Tickets issued per event",
		},
		[]string{"event_id"},
	)

	CouponRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_coupon_redemptions_total",
			Help: "Coupon usages recorded per event",
		},
		[]string{"event_id"},
	)

	CapacityRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_capacity_rejections_total",
			Help: "Requests rejected by a capacity or limit check",
		},
		[]string{"reason"},
	)

	PublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_publish_failures_total",
			Help: "TicketsIssued deliveries that failed per sink",
		},
		[]string{"sink"},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticketing_live_subscribers",
			Help: "Open websocket subscribers on the live feed",
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T does not support hijacking", r.ResponseWriter)
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// InstrumentHandler records request latency labelled by the matched ServeMux pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
