package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_orders_updated_total",
		Help: "Total number of order line revisions applied",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_orders_delivered_total",
		Help: "Total number of delivered orders",
	})

	OrdersFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_orders_finalized_total",
		Help: "Total number of finalized orders",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_orders_rejected_total",
		Help: "Total number of rejected order operations",
	}, []string{"reason"})

	ReservationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rental_stock_reservation_latency_seconds",
		Help:    "Latency of stock reservation transactions",
		Buckets: prometheus.DefBuckets,
	})

	StockReleaseClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_stock_release_clamped_total",
		Help: "Times a release would have driven stock_reservado negative",
	})

	IncidentsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_incidents_opened_total",
		Help: "Total number of incidents opened",
	})

	IncidentsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_incidents_resolved_total",
		Help: "Total number of incidents resolved",
	}, []string{"resultado"})

	IncidentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_incidents_rejected_total",
		Help: "Total number of rejected incident operations",
	}, []string{"reason"})

	GuaranteeUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_guarantee_updates_total",
		Help: "Guarantee state transitions applied by the reconciler",
	}, []string{"estado"})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_payments_recorded_total",
		Help: "Payments recorded against the open cashbox",
	}, []string{"tipo"})

	CacheRefreshFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_cache_refresh_failed_total",
		Help: "Availability cache refreshes that failed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
