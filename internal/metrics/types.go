package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	Confirmations       prometheus.Counter
	ConfirmConflicts    prometheus.Counter
	ConfirmDuration     prometheus.Histogram
	Cancellations       *prometheus.CounterVec
	RatingUpdates       prometheus.Counter
	NotifSent           prometheus.Counter
	NotifFailed         prometheus.Counter
	LocksReleased       prometheus.Counter
	ApplicationsExpired prometheus.Counter
	StartupTimeSeconds  prometheus.Gauge
}
