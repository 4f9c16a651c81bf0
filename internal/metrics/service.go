package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Confirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_confirmations_total",
			Help: "The total number of slot confirmations that committed.",
		}),
		ConfirmConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_confirm_conflicts_total",
			Help: "The total number of confirmations that lost a race.",
		}),
		ConfirmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "courtmatch_confirm_duration_seconds",
			Help:    "The duration of the two-phase slot confirmation.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtmatch_cancellations_total",
			Help: "The total number of match cancellations.",
		}, []string{"over_quota"}),
		RatingUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_rating_updates_total",
			Help: "The total number of rating log entries written.",
		}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_notifications_failed_total",
			Help: "The total number of notifications that failed or were dropped.",
		}),
		LocksReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_expired_locks_released_total",
			Help: "The total number of expired slot holds released by the sweeper.",
		}),
		ApplicationsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_applications_expired_total",
			Help: "The total number of applications expired because their slot started.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtmatch_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.Confirmations,
		s.ConfirmConflicts,
		s.ConfirmDuration,
		s.Cancellations,
		s.RatingUpdates,
		s.NotifSent,
		s.NotifFailed,
		s.LocksReleased,
		s.ApplicationsExpired,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncConfirmations() {
	s.Confirmations.Inc()
}

func (s *Service) IncConfirmConflicts() {
	s.ConfirmConflicts.Inc()
}

func (s *Service) ObserveConfirmDuration(duration float64) {
	s.ConfirmDuration.Observe(duration)
}

func (s *Service) IncCancellations(overQuota bool) {
	s.Cancellations.WithLabelValues(strconv.FormatBool(overQuota)).Inc()
}

func (s *Service) IncRatingUpdates(n int) {
	s.RatingUpdates.Add(float64(n))
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) AddLocksReleased(n int) {
	s.LocksReleased.Add(float64(n))
}

func (s *Service) AddApplicationsExpired(n int) {
	s.ApplicationsExpired.Add(float64(n))
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
