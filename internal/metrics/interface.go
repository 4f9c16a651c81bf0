package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncConfirmations()
	IncConfirmConflicts()
	ObserveConfirmDuration(duration float64)
	IncCancellations(overQuota bool)
	IncRatingUpdates(n int)
	IncNotifSent()
	IncNotifFailed()
	AddLocksReleased(n int)
	AddApplicationsExpired(n int)
	SetStartupTime(duration float64)
}
