package metrics

import "sync"

var _ Metrics = (*Mock)(nil)

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	confirmations       int
	confirmConflicts    int
	confirmDurations    []float64
	cancellations       int
	overQuota           int
	ratingUpdates       int
	notifSent           int
	notifFailed         int
	locksReleased       int
	applicationsExpired int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		confirmDurations: make([]float64, 0),
	}
}

func (m *Mock) IncConfirmations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations++
}

func (m *Mock) IncConfirmConflicts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmConflicts++
}

func (m *Mock) ObserveConfirmDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmDurations = append(m.confirmDurations, duration)
}

func (m *Mock) IncCancellations(overQuota bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations++
	if overQuota {
		m.overQuota++
	}
}

func (m *Mock) IncRatingUpdates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratingUpdates += n
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed++
}

func (m *Mock) AddLocksReleased(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locksReleased += n
}

func (m *Mock) AddApplicationsExpired(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applicationsExpired += n
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Confirmations returns the number of times IncConfirmations was called.
func (m *Mock) Confirmations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmations
}

// ConfirmConflicts returns the number of times IncConfirmConflicts was called.
func (m *Mock) ConfirmConflicts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmConflicts
}

// Cancellations returns the total and over-quota cancellation counts.
func (m *Mock) Cancellations() (total, overQuota int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancellations, m.overQuota
}

// RatingUpdates returns the accumulated rating update count.
func (m *Mock) RatingUpdates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratingUpdates
}

// NotifSent returns the number of times IncNotifSent was called.
func (m *Mock) NotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent
}

// NotifFailed returns the number of times IncNotifFailed was called.
func (m *Mock) NotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed
}

// LocksReleased returns the accumulated released lock count.
func (m *Mock) LocksReleased() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locksReleased
}

// ApplicationsExpired returns the accumulated expired application count.
func (m *Mock) ApplicationsExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applicationsExpired
}
