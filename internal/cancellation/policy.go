package cancellation

// PenaltyPolicy returns the rating points deducted from userID for a cancellation beyond
// the free quota. overQuotaCount is 1 for the first cancellation over the quota within
// the window, 2 for the second, and so on. The result is rounded to whole points.
type PenaltyPolicy func(userID string, overQuotaCount int) float64

// NoPenalty flags over-quota cancellations without deducting points.
func NoPenalty(string, int) float64 { return 0 }

// FixedPenalty deducts the same number of points for every over-quota cancellation.
func FixedPenalty(points float64) PenaltyPolicy {
	return func(string, int) float64 { return points }
}
