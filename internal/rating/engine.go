package rating

import (
	"fmt"
	"math"
)

// DefaultKFactor is used for any format without an explicit K-factor.
const DefaultKFactor = 32

// Config configures the engine.
type Config struct {
	KFactors      map[Format]float64
	InitialRating int
}

// Engine is a pure, deterministic ELO calculator.
type Engine struct {
	kFactors      map[Format]float64
	initialRating int
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg Config) *Engine {
	k := make(map[Format]float64, len(cfg.KFactors))
	for f, v := range cfg.KFactors {
		k[f] = v
	}
	initial := cfg.InitialRating
	if initial == 0 {
		initial = 1000
	}
	return &Engine{kFactors: k, initialRating: initial}
}

// InitialRating is the rating assigned to users with no history.
func (e *Engine) InitialRating() int {
	return e.initialRating
}

// KFactor returns the K-factor used for f.
func (e *Engine) KFactor(f Format) float64 {
	if k, ok := e.kFactors[f]; ok && k > 0 {
		return k
	}
	return DefaultKFactor
}

// Expected returns the expected score of a player rated r1 against a player rated r2.
func Expected(r1, r2 float64) float64 {
	return 1 / (1 + math.Pow(10, (r2-r1)/400))
}

// ComputeUpdate computes new ratings for both players given the winner.
func (e *Engine) ComputeUpdate(format Format, rating1, rating2 int, winner Side) (Update, error) {
	if !format.Valid() {
		return Update{}, fmt.Errorf("unknown format %q", format)
	}
	if winner != Side1 && winner != Side2 {
		return Update{}, fmt.Errorf("invalid winner %d", winner)
	}
	new1, s1 := e.next(format, float64(rating1), float64(rating2), winner == Side1)
	new2, s2 := e.next(format, float64(rating2), float64(rating1), winner == Side2)
	return Update{NewRating1: new1, NewRating2: new2, Streak1: s1, Streak2: s2}, nil
}

// next returns the new rating of a player rated r against opponent rating opp.
func (e *Engine) next(format Format, r, opp float64, won bool) (int, StreakChange) {
	actual, streak := 0.0, StreakReset
	if won {
		actual, streak = 1.0, StreakIncrement
	}
	return int(math.Round(r + e.KFactor(format)*(actual-Expected(r, opp)))), streak
}

// ApplyStreak returns the streak value after change is applied to current.
func ApplyStreak(current int, change StreakChange) int {
	if change == StreakIncrement {
		return current + 1
	}
	return 0
}

// Mean returns the rounded mean of ratings, or fallback when ratings is empty.
func Mean(ratings []int, fallback int) int {
	if len(ratings) == 0 {
		return fallback
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return int(math.Round(float64(sum) / float64(len(ratings))))
}
