package results

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/rating"
)

// Set is the games won by each side in one set.
type Set struct {
	Side1 int
	Side2 int
}

// Score is a parsed match score written from side one's perspective.
type Score struct {
	Sets   []Set
	Winner rating.Side
}

// String returns the canonical form of the score, e.g. "6-4 3-6 10-8".
func (s Score) String() string {
	parts := make([]string, len(s.Sets))
	for i, set := range s.Sets {
		parts[i] = fmt.Sprintf("%d-%d", set.Side1, set.Side2)
	}
	return strings.Join(parts, " ")
}

// ParseScore parses whitespace separated sets. The winner is the side that took more
// sets; drawn sets and drawn matches are rejected.
func ParseScore(raw string) (Score, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Score{}, fmt.Errorf("score is required: %w", match.ErrValidation)
	}
	var score Score
	won1, won2 := 0, 0
	for _, field := range fields {
		a, b, ok := strings.Cut(field, "-")
		if !ok {
			return Score{}, fmt.Errorf("malformed set %q: %w", field, match.ErrValidation)
		}
		g1, err1 := strconv.Atoi(a)
		g2, err2 := strconv.Atoi(b)
		if err1 != nil || err2 != nil || g1 < 0 || g2 < 0 {
			return Score{}, fmt.Errorf("malformed set %q: %w", field, match.ErrValidation)
		}
		if g1 == g2 {
			return Score{}, fmt.Errorf("set %q has no winner: %w", field, match.ErrValidation)
		}
		if g1 > g2 {
			won1++
		} else {
			won2++
		}
		score.Sets = append(score.Sets, Set{Side1: g1, Side2: g2})
	}
	switch {
	case won1 > won2:
		score.Winner = rating.Side1
	case won2 > won1:
		score.Winner = rating.Side2
	default:
		return Score{}, fmt.Errorf("score %q is drawn: %w", raw, match.ErrValidation)
	}
	return score, nil
}
