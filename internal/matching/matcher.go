// Package matching selects the catalog plan nearest to a customer's
// requested value and term.
package matching

import (
	"math"

	"github.com/cotafacil/cotabot/internal/catalog"
)

// Match is the chosen plan plus how far it sits from the request.
type Match struct {
	Record         catalog.Record
	ValueDelta     float64
	TermDelta      int
	IsExactMatch   bool
	RequestedValue float64
	RequestedTerm  int
}

// FindBestMatch returns the single closest plan, or nil when the catalog has
// no usable records or the request is non-positive. There is no distance
// threshold: the nearest plan is always returned, however far. Ties keep the
// first record seen, so catalog order is the tie-break.
//
// Distance is a weighted sum of normalized deltas with value weighted 10x
// over term. The weighting is fixed; changing it changes which plan wins.
func FindBestMatch(records []catalog.Record, requestedValue float64, requestedTerm int) *Match {
	if requestedValue <= 0 || requestedTerm <= 0 {
		return nil
	}

	var best *Match
	bestScore := math.Inf(1)

	for _, r := range records {
		if r.Value <= 0 || r.TermMonths <= 0 {
			continue
		}

		valueDelta := math.Abs(r.Value - requestedValue)
		termDelta := r.TermMonths - requestedTerm
		if termDelta < 0 {
			termDelta = -termDelta
		}

		valuePercent := valueDelta / requestedValue * 100
		termPercent := float64(termDelta) / float64(requestedTerm) * 100
		score := valuePercent*1000 + termPercent*100

		if score < bestScore {
			bestScore = score
			best = &Match{
				Record:         r,
				ValueDelta:     valueDelta,
				TermDelta:      termDelta,
				IsExactMatch:   valueDelta == 0 && termDelta == 0,
				RequestedValue: requestedValue,
				RequestedTerm:  requestedTerm,
			}
		}
	}

	return best
}
