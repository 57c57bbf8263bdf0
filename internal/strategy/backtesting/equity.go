package backtesting

import (
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/strategy/analytics"
)

// equityRecorder keeps one equity sample per calendar day: the last value
// observed on that day. The starting cash is the first sample.
type equityRecorder struct {
	samples []analytics.Point
	pending *analytics.Point
}

func (r *equityRecorder) start(t time.Time, cash decimal.Decimal) {
	r.samples = append(r.samples[:0], analytics.Point{Time: t, Value: cash})
	r.pending = nil
}

func (r *equityRecorder) observe(t time.Time, value decimal.Decimal) {
	if r.pending != nil && !sameDay(r.pending.Time, t) {
		r.samples = append(r.samples, *r.pending)
	}
	r.pending = &analytics.Point{Time: t, Value: value}
}

// points returns the samples including the latest observation.
func (r *equityRecorder) points() []analytics.Point {
	out := make([]analytics.Point, len(r.samples), len(r.samples)+1)
	copy(out, r.samples)
	if r.pending != nil {
		out = append(out, *r.pending)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
