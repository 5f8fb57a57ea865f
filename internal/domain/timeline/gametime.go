package timeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
)

// Quarter labels used for Time_Group.
const (
	QuarterFirst  = "Primer cuarto"
	QuarterSecond = "Segundo cuarto"
	QuarterThird  = "Tercer cuarto"
	QuarterFourth = "Cuarto cuarto"
)

// Result is the game-time of one event.
type Result struct {
	Seconds float64
	Period  int
	Clock   string
	Group   string
	Delay   float64
}

// Compute converts a raw source timestamp to game-time. The delay for the
// event type is applied first; the second half continues from the end of
// the first, and negative values collapse to zero.
func Compute(ts float64, eventType string, a Anchors, d Delays) Result {
	delay := d.For(eventType)
	adjusted := ts + delay

	var r Result
	r.Delay = delay
	if adjusted >= a.KickOff2 {
		r.Period = 2
		r.Seconds = a.FirstHalf() + (adjusted - a.KickOff2)
	} else {
		r.Period = 1
		r.Seconds = adjusted - a.KickOff1
	}
	if r.Seconds < 0 {
		r.Seconds = 0
	}
	r.Clock = FormatClock(r.Seconds)
	r.Group = QuarterLabel(r.Seconds, a.FirstHalf())
	return r
}

// FormatClock renders seconds as MM:SS after rounding to the nearest second.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// QuarterLabel buckets game-time into quarters derived from the first-half
// duration.
func QuarterLabel(gameSeconds, firstHalf float64) string {
	if firstHalf <= 0 {
		firstHalf = DefaultHalfDuration
	}
	switch {
	case gameSeconds < firstHalf/2:
		return QuarterFirst
	case gameSeconds < firstHalf:
		return QuarterSecond
	case gameSeconds < firstHalf*1.5:
		return QuarterThird
	default:
		return QuarterFourth
	}
}

// Calculator stamps game-time onto events.
type Calculator struct {
	anchors Anchors
	delays  Delays
}

// NewCalculator creates a calculator for fixed anchors and delays.
func NewCalculator(a Anchors, d Delays) *Calculator {
	return &Calculator{anchors: a, delays: d}
}

// Apply sets the game-time fields of ev. It returns false when ev lacks a
// timestamp or category and received the degraded values instead.
func (c *Calculator) Apply(ev *model.Event) bool {
	if !ev.HasTimestamp() || strings.TrimSpace(ev.Type) == "" {
		ev.Derived.GameTime = "00:00"
		ev.Derived.GameSeconds = 0
		ev.Derived.Period = nil
		ev.Derived.TimeGroup = model.NoData
		ev.Derived.DelayApplied = 0
		return false
	}
	r := Compute(*ev.Timestamp, ev.Type, c.anchors, c.delays)
	ev.Derived.GameTime = r.Clock
	ev.Derived.GameSeconds = r.Seconds
	ev.Derived.Period = model.IntPtr(r.Period)
	ev.Derived.TimeGroup = r.Group
	ev.Derived.DelayApplied = r.Delay
	return true
}

// ApplyAll stamps every event and returns the number of degraded ones.
func (c *Calculator) ApplyAll(events []*model.Event) int {
	degraded := 0
	for _, ev := range events {
		if !c.Apply(ev) {
			degraded++
		}
	}
	return degraded
}
