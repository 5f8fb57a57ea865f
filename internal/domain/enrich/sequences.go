package enrich

import (
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/scoring"
)

// Sentinel values for sequence results.
const (
	OriginUnknown  = "UNKNOWN"
	BreakContinues = "CONTINUES"
)

// originCategories can start an attacking sequence.
var originCategories = map[string]bool{
	"TURNOVER+": true,
	"TURNOVER":  true,
	"SCRUM":     true,
	"LINEOUT":   true,
	"KICKOFF":   true,
	"KICK OFF":  true,
	"PENALTY":   true,
}

// IsTry reports whether ev is a scored try.
func IsTry(ev *model.Event) bool {
	if ev.UpperType() != "POINTS" {
		return false
	}
	if ev.Derived.Points != "" {
		return ev.Derived.Points == scoring.Try
	}
	return strings.EqualFold(ev.Value("TIPO-PUNTOS", "TIPO_PUNTOS", "POINTS_TYPE"), scoring.Try)
}

// TryOrigins stamps TRY_ORIGIN and TRY_PHASES on every try. timed must be
// sorted by timestamp. It returns the number of tries seen.
func (e *Enricher) TryOrigins(timed []*model.Event) int {
	n := 0
	for i, ev := range timed {
		if !IsTry(ev) {
			continue
		}
		n++
		t := *ev.Timestamp

		origin := e.findOrigin(timed, i)

		ev.Derived.TryPhases = 1
		if origin == nil {
			ev.Derived.TryOrigin = OriginUnknown
			continue
		}
		ev.Derived.TryOrigin = origin.UpperType()
		for _, r := range timed {
			rt := *r.Timestamp
			if r.UpperType() == "RUCK" && rt > *origin.Timestamp && rt < t && sameTeam(r.Team, ev.Team) {
				ev.Derived.TryPhases++
			}
		}
	}
	return n
}

// findOrigin returns the nearest origin event at or before the try at
// timed[i]. Events sharing the try's timestamp count on either side of it.
func (e *Enricher) findOrigin(timed []*model.Event, i int) *model.Event {
	try := timed[i]
	t := *try.Timestamp
	eligible := func(cand *model.Event) bool {
		if !originCategories[cand.UpperType()] {
			return false
		}
		return try.Team == "" || cand.Team == "" || sameTeam(try.Team, cand.Team)
	}

	lo, hi := i, i
	for lo > 0 && *timed[lo-1].Timestamp == t {
		lo--
	}
	for hi < len(timed)-1 && *timed[hi+1].Timestamp == t {
		hi++
	}
	for j := lo; j <= hi; j++ {
		if j != i && eligible(timed[j]) {
			return timed[j]
		}
	}
	for j := lo - 1; j >= 0; j-- {
		cand := timed[j]
		if t-*cand.Timestamp > e.tryWindow {
			break
		}
		if eligible(cand) {
			return cand
		}
	}
	return nil
}

// BreakOutcomes stamps BREAK_RESULT on every line-break. timed must be
// sorted by timestamp. It returns the number of breaks seen.
func (e *Enricher) BreakOutcomes(timed []*model.Event) int {
	n := 0
	for i, ev := range timed {
		if ev.UpperType() != "BREAK" {
			continue
		}
		n++
		t := *ev.Timestamp
		ev.Derived.BreakResult = BreakContinues
		ev.Derived.BreakTime = nil

		for _, next := range timed[i+1:] {
			dt := *next.Timestamp - t
			if dt <= 0 {
				continue
			}
			if dt > e.breakWindow {
				break
			}
			if res := breakResult(ev, next); res != "" {
				ev.Derived.BreakResult = res
				ev.Derived.BreakTime = model.FloatPtr(model.Round(dt, 1))
				break
			}
		}
	}
	return n
}

func breakResult(brk, next *model.Event) string {
	same := sameTeam(brk.Team, next.Team)
	switch next.UpperType() {
	case "POINTS":
		if IsTry(next) && same {
			return "TRY"
		}
	case "PENALTY":
		switch {
		case strings.TrimSpace(next.Team) == "":
		case same:
			return "PENALTY_FOR"
		default:
			return "PENALTY_AGAINST"
		}
	case "TURNOVER", "TURNOVER-":
		if same {
			if typ := next.Value("TURNOVER_TYPE", "TIPO-PERDIDA/RECUPERACION"); typ != "" {
				return "TURNOVER_" + strings.ToUpper(typ)
			}
			return "TURNOVER"
		}
	case "KICK":
		if same {
			return "KICK"
		}
	case "GOAL-KICK":
		if same {
			return "GOAL_KICK_ATTEMPT"
		}
	}
	return ""
}
