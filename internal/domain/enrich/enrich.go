// Package enrich derives implicit fields from the full event list: cards,
// lineout roles, tackles, team attribution, try provenance and breakdown
// outcomes.
package enrich

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/pkg/logger"
)

// Window defaults, in seconds.
const (
	DefaultTryWindow   = 120.0
	DefaultBreakWindow = 120.0
	DefaultTeamWindow  = 30.0
)

// Team labels used when no canonical name is configured.
const (
	DefaultOurTeam  = "OUR_TEAM"
	DefaultOpponent = "OPPONENT"
)

// Enricher runs the enrichment rules in a fixed order.
type Enricher struct {
	tryWindow   float64
	breakWindow float64
	teamWindow  float64

	ourTeam         string
	opponent        string
	ourAliases      []string
	opponentAliases []string
	rules           []profile.TeamInferenceRule

	logger logger.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithTryWindow sets the look-back window for try origins.
func WithTryWindow(seconds float64) Option {
	return func(e *Enricher) {
		if seconds > 0 {
			e.tryWindow = seconds
		}
	}
}

// WithBreakWindow sets the look-ahead window for line-break outcomes.
func WithBreakWindow(seconds float64) Option {
	return func(e *Enricher) {
		if seconds > 0 {
			e.breakWindow = seconds
		}
	}
}

// WithTeamWindow sets the nearest-neighbour window for team inference.
func WithTeamWindow(seconds float64) Option {
	return func(e *Enricher) {
		if seconds > 0 {
			e.teamWindow = seconds
		}
	}
}

// WithOurTeam sets the canonical name of the importing team.
func WithOurTeam(name string) Option {
	return func(e *Enricher) {
		if strings.TrimSpace(name) != "" {
			e.ourTeam = name
		}
	}
}

// WithOpponent sets the canonical name of the opponent.
func WithOpponent(name string) Option {
	return func(e *Enricher) {
		if strings.TrimSpace(name) != "" {
			e.opponent = name
		}
	}
}

// WithTeamMapping sets canonical names and the labels they replace.
func WithTeamMapping(tm *profile.TeamMapping) Option {
	return func(e *Enricher) {
		if tm == nil {
			return
		}
		if tm.OurTeam.Name != "" {
			e.ourTeam = tm.OurTeam.Name
		}
		if tm.OurTeam.DetectedName != "" {
			e.ourAliases = append(e.ourAliases, tm.OurTeam.DetectedName)
		}
		if tm.Opponent.Name != "" {
			e.opponent = tm.Opponent.Name
		}
		if tm.Opponent.DetectedName != "" {
			e.opponentAliases = append(e.opponentAliases, tm.Opponent.DetectedName)
		}
	}
}

// WithInferenceRules adds category defaults checked before the built-ins.
func WithInferenceRules(rules []profile.TeamInferenceRule) Option {
	return func(e *Enricher) {
		e.rules = append(e.rules, rules...)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an enricher.
func New(opts ...Option) *Enricher {
	e := &Enricher{
		tryWindow:       DefaultTryWindow,
		breakWindow:     DefaultBreakWindow,
		teamWindow:      DefaultTeamWindow,
		ourTeam:         DefaultOurTeam,
		opponent:        DefaultOpponent,
		opponentAliases: []string{DefaultOpponent},
		logger:          logger.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich mutates events in place.
func (e *Enricher) Enrich(ctx context.Context, events []*model.Event) {
	for _, ev := range events {
		Consolidate(ev)
		TranslateFields(ev)
		e.MapTeam(ev)
		Cards(ev)
		Lineout(ev)
		Tackle(ev)
	}
	inferred := e.InferTeams(events)

	timed := byTime(events)
	tries := e.TryOrigins(timed)
	breaks := e.BreakOutcomes(timed)

	e.logger.Debug(ctx, "events enriched",
		logger.Int("events", len(events)),
		logger.Int("teams_inferred", inferred),
		logger.Int("tries", tries),
		logger.Int("breaks", breaks),
	)
}

// byTime returns the timed events sorted by timestamp, keeping source order
// for ties.
func byTime(events []*model.Event) []*model.Event {
	out := make([]*model.Event, 0, len(events))
	for _, ev := range events {
		if ev.HasTimestamp() {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Timestamp < *out[j].Timestamp })
	return out
}

func sameTeam(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
