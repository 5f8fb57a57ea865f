package enrich

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
)

// Values recorded under TEAM_SOURCE.
const (
	SourceExplicit        = "explicit"
	SourcePlayerMajority  = "player_majority"
	SourceCategoryDefault = "category_default"
	SourceNearest         = "nearest_neighbor"
)

// ourTeamCategories imply possession or pressure on the importing team.
var ourTeamCategories = map[string]bool{
	"ATTACK":    true,
	"TURNOVER+": true,
	"DEFENSE":   true,
}

// InferTeams fills missing teams from player history, category defaults and
// the nearest attributed event. It returns the number of teams inferred.
func (e *Enricher) InferTeams(events []*model.Event) int {
	byPlayer := make(map[string]map[string]int)
	var explicit []*model.Event
	for _, ev := range events {
		if strings.TrimSpace(ev.Team) == "" {
			continue
		}
		ev.Derived.TeamSource = SourceExplicit
		if ev.HasTimestamp() {
			explicit = append(explicit, ev)
		}
		for _, p := range ev.Players {
			counts, ok := byPlayer[p]
			if !ok {
				counts = make(map[string]int)
				byPlayer[p] = counts
			}
			counts[ev.Team]++
		}
	}
	sort.SliceStable(explicit, func(i, j int) bool { return *explicit[i].Timestamp < *explicit[j].Timestamp })

	n := 0
	for _, ev := range events {
		if ev.Derived.TeamSource == SourceExplicit {
			continue
		}
		team, source := majority(byPlayer, ev.Players), SourcePlayerMajority
		if team == "" {
			team, source = e.categoryDefault(ev.UpperType()), SourceCategoryDefault
		}
		if team == "" {
			team, source = e.nearest(explicit, ev), SourceNearest
		}
		if team == "" {
			continue
		}
		ev.Team = team
		ev.Derived.TeamSource = source
		n++
	}
	return n
}

func majority(byPlayer map[string]map[string]int, players []string) string {
	totals := make(map[string]int)
	for _, p := range players {
		for team, c := range byPlayer[p] {
			totals[team] += c
		}
	}
	best, bestCount := "", 0
	for team, c := range totals {
		if c > bestCount || (c == bestCount && team < best) {
			best, bestCount = team, c
		}
	}
	return best
}

func (e *Enricher) categoryDefault(category string) string {
	if category == "" {
		return ""
	}
	for _, r := range e.rules {
		if strings.EqualFold(strings.TrimSpace(r.EventType), category) {
			return e.assign(r.AssignTo)
		}
	}
	if ourTeamCategories[category] {
		return e.ourTeam
	}
	return ""
}

func (e *Enricher) assign(to string) string {
	switch strings.ToLower(strings.TrimSpace(to)) {
	case profile.AssignOurTeam:
		return e.ourTeam
	case profile.AssignOpponent:
		return e.opponent
	default:
		return strings.TrimSpace(to)
	}
}

// nearest returns the team of the closest attributed event within the team
// window. explicit holds timed events sorted by time.
func (e *Enricher) nearest(explicit []*model.Event, ev *model.Event) string {
	if !ev.HasTimestamp() {
		return ""
	}
	t := *ev.Timestamp
	i := sort.Search(len(explicit), func(i int) bool { return explicit[i].Time() >= t })

	best, bestDist := "", math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(explicit) {
			continue
		}
		if d := math.Abs(explicit[j].Time() - t); d <= e.teamWindow && d < bestDist {
			best, bestDist = explicit[j].Team, d
		}
	}
	return best
}
