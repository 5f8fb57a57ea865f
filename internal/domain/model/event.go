package model

import (
	"math"
	"strings"
)

// Keys of the persisted extra_data map that carry derived values.
const (
	KeyGameTime        = "Game_Time"
	KeyPeriod          = "DETECTED_PERIOD"
	KeyTimeGroup       = "Time_Group"
	KeyDelayApplied    = "_delay_applied"
	KeyYellowCard      = "YELLOW-CARD"
	KeyRedCard         = "RED-CARD"
	KeyLineThrower     = "LINE_THROWER"
	KeyLineReceiver    = "LINE_RECEIVER"
	KeyTackleCount     = "Team_Tackle_Count"
	KeyTryOrigin       = "TRY_ORIGIN"
	KeyTryPhases       = "TRY_PHASES"
	KeyBreakResult     = "BREAK_RESULT"
	KeyBreakResultTime = "BREAK_RESULT_TIME"
	KeyPoints          = "POINTS"
	KeyPointsValue     = "POINTS(VALUE)"
	KeyTeamSource      = "TEAM_SOURCE"
	KeyPlayer          = "PLAYER"
	KeyTeam            = "TEAM"
)

// NoData labels the time group of an event whose game-time is unknown.
const NoData = "no data"

// Derived holds the fields every consumer relies on. They are computed by
// the pipeline and flattened into extra_data on persistence.
type Derived struct {
	GameTime     string   `json:"game_time"`
	GameSeconds  float64  `json:"game_seconds"`
	Period       *int     `json:"period"`
	TimeGroup    string   `json:"time_group"`
	DelayApplied float64  `json:"delay_applied,omitempty"`
	Points       string   `json:"points,omitempty"`
	PointsValue  *int     `json:"points_value,omitempty"`
	Cards        bool     `json:"-"`
	YellowCard   *string  `json:"yellow_card,omitempty"`
	RedCard      *string  `json:"red_card,omitempty"`
	LineThrower  string   `json:"line_thrower,omitempty"`
	LineReceiver string   `json:"line_receiver,omitempty"`
	TackleCount  int      `json:"tackle_count,omitempty"`
	TryOrigin    string   `json:"try_origin,omitempty"`
	TryPhases    int      `json:"try_phases,omitempty"`
	BreakResult  string   `json:"break_result,omitempty"`
	BreakTime    *float64 `json:"break_result_time,omitempty"`
	TeamSource   string   `json:"team_source,omitempty"`
}

// Event is the canonical pipeline record. Stages mutate it in place until it
// is handed to the store.
type Event struct {
	Index     int            `json:"index"`
	Type      string         `json:"event_type"`
	Timestamp *float64       `json:"timestamp_sec"`
	Team      string         `json:"team,omitempty"`
	Players   []string       `json:"players,omitempty"`
	X         *float64       `json:"x,omitempty"`
	Y         *float64       `json:"y,omitempty"`
	Extra     map[string]any `json:"extra_data"`
	Derived   Derived        `json:"derived"`
}

// NewEvent returns an event with an empty extra map.
func NewEvent(index int) *Event {
	return &Event{Index: index, Extra: make(map[string]any)}
}

// HasTimestamp reports whether the event carries a usable source time.
func (e *Event) HasTimestamp() bool {
	return e.Timestamp != nil && !math.IsNaN(*e.Timestamp)
}

// Time returns the timestamp or 0 when unknown.
func (e *Event) Time() float64 {
	if !e.HasTimestamp() {
		return 0
	}
	return *e.Timestamp
}

// UpperType returns the trimmed, upper-cased category.
func (e *Event) UpperType() string {
	return strings.ToUpper(strings.TrimSpace(e.Type))
}

// ExtraData flattens the residual map and the derived fields into the map
// persisted as extra_data.
func (e *Event) ExtraData() map[string]any {
	out := make(map[string]any, len(e.Extra)+8)
	for k, v := range e.Extra {
		out[k] = v
	}
	d := e.Derived

	out[KeyGameTime] = orDefault(d.GameTime, "00:00")
	if d.Period != nil {
		out[KeyPeriod] = *d.Period
	} else {
		out[KeyPeriod] = nil
	}
	out[KeyTimeGroup] = orDefault(d.TimeGroup, NoData)
	if d.DelayApplied != 0 {
		out[KeyDelayApplied] = d.DelayApplied
	}
	if d.Points != "" {
		out[KeyPoints] = d.Points
	}
	if d.PointsValue != nil {
		out[KeyPointsValue] = *d.PointsValue
	}
	if d.Cards {
		out[KeyYellowCard] = stringOrNil(d.YellowCard)
		out[KeyRedCard] = stringOrNil(d.RedCard)
	}
	if d.LineThrower != "" {
		out[KeyLineThrower] = d.LineThrower
	}
	if d.LineReceiver != "" {
		out[KeyLineReceiver] = d.LineReceiver
	}
	if d.TackleCount > 0 {
		out[KeyTackleCount] = d.TackleCount
	}
	if d.TryOrigin != "" {
		out[KeyTryOrigin] = d.TryOrigin
		out[KeyTryPhases] = d.TryPhases
	}
	if d.BreakResult != "" {
		out[KeyBreakResult] = d.BreakResult
		if d.BreakTime != nil {
			out[KeyBreakResultTime] = *d.BreakTime
		}
	}
	if d.TeamSource != "" {
		out[KeyTeamSource] = d.TeamSource
	}
	return out
}

// GameTimeKeys lists the extra_data keys owned by the game-time calculator.
func GameTimeKeys() []string {
	return []string{KeyGameTime, KeyPeriod, KeyTimeGroup, KeyDelayApplied}
}

// Lookup finds key in Extra, trying an exact match before a
// case-insensitive one.
func (e *Event) Lookup(key string) (any, bool) {
	if v, ok := e.Extra[key]; ok {
		return v, true
	}
	for k, v := range e.Extra {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Values returns the values of the first key present in Extra.
func (e *Event) Values(keys ...string) []string {
	for _, k := range keys {
		if v, ok := e.Lookup(k); ok {
			if vals := Strings(v); len(vals) > 0 {
				return vals
			}
		}
	}
	return nil
}

// Value returns the first value of the first key present in Extra.
func (e *Event) Value(keys ...string) string {
	if vals := e.Values(keys...); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// AddExtra appends v under key, promoting a scalar to a list on repeat.
func (e *Event) AddExtra(key, v string) {
	switch cur := e.Extra[key].(type) {
	case nil:
		e.Extra[key] = v
	case string:
		e.Extra[key] = []string{cur, v}
	case []string:
		e.Extra[key] = append(cur, v)
	default:
		e.Extra[key] = v
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
