// Package profile defines import profiles: per-source sheet and column
// names, time mapping, descriptor mapping and team instructions.
package profile

import (
	"fmt"
	"strings"

	"github.com/okian/matchlog/internal/domain/mapping"
	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/timeline"
)

// DefaultName is the profile used when a request names none.
const DefaultName = "default"

// TeamRef names a team and the label it carries in source files.
type TeamRef struct {
	Name         string `koanf:"name" json:"name"`
	DetectedName string `koanf:"detected_name" json:"detected_name,omitempty"`
}

// TeamMapping rewrites detected team labels to canonical names.
type TeamMapping struct {
	OurTeam  TeamRef `koanf:"our_team" json:"our_team"`
	Opponent TeamRef `koanf:"opponent" json:"opponent"`
}

// Assignment targets for team inference rules.
const (
	AssignOurTeam  = "our_team"
	AssignOpponent = "opponent"
)

// TeamInferenceRule assigns a default team to a category.
type TeamInferenceRule struct {
	EventType string `koanf:"event_type" json:"event_type"`
	AssignTo  string `koanf:"assign_to" json:"assign_to"`
}

// Profile configures one import.
type Profile struct {
	Name              string              `koanf:"name" json:"name"`
	Description       string              `koanf:"description" json:"description,omitempty"`
	FileType          string              `koanf:"file_type" json:"file_type,omitempty"`
	EventsSheet       string              `koanf:"events_sheet" json:"events_sheet,omitempty"`
	MetaSheet         string              `koanf:"meta_sheet" json:"meta_sheet,omitempty"`
	ColEventType      string              `koanf:"col_event_type" json:"col_event_type,omitempty"`
	ColTime           string              `koanf:"col_time" json:"col_time,omitempty"`
	ColDuration       string              `koanf:"col_duration" json:"col_duration,omitempty"`
	ColX              string              `koanf:"col_x" json:"col_x,omitempty"`
	ColY              string              `koanf:"col_y" json:"col_y,omitempty"`
	PlayerGroups      []string            `koanf:"player_groups" json:"player_groups,omitempty"`
	TeamGroups        []string            `koanf:"team_groups" json:"team_groups,omitempty"`
	DiscardCategories []string            `koanf:"discard_categories" json:"discard_categories,omitempty"`
	TimeMapping       timeline.Spec       `koanf:"time_mapping" json:"time_mapping"`
	Mapping           mapping.Spec        `koanf:"mapping" json:"mapping,omitempty"`
	TeamMapping       *TeamMapping        `koanf:"team_mapping" json:"team_mapping,omitempty"`
	TeamInference     []TeamInferenceRule `koanf:"team_inference" json:"team_inference,omitempty"`
}

// Default returns the built-in profile: MATRIZ/MATCHES workbooks and
// event-based anchors from KICK OFF and END tagged with PERIODS.
func Default() *Profile {
	p := &Profile{Name: DefaultName}
	p.ApplyDefaults()
	return p
}

// DefaultTimeMapping returns the event-based KICK OFF / END markers.
func DefaultTimeMapping() timeline.Spec {
	marker := func(cat, val string) *timeline.MarkerSpec {
		return &timeline.MarkerSpec{Category: cat, Descriptor: "PERIODS", DescriptorValue: timeline.Scalar(val)}
	}
	return timeline.Spec{
		Method:   timeline.MethodEventBased,
		KickOff1: marker("KICK OFF", "1"),
		End1:     marker("END", "1"),
		KickOff2: marker("KICK OFF", "2"),
		End2:     marker("END", "2"),
	}
}

// ApplyDefaults fills every unset field.
func (p *Profile) ApplyDefaults() {
	def := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	def(&p.Name, DefaultName)
	def(&p.EventsSheet, "MATRIZ")
	def(&p.MetaSheet, "MATCHES")
	def(&p.ColEventType, "CATEGORY")
	def(&p.ColTime, "SECOND")
	def(&p.ColX, "COORDINATE_X")
	def(&p.ColY, "COORDINATE_Y")
	if len(p.PlayerGroups) == 0 {
		p.PlayerGroups = []string{"JUGADOR", "PLAYER", "PLAYER_2"}
	}
	if len(p.TeamGroups) == 0 {
		p.TeamGroups = []string{"EQUIPO", "TEAM", "SIDE"}
	}
	if p.TimeMapping.IsZero() {
		p.TimeMapping = DefaultTimeMapping()
	}
	p.FileType = strings.ToLower(strings.TrimSpace(p.FileType))
}

// Validate checks the profile and its time mapping.
func (p *Profile) Validate() error {
	switch model.Format(p.FileType) {
	case "", model.FormatXML, model.FormatSpreadsheet:
	default:
		return fmt.Errorf("%w: unsupported file_type %q", ErrInvalidProfile, p.FileType)
	}
	if _, err := p.TimeMapping.Build(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	for _, r := range p.TeamInference {
		if strings.TrimSpace(r.EventType) == "" || strings.TrimSpace(r.AssignTo) == "" {
			return fmt.Errorf("%w: team_inference rule needs event_type and assign_to", ErrInvalidProfile)
		}
	}
	return nil
}

// Discards reports whether category is listed in discard_categories.
func (p *Profile) Discards(category string) bool {
	c := strings.TrimSpace(category)
	if c == "" {
		return false
	}
	for _, d := range p.DiscardCategories {
		if strings.EqualFold(strings.TrimSpace(d), c) {
			return true
		}
	}
	return false
}

// OurTeam returns the canonical name of the importing team.
func (p *Profile) OurTeam(match model.MatchInfo, fallback string) string {
	if p.TeamMapping != nil && strings.TrimSpace(p.TeamMapping.OurTeam.Name) != "" {
		return p.TeamMapping.OurTeam.Name
	}
	if strings.TrimSpace(match.Team) != "" {
		return match.Team
	}
	return fallback
}

// OpponentTeam returns the canonical name of the opponent.
func (p *Profile) OpponentTeam(match model.MatchInfo, fallback string) string {
	if p.TeamMapping != nil && strings.TrimSpace(p.TeamMapping.Opponent.Name) != "" {
		return p.TeamMapping.Opponent.Name
	}
	if strings.TrimSpace(match.Opponent) != "" {
		return match.Opponent
	}
	return fallback
}
