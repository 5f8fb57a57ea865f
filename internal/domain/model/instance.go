// Package model contains the domain types passed between pipeline stages.
package model

import "strings"

// Format identifies the kind of source file.
type Format string

// Supported source formats.
const (
	FormatXML         Format = "xml"
	FormatSpreadsheet Format = "xlsx"
)

// Descriptor is one (group, text) label attached to a tagged clip.
type Descriptor struct {
	Group string `json:"group"`
	Text  string `json:"text"`
}

// RawInstance is one tagged clip as read from a source file. It is never
// modified after the parser returns it.
type RawInstance struct {
	Index       int          `json:"index"`
	Code        string       `json:"code"`
	Start       *float64     `json:"start,omitempty"`
	End         *float64     `json:"end,omitempty"`
	Descriptors []Descriptor `json:"descriptors,omitempty"`
	X           *float64     `json:"x,omitempty"`
	Y           *float64     `json:"y,omitempty"`
}

// Values returns every descriptor text recorded under group, in source order.
// Group comparison ignores case.
func (r RawInstance) Values(group string) []string {
	var out []string
	for _, d := range r.Descriptors {
		if strings.EqualFold(d.Group, group) {
			out = append(out, d.Text)
		}
	}
	return out
}

// MatchInfo is the match metadata carried by a source file.
type MatchInfo struct {
	Team        string `json:"team"`
	Opponent    string `json:"opponent"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Competition string `json:"competition"`
	Round       string `json:"round"`
	Referee     string `json:"referee"`
	VideoURL    string `json:"video_url"`
	Result      string `json:"result"`
	Field       string `json:"field"`
	Rain        string `json:"rain"`
	Muddy       string `json:"muddy"`
	Wind1P      string `json:"wind_1p"`
	Wind2P      string `json:"wind_2p"`
}

// Merge fills empty fields of m from other.
func (m *MatchInfo) Merge(other MatchInfo) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&m.Team, other.Team)
	fill(&m.Opponent, other.Opponent)
	fill(&m.Date, other.Date)
	fill(&m.Location, other.Location)
	fill(&m.Competition, other.Competition)
	fill(&m.Round, other.Round)
	fill(&m.Referee, other.Referee)
	fill(&m.VideoURL, other.VideoURL)
	fill(&m.Result, other.Result)
	fill(&m.Field, other.Field)
	fill(&m.Rain, other.Rain)
	fill(&m.Muddy, other.Muddy)
	fill(&m.Wind1P, other.Wind1P)
	fill(&m.Wind2P, other.Wind2P)
}

// Document is the parser output: match metadata plus raw instances.
type Document struct {
	Path      string        `json:"path"`
	Format    Format        `json:"format"`
	Match     MatchInfo     `json:"match"`
	Instances []RawInstance `json:"instances"`
}
