// Package timeline resolves period anchors and converts source timestamps
// into continuous game-time.
package timeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Anchor names one period boundary.
type Anchor string

// Period boundaries in match order.
const (
	KickOff1 Anchor = "kick_off_1"
	End1     Anchor = "end_1"
	KickOff2 Anchor = "kick_off_2"
	End2     Anchor = "end_2"
)

// AnchorOrder lists the anchors in the order they must be non-decreasing.
var AnchorOrder = []Anchor{KickOff1, End1, KickOff2, End2}

// Method names accepted in profiles.
const (
	MethodManual        = "manual"
	MethodCategoryBased = "category_based"
	MethodEventBased    = "event_based"
)

// Method is one anchor resolution strategy. The set is closed: Manual,
// CategoryBased and EventBased.
type Method interface {
	Name() string
	find(events []*indexed) (map[Anchor]float64, []string)
}

// Manual reads anchors from explicit second offsets.
type Manual struct {
	Times map[Anchor]float64
}

// Name implements Method.
func (Manual) Name() string { return MethodManual }

// CategoryBased takes each anchor from the first event of a marker category.
type CategoryBased struct {
	Markers map[Anchor]string
}

// Name implements Method.
func (CategoryBased) Name() string { return MethodCategoryBased }

// Marker identifies an anchor event by category plus a descriptor pair.
type Marker struct {
	Category        string
	DescriptorKey   string
	DescriptorValue string
}

// EventBased is CategoryBased with a descriptor filter per marker.
type EventBased struct {
	Markers map[Anchor]Marker
}

// Name implements Method.
func (EventBased) Name() string { return MethodEventBased }

// Delays shift raw timestamps before classification.
type Delays struct {
	Global  float64
	PerType map[string]float64
}

// For returns the total delay for an event type.
func (d Delays) For(eventType string) float64 {
	return d.Global + d.PerType[strings.ToUpper(strings.TrimSpace(eventType))]
}

// TimeMapping is a validated strategy plus delays.
type TimeMapping struct {
	Method Method
	Delays Delays
}

// Scalar is a string that also accepts a bare JSON number or boolean.
type Scalar string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Scalar(str)
		return nil
	}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = ""
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil || raw == "true" || raw == "false" {
		*s = Scalar(raw)
		return nil
	}
	return fmt.Errorf("descriptor_value: unsupported JSON value %s", raw)
}

// MarkerSpec is the profile form of a marker.
type MarkerSpec struct {
	Category        string `koanf:"category" json:"category"`
	Descriptor      string `koanf:"descriptor" json:"descriptor,omitempty"`
	DescriptorValue Scalar `koanf:"descriptor_value" json:"descriptor_value,omitempty"`
}

// ManualTimes is the profile form of explicit anchors, in seconds.
type ManualTimes struct {
	KickOff1 *float64 `koanf:"kick_off_1" json:"kick_off_1,omitempty"`
	End1     *float64 `koanf:"end_1" json:"end_1,omitempty"`
	KickOff2 *float64 `koanf:"kick_off_2" json:"kick_off_2,omitempty"`
	End2     *float64 `koanf:"end_2" json:"end_2,omitempty"`
}

// DelaySpec is the profile form of Delays.
type DelaySpec struct {
	GlobalDelaySeconds float64            `koanf:"global_delay_seconds" json:"global_delay_seconds"`
	EventDelays        map[string]float64 `koanf:"event_delays" json:"event_delays,omitempty"`
}

// Spec is the time_mapping block of an import profile.
type Spec struct {
	Method      string       `koanf:"method" json:"method"`
	ManualTimes *ManualTimes `koanf:"manual_times" json:"manual_times,omitempty"`
	KickOff1    *MarkerSpec  `koanf:"kick_off_1" json:"kick_off_1,omitempty"`
	End1        *MarkerSpec  `koanf:"end_1" json:"end_1,omitempty"`
	KickOff2    *MarkerSpec  `koanf:"kick_off_2" json:"kick_off_2,omitempty"`
	End2        *MarkerSpec  `koanf:"end_2" json:"end_2,omitempty"`
	Delays      DelaySpec    `koanf:"delays" json:"delays"`
}

// IsZero reports whether nothing was configured.
func (s Spec) IsZero() bool {
	return s.Method == "" && s.ManualTimes == nil && s.KickOff1 == nil && s.End1 == nil &&
		s.KickOff2 == nil && s.End2 == nil && s.Delays.GlobalDelaySeconds == 0 && len(s.Delays.EventDelays) == 0
}

// SelectsAnchors reports whether the spec says how to find anchors: a
// method, manual times or any marker.
func (s Spec) SelectsAnchors() bool {
	return strings.TrimSpace(s.Method) != "" || s.ManualTimes != nil ||
		s.KickOff1 != nil || s.End1 != nil || s.KickOff2 != nil || s.End2 != nil
}

func (s Spec) markers() map[Anchor]*MarkerSpec {
	return map[Anchor]*MarkerSpec{KickOff1: s.KickOff1, End1: s.End1, KickOff2: s.KickOff2, End2: s.End2}
}

// Build validates the spec into a TimeMapping. An empty method selects
// event_based.
func (s Spec) Build() (TimeMapping, error) {
	tm := TimeMapping{Delays: s.Delays.build()}

	switch strings.ToLower(strings.TrimSpace(s.Method)) {
	case MethodManual:
		m := Manual{Times: make(map[Anchor]float64)}
		if mt := s.ManualTimes; mt != nil {
			for k, v := range map[Anchor]*float64{KickOff1: mt.KickOff1, End1: mt.End1, KickOff2: mt.KickOff2, End2: mt.End2} {
				if v != nil {
					m.Times[k] = *v
				}
			}
		}
		if len(m.Times) == 0 {
			return TimeMapping{}, fmt.Errorf("%w: manual method without anchors", ErrConfiguration)
		}
		tm.Method = m
	case MethodCategoryBased:
		m := CategoryBased{Markers: make(map[Anchor]string)}
		for k, ms := range s.markers() {
			if ms != nil && strings.TrimSpace(ms.Category) != "" {
				m.Markers[k] = ms.Category
			}
		}
		tm.Method = m
	case "", MethodEventBased:
		m := EventBased{Markers: make(map[Anchor]Marker)}
		for k, ms := range s.markers() {
			if ms != nil && strings.TrimSpace(ms.Category) != "" {
				m.Markers[k] = Marker{
					Category:        ms.Category,
					DescriptorKey:   ms.Descriptor,
					DescriptorValue: string(ms.DescriptorValue),
				}
			}
		}
		tm.Method = m
	default:
		return TimeMapping{}, fmt.Errorf("%w: unknown method %q", ErrConfiguration, s.Method)
	}
	return tm, nil
}

func (d DelaySpec) build() Delays {
	out := Delays{Global: d.GlobalDelaySeconds, PerType: make(map[string]float64, len(d.EventDelays))}
	for k, v := range d.EventDelays {
		out.PerType[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// ManualSpec builds a manual spec from explicit anchors.
func ManualSpec(a Anchors, delays DelaySpec) Spec {
	ko1, e1, ko2, e2 := a.KickOff1, a.End1, a.KickOff2, a.End2
	return Spec{
		Method:      MethodManual,
		ManualTimes: &ManualTimes{KickOff1: &ko1, End1: &e1, KickOff2: &ko2, End2: &e2},
		Delays:      delays,
	}
}
