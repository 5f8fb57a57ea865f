package model

import "strings"

// Top-level keys of the generic document view of an event.
const (
	DocEventType = "event_type"
	DocTimestamp = "timestamp_sec"
	DocTeam      = "team"
	DocPlayers   = "players"
	DocX         = "x"
	DocY         = "y"
	DocExtra     = "extra_data"
)

// Document returns a map view of the event for path-based rules. The
// extra_data entry aliases e.Extra, so writes below it are visible at once;
// top-level changes are applied with ApplyDocument.
func (e *Event) Document() map[string]any {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	doc := map[string]any{
		DocEventType: e.Type,
		DocTimestamp: floatOrNil(e.Timestamp),
		DocTeam:      nil,
		DocPlayers:   nil,
		DocX:         floatOrNil(e.X),
		DocY:         floatOrNil(e.Y),
		DocExtra:     e.Extra,
	}
	if e.Team != "" {
		doc[DocTeam] = e.Team
	}
	if len(e.Players) > 0 {
		doc[DocPlayers] = append([]string(nil), e.Players...)
	}
	return doc
}

// ApplyDocument copies the top-level fields of doc back onto the event.
// Unknown top-level keys land in Extra unless already present there.
func (e *Event) ApplyDocument(doc map[string]any) {
	if m, ok := doc[DocExtra].(map[string]any); ok {
		e.Extra = m
	}
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	for k, v := range doc {
		switch k {
		case DocEventType:
			if s, ok := v.(string); ok {
				e.Type = s
			}
		case DocTimestamp:
			e.Timestamp = floatPtrOf(v)
		case DocTeam:
			e.Team = firstOf(v)
		case DocPlayers:
			e.Players = Strings(v)
		case DocX:
			e.X = floatPtrOf(v)
		case DocY:
			e.Y = floatPtrOf(v)
		case DocExtra:
		default:
			switch strings.ToUpper(k) {
			case KeyPlayer:
				if len(e.Players) == 0 {
					e.Players = Strings(v)
				}
			case KeyTeam:
				if e.Team == "" {
					e.Team = firstOf(v)
				}
			}
			if _, exists := e.Extra[k]; !exists {
				e.Extra[k] = v
			}
		}
	}
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtrOf(v any) *float64 {
	if f, ok := Float(v); ok {
		return &f
	}
	return nil
}

func firstOf(v any) string {
	if vals := Strings(v); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
