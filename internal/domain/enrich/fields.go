package enrich

import (
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
)

// multiValued keys stay lists when they hold more than one value.
var multiValued = map[string]bool{
	"JUGADOR":         true,
	"PLAYER":          true,
	"ENCUADRE-TACKLE": true,
}

// fieldAliases maps source descriptor groups to English keys.
var fieldAliases = [][2]string{
	{"AVANCE", "ADVANCE"},
	{"JUGADOR", "PLAYER"},
	{"EQUIPO", "TEAM"},
	{"VELOCIDAD-RUCK", "RUCK_SPEED"},
	{"ENCUADRE-TACKLE", "TACKLE_FRAME"},
	{"RESULTADO-LINE", "LINEOUT_RESULT"},
	{"POSICION-LINE", "LINEOUT_POSITION"},
	{"CANTIDAD-LINE", "LINEOUT_COUNT"},
	{"TIRADOR-LINE", "LINEOUT_THROWER"},
	{"INFRACCION", "INFRACTION"},
	{"TIPO-PUNTOS", "POINTS_TYPE"},
	{"TIPO-PERDIDA/RECUPERACION", "TURNOVER_TYPE"},
	{"SCRUM", "SCRUM_RESULT"},
	{"PIE", "KICK_TYPE"},
	{"RESULTADO-PALOS", "GOAL_RESULT"},
	{"TIPO-QUIEBRE", "BREAK_TYPE"},
	{"CANAL-QUIEBRE", "BREAK_CHANNEL"},
}

// Consolidate collapses repeated descriptor values. Known multi-valued keys
// keep a deduplicated list; every other key keeps its first value.
func Consolidate(ev *model.Event) {
	for k, v := range ev.Extra {
		var vals []string
		switch v.(type) {
		case []string, []any:
			vals = model.Dedupe(model.Strings(v))
		default:
			continue
		}
		switch {
		case len(vals) == 0:
			delete(ev.Extra, k)
		case len(vals) > 1 && multiValued[strings.ToUpper(k)]:
			ev.Extra[k] = vals
		default:
			ev.Extra[k] = vals[0]
		}
	}
	ev.Players = model.Dedupe(ev.Players)
}

// TranslateFields copies source keys to their English names. Existing
// English keys are left alone.
func TranslateFields(ev *model.Event) {
	for _, a := range fieldAliases {
		v, ok := ev.Lookup(a[0])
		if !ok {
			continue
		}
		if _, exists := ev.Lookup(a[1]); exists {
			continue
		}
		ev.Extra[a[1]] = v
	}
}

// MapTeam rewrites detected team labels to canonical names.
func (e *Enricher) MapTeam(ev *model.Event) {
	rename := func(aliases []string, name string) {
		for _, alias := range aliases {
			if name == "" || alias == name {
				continue
			}
			if sameTeam(ev.Team, alias) {
				ev.Team = name
			}
			for _, k := range []string{"TEAM", "EQUIPO"} {
				if s, ok := ev.Extra[k].(string); ok && sameTeam(s, alias) {
					ev.Extra[k] = name
				}
			}
		}
	}
	rename(e.ourAliases, e.ourTeam)
	rename(e.opponentAliases, e.opponent)
}
