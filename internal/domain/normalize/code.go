package normalize

import (
	"strings"
	"unicode"
)

// Opponent is the team label assigned from opponent tokens.
const Opponent = "OPPONENT"

var opponentTokens = map[string]struct{}{
	"RIVAL": {}, "OPPONENT": {}, "OPP": {}, "RIVALES": {}, "OPONENTE": {},
	"VISITA": {}, "VISITANTE": {}, "AWAY": {},
}

// CleanCode normalizes a raw category. A RIVAL marker is removed and
// reported as an opponent team hint.
func CleanCode(raw string) (code, teamHint string) {
	code = strings.TrimSpace(raw)
	upper := strings.ToUpper(code)
	if strings.Contains(upper, "RIVAL") {
		teamHint = Opponent
		code = strings.Join(strings.Fields(strings.ReplaceAll(upper, "RIVAL", "")), " ")
		upper = code
	}
	switch {
	case upper == "PALOS":
		code = "GOAL-KICK"
	case strings.HasPrefix(upper, "QUIEBRE"):
		code = "BREAK"
	case strings.HasPrefix(upper, "PUNT"):
		code = "POINTS"
	}
	return code, teamHint
}

// GuessTeam picks a team name from descriptor tokens. Opponent tokens win;
// otherwise the first token holding a run of three letters is used.
func GuessTeam(tokens []string) string {
	for _, tok := range tokens {
		s := strings.TrimSpace(tok)
		if s == "" {
			continue
		}
		u := strings.ToUpper(s)
		if _, ok := opponentTokens[u]; ok {
			return Opponent
		}
		if letterRun(u) >= 3 {
			return s
		}
	}
	return ""
}

func letterRun(s string) int {
	best, cur := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			cur++
			if cur > best {
				best = cur
			}
			continue
		}
		cur = 0
	}
	return best
}

// GoalKickResult reads SUCCESS or FAIL from free-form result texts.
func GoalKickResult(values []string) string {
	for _, v := range values {
		u := strings.ToUpper(v)
		switch {
		case strings.Contains(u, "CONVERTIDA"), strings.Contains(u, "SUCCESS"):
			return "SUCCESS"
		case strings.Contains(u, "ERRADA"), strings.Contains(u, "FAIL"):
			return "FAIL"
		}
	}
	return ""
}
