package enrich

import (
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
)

const throwerPrefix = "T-"

// Cards attributes a yellow card for a NEUTRAL penalty descriptor and a red
// card for NEGATIVE. Anything else clears both.
func Cards(ev *model.Event) {
	switch ev.UpperType() {
	case "PENALTY", "PENAL":
	default:
		return
	}
	d := &ev.Derived
	d.Cards = true
	d.YellowCard, d.RedCard = nil, nil

	player := ""
	if len(ev.Players) > 0 {
		player = strings.TrimSpace(ev.Players[0])
	} else {
		player = ev.Value(model.KeyPlayer, "JUGADOR")
	}
	if player == "" {
		return
	}
	switch strings.ToUpper(ev.Value("DESCRIPTOR")) {
	case "NEUTRAL":
		d.YellowCard = model.StringPtr(player)
	case "NEGATIVE":
		d.RedCard = model.StringPtr(player)
	}
}

// Lineout splits the participants into thrower and receiver. A T- prefix
// marks the thrower; without one the first player throws.
func Lineout(ev *model.Event) {
	switch ev.UpperType() {
	case "LINEOUT", "LINE OUT", "LINE-OUT":
	default:
		return
	}
	cands := ev.Players
	if len(cands) == 0 {
		cands = model.Dedupe(append(ev.Values(model.KeyPlayer, "JUGADOR"), ev.Values("PLAYER_2")...))
	}
	if len(cands) == 0 {
		return
	}

	var thrower, receiver string
	throwerAt := -1
	for i, c := range cands {
		if hasThrowerPrefix(c) {
			thrower, throwerAt = strings.TrimSpace(c[len(throwerPrefix):]), i
			break
		}
	}
	if throwerAt < 0 {
		thrower, throwerAt = strings.TrimSpace(cands[0]), 0
	}
	for i, c := range cands {
		if i != throwerAt {
			receiver = strings.TrimSpace(strings.TrimPrefix(c, throwerPrefix))
			break
		}
	}

	ev.Derived.LineThrower = thrower
	ev.Derived.LineReceiver = receiver
	pair := model.Dedupe([]string{thrower, receiver})
	ev.Players = pair
	ev.Extra[model.KeyPlayer] = pair
}

func hasThrowerPrefix(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > len(throwerPrefix) && strings.EqualFold(s[:len(throwerPrefix)], throwerPrefix)
}

// Tackle collapses the tacklers into PLAYER and stamps a tackle count of 1.
func Tackle(ev *model.Event) {
	if ev.UpperType() != "TACKLE" {
		return
	}
	names := ev.Players
	if len(names) == 0 {
		names = model.Dedupe(append(ev.Values(model.KeyPlayer, "JUGADOR"), ev.Values("PLAYER_2")...))
	}
	switch len(names) {
	case 0:
	case 1:
		ev.Extra[model.KeyPlayer] = names[0]
	default:
		ev.Extra[model.KeyPlayer] = []string{names[0], names[1]}
	}
	ev.Derived.TackleCount = 1
}
