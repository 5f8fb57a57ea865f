// Package normalize turns raw tagged instances into canonical events.
package normalize

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/scoring"
	"github.com/okian/matchlog/internal/domain/vocab"
	"github.com/okian/matchlog/pkg/logger"
)

// MiscGroup holds labels that carry no group.
const MiscGroup = "MISC"

// Descriptor groups read by the normalizer.
var (
	goalResultKeys = []string{"RESULTADO-PALOS", "RESULTADO_PALOS", "GOAL_RESULT", "RESULTADO", MiscGroup}
	pointsKeys     = []string{"PUNTOS", "POINTS", "TIPO-PUNTOS", "TIPO_PUNTOS", "TIPO-PUNTO", MiscGroup}
	turnoverKeys   = []string{"TIPO-PERDIDA/RECUPERACION", "TIPO-PERDIDA/RECUPERACIN", "TIPO_PERDIDA/RECUPERACION", "TURNOVER_TYPE"}
	infractionKeys = []string{"INFRACCION", "INFRACTION_TYPE"}
)

// Report summarizes one normalization run.
type Report struct {
	Defects   []model.Defect `json:"defects,omitempty"`
	Discarded int            `json:"discarded"`
}

// Normalizer converts a parsed document into events.
type Normalizer struct {
	translator *vocab.Translator
	profile    *profile.Profile
	scorer     scoring.Scorer
	logger     logger.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTranslator sets the vocabulary used for categories and descriptors.
func WithTranslator(t *vocab.Translator) Option {
	return func(n *Normalizer) {
		if t != nil {
			n.translator = t
		}
	}
}

// WithProfile sets the import profile.
func WithProfile(p *profile.Profile) Option {
	return func(n *Normalizer) {
		if p != nil {
			n.profile = p
		}
	}
}

// WithScorer sets the points scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(n *Normalizer) {
		if s != nil {
			n.scorer = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a normalizer. Without options it uses the default profile,
// an empty vocabulary and union point values.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		translator: vocab.New(nil),
		profile:    profile.Default(),
		scorer:     scoring.NewTableScorer(),
		logger:     logger.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts every instance of doc. Discarded instances are counted
// and bad ones are kept with a defect.
func (n *Normalizer) Normalize(ctx context.Context, doc *model.Document) ([]*model.Event, Report) {
	var rep Report
	if doc == nil {
		return nil, rep
	}
	events := make([]*model.Event, 0, len(doc.Instances))
	for _, raw := range doc.Instances {
		ev, defects, keep := n.instance(raw)
		if !keep {
			rep.Discarded++
			n.logger.Debug(ctx, "instance discarded",
				logger.Int("index", raw.Index),
				logger.String("code", raw.Code),
			)
			continue
		}
		rep.Defects = append(rep.Defects, defects...)
		events = append(events, ev)
	}
	return events, rep
}

func (n *Normalizer) instance(raw model.RawInstance) (*model.Event, []model.Defect, bool) {
	code, hint := CleanCode(raw.Code)
	if n.profile.Discards(raw.Code) || n.profile.Discards(code) {
		return nil, nil, false
	}

	ev := model.NewEvent(raw.Index)
	ev.Type = n.translator.EventType(code)
	if ev.Type != code && n.profile.Discards(ev.Type) {
		return nil, nil, false
	}

	var defects []model.Defect
	if strings.TrimSpace(ev.Type) == "" {
		defects = append(defects, model.Defect{Index: raw.Index, Kind: model.DefectMissingCategory})
	}

	for _, d := range raw.Descriptors {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		group := strings.TrimSpace(d.Group)
		if group == "" {
			group = MiscGroup
		}
		ev.AddExtra(group, n.translator.Descriptor(text))
	}

	if raw.Start != nil && !math.IsNaN(*raw.Start) && !math.IsInf(*raw.Start, 0) {
		ev.Timestamp = model.FloatPtr(model.Round(*raw.Start, 1))
		ev.Extra["clip_start"] = *raw.Start
		ev.Extra["original_start"] = *raw.Start
	} else {
		defects = append(defects, model.Defect{Index: raw.Index, Kind: model.DefectMissingTimestamp})
	}
	if raw.End != nil {
		ev.Extra["clip_end"] = *raw.End
		ev.Extra["original_end"] = *raw.End
	}

	if d, ok := coordinates(raw, ev); !ok {
		defects = append(defects, d)
	}

	switch ev.UpperType() {
	case "GOAL-KICK":
		if res := GoalKickResult(ev.Values(goalResultKeys...)); res != "" {
			ev.Extra["RESULTADO-PALOS"] = res
		}
	case "POINTS":
		n.points(ev)
	}

	ev.Team = n.team(ev, hint)
	if ev.Team != "" {
		for _, k := range []string{"EQUIPO", "TEAM"} {
			if ev.Value(k) == "" {
				ev.Extra[k] = ev.Team
			}
		}
	}

	var players []string
	for _, g := range n.profile.PlayerGroups {
		if v, ok := ev.Lookup(g); ok {
			players = append(players, model.Strings(v)...)
		}
	}
	ev.Players = model.Dedupe(players)

	if v := ev.Value(turnoverKeys...); v != "" {
		ev.Extra["TURNOVER_TYPE"] = v
	}
	if v := ev.Value(infractionKeys...); v != "" {
		ev.Extra["INFRACTION_TYPE"] = v
	}
	return ev, defects, true
}

func coordinates(raw model.RawInstance, ev *model.Event) (model.Defect, bool) {
	finite := func(f *float64) bool { return f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0) }
	switch {
	case raw.X == nil && raw.Y == nil:
		return model.Defect{}, true
	case finite(raw.X) && finite(raw.Y):
		ev.X = model.FloatPtr(*raw.X)
		ev.Y = model.FloatPtr(*raw.Y)
		return model.Defect{}, true
	default:
		return model.Defect{
			Index:  raw.Index,
			Kind:   model.DefectBadCoordinate,
			Detail: fmt.Sprintf("x=%v y=%v", deref(raw.X), deref(raw.Y)),
		}, false
	}
}

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func (n *Normalizer) points(ev *model.Event) {
	desc := ev.Value(pointsKeys...)
	if desc == "" {
		return
	}
	res, ok := n.scorer.Score(desc)
	if res.Type == "" {
		return
	}
	ev.Derived.Points = res.Type
	for _, k := range []string{"TIPO-PUNTOS", "TIPO_PUNTOS"} {
		if ev.Value(k) == "" {
			ev.Extra[k] = res.Type
		}
	}
	if ok {
		ev.Derived.PointsValue = model.IntPtr(res.Value)
	}
}

func (n *Normalizer) team(ev *model.Event, hint string) string {
	if hint == Opponent {
		return Opponent
	}
	var tokens []string
	for _, g := range n.profile.TeamGroups {
		if v, ok := ev.Lookup(g); ok {
			tokens = append(tokens, model.Strings(v)...)
		}
	}
	if t := GuessTeam(tokens); t != "" {
		return t
	}
	return hint
}
