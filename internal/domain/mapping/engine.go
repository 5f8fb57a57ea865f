package mapping

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/pkg/logger"
)

// descriptorsPath is ensured on every event in rule mode so rules can
// target it without checking.
const descriptorsPath = "extra_data.descriptors"

// Engine applies one mapping spec to events.
type Engine struct {
	spec   Spec
	logger logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine for spec.
func New(spec Spec, opts ...Option) *Engine {
	e := &Engine{spec: spec, logger: logger.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply rewrites events in place and returns transform defects.
func (e *Engine) Apply(ctx context.Context, events []*model.Event) []model.Defect {
	if e.spec.IsZero() {
		return nil
	}
	if e.spec.Structured() {
		for _, ev := range events {
			e.applyStructured(ev)
		}
		return nil
	}
	var defects []model.Defect
	for _, ev := range events {
		defects = append(defects, e.applyRules(ctx, ev)...)
	}
	return defects
}

func (e *Engine) applyRules(ctx context.Context, ev *model.Event) []model.Defect {
	doc := ev.Document()
	if _, ok := Read(doc, descriptorsPath).(map[string]any); !ok {
		Write(doc, descriptorsPath, map[string]any{})
	}

	var defects []model.Defect
	for _, r := range e.spec.Rules {
		v := Read(doc, r.Source)
		if v == nil {
			continue
		}
		if r.Transformer != "" {
			out, known, err := Transform(r.Transformer, v)
			switch {
			case !known:
				e.logger.Debug(ctx, "unknown transformer ignored", logger.String("transformer", r.Transformer))
			case err != nil:
				defects = append(defects, model.Defect{Index: ev.Index, Kind: model.DefectTransform, Detail: err.Error()})
			}
			v = out
		}
		if !Write(doc, r.Target, v) {
			defects = append(defects, model.Defect{
				Index:  ev.Index,
				Kind:   model.DefectTransform,
				Detail: fmt.Sprintf("target %q crosses a non-map value", r.Target),
			})
		}
	}
	ev.ApplyDocument(doc)
	return defects
}

func (e *Engine) applyStructured(ev *model.Event) {
	code := ev.Type
	if team, ok := lookupFold(e.spec.TeamInference, code); ok && ev.Team == "" {
		ev.Team = team
	}
	if renamed, ok := lookupFold(e.spec.Code, code); ok {
		ev.Type = renamed
	}

	for group, target := range e.spec.Labels {
		var (
			src string
			val any
		)
		for k, v := range ev.Extra {
			if strings.EqualFold(k, group) {
				src, val = k, v
				break
			}
		}
		if src == "" {
			continue
		}
		if src != target {
			delete(ev.Extra, src)
		}
		ev.Extra[target] = val

		switch strings.ToUpper(target) {
		case "PLAYER", "JUGADOR":
			if len(ev.Players) == 0 {
				ev.Players = model.Strings(val)
			}
		case "TEAM", "EQUIPO":
			if ev.Team == "" {
				if vals := model.Strings(val); len(vals) > 0 {
					ev.Team = vals[0]
				}
			}
		case "ADVANCE", "AVANCE":
			if _, ok := ev.Extra["ADVANCE"]; !ok {
				ev.Extra["ADVANCE"] = val
			}
		}
	}
}

func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(key)) {
			return v, true
		}
	}
	return "", false
}
