package timeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/pkg/logger"
	"github.com/okian/matchlog/pkg/metrics"
)

// Synthesis defaults, in seconds.
const (
	DefaultHalfDuration     = 2400.0
	DefaultHalfTimeInterval = 900.0
)

// Anchors are the resolved period boundaries in source-clock seconds.
// KickOff1 <= End1 <= KickOff2 <= End2 always holds.
type Anchors struct {
	KickOff1    float64  `json:"kick_off_1"`
	End1        float64  `json:"end_1"`
	KickOff2    float64  `json:"kick_off_2"`
	End2        float64  `json:"end_2"`
	Synthesized []Anchor `json:"synthesized,omitempty"`
}

// FirstHalf returns the first-half duration.
func (a Anchors) FirstHalf() float64 { return a.End1 - a.KickOff1 }

// IsSynthesized reports whether k was filled in by default.
func (a Anchors) IsSynthesized(k Anchor) bool {
	for _, s := range a.Synthesized {
		if s == k {
			return true
		}
	}
	return false
}

type indexed struct {
	ev *model.Event
	ts float64
}

// Resolver resolves anchors for an event list.
type Resolver struct {
	logger logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: logger.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns four ordered anchors. Anchors the method cannot find are
// synthesized from the ones before them.
func (r *Resolver) Resolve(ctx context.Context, tm TimeMapping, events []*model.Event) (Anchors, error) {
	if tm.Method == nil {
		return Anchors{}, fmt.Errorf("%w: no method", ErrConfiguration)
	}
	if m, ok := tm.Method.(Manual); ok && len(m.Times) == 0 {
		return Anchors{}, fmt.Errorf("%w: manual method without anchors", ErrConfiguration)
	}

	timed := make([]*indexed, 0, len(events))
	for _, ev := range events {
		if ev.HasTimestamp() {
			timed = append(timed, &indexed{ev: ev, ts: *ev.Timestamp})
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].ts < timed[j].ts })

	found, warnings := tm.Method.find(timed)
	for _, w := range warnings {
		r.logger.Warn(ctx, w, logger.String("method", tm.Method.Name()))
	}

	var a Anchors
	prev := math.Inf(-1)
	for _, k := range AnchorOrder {
		v, ok := found[k]
		if !ok {
			v = synthesize(k, a, timed)
			a.Synthesized = append(a.Synthesized, k)
			metrics.RecordSyntheticAnchor(string(k))
			r.logger.Warn(ctx, "period anchor synthesized",
				logger.String("anchor", string(k)),
				logger.Float64("value", v),
				logger.String("method", tm.Method.Name()),
			)
		}
		if v < prev {
			r.logger.Warn(ctx, "period anchor clamped to keep order",
				logger.String("anchor", string(k)),
				logger.Float64("resolved", v),
				logger.Float64("clamped", prev),
			)
			v = prev
		}
		a.set(k, v)
		prev = v
	}
	return a, nil
}

func (a *Anchors) set(k Anchor, v float64) {
	switch k {
	case KickOff1:
		a.KickOff1 = v
	case End1:
		a.End1 = v
	case KickOff2:
		a.KickOff2 = v
	case End2:
		a.End2 = v
	}
}

func synthesize(k Anchor, a Anchors, timed []*indexed) float64 {
	switch k {
	case KickOff1:
		if len(timed) == 0 {
			return 0
		}
		return timed[0].ts
	case End1:
		return a.KickOff1 + DefaultHalfDuration
	case KickOff2:
		return a.End1 + DefaultHalfTimeInterval
	default:
		return a.KickOff2 + DefaultHalfDuration
	}
}

func (m Manual) find(_ []*indexed) (map[Anchor]float64, []string) {
	out := make(map[Anchor]float64, len(m.Times))
	for k, v := range m.Times {
		out[k] = v
	}
	return out, nil
}

func (m CategoryBased) find(timed []*indexed) (map[Anchor]float64, []string) {
	out := make(map[Anchor]float64, len(m.Markers))
	for k, cat := range m.Markers {
		want := strings.ToUpper(strings.TrimSpace(cat))
		for _, it := range timed {
			if it.ev.UpperType() == want {
				out[k] = it.ts
				break
			}
		}
	}
	return out, nil
}

func (m EventBased) find(timed []*indexed) (map[Anchor]float64, []string) {
	out := make(map[Anchor]float64, len(m.Markers))
	var warnings []string
	for k, mk := range m.Markers {
		want := strings.ToUpper(strings.TrimSpace(mk.Category))
		filter := strings.TrimSpace(mk.DescriptorKey) != "" && strings.TrimSpace(mk.DescriptorValue) != ""
		if !filter {
			warnings = append(warnings, fmt.Sprintf("marker %s has no descriptor pair; matching by category only", k))
		}
		for _, it := range timed {
			if it.ev.UpperType() != want {
				continue
			}
			if filter && !hasDescriptor(it.ev, mk.DescriptorKey, mk.DescriptorValue) {
				continue
			}
			out[k] = it.ts
			break
		}
	}
	return out, warnings
}

func hasDescriptor(ev *model.Event, key, value string) bool {
	want := strings.TrimSpace(value)
	for _, v := range ev.Values(key) {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
