package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
)

// Transformer names accepted in rules.
const (
	ToUpper        = "to_upper"
	SplitAndDedupe = "split_and_dedupe"
	MMSSToSeconds  = "mmss_to_seconds"
)

type transformFunc func(v any) (any, error)

var transformers = map[string]transformFunc{
	ToUpper:        toUpper,
	SplitAndDedupe: splitAndDedupe,
	MMSSToSeconds:  mmssToSeconds,
}

// Transform applies the named transformer. Unknown names return v
// unchanged with known=false. On error v is returned unchanged.
func Transform(name string, v any) (out any, known bool, err error) {
	fn, ok := transformers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return v, false, nil
	}
	out, err = fn(v)
	if err != nil {
		return v, true, err
	}
	return out, true, nil
}

func toUpper(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return strings.ToUpper(t), nil
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = strings.ToUpper(s)
		}
		return out, nil
	default:
		return v, nil
	}
}

func splitAndDedupe(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return model.Dedupe(strings.Split(t, ",")), nil
	case []string, []any:
		var parts []string
		for _, s := range model.Strings(t) {
			parts = append(parts, strings.Split(s, ",")...)
		}
		return model.Dedupe(parts), nil
	default:
		return v, nil
	}
}

func mmssToSeconds(v any) (any, error) {
	switch t := v.(type) {
	case float64, int, int64:
		f, _ := model.Float(t)
		return f, nil
	case string:
		s := strings.TrimSpace(t)
		if strings.Contains(s, ":") {
			parts := strings.Split(s, ":")
			if len(parts) == 2 {
				m, errM := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
				sec, errS := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
				if errM == nil && errS == nil {
					return m*60 + sec, nil
				}
				return v, fmt.Errorf("mmss_to_seconds: cannot parse %q", t)
			}
			s = parts[0]
		}
		if f, ok := model.Float(s); ok {
			return f, nil
		}
		return v, fmt.Errorf("mmss_to_seconds: cannot parse %q", t)
	default:
		return v, fmt.Errorf("mmss_to_seconds: unsupported %T", v)
	}
}
