// Package vocab translates source-specific terms into the canonical taxonomy.
package vocab

import (
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
)

type key struct {
	term string
	kind model.MappingType
}

type entry struct {
	target   string
	priority int
}

// Translator is an immutable lookup built once per import run. It is safe
// for concurrent use.
type Translator struct {
	table map[key]entry
}

// New builds a translator from mapping rows. On duplicate keys the higher
// priority wins and ties go to the row that appears later.
func New(rows []model.CategoryMapping) *Translator {
	t := &Translator{table: make(map[key]entry, len(rows))}
	for _, r := range rows {
		term := normalize(r.SourceTerm)
		if term == "" || strings.TrimSpace(r.TargetCategory) == "" {
			continue
		}
		kind := r.MappingType
		if kind == "" {
			kind = model.MappingEventType
		}
		k := key{term: term, kind: kind}
		if cur, ok := t.table[k]; ok && cur.priority > r.Priority {
			continue
		}
		t.table[k] = entry{target: strings.TrimSpace(r.TargetCategory), priority: r.Priority}
	}
	return t
}

// Translate returns the canonical term, or term unchanged on a miss.
func (t *Translator) Translate(term string, kind model.MappingType) string {
	if t == nil {
		return term
	}
	if e, ok := t.table[key{term: normalize(term), kind: kind}]; ok {
		return e.target
	}
	return term
}

// EventType translates a category.
func (t *Translator) EventType(term string) string {
	return t.Translate(term, model.MappingEventType)
}

// Descriptor translates a descriptor value.
func (t *Translator) Descriptor(term string) string {
	return t.Translate(term, model.MappingDescriptor)
}

// Len reports the number of distinct keys.
func (t *Translator) Len() int {
	if t == nil {
		return 0
	}
	return len(t.table)
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
