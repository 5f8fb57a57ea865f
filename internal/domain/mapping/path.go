// Package mapping applies profile-driven field remapping to events.
package mapping

import "strings"

// Read follows a dot-separated path through nested maps. It returns nil
// when a key is missing or a non-map value is met before the end.
func Read(doc map[string]any, path string) any {
	keys := splitPath(path)
	if len(keys) == 0 || doc == nil {
		return nil
	}
	var cur any = doc
	for _, k := range keys {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[k]
		case map[string]string:
			v, ok := m[k]
			if !ok {
				return nil
			}
			cur = v
		default:
			return nil
		}
	}
	return cur
}

// Write stores v at path, creating missing intermediate maps. It returns
// false, leaving doc untouched, when an intermediate holds a non-map value.
func Write(doc map[string]any, path string, v any) bool {
	keys := splitPath(path)
	if len(keys) == 0 || doc == nil {
		return false
	}
	cur := doc
	for _, k := range keys[:len(keys)-1] {
		next, exists := cur[k]
		if !exists || next == nil {
			child := make(map[string]any)
			cur[k] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return false
		}
		cur = child
	}
	cur[keys[len(keys)-1]] = v
	return true
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}
