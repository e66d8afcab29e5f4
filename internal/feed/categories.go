package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ParseCategoryList extracts category names from a product feed cell. Exports
// have been seen in three shapes, all accepted:
//
//	Electrical, Lighting
//	["Electrical"],["Lighting"]
//	["Electrical","Lighting"]
//
// A JSON-aware split is tried first and plain comma splitting is the
// fallback. It never fails; an unusable cell yields an empty list.
func ParseCategoryList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var names []string
	if strings.ContainsAny(s, "[]") {
		names = splitJSONAware(s)
	} else {
		names = SplitList(s)
	}

	if len(names) == 0 {
		slog.Warn("category list could not be parsed", "value", s)
	}
	return names
}

func splitJSONAware(s string) []string {
	var whole []any
	if err := json.Unmarshal([]byte(s), &whole); err == nil {
		return flattenNames(whole, nil)
	}

	segments, ok := splitTopLevel(s)
	if !ok {
		return plainSplit(s)
	}

	var names []string
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(seg), &v); err == nil {
			names = flattenNames([]any{v}, names)
			continue
		}
		names = append(names, plainSplit(seg)...)
	}
	return names
}

// splitTopLevel splits on commas outside brackets and quoted strings. ok is
// false when brackets or quotes are unbalanced.
func splitTopLevel(s string) ([]string, bool) {
	var (
		segments []string
		depth    int
		inQuote  bool
		escaped  bool
		start    int
	)
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return nil, false
			}
		case r == ',' && depth == 0:
			segments = append(segments, s[start:i])
			start = i + 1
		}
	}
	if depth != 0 || inQuote {
		return nil, false
	}
	return append(segments, s[start:]), true
}

func plainSplit(s string) []string {
	s = strings.Map(func(r rune) rune {
		if r == '[' || r == ']' || r == '"' {
			return -1
		}
		return r
	}, s)
	return SplitList(s)
}

func flattenNames(values []any, into []string) []string {
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if t = strings.TrimSpace(t); t != "" {
				into = append(into, t)
			}
		case []any:
			into = flattenNames(t, into)
		case float64, bool:
			into = append(into, fmt.Sprint(t))
		}
	}
	return into
}
