package rules

import (
	"regexp"

	"eventhub/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// Interpolate replaces {dotted.path} placeholders in a template with values
// from the event. Unresolvable placeholders are left intact so a broken
// template stays visible in the output.
func Interpolate(template string, ev models.Event) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		path := m[1 : len(m)-1]
		v := resolvePath(ev, path)
		if v == nil {
			return m
		}
		return stringify(v)
	})
}

// InterpolateValue applies Interpolate recursively through nested maps and
// lists, used for emit payloads and webhook bodies.
func InterpolateValue(v interface{}, ev models.Event) interface{} {
	switch t := v.(type) {
	case string:
		return Interpolate(t, ev)
	case map[string]interface{}:
		return InterpolateMap(t, ev)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = InterpolateValue(item, ev)
		}
		return out
	default:
		return v
	}
}

// InterpolateMap interpolates every value of a template map.
func InterpolateMap(m map[string]interface{}, ev models.Event) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = InterpolateValue(v, ev)
	}
	return out
}
