package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"eventhub/internal/models"
)

// resolvePath looks up a dotted path against an event's fields and payload.
// Returns nil for a missing path.
func resolvePath(ev models.Event, path string) interface{} {
	parts := strings.Split(path, ".")
	switch parts[0] {
	case "id":
		if len(parts) == 1 {
			return ev.ID
		}
	case "event_type":
		if len(parts) == 1 {
			return ev.EventType
		}
	case "source":
		if len(parts) == 1 {
			return ev.Source
		}
	case "payload":
		if len(parts) == 1 {
			return ev.Payload
		}
		return lookup(ev.Payload, parts[1:])
	}
	return nil
}

func lookup(m map[string]interface{}, parts []string) interface{} {
	cur := interface{}(m)
	for _, p := range parts {
		sub, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = sub[p]
		if !ok {
			return nil
		}
	}
	return cur
}

// matchCondition checks every predicate in cond against the event. All
// predicates are ANDed; a plain (non-mapping) expected value means equality.
func matchCondition(cond map[string]interface{}, ev models.Event) bool {
	for path, expected := range cond {
		actual := resolvePath(ev, path)
		if ops, ok := expected.(map[string]interface{}); ok {
			if !matchOperators(actual, ops) {
				return false
			}
		} else if !valuesEqual(actual, expected) {
			return false
		}
	}
	return true
}

func matchOperators(actual interface{}, ops map[string]interface{}) bool {
	for op, want := range ops {
		switch op {
		case "$eq":
			if !valuesEqual(actual, want) {
				return false
			}
		case "$ne":
			if valuesEqual(actual, want) {
				return false
			}
		case "$gt", "$lt":
			// An absent value never satisfies an ordering comparison.
			if actual == nil {
				return false
			}
			af, aok := toFloat64(actual)
			wf, wok := toFloat64(want)
			if !aok || !wok {
				return false
			}
			if op == "$gt" && !(af > wf) {
				return false
			}
			if op == "$lt" && !(af < wf) {
				return false
			}
		case "$contains":
			if !strings.Contains(stringify(actual), stringify(want)) {
				return false
			}
		case "$not_contains":
			if strings.Contains(stringify(actual), stringify(want)) {
				return false
			}
		case "$in":
			list, ok := want.([]interface{})
			if !ok {
				return false
			}
			found := false
			for _, item := range list {
				if valuesEqual(actual, item) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			// Unknown operator never matches.
			return false
		}
	}
	return true
}

// valuesEqual compares numeric types by value, everything else by its
// string form.
func valuesEqual(left, right interface{}) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if lok && rok {
		return math.Abs(lf-rf) < 1e-9
	}
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		return ok && lb == rb
	}
	return stringify(left) == stringify(right)
}

// toFloat64 coerces a numeric value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// stringify renders a value the way it would appear in a log line. Whole
// floats print without the trailing ".0" so JSON numbers interpolate cleanly.
func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if f, ok := toFloat64(v); ok && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%v", v)
}
