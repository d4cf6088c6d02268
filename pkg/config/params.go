package config

import (
	"encoding/json"
	"strconv"
)

// Int returns an integer parameter, or def when unset or not a number.
// Parsers disagree on numeric types, so every common one is accepted.
func (r RuleConfig) Int(name string, def int) int {
	switch v := r.Params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns a boolean parameter, or def.
func (r RuleConfig) Bool(name string, def bool) bool {
	switch v := r.Params[name].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// String returns a string parameter, or def.
func (r RuleConfig) String(name, def string) string {
	if v, ok := r.Params[name].(string); ok {
		return v
	}
	return def
}
