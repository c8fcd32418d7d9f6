package tools

import (
	"fmt"
	"math"
	"strings"
)

// JSON arguments arrive decoded into interface{} values, so numbers are
// float64 and lists are []interface{}.

func stringParam(params map[string]interface{}, name string) string {
	s, _ := params[name].(string)
	return strings.TrimSpace(s)
}

func intParam(params map[string]interface{}, name string, def int) (int, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int(f), nil
}

// addressParam accepts a comma-separated string or an array of strings.
func addressParam(params map[string]interface{}, name string) ([]string, error) {
	var raw []string
	switch v := params[name].(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.Split(v, ",")
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain only strings", name)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or an array of strings", name)
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func addressSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"oneOf": []interface{}{
			map[string]interface{}{"type": "string"},
			map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"description": description,
	}
}
