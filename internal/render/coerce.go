package render

import (
	"encoding/json"
	"strconv"
	"strings"

	"site-cms/internal/models"
)

// The getters below never fail: a missing or wrongly typed value becomes
// its zero value so one bad field cannot break a section.

func asMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case models.Content:
		return m
	default:
		return nil
	}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func str(m map[string]interface{}, key string) string {
	return strings.TrimSpace(asString(m[key]))
}

func strOr(m map[string]interface{}, key, def string) string {
	if s := str(m, key); s != "" {
		return s
	}
	return def
}

func list(m map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if obj := asMap(item); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

func stringList(m map[string]interface{}, key string) []string {
	var out []string
	switch raw := m[key].(type) {
	case []interface{}:
		for _, item := range raw {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range raw {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		// edited one entry per line
		for _, s := range strings.Split(raw, "\n") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func paragraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stats(m map[string]interface{}) []Stat {
	var out []Stat
	for _, s := range list(m, "stats") {
		out = append(out, Stat{Value: str(s, "number"), Label: str(s, "label")})
	}
	return out
}
