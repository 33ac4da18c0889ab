package component

import "math"

// Option getters for widget configuration mappings. Values arrive from YAML
// config, JSON overrides, or DOM attributes, so numeric types vary; these
// helpers normalize with a default fallback.

// GetString safely extracts a string value from options with a default
// fallback.
func GetString(options map[string]any, key, defaultValue string) string {
	if value, exists := options[key]; exists {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return defaultValue
}

// GetInt safely extracts an integer value from options with a default
// fallback and bounds checking.
func GetInt(options map[string]any, key string, defaultValue int) int {
	value, exists := options[key]
	if !exists {
		return defaultValue
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return defaultValue
		}
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return defaultValue
		}
		result := int(v)
		if float64(result) != v {
			return defaultValue
		}
		return result
	}
	return defaultValue
}

// GetBool safely extracts a boolean value from options with a default
// fallback.
func GetBool(options map[string]any, key string, defaultValue bool) bool {
	if value, exists := options[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
	}
	return defaultValue
}
