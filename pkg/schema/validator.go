package schema

import (
	"fmt"
	"strconv"
	"strings"
)

var defaultMistakes = map[string]string{
	"CURRENT TIMESTAMP": "CURRENT_TIMESTAMP",
	"CURRENT DATE":      "CURRENT_DATE",
	"NOW ()":            "NOW()",
	"GEN RANDOM UUID":   "gen_random_uuid()",
}

var defaultKeywords = map[string]bool{
	"NULL": true, "TRUE": true, "FALSE": true,
	"CURRENT_TIMESTAMP": true, "CURRENT_DATE": true, "LOCALTIMESTAMP": true,
}

// ValidateDefaultValue rejects default expressions that are almost certainly
// typos of a common SQL expression.
func ValidateDefaultValue(defaultVal string) error {
	trimmed := strings.TrimSpace(defaultVal)
	if trimmed == "" {
		return fmt.Errorf("empty DEFAULT value")
	}
	upper := strings.ToUpper(trimmed)
	for mistake, correct := range defaultMistakes {
		if strings.Contains(upper, mistake) {
			return fmt.Errorf("invalid DEFAULT value %q: use %s instead of %s", defaultVal, correct, mistake)
		}
	}
	if defaultKeywords[upper] || strings.ContainsAny(trimmed, "('") {
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return nil
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "now") || strings.Contains(lower, "uuid") || strings.Contains(lower, "random") {
		return fmt.Errorf("invalid DEFAULT value %q: function call is missing parentheses", defaultVal)
	}
	return nil
}
