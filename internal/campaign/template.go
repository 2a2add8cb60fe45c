package campaign

import "regexp"

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Resolve replaces every {{name}} placeholder in body with its value from
// vars. Placeholders without a matching key are left verbatim; resolution
// never fails for missing variables.
func Resolve(body string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(body, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

// MergeVariables layers a personalization row over the campaign-level flat
// variable map. Row values win on key collision.
func MergeVariables(flat, row map[string]string) map[string]string {
	merged := make(map[string]string, len(flat)+len(row))
	for k, v := range flat {
		merged[k] = v
	}
	for k, v := range row {
		merged[k] = v
	}
	return merged
}
