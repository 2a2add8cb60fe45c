package campaign

import "strings"

// Phone-identifying columns of a personalization row, in priority order.
var phoneColumns = []string{"phone", "number", "mobile"}

// PhoneFromRow extracts the target phone number from a personalization row.
func PhoneFromRow(row map[string]string) (string, bool) {
	for _, col := range phoneColumns {
		if value, ok := row[col]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// TargetsFromRows derives the target list from row-based personalization
// data. Rows without a phone column are dropped; the returned rows stay 1:1
// with the returned targets, preserving order.
func TargetsFromRows(rows []map[string]string) ([]string, []map[string]string) {
	targets := make([]string, 0, len(rows))
	kept := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		phone, ok := PhoneFromRow(row)
		if !ok {
			continue
		}
		targets = append(targets, phone)
		kept = append(kept, row)
	}
	return targets, kept
}

// ParseTargets splits raw target input on newlines, commas and semicolons,
// trims each entry and drops duplicates while preserving order.
func ParseTargets(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';'
	})

	seen := make(map[string]bool, len(fields))
	targets := make([]string, 0, len(fields))
	for _, field := range fields {
		phone := strings.TrimSpace(field)
		if phone == "" || seen[phone] {
			continue
		}
		seen[phone] = true
		targets = append(targets, phone)
	}
	return targets
}
