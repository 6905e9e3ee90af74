// Package strings holds small string helpers shared by request parsers.
package strings

import (
	"strings"
)

// SplitList flattens repeated and comma-separated query values into one list.
// Each element is trimmed and passed through fold (nil leaves it as is).
// Empty elements and duplicates after folding are dropped; first occurrence
// order is kept.
//
//	SplitList([]string{"submitted, verified", "SUBMITTED", ""}, strings.ToUpper)
//	// []string{"SUBMITTED", "VERIFIED"}
func SplitList(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			v := strings.TrimSpace(part)
			if fold != nil {
				v = fold(v)
			}
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}
