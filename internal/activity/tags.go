package activity

import "strings"

// OptimizeTags trims surrounding whitespace from every tag, drops tags
// that become empty, and removes exact duplicates while preserving
// first-occurrence order. The function is pure and idempotent.
func OptimizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
