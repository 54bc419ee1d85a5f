package extract

import "strings"

// SanitizeJSONResponse strips the markdown code fences and stray
// whitespace that models wrap around JSON even when asked not to.
func SanitizeJSONResponse(b []byte) []byte {
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}
