package domain

import "strings"

// DisplayStatus collapses raw tracking statuses into the dashboard
// vocabulary. The relabeling is a presentation concern: stored data is never
// rewritten, only the label shown next to a count.
func DisplayStatus(raw string) string {
	label := titleCase(raw)
	switch label {
	case "Failed", "Manual Review":
		return "Manual Review"
	default:
		return label
	}
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
