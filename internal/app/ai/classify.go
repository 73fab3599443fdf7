package ai

import "strings"

// queryKeywords are the phrases that mark a chat message as a question about
// existing tasks rather than a request to create new ones. Matching is
// case-insensitive substring containment.
var queryKeywords = []string{
	"show", "find", "search", "get", "what", "which", "where", "when",
	"status of", "progress", "update on", "assigned to", "who is",
	"how many", "list", "display", "tell me about", "info about", "is",
}

// IsTaskQuery reports whether the message is asking about existing tasks.
func IsTaskQuery(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range queryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
