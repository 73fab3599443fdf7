// Package htmlsanitize cleans user-supplied text before persistence.
// Descriptions may keep safe formatting; titles and names are plain text.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps user-generated-content safe HTML (paragraphs, emphasis,
// links with safe schemes) and removes scripts and event handlers.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// StripTags removes all markup, returning plain text. Used for titles,
// categories, and names that should never render as HTML.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strict.Sanitize(s)
}
