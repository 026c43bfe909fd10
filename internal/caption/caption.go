// Package caption builds Instagram post captions from a row's description
// and tag list.
package caption

import "strings"

// Build composes a caption: the description, then one " #tag" per
// comma-separated tag with surrounding whitespace trimmed and inner spaces
// removed, then defaultTags appended verbatim with no separator.
//
// Build("A", "x, y", "#z") == "A #x #y#z"
func Build(description, tags, defaultTags string) string {
	var b strings.Builder
	b.WriteString(description)

	for _, tag := range strings.Split(tags, ",") {
		tag = strings.ReplaceAll(strings.TrimSpace(tag), " ", "")
		if tag == "" {
			continue
		}
		b.WriteString(" #")
		b.WriteString(tag)
	}

	b.WriteString(defaultTags)
	return b.String()
}
