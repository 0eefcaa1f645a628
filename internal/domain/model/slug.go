package model

import (
	"regexp"
	"strings"
)

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}\s_-]+`)
	slugCollapse = regexp.MustCompile(`[\s_-]+`)
)

// Slugify строит код курса из названия: нижний регистр, без знаков
// препинания, пробелы, "_" и "-" схлопываются в один "-".
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
