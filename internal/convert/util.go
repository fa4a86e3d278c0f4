package convert

import (
	"path/filepath"
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9\-_]+`)

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

// documentStem is the slug of a file name without its extension.
func documentStem(path string) string {
	base := filepath.Base(path)
	stem := slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		return "document"
	}
	return stem
}

// documentTitle is a readable title derived from a file name.
func documentTitle(path string) string {
	base := filepath.Base(path)
	t := strings.TrimSuffix(base, filepath.Ext(base))
	t = strings.NewReplacer("_", " ", "-", " ").Replace(t)
	return strings.Join(strings.Fields(t), " ")
}
