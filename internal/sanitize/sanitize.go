// Package sanitize cleans raw model output before it is trusted: code fences
// are removed, literal image markup is reduced to plain text, stray HTML is
// converted to markdown, and line-delimited JSON is parsed record by record.
package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var fenceLine = regexp.MustCompile("^\\s*(?:```|~~~)[\\w.+-]*\\s*$")

// StripCodeFences removes every line that consists only of a code-fence
// delimiter (``` or ~~~ with an optional language tag) and trims the result.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") && !strings.Contains(s, "~~~") {
		return s
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if fenceLine.MatchString(ln) {
			continue
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var (
	mdImage     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdRefImage  = regexp.MustCompile(`!\[([^\]]*)\]\[[^\]]*\]`)
	mdRefDef    = regexp.MustCompile(`(?im)^[ \t]*\[[^\]]+\]:[ \t]*\S+\.(?:png|jpe?g|gif|svg|webp|bmp|tiff?)\b.*$\n?`)
	htmlImg     = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	htmlImgAlt  = regexp.MustCompile(`(?is)\balt\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	dataURI     = regexp.MustCompile(`data:[a-zA-Z]+/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)
	emptyParens = regexp.MustCompile(`\(\s*\)`)
)

const maxFixpasses = 8

// StripImageMarkup replaces literal image references with their alt text
// and removes embedded image data and image reference definitions. Applying
// it twice yields the same result as applying it once.
func StripImageMarkup(s string) string {
	for i := 0; i < maxFixpasses; i++ {
		next := stripImagesOnce(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func stripImagesOnce(s string) string {
	s = mdImage.ReplaceAllString(s, "$1")
	s = mdRefImage.ReplaceAllString(s, "$1")
	s = mdRefDef.ReplaceAllString(s, "")
	s = htmlImg.ReplaceAllStringFunc(s, func(tag string) string {
		m := htmlImgAlt.FindStringSubmatch(tag)
		if m == nil {
			return ""
		}
		return m[1] + m[2]
	})
	if dataURI.MatchString(s) {
		s = dataURI.ReplaceAllString(s, "")
		s = emptyParens.ReplaceAllString(s, "")
	}
	return s
}

// A tag name must end at whitespace, '/', '>' or the end of the line, so
// autolinks such as <https://example.org> and <me@example.org> are not tags.
var htmlBlockStart = regexp.MustCompile(`^\s*<(?:[a-zA-Z][a-zA-Z0-9-]*(?:[\s/>]|$)|/[a-zA-Z]|!--)`)

// HTMLToMarkdown converts runs of lines that start with an HTML tag into
// markdown. Models occasionally answer with <figure> or <table> blocks in the
// middle of a markdown transcript.
func HTMLToMarkdown(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	conv := md.NewConverter("", true, nil)
	lines := strings.Split(s, "\n")
	var out []string
	for i := 0; i < len(lines); {
		if !htmlBlockStart.MatchString(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		start := i
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			i++
		}
		block := strings.Join(lines[start:i], "\n")
		converted, err := conv.ConvertString(block)
		if err != nil {
			out = append(out, lines[start:i]...)
			continue
		}
		if converted = strings.TrimSpace(converted); converted != "" {
			out = append(out, converted)
		}
	}
	return strings.Join(out, "\n")
}

// LineError describes one line of model output that could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// JSONLines parses one JSON object per line. Blank lines, fences and array
// brackets are ignored; lines that fail to decode or are rejected by valid are
// reported as LineErrors and skipped. A response that is a single JSON array
// is accepted as well.
func JSONLines[T any](raw string, valid func(T) error) ([]T, []*LineError) {
	raw = StripCodeFences(raw)
	if strings.HasPrefix(raw, "[") {
		var all []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &all); err == nil {
			lines := make([]string, len(all))
			for i, m := range all {
				var buf bytes.Buffer
				if err := json.Compact(&buf, m); err != nil {
					lines[i] = string(m)
					continue
				}
				lines[i] = buf.String()
			}
			raw = strings.Join(lines, "\n")
		}
	}

	var out []T
	var bad []*LineError
	for i, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(ln)
		ln = strings.TrimSuffix(ln, ",")
		if ln == "" || ln == "[" || ln == "]" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(ln), &v); err != nil {
			bad = append(bad, &LineError{Line: i + 1, Text: ln, Err: err})
			continue
		}
		if valid != nil {
			if err := valid(v); err != nil {
				bad = append(bad, &LineError{Line: i + 1, Text: ln, Err: err})
				continue
			}
		}
		out = append(out, v)
	}
	return out, bad
}
