package convert

import (
	"regexp"
	"strings"

	"github.com/thywilljoshua/pdf-to-html/internal/sanitize"
)

// AltTextMarker prefixes every generated description in the output so that
// readers can tell it apart from the document's own caption text.
const AltTextMarker = "Alt text:"

var (
	captionRe     = regexp.MustCompile(`(?i)^\s*(?:[*_>]+\s*)*(figure|fig\.?|table|chart|diagram|image|plate|exhibit|map|graph)\s*([0-9]+[a-z]?(?:[.\-][0-9]+[a-z]?)*)(?:[^0-9a-z]|$)`)
	markerRe      = regexp.MustCompile(`(?i)^\s*[*_]{0,2}alt[ -]?text[*_]{0,2}\s*:[*_]{0,2}\s*`)
	headingLineRe = regexp.MustCompile(`^\s{0,3}#{1,6}(?:\s|$)`)
)

// Reconciled is one page after sanitization and alt-text injection.
type Reconciled struct {
	Markdown string
	Injected int
	Dropped  []AltTextEntry
}

type captionAnchor struct {
	line     int
	ident    string
	shaped   bool // looks like a caption rather than a sentence citing the figure
	desc     string
	assigned bool
}

// ReconcilePage cleans a raw transcript and injects each entry's description
// after the first unused caption whose figure identifier equals the entry's
// label. Caption-shaped lines ("Figure 1." or "Table 2: ...", or any line the
// transcriber followed with a marker) are preferred over sentences that merely
// start with the identifier. Each caption receives at most one marker line: markers the
// transcriber already placed there are replaced. Entries without a matching
// caption are dropped.
func ReconcilePage(transcript string, entries []AltTextEntry) Reconciled {
	text := sanitize.StripCodeFences(transcript)
	text = sanitize.HTMLToMarkdown(text)
	text = sanitize.StripImageMarkup(text)
	lines := strings.Split(text, "\n")

	var anchors []*captionAnchor
	for i, ln := range lines {
		if headingLineRe.MatchString(ln) || markerRe.MatchString(ln) {
			continue
		}
		if id := figureIdent(ln); id != "" {
			shaped := captionShaped(ln) || markerFollows(lines, i)
			anchors = append(anchors, &captionAnchor{line: i, ident: id, shaped: shaped})
		}
	}

	var res Reconciled
	for _, e := range entries {
		target := matchAnchor(anchors, figureIdent(e.Label))
		if target == nil {
			res.Dropped = append(res.Dropped, e)
			continue
		}
		target.assigned, target.desc = true, cleanDescription(e.Description)
		res.Injected++
	}

	byLine := make(map[int]*captionAnchor)
	for _, a := range anchors {
		if a.assigned {
			byLine[a.line] = a
		}
	}

	out := make([]string, 0, len(lines)+2*len(byLine))
	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		if markerRe.MatchString(ln) {
			if m := canonicalMarker(ln); m != "" {
				out = append(out, m)
			}
			continue
		}
		a, ok := byLine[i]
		if !ok {
			out = append(out, ln)
			continue
		}
		out = append(out, ln)
		for i+1 < len(lines) && isCaptionContinuation(lines[i+1]) {
			i++
			out = append(out, lines[i])
		}
		next := i + 1
		for next < len(lines) && (strings.TrimSpace(lines[next]) == "" || markerRe.MatchString(lines[next])) {
			next++
		}
		out = append(out, "", AltTextMarker+" "+a.desc)
		if next < len(lines) {
			out = append(out, "")
		}
		i = next - 1
	}
	res.Markdown = strings.TrimSpace(strings.Join(out, "\n"))
	return res
}

func matchAnchor(anchors []*captionAnchor, ident string) *captionAnchor {
	if ident == "" {
		return nil
	}
	var fallback *captionAnchor
	for _, a := range anchors {
		if a.assigned || a.ident != ident {
			continue
		}
		if a.shaped {
			return a
		}
		if fallback == nil {
			fallback = a
		}
	}
	if fallback != nil && hasShaped(anchors, ident) {
		return nil
	}
	return fallback
}

// hasShaped reports whether ident has a caption-shaped anchor, used or not.
func hasShaped(anchors []*captionAnchor, ident string) bool {
	for _, a := range anchors {
		if a.shaped && a.ident == ident {
			return true
		}
	}
	return false
}

// captionShaped reports whether the figure identifier at the start of ln is
// followed by caption punctuation, closing emphasis or nothing at all.
func captionShaped(ln string) bool {
	m := captionRe.FindStringSubmatchIndex(ln)
	if m == nil {
		return false
	}
	rest := ln[m[5]:]
	if strings.HasPrefix(rest, "*") || strings.HasPrefix(rest, "_") {
		return true
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return true
	}
	return strings.ContainsAny(rest[:1], ".:|)-") || strings.HasPrefix(rest, "—") || strings.HasPrefix(rest, "–")
}

// markerFollows reports whether the next non-blank line after i is a marker.
func markerFollows(lines []string, i int) bool {
	for _, ln := range lines[i+1:] {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		return markerRe.MatchString(ln)
	}
	return false
}

// figureIdent extracts a normalized figure identifier ("figure 1",
// "table 2.3") from a caption line or label, or "" if there is none.
func figureIdent(s string) string {
	m := captionRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	kind := strings.ToLower(m[1])
	if strings.HasPrefix(kind, "fig") {
		kind = "figure"
	}
	return kind + " " + strings.ToLower(m[2])
}

func isCaptionContinuation(ln string) bool {
	if strings.TrimSpace(ln) == "" {
		return false
	}
	return !markerRe.MatchString(ln) && !headingLineRe.MatchString(ln) && figureIdent(ln) == ""
}

func canonicalMarker(ln string) string {
	desc := markerRe.ReplaceAllString(ln, "")
	desc = strings.TrimRight(strings.TrimSpace(desc), "*_ ")
	if desc == "" {
		return ""
	}
	return AltTextMarker + " " + desc
}

// CountMarkers returns the number of alt-text marker lines in markdown.
func CountMarkers(markdown string) int {
	n := 0
	for _, ln := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(ln, AltTextMarker) {
			n++
		}
	}
	return n
}
