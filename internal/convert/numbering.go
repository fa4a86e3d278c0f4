package convert

import (
	"regexp"
	"strings"
)

// Heading numbering patterns: decimal, lettered appendices, roman numerals,
// and explicit Chapter/Part/Section/Appendix prefixes.
var (
	numPrefixRe  = regexp.MustCompile(`(?i)^(?:chapter|part|section|appendix)\s+([0-9]+(?:\.[0-9]+)*|[ivxlcdm]+|[a-z](?:\.[0-9]+)*)\b`)
	numDecimalRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})*)\.?(?:\s|$)`)
	numAlphaRe   = regexp.MustCompile(`^([A-Z](?:\.\d{1,3})+)\.?(?:\s|$)`)
	numRomanRe   = regexp.MustCompile(`^([IVXLCDM]+)(?:\.(\d{1,3})\.?|\.)(?:\s|$)`)
)

// numberingDepth returns the depth encoded in a heading's section number:
// 1 for "1", "Chapter 2", "Appendix A" or "IV.", 2 for "1.2", "A.1" or
// "II.3", and so on. Unnumbered headings return 0.
func numberingDepth(title string) int {
	if m := numPrefixRe.FindStringSubmatch(title); m != nil {
		return strings.Count(m[1], ".") + 1
	}
	if m := numDecimalRe.FindStringSubmatch(title); m != nil {
		return strings.Count(m[1], ".") + 1
	}
	if m := numAlphaRe.FindStringSubmatch(title); m != nil {
		return strings.Count(m[1], ".") + 1
	}
	if m := numRomanRe.FindStringSubmatch(title); m != nil {
		if m[2] != "" {
			return 2
		}
		return 1
	}
	return 0
}
