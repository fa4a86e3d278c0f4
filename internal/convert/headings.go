package convert

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxHeadingDepth = 6

var atxRe = regexp.MustCompile(`^\s{0,3}#{1,6}(?:\s+(.*?))?(?:\s+#+)?\s*$`)

type headingRef struct {
	page     int
	first    int // line holding the heading text
	last     int // last source line of the heading, including a setext underline
	level    int
	text     string
	numbered int
}

// NormalizeHeadings rewrites the headings of every page so that headings the
// transcriber gave the same level get the same depth everywhere in the
// document. Numbered headings whose level disagrees with the rest of the
// document's numbering are moved to the level their number implies. Depths
// are computed over the set of levels in the whole document, so the depth a
// heading gets does not depend on page order. All headings come out in ATX
// form.
func NormalizeHeadings(pages []string) []string {
	var refs []headingRef
	for i, p := range pages {
		refs = append(refs, findHeadings(i, p)...)
	}
	if len(refs) == 0 {
		return append([]string(nil), pages...)
	}

	ranks := headingRanks(refs)
	depth := depthMap(ranks)

	lines := make([][]string, len(pages))
	for i, p := range pages {
		lines[i] = strings.Split(p, "\n")
	}
	drop := make(map[[2]int]bool)
	for i, r := range refs {
		lines[r.page][r.first] = strings.Repeat("#", depth[ranks[i]]) + " " + r.text
		for ln := r.first + 1; ln <= r.last; ln++ {
			drop[[2]int{r.page, ln}] = true
		}
	}

	out := make([]string, len(pages))
	for i, ls := range lines {
		kept := ls[:0:0]
		for j, ln := range ls {
			if !drop[[2]int{i, j}] {
				kept = append(kept, ln)
			}
		}
		out[i] = strings.Join(kept, "\n")
	}
	return out
}

// findHeadings returns the top-level headings of one page. Headings nested
// in lists or block quotes are left alone.
func findHeadings(page int, src string) []headingRef {
	b := []byte(src)
	doc := goldmark.DefaultParser().Parse(text.NewReader(b))
	srcLines := strings.Split(src, "\n")

	var refs []headingRef
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		segs := h.Lines()
		first := lineOf(b, segs.At(0).Start)
		last := lineOf(b, segs.At(segs.Len()-1).Start)
		ref := headingRef{page: page, first: first, last: first, level: h.Level}

		if m := atxRe.FindStringSubmatch(srcLines[first]); m != nil {
			ref.text = strings.TrimSpace(m[1])
		} else {
			parts := make([]string, 0, segs.Len())
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				parts = append(parts, string(bytes.TrimSpace(seg.Value(b))))
			}
			ref.text = strings.Join(parts, " ")
			ref.last = last + 1
			if ref.last >= len(srcLines) {
				ref.last = len(srcLines) - 1
			}
		}
		if ref.text == "" {
			continue
		}
		ref.numbered = numberingDepth(plainHeading(ref.text))
		refs = append(refs, ref)
	}
	return refs
}

func lineOf(b []byte, offset int) int {
	if offset > len(b) {
		offset = len(b)
	}
	return bytes.Count(b[:offset], []byte{'\n'})
}

// headingRanks returns the effective source level of each heading. It is
// the transcriber's level, except for numbered headings, which sit at the
// level implied by the document's usual level for top-level sections.
func headingRanks(refs []headingRef) []int {
	base := numberedBase(refs)
	out := make([]int, len(refs))
	for i, r := range refs {
		out[i] = r.level
		if r.numbered > 0 {
			out[i] = max(base+r.numbered-1, 1)
		}
	}
	return out
}

// numberedBase is the most common source level implied for top-level
// numbered sections, preferring the shallower level on ties. It is 0 when no
// heading is numbered.
func numberedBase(refs []headingRef) int {
	count := make(map[int]int)
	for _, r := range refs {
		if r.numbered > 0 {
			count[r.level-r.numbered+1]++
		}
	}
	base, best := 0, 0
	for lvl, n := range count {
		if n > best || n == best && lvl < base {
			base, best = lvl, n
		}
	}
	return base
}

// depthMap assigns consecutive depths to the distinct ranks, shallowest
// first.
func depthMap(ranks []int) map[int]int {
	distinct := make([]int, 0, len(ranks))
	seen := make(map[int]bool)
	for _, r := range ranks {
		if !seen[r] {
			seen[r] = true
			distinct = append(distinct, r)
		}
	}
	sort.Ints(distinct)
	depth := make(map[int]int, len(distinct))
	for i, r := range distinct {
		depth[r] = min(i+1, maxHeadingDepth)
	}
	return depth
}

func plainHeading(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(strings.Trim(s, "*_"))
}
