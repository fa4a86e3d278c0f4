package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeadings_OrderIndependent(t *testing.T) {
	pageA := "## 1. Introduction\n\nOpening text.\n\n### 1.1 Scope\n\nMore."
	pageB := "# 2. Results\n\nFindings.\n\n## 2.1 Survey\n\nData."

	ab := NormalizeHeadings([]string{pageA, pageB})
	ba := NormalizeHeadings([]string{pageB, pageA})

	assert.Equal(t, "# 1. Introduction\n\nOpening text.\n\n## 1.1 Scope\n\nMore.", ab[0])
	assert.Equal(t, "# 2. Results\n\nFindings.\n\n## 2.1 Survey\n\nData.", ab[1])
	assert.Equal(t, ab[0], ba[1])
	assert.Equal(t, ab[1], ba[0])
}

func TestNormalizeHeadings_SameLevelSameDepth(t *testing.T) {
	pageA := "## Abstract\n\nSummary.\n\n## 1 Introduction\n\nText."
	pageB := "## 2 Methods\n\nText.\n\n## References\n\nList."

	for _, pages := range [][]string{{pageA, pageB}, {pageB, pageA}} {
		out := NormalizeHeadings(pages)
		joined := "\n" + strings.Join(out, "\n\n") + "\n"
		for _, h := range []string{"Abstract", "1 Introduction", "2 Methods", "References"} {
			assert.Contains(t, joined, "\n# "+h+"\n", h)
		}
		assert.NotContains(t, joined, "##")
	}
}

func TestNormalizeHeadings(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  []string
	}{
		{
			name:  "consistent levels are kept",
			pages: []string{"# Annual Report\n\nText.", "## Outlook\n\nMore."},
			want:  []string{"# Annual Report\n\nText.", "## Outlook\n\nMore."},
		},
		{
			name:  "gaps are closed",
			pages: []string{"# Title\n\n### Section\n\nText."},
			want:  []string{"# Title\n\n## Section\n\nText."},
		},
		{
			name:  "numbered sections sit below an unnumbered title",
			pages: []string{"# Report Title\n\n## 1 Introduction", "### 1.1 Scope\n\n# 2 Methods"},
			want:  []string{"# Report Title\n\n## 1 Introduction", "### 1.1 Scope\n\n## 2 Methods"},
		},
		{
			name:  "setext headings become atx",
			pages: []string{"Title\n=====\n\nBody.\n\nPart two\n--------\n\nEnd."},
			want:  []string{"# Title\n\nBody.\n\n## Part two\n\nEnd."},
		},
		{
			name:  "capitals do not change depth",
			pages: []string{"## ABSTRACT\n\nText.", "## Details\n\nText."},
			want:  []string{"# ABSTRACT\n\nText.", "# Details\n\nText."},
		},
		{
			name:  "misleveled numbered sections follow the rest of the document",
			pages: []string{"## 1 Introduction\n\n### 1.1 Scope", "## 2 Methods", "# 3 Results\n\n## 3.1 Data"},
			want:  []string{"# 1 Introduction\n\n## 1.1 Scope", "# 2 Methods", "# 3 Results\n\n## 3.1 Data"},
		},
		{
			name:  "closing hashes are dropped",
			pages: []string{"## Summary ##\n\nText."},
			want:  []string{"# Summary\n\nText."},
		},
		{
			name:  "chapter and appendix headings are top level",
			pages: []string{"### Chapter 3 Growth\n\n#### 3.1 Markets", "## Appendix A Tables"},
			want:  []string{"# Chapter 3 Growth\n\n## 3.1 Markets", "# Appendix A Tables"},
		},
		{
			name:  "headings in lists and code are untouched",
			pages: []string{"- # not a heading\n\n    # indented code"},
			want:  []string{"- # not a heading\n\n    # indented code"},
		},
		{
			name:  "no headings",
			pages: []string{"Just text.", ""},
			want:  []string{"Just text.", ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeadings(tt.pages))
		})
	}
}
