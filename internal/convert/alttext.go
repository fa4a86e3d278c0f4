package convert

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/thywilljoshua/pdf-to-html/internal/ai"
	"github.com/thywilljoshua/pdf-to-html/internal/sanitize"
)

const altTextSystemPrompt = `You generate highly detailed, descriptive alt text for figures in scanned document pages.
You will be given an image of one page of a document.

Rules:
1. Describe every figure, chart, diagram, photograph or illustration on the page, including figures that already have a caption.
2. Write each description for someone who is blind or has low vision. Describe content, data and relationships, not appearance of the page.
3. Never describe or mention filenames, file paths, URLs or links.
4. For a figure with a caption, use the caption's figure identifier exactly as printed (for example "Figure 1." or "Table 2") as the label.
5. For a figure without a caption, use the label "Unlabeled Figure N", numbering unlabeled figures from 1 in reading order.
6. Output one JSON object per line and nothing else:
{"figure_label": "<label>", "description": "<alt text>"}
7. If the page has no figures, output nothing.`

const altTextUserPrompt = `Generate alt text for all figures on this page. Return only JSON lines.`

// AltTextExtraction is the parsed alt text for one page.
type AltTextExtraction struct {
	Entries   []AltTextEntry
	Malformed []*MalformedRecordError
}

// ExtractAltText asks the model for alt text for every figure on page. Lines
// of the response that are not valid records are dropped and reported in
// Malformed; only a failed request is an error.
func ExtractAltText(ctx context.Context, model ai.Model, page Page) (AltTextExtraction, error) {
	out, err := model.Complete(ctx, ai.Request{
		System: altTextSystemPrompt,
		Prompt: altTextUserPrompt,
		Image:  &ai.Image{MIMEType: page.MIMEType, Data: page.Image},
	})
	if err != nil {
		return AltTextExtraction{}, &ModelRequestError{Stage: StageAltText, Page: page.Number, Err: err}
	}
	entries, bad := ParseAltText(out)
	return AltTextExtraction{Entries: entries, Malformed: bad}, nil
}

var unlabeledRe = regexp.MustCompile(`(?i)^unlabell?ed\s+figure\s+(\d+)$`)

// ParseAltText parses JSON-lines alt text. Records need a description; a
// record with an empty label is given the next "Unlabeled Figure N" label.
func ParseAltText(raw string) ([]AltTextEntry, []*MalformedRecordError) {
	recs, bad := sanitize.JSONLines(raw, validAltText)
	var out []AltTextEntry
	unlabeled := 0
	for _, r := range recs {
		r.Label = strings.TrimSpace(r.Label)
		r.Description = cleanDescription(r.Description)
		switch {
		case r.Label == "":
			unlabeled++
			r.Label = fmt.Sprintf("Unlabeled Figure %d", unlabeled)
		case unlabeledRe.MatchString(r.Label):
			unlabeled++
		}
		out = append(out, r)
	}
	return out, bad
}

func validAltText(e AltTextEntry) error {
	if cleanDescription(e.Description) == "" {
		return errors.New("missing description")
	}
	return nil
}

// cleanDescription flattens a description to one line without image markup.
func cleanDescription(s string) string {
	s = sanitize.StripImageMarkup(s)
	return strings.Join(strings.Fields(s), " ")
}
