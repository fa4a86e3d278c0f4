package convert

import (
	"context"

	"github.com/thywilljoshua/pdf-to-html/internal/ai"
	"github.com/thywilljoshua/pdf-to-html/internal/sanitize"
)

const transcriptSystemPrompt = `You accurately and precisely transcribe images of document pages into structured markdown.
You will be given one page at a time; earlier pages of the same document may precede it in the conversation.

Requirements:
1. Preserve reading order. Read columns top to bottom, left to right; a column may be interrupted by a figure, continue it after the figure.
2. Keep every figure and table caption exactly as printed, on its own line, including the figure identifier (for example "Figure 1.").
3. Use consistent markdown heading levels: headings that are printed at the same visual size get the same number of '#', across all pages.
4. Do not include running headers, footers, page numbers or other page furniture.
5. Directly after each caption, add one line starting with "Alt text:" that describes the figure in detail for someone who is blind or has low vision.
6. Do not include image links, image markup or file paths.
7. Return only the transcript, with no commentary and no code fences.`

const transcriptUserPrompt = `Transcribe this page, keeping its headings, subheadings and hierarchy. Return only the transcript.`

// Transcribe converts one page image to markdown. History from window is
// sent ahead of the page so heading levels stay consistent with the previous
// page; the window itself is not modified.
func Transcribe(ctx context.Context, model ai.Model, page Page, window *Window) (PageTranscript, error) {
	img := &ai.Image{MIMEType: page.MIMEType, Data: page.Image}
	req := ai.Request{
		System:  transcriptSystemPrompt,
		History: window.History(),
		Prompt:  transcriptUserPrompt,
		Image:   img,
	}
	out, err := model.Complete(ctx, req)
	if err != nil {
		return PageTranscript{Page: page.Number}, &ModelRequestError{Stage: StageTranscribe, Page: page.Number, Err: err}
	}
	text := sanitize.StripCodeFences(out)
	return PageTranscript{
		Page:     page.Number,
		Markdown: text,
		Exchange: ai.Exchange{Prompt: transcriptUserPrompt, Image: img, Response: text},
	}, nil
}
