package convert

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/thywilljoshua/pdf-to-html/internal/ai"
	"github.com/thywilljoshua/pdf-to-html/internal/sanitize"
)

const serializeSystemPrompt = `You accurately and precisely convert markdown into a properly formatted, accessible HTML5 document.
Keep every heading at the level given in the markdown, keep captions exactly as written, and keep every line that starts with "Alt text:" as its own paragraph directly after the caption it follows.
Do not include any images, image links, file paths or source information.
Return only the HTML document, starting with <!DOCTYPE html>, with no commentary and no code fences.`

const serializeUserPrompt = `Convert the following markdown into a standalone HTML document. Maintain the heading hierarchy, image captions and references.

Markdown:
`

const defaultLanguage = "en"

// SerializeOptions control the generated HTML document.
type SerializeOptions struct {
	Title    string
	Language string
}

// Serialize converts the reconciled markdown of a whole document to HTML
// with a single model request, then cleans the result: image elements and
// links to files or data URIs are removed, marker paragraphs are tagged
// with class "alt-text", and lang, title and doctype are filled in.
func Serialize(ctx context.Context, model ai.Model, markdown string, opts SerializeOptions) (string, error) {
	out, err := model.Complete(ctx, ai.Request{
		System: serializeSystemPrompt,
		Prompt: serializeUserPrompt + markdown,
	})
	if err != nil {
		return "", &ModelRequestError{Stage: StageSerialize, Err: err}
	}
	doc, err := cleanHTML(out, opts)
	if err != nil {
		return "", &ModelRequestError{Stage: StageSerialize, Err: err}
	}
	return doc, nil
}

func cleanHTML(raw string, opts SerializeOptions) (string, error) {
	raw = strings.TrimSpace(sanitize.StripCodeFences(raw))
	if raw == "" {
		return "", ai.ErrEmptyResponse
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("img, picture, source, script").Remove()
	doc.Find("[src], [href]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "href"} {
			if v, ok := s.Attr(attr); ok && localOrInline(v) {
				s.RemoveAttr(attr)
			}
		}
	})
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if strings.HasPrefix(strings.TrimSpace(s.Text()), AltTextMarker) {
			s.AddClass("alt-text")
		}
	})

	root := doc.Find("html")
	if _, ok := root.Attr("lang"); !ok {
		lang := opts.Language
		if lang == "" {
			lang = defaultLanguage
		}
		root.SetAttr("lang", lang)
	}
	head := doc.Find("head")
	if head.Find("title").Length() == 0 {
		title := opts.Title
		if title == "" {
			title = strings.TrimSpace(doc.Find("h1").First().Text())
		}
		if title == "" {
			title = "Document"
		}
		head.PrependHtml("<title>" + html.EscapeString(title) + "</title>")
	}

	body, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(body)), "<!doctype") {
		body = "<!DOCTYPE html>\n" + body
	}
	return body, nil
}

func localOrInline(ref string) bool {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "file:") {
		return true
	}
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".bmp", ".tif", ".tiff"} {
		if strings.HasSuffix(ref, ext) {
			return true
		}
	}
	return false
}
