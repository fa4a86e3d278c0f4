package convert

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/thywilljoshua/pdf-to-html/internal/ai"
)

// fakeModel answers each stage from canned responses keyed by the page
// image bytes. Serialization requests have no image and use html.
type fakeModel struct {
	transcripts map[string]string
	altText     map[string]string
	html        string
	fail        map[string]error

	requests []ai.Request
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		transcripts: map[string]string{},
		altText:     map[string]string{},
		fail:        map[string]error{},
		html:        "<html><head></head><body><p>ok</p></body></html>",
	}
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Complete(ctx context.Context, req ai.Request) (string, error) {
	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := ""
	if req.Image != nil {
		key = string(req.Image.Data)
	}
	stage := stageOf(req)
	if err := m.fail[stage+":"+key]; err != nil {
		return "", err
	}
	switch stage {
	case StageTranscribe:
		return m.transcripts[key], nil
	case StageAltText:
		return m.altText[key], nil
	case StageSerialize:
		return m.html, nil
	}
	return "", errors.New("unexpected request")
}

func (m *fakeModel) requestsFor(stage string) []ai.Request {
	var out []ai.Request
	for _, r := range m.requests {
		if stageOf(r) == stage {
			out = append(out, r)
		}
	}
	return out
}

func stageOf(req ai.Request) string {
	switch req.System {
	case transcriptSystemPrompt:
		return StageTranscribe
	case altTextSystemPrompt:
		return StageAltText
	case serializeSystemPrompt:
		return StageSerialize
	}
	return ""
}

// fakeSource yields pre-rendered pages; errs fails individual pages.
type fakeSource struct {
	pages  []Page
	errs   map[int]error
	closed bool
}

func (s *fakeSource) NumPages() int { return len(s.pages) }

func (s *fakeSource) Pages() iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for _, p := range s.pages {
			if err := s.errs[p.Number]; err != nil {
				if !yield(Page{Number: p.Number}, err) {
					return
				}
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func testPage(n int) Page {
	return Page{Number: n, Image: []byte(pageKey(n)), MIMEType: "image/jpeg", Width: 10, Height: 10}
}

func pageKey(n int) string {
	return fmt.Sprintf("page-%d", n)
}
