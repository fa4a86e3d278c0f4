package convert

import (
	"iter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-html/internal/ai"
	"github.com/thywilljoshua/pdf-to-html/internal/pdf"
)

// AltTextEntry pairs a figure label with a generated description. Label is
// the caption identifier ("Figure 1.") or "Unlabeled Figure N".
type AltTextEntry struct {
	Label       string `json:"figure_label"`
	Description string `json:"description"`
}

// PageTranscript is the raw markdown produced for one page together with
// the exchange that produced it.
type PageTranscript struct {
	Page     int
	Markdown string
	Exchange ai.Exchange
}

// PageSource yields rendered pages in document order.
type PageSource interface {
	NumPages() int
	Pages() iter.Seq2[Page, error]
	Close() error
}

// Opener opens a document for rendering.
type Opener func(path string) (PageSource, error)

// Status values reported in Result.Status.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// PageStatus records what happened to one page.
type PageStatus struct {
	Page        int    `json:"page"`
	Transcribed bool   `json:"transcribed"`
	AltText     bool   `json:"alt_text"`
	Entries     int    `json:"alt_text_entries"`
	Injected    int    `json:"alt_text_injected"`
	Malformed   int    `json:"malformed_records"`
	Error       string `json:"error,omitempty"`
}

// Result is the outcome of a pipeline run.
type Result struct {
	RunID        string       `json:"run_id"`
	Filename     string       `json:"filename"`
	Status       string       `json:"status"`
	Markdown     string       `json:"markdown"`
	HTML         string       `json:"html"`
	MarkdownPath string       `json:"markdown_path,omitempty"`
	HTMLPath     string       `json:"html_path,omitempty"`
	HTMLError    string       `json:"html_error,omitempty"`
	Pages        []PageStatus `json:"pages"`
}

// Config controls a single Run. Model is required; Logger, Open, RunID and
// Now default to a discarding logger, the MuPDF renderer, a random UUID and
// time.Now.
type Config struct {
	OutDir       string // root for markdown/ and html/, DefaultOutDir when empty
	NameFormat   string // sprig template for output file names
	Render       pdf.Options
	ContextPages int // previous pages sent to the transcriber
	Title        string
	Language     string
	SkipAltText  bool
	SkipHTML     bool
	NoWrite      bool
	Model        ai.Model
	Logger       *logrus.Logger
	Open         Opener
	RunID        string
	Now          func() time.Time
}

// Page is a rendered page image as produced by the pdf package.
type Page = pdf.Page

// DocumentOpenError is returned by Run when the input cannot be opened.
type DocumentOpenError = pdf.DocumentOpenError
