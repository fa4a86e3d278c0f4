package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-html/internal/pdf"
)

const pageSeparator = "\n\n"

// Run converts the PDF at pdfPath into an accessible markdown and HTML
// document. Pages are processed one at a time in document order: render,
// transcribe, extract alt text, reconcile. Headings are then normalized over
// the whole document before the pages are joined and serialized.
//
// A failing model call only costs the stage it belongs to and is recorded
// in Result.Pages. Run returns an error for a document that cannot be
// opened, a cancelled context, or a failure writing the output.
func Run(ctx context.Context, pdfPath string, cfg Config) (Result, error) {
	if cfg.Model == nil {
		return Result{}, ErrNoModel
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Open == nil {
		cfg.Open = openPDF(cfg.Render)
	}

	res := Result{RunID: cfg.RunID, Filename: filepath.Base(pdfPath), Status: StatusFailed}
	runLog := log.WithFields(logrus.Fields{"run_id": cfg.RunID, "file": res.Filename, "model": cfg.Model.Name()})

	src, err := cfg.Open(pdfPath)
	if err != nil {
		return res, err
	}
	defer src.Close()
	runLog.WithField("pages", src.NumPages()).Info("Converting document")

	window := NewWindow(cfg.ContextPages)
	var pages []string
	degraded := false
	for page, err := range src.Pages() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		if errors.Is(err, pdf.ErrConsumed) {
			return res, err
		}
		st := PageStatus{Page: page.Number}
		pageLog := runLog.WithField("page", page.Number)
		if err != nil {
			pageLog.WithError(err).WithField("stage", StageRender).Warn("Page render failed")
			st.Error = err.Error()
			res.Pages = append(res.Pages, st)
			degraded = true
			continue
		}

		md, ok := processPage(ctx, cfg, page, window, &st, pageLog)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.Pages = append(res.Pages, st)
		if !ok || st.Error != "" {
			degraded = true
		}
		if ok && md != "" {
			pages = append(pages, md)
		}
	}

	transcribed := 0
	for _, st := range res.Pages {
		if st.Transcribed {
			transcribed++
		}
	}
	if transcribed == 0 {
		runLog.WithError(ErrNoTranscript).Error("Conversion failed")
		return res, nil
	}

	pages = NormalizeHeadings(pages)
	res.Markdown = strings.Join(pages, pageSeparator)

	if !cfg.SkipHTML {
		title := cfg.Title
		if title == "" {
			title = documentTitle(pdfPath)
		}
		html, err := Serialize(ctx, cfg.Model, res.Markdown, SerializeOptions{Title: title, Language: cfg.Language})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		if err != nil {
			runLog.WithError(err).WithField("stage", StageSerialize).Warn("HTML conversion failed")
			res.HTMLError = err.Error()
			degraded = true
		}
		res.HTML = html
	}

	res.Status = StatusSuccess
	if degraded {
		res.Status = StatusPartial
	}

	if !cfg.NoWrite {
		name, err := outputName(cfg.NameFormat, NameData{Stem: documentStem(pdfPath), RunID: cfg.RunID, Time: cfg.Now()})
		if err != nil {
			return res, err
		}
		if err := writeResult(ctx, cfg.OutDir, name, &res); err != nil {
			return res, fmt.Errorf("write output: %w", err)
		}
		runLog.WithFields(logrus.Fields{"markdown": res.MarkdownPath, "html": res.HTMLPath}).Info("Wrote output")
	}
	runLog.WithField("status", res.Status).Info("Conversion finished")
	return res, nil
}

// processPage runs the per-page stages and fills st. It reports false when
// the page could not be transcribed.
func processPage(ctx context.Context, cfg Config, page Page, window *Window, st *PageStatus, log *logrus.Entry) (string, bool) {
	tr, err := Transcribe(ctx, cfg.Model, page, window)
	if err != nil {
		log.WithError(err).WithField("stage", StageTranscribe).Warn("Transcription failed")
		st.Error = err.Error()
		window.Reset()
		return "", false
	}
	st.Transcribed = true
	window.Push(tr.Exchange)

	var entries []AltTextEntry
	if !cfg.SkipAltText {
		ext, err := ExtractAltText(ctx, cfg.Model, page)
		if err != nil {
			log.WithError(err).WithField("stage", StageAltText).Warn("Alt text extraction failed")
			st.Error = err.Error()
		} else {
			st.AltText = true
			entries = ext.Entries
			st.Malformed = len(ext.Malformed)
			for _, m := range ext.Malformed {
				log.WithField("line", m.Line).Debug("Dropped malformed alt text record")
			}
		}
	}
	st.Entries = len(entries)

	rec := ReconcilePage(tr.Markdown, entries)
	st.Injected = rec.Injected
	if len(rec.Dropped) > 0 {
		log.WithField("dropped", len(rec.Dropped)).Debug("Alt text without matching caption")
	}
	return rec.Markdown, true
}
