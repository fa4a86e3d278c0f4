// Package pdf renders PDF pages to raster images.
//
// Pages are counted with rsc.io/pdf and rendered one at a time with go-fitz.
// When rsc.io/pdf cannot parse a file that MuPDF can open (MuPDF repairs
// broken cross-reference tables), MuPDF's page count is used instead.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"iter"
	"os"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
	rpdf "rsc.io/pdf"
)

var (
	// ErrConsumed is yielded when Pages is iterated a second time.
	ErrConsumed = errors.New("pdf: page sequence already consumed")

	// ErrNoPages is returned for documents without pages.
	ErrNoPages = errors.New("pdf: document has no pages")
)

// DocumentOpenError reports an input that cannot be opened as a PDF.
type DocumentOpenError struct {
	Path string
	Err  error
}

func (e *DocumentOpenError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("open document: %v", e.Err)
	}
	return fmt.Sprintf("open document %s: %v", e.Path, e.Err)
}

func (e *DocumentOpenError) Unwrap() error { return e.Err }

// Page is one rendered page. Number is 1-based.
type Page struct {
	Number   int
	Image    []byte
	MIMEType string
	Width    int
	Height   int
}

// Options controls rendering.
type Options struct {
	DPI          float64 `json:"dpi" yaml:"dpi"`
	MaxDimension int     `json:"max_dimension" yaml:"max_dimension"`
	Format       string  `json:"format" yaml:"format"` // jpeg or png
	Quality      int     `json:"quality" yaml:"quality"`
}

func DefaultOptions() Options {
	return Options{DPI: 150, MaxDimension: 2048, Format: "jpeg", Quality: 90}
}

// Document is an opened PDF whose pages can be rendered once, in order.
type Document struct {
	path     string
	doc      *fitz.Document
	numPages int
	opts     Options
	consumed bool
}

// Open opens the PDF at path for rendering.
func Open(path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DocumentOpenError{Path: path, Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &DocumentOpenError{Path: path, Err: err}
	}
	n, perr := preflight(f, st.Size())
	f.Close()

	doc, err := fitz.New(path)
	if err != nil {
		return nil, &DocumentOpenError{Path: path, Err: openErr(perr, err)}
	}
	return newDocument(path, doc, n, perr, opts)
}

// OpenBytes opens an in-memory PDF for rendering.
func OpenBytes(b []byte, opts Options) (*Document, error) {
	n, perr := preflight(bytes.NewReader(b), int64(len(b)))
	doc, err := fitz.NewFromMemory(b)
	if err != nil {
		return nil, &DocumentOpenError{Err: openErr(perr, err)}
	}
	return newDocument("", doc, n, perr, opts)
}

func newDocument(path string, doc *fitz.Document, n int, perr error, opts Options) (*Document, error) {
	if perr != nil {
		n = doc.NumPage()
	}
	if n <= 0 {
		doc.Close()
		return nil, &DocumentOpenError{Path: path, Err: ErrNoPages}
	}
	return &Document{path: path, doc: doc, numPages: n, opts: opts.withDefaults()}, nil
}

// openErr prefers the parser's explanation of why a file is not a PDF.
func openErr(preflightErr, renderErr error) error {
	if preflightErr != nil && !errors.Is(preflightErr, ErrNoPages) {
		return fmt.Errorf("%w (mupdf: %v)", preflightErr, renderErr)
	}
	return renderErr
}

// preflight parses the cross-reference table and counts pages. rsc.io/pdf
// panics on some corrupt inputs, so panics are turned into errors.
func preflight(r io.ReaderAt, size int64) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed PDF: %v", p)
		}
	}()
	doc, err := rpdf.NewReader(r, size)
	if err != nil {
		return 0, err
	}
	n = doc.NumPage()
	if n <= 0 {
		return 0, ErrNoPages
	}
	return n, nil
}

func (d *Document) NumPages() int { return d.numPages }

// Pages renders pages lazily in document order. The sequence cannot be
// restarted; iterating it again yields ErrConsumed.
func (d *Document) Pages() iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		if d.consumed {
			yield(Page{}, ErrConsumed)
			return
		}
		d.consumed = true
		n := d.numPages
		if fn := d.doc.NumPage(); fn < n {
			n = fn
		}
		for i := 0; i < n; i++ {
			p, err := d.render(i)
			if !yield(p, err) {
				return
			}
		}
	}
}

func (d *Document) render(i int) (Page, error) {
	p := Page{Number: i + 1}
	img, err := d.doc.ImageDPI(i, d.opts.DPI)
	if err != nil {
		return p, fmt.Errorf("render page %d: %w", i+1, err)
	}
	scaled := FitWithin(img, d.opts.MaxDimension)
	data, mt, err := Encode(scaled, d.opts.Format, d.opts.Quality)
	if err != nil {
		return p, fmt.Errorf("encode page %d: %w", i+1, err)
	}
	b := scaled.Bounds()
	p.Image, p.MIMEType, p.Width, p.Height = data, mt, b.Dx(), b.Dy()
	return p, nil
}

func (d *Document) Close() error { return d.doc.Close() }

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DPI <= 0 {
		o.DPI = def.DPI
	}
	if o.Format == "" {
		o.Format = def.Format
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = def.Quality
	}
	return o
}

// FitWithin downscales img so that its longest side is at most limit pixels.
// Images already within bounds, or limit <= 0, are returned unchanged.
func FitWithin(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}
	nw, nh := limit, h*limit/w
	if h > w {
		nw, nh = w*limit/h, limit
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Encode serialises img as jpeg or png and returns the bytes with their MIME type.
func Encode(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	case "jpeg", "jpg", "":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		return nil, "", fmt.Errorf("unsupported image format: %s", format)
	}
}
