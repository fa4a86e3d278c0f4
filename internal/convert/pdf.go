package convert

import "github.com/thywilljoshua/pdf-to-html/internal/pdf"

// openPDF returns an Opener that rasterizes pages with opts.
func openPDF(opts pdf.Options) Opener {
	return func(path string) (PageSource, error) {
		doc, err := pdf.Open(path, opts)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}
