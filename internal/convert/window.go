package convert

import "github.com/thywilljoshua/pdf-to-html/internal/ai"

// Window is a bounded sliding window of prior exchanges handed to the
// transcriber. A size of 1 keeps only the previous page.
type Window struct {
	size      int
	exchanges []ai.Exchange
}

// NewWindow returns an empty window holding at most size exchanges. A
// negative size is treated as 0, which disables context.
func NewWindow(size int) *Window {
	if size < 0 {
		size = 0
	}
	return &Window{size: size}
}

// Size is the maximum number of exchanges kept.
func (w *Window) Size() int {
	if w == nil {
		return 0
	}
	return w.size
}

// Push appends ex and evicts the oldest exchanges beyond the window size.
func (w *Window) Push(ex ai.Exchange) {
	if w == nil || w.size == 0 {
		return
	}
	w.exchanges = append(w.exchanges, ex)
	if n := len(w.exchanges); n > w.size {
		w.exchanges = append([]ai.Exchange(nil), w.exchanges[n-w.size:]...)
	}
}

// Reset drops every retained exchange. It is called when a page could not
// be transcribed, so the next page is never given an older page as its
// predecessor.
func (w *Window) Reset() {
	if w == nil {
		return
	}
	w.exchanges = nil
}

// History returns a copy of the retained exchanges, oldest first.
func (w *Window) History() []ai.Exchange {
	if w == nil || len(w.exchanges) == 0 {
		return nil
	}
	return append([]ai.Exchange(nil), w.exchanges...)
}
