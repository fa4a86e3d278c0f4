package convert

import (
	"errors"
	"fmt"

	"github.com/thywilljoshua/pdf-to-html/internal/sanitize"
)

// Pipeline stages, used in errors and log fields.
const (
	StageRender     = "render"
	StageTranscribe = "transcribe"
	StageAltText    = "alttext"
	StageSerialize  = "serialize"
)

var (
	ErrNoModel      = errors.New("convert: no model configured")
	ErrNoTranscript = errors.New("convert: no page could be transcribed")
)

// ModelRequestError is a failed model call for one stage. Page is 0 for
// document-level stages.
type ModelRequestError struct {
	Stage string
	Page  int
	Err   error
}

func (e *ModelRequestError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s page %d: %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ModelRequestError) Unwrap() error { return e.Err }

// MalformedRecordError is one alt-text line that did not parse.
type MalformedRecordError = sanitize.LineError
