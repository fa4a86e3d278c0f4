package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gofrs/flock"
)

const (
	DefaultOutDir     = "processed"
	DefaultNameFormat = `{{ .Stem }}_{{ .Time | date "20060102-150405" }}`

	markdownDir = "markdown"
	htmlDir     = "html"
	lockName    = ".pdf2html.lock"
	lockRetry   = 50 * time.Millisecond
)

// NameData is the data available to the output file name template.
type NameData struct {
	Stem  string
	RunID string
	Time  time.Time
}

// outputName renders the file name format and reduces it to a single safe
// path element.
func outputName(format string, data NameData) (string, error) {
	if format == "" {
		format = DefaultNameFormat
	}
	tmpl, err := template.New("filename").Funcs(sprig.TxtFuncMap()).Parse(format)
	if err != nil {
		return "", fmt.Errorf("failed to parse name format: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to execute name format: %w", err)
	}
	name := strings.TrimSpace(b.String())
	name = strings.NewReplacer("/", "-", `\`, "-", "\x00", "").Replace(name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return "", fmt.Errorf("name format %q produced an empty file name", format)
	}
	return name, nil
}

// writeOutput writes data to dir/name under an exclusive lock on dir.
// The file is written to a temporary name and renamed into place.
func writeOutput(ctx context.Context, dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockName))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("failed to acquire output lock: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("could not acquire output lock on %s", dir)
	}
	defer lock.Unlock()

	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// writeResult stores the markdown and, when present, the HTML of res under
// outDir and records the paths on res.
func writeResult(ctx context.Context, outDir, name string, res *Result) error {
	if outDir == "" {
		outDir = DefaultOutDir
	}
	p, err := writeOutput(ctx, filepath.Join(outDir, markdownDir), name+".md", []byte(res.Markdown))
	if err != nil {
		return err
	}
	res.MarkdownPath = p
	if res.HTML == "" {
		return nil
	}
	p, err = writeOutput(ctx, filepath.Join(outDir, htmlDir), name+".html", []byte(res.HTML))
	if err != nil {
		return err
	}
	res.HTMLPath = p
	return nil
}
