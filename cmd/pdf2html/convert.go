package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-html/internal/ai"
	"github.com/thywilljoshua/pdf-to-html/internal/config"
	"github.com/thywilljoshua/pdf-to-html/internal/convert"
)

type convertFlags struct {
	out          string
	nameFormat   string
	provider     string
	model        string
	baseURL      string
	dpi          float64
	maxDimension int
	format       string
	contextPages int
	timeout      time.Duration
	retries      int
	rpm          float64
	title        string
	language     string
	skipAltText  bool
	skipHTML     bool
	noWrite      bool
}

func convertCmd(opts *rootOptions) *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "convert <pdf>",
		Short: "Transcribe a PDF into markdown and HTML with alt text for every figure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			model, err := ai.New(cmd.Context(), cfg.AIConfig())
			if err != nil {
				return err
			}
			model = ai.WithPolicy(model, cfg.Policy(opts.logger))

			res, err := convert.Run(cmd.Context(), args[0], convert.Config{
				OutDir:       cfg.Output.Dir,
				NameFormat:   cfg.Output.NameFormat,
				Render:       cfg.RenderOptions(),
				ContextPages: cfg.ContextPages,
				Title:        f.title,
				Language:     cfg.Language,
				SkipAltText:  f.skipAltText,
				SkipHTML:     f.skipHTML,
				NoWrite:      f.noWrite,
				Model:        model,
				Logger:       opts.logger,
			})
			if err != nil {
				return err
			}

			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			printStatus(cmd.ErrOrStderr(), res)
			if res.Status == convert.StatusFailed {
				return convert.ErrNoTranscript
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", convert.DefaultOutDir, "output directory; markdown/ and html/ are created inside it")
	fl.StringVar(&f.nameFormat, "name-format", convert.DefaultNameFormat, "output file name template (sprig functions; fields .Stem .Time .RunID)")
	fl.StringVar(&f.provider, "ai", "openai", "AI provider: openai|gemini")
	fl.StringVar(&f.model, "model", "", "model name (default: provider default)")
	fl.StringVar(&f.baseURL, "base-url", "", "override the provider API base URL")
	fl.Float64Var(&f.dpi, "dpi", 150, "page render resolution")
	fl.IntVar(&f.maxDimension, "max-dimension", 2048, "downscale page images so the longest side is at most N pixels (0 disables)")
	fl.StringVar(&f.format, "image-format", "jpeg", "page image encoding: jpeg|png")
	fl.IntVar(&f.contextPages, "context-pages", 1, "number of previous pages sent to the transcriber for context")
	fl.DurationVar(&f.timeout, "timeout", 2*time.Minute, "timeout for each model request")
	fl.IntVar(&f.retries, "retries", 3, "retries for transient model errors")
	fl.Float64Var(&f.rpm, "rpm", 0, "maximum model requests per minute (0 = unlimited)")
	fl.StringVar(&f.title, "title", "", "HTML document title (default: derived from the file name)")
	fl.StringVar(&f.language, "lang", "en", "HTML document language")
	fl.BoolVar(&f.skipAltText, "skip-alt-text", false, "do not run the alt text extractor")
	fl.BoolVar(&f.skipHTML, "skip-html", false, "only produce markdown")
	fl.BoolVar(&f.noWrite, "no-write", false, "print the result without writing files")
	return cmd
}

// apply copies flags the user set explicitly over the loaded configuration.
func (f *convertFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("out") {
		cfg.Output.Dir = f.out
	}
	if changed("name-format") {
		cfg.Output.NameFormat = f.nameFormat
	}
	if changed("ai") {
		cfg.AI.Provider = f.provider
	}
	if changed("model") {
		cfg.AI.Model = f.model
	}
	if changed("base-url") {
		cfg.AI.BaseURL = f.baseURL
	}
	if changed("dpi") {
		cfg.Render.DPI = f.dpi
	}
	if changed("max-dimension") {
		cfg.Render.MaxDimension = f.maxDimension
	}
	if changed("image-format") {
		cfg.Render.Format = f.format
	}
	if changed("context-pages") {
		cfg.ContextPages = f.contextPages
	}
	if changed("timeout") {
		cfg.Limits.Timeout = f.timeout
	}
	if changed("retries") {
		cfg.Limits.MaxRetries = f.retries
	}
	if changed("rpm") {
		cfg.Limits.RequestsPerMinute = f.rpm
	}
	if changed("lang") {
		cfg.Language = f.language
	}
}

func printStatus(w io.Writer, res convert.Result) {
	paint := color.New(color.FgGreen).SprintFunc()
	switch res.Status {
	case convert.StatusPartial:
		paint = color.New(color.FgYellow).SprintFunc()
	case convert.StatusFailed:
		paint = color.New(color.FgRed).SprintFunc()
	}
	transcribed, injected := 0, 0
	for _, p := range res.Pages {
		if p.Transcribed {
			transcribed++
		}
		injected += p.Injected
	}
	fmt.Fprintf(w, "%s %s: %d/%d pages transcribed, %d alt text descriptions\n",
		paint(strings.ToUpper(res.Status)), res.Filename, transcribed, len(res.Pages), injected)
	for _, p := range res.Pages {
		if p.Error != "" {
			fmt.Fprintf(w, "  page %d: %s\n", p.Page, p.Error)
		}
	}
	if res.HTMLError != "" {
		fmt.Fprintf(w, "  html: %s\n", res.HTMLError)
	}
}
