package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-html/internal/pdf"
)

type pageFile struct {
	Page   int    `json:"page"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func pagesCmd(opts *rootOptions) *cobra.Command {
	var out string
	var dpi float64
	var maxDimension int
	var format string

	cmd := &cobra.Command{
		Use:   "pages <pdf>",
		Short: "Render the page images that would be sent to the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("dpi") {
				cfg.Render.DPI = dpi
			}
			if cmd.Flags().Changed("max-dimension") {
				cfg.Render.MaxDimension = maxDimension
			}
			if cmd.Flags().Changed("image-format") {
				cfg.Render.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			render := cfg.RenderOptions()
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}

			doc, err := pdf.Open(args[0], render)
			if err != nil {
				return err
			}
			defer doc.Close()

			ext := "." + render.Format
			var files []pageFile
			for page, err := range doc.Pages() {
				if ctxErr := cmd.Context().Err(); ctxErr != nil {
					return ctxErr
				}
				if err != nil {
					opts.logger.WithError(err).WithField("page", page.Number).Warn("Page render failed")
					continue
				}
				path := filepath.Join(out, fmt.Sprintf("page-%03d%s", page.Number, ext))
				if err := os.WriteFile(path, page.Image, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				files = append(files, pageFile{Page: page.Number, Path: path, Width: page.Width, Height: page.Height})
			}
			b, _ := json.MarshalIndent(files, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "pages", "directory for the page images")
	cmd.Flags().Float64Var(&dpi, "dpi", 150, "page render resolution")
	cmd.Flags().IntVar(&maxDimension, "max-dimension", 2048, "downscale page images so the longest side is at most N pixels (0 disables)")
	cmd.Flags().StringVar(&format, "image-format", "jpeg", "page image encoding: jpeg|png")
	return cmd
}
