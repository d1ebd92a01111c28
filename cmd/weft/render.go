package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/weftlabs/weft/pkg/weft"
	"github.com/weftlabs/weft/pkg/weft/modules"
)

type renderFlags struct {
	dataFile    string
	outDir      string
	strict      bool
	concurrency int
	logLevel    string
}

func newRenderCommand(fs afero.Fs) *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render [template files...]",
		Short: "Render template files against a YAML context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderFiles(cmd, fs, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.dataFile, "data", "d", "", "YAML context file")
	cmd.Flags().StringVarP(&flags.outDir, "out-dir", "o", "", "directory for rendered output (default: stdout)")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "fail on unresolvable placeholders")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "max content units rendered in parallel")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "log level (trace..disabled)")

	return cmd
}

func renderFiles(cmd *cobra.Command, fs afero.Fs, flags *renderFlags, paths []string) error {
	level, err := zerolog.ParseLevel(flags.logLevel)
	if err != nil {
		return errors.Errorf("invalid log level: %w", err)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	data := weft.TemplateData{}
	if flags.dataFile != "" {
		f, err := fs.Open(flags.dataFile)
		if err != nil {
			return errors.Errorf("failed to open context file: %w", err)
		}
		data, err = weft.LoadContext(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	units := make([]weft.ContentUnit, 0, len(paths))
	for _, path := range paths {
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			return errors.Errorf("failed to read template %q: %w", path, err)
		}
		units = append(units, weft.ContentUnit{
			ID:       filepath.Base(path),
			FileType: fileType(path),
			RawText:  string(raw),
		})
	}

	opts := []weft.Option{
		weft.WithLogger(logger),
		weft.WithStrict(flags.strict),
	}
	if flags.concurrency > 0 {
		opts = append(opts, weft.WithConcurrency(flags.concurrency))
	}
	engine := weft.New(opts...)
	if err := engine.Register(modules.NewDateModule()); err != nil {
		return err
	}

	result, renderErr := engine.Render(cmd.Context(), units, data)
	if result != nil {
		for _, record := range result.Errors {
			logger.Warn().Msg(record.String())
		}
	}
	if renderErr != nil {
		return errors.Errorf("render failed: %w", renderErr)
	}

	for _, unit := range result.Units {
		if flags.outDir == "" {
			cmd.Print(unit.Text)
			continue
		}
		if err := fs.MkdirAll(flags.outDir, 0o755); err != nil {
			return errors.Errorf("failed to create output directory: %w", err)
		}
		outPath := filepath.Join(flags.outDir, unit.ID)
		if err := afero.WriteFile(fs, outPath, []byte(unit.Text), 0o644); err != nil {
			return errors.Errorf("failed to write %q: %w", outPath, err)
		}
	}

	return nil
}

// fileType derives a unit's file type from its extension; extensionless
// files are plain text.
func fileType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "text"
	}
	return ext
}
