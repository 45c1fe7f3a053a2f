package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/triangulator"
	"github.com/aretw0/triangulator/internal/presentation/tui"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/observability"
	"github.com/aretw0/triangulator/pkg/wire"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/term"
)

// Output formats of the run command.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatBinary   = "binary"
)

var errNoInput = errors.New("expected a point-set file, '-' for stdin, or --id")

// createOutput opens the file behind --output.
var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [file.bin|-]",
	Short: "Triangulate a point set and print the result",
	Long: `Reads a binary PointSet from a file (or stdin with '-') and triangulates it locally.
With --id the point set is fetched from the configured source instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		switch format {
		case formatMarkdown, formatJSON, formatBinary:
		default:
			return fmt.Errorf("unknown format: %s. Supported: markdown, json, binary", format)
		}
		if (id == "") == (len(args) == 0) {
			return errNoInput
		}

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		svc, cleanup, err := buildService(cmd.Context(), cfg, logger, observability.LoggingHooks(logger))
		defer cleanup()
		if err != nil {
			return err
		}

		var in io.Reader
		if id == "" {
			switch args[0] {
			case "-":
				in = cmd.InOrStdin()
			default:
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
		}

		start := time.Now()
		res, err := triangulateInput(cmd.Context(), svc, in, id)
		if err != nil {
			if code := domain.CodeOf(err); code != domain.CodeInternal {
				return fmt.Errorf("%s: %w", code, err)
			}
			return err
		}
		return writeOutput(output, cmd.OutOrStdout(), res, time.Since(start), format)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("id", "", "Fetch the point set with this id from the configured source")
	runCmd.Flags().StringP("format", "f", formatMarkdown, "Output format: markdown, json or binary")
	runCmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")
}

// triangulateInput triangulates the binary PointSet read from in, or the
// point set named id when in is nil.
func triangulateInput(ctx context.Context, svc *triangulator.Service, in io.Reader, id string) (*domain.Result, error) {
	if in == nil {
		return svc.TriangulatePointSet(ctx, id)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read point set: %w", err)
	}
	points, err := wire.DecodePointSet(data)
	if err != nil {
		return nil, fmt.Errorf("invalid point-set file: %w", err)
	}
	tri, err := svc.Triangulate(ctx, domain.PointSet{Points: points})
	if err != nil {
		return nil, err
	}
	return tri.Result(), nil
}

// writeOutput writes res to the file at path, or to stdout when path is
// empty or "-". A failure to close the file is reported.
func writeOutput(path string, stdout io.Writer, res *domain.Result, elapsed time.Duration, format string) (err error) {
	if path == "" || path == "-" {
		return writeResult(stdout, res, elapsed, format)
	}
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return writeResult(f, res, elapsed, format)
}

// writeResult prints res in format. Markdown is rendered with glamour only
// when w is a terminal.
func writeResult(w io.Writer, res *domain.Result, elapsed time.Duration, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(triangulator.NewDocument(res))
	case formatBinary:
		data, err := wire.EncodeTriangles(res.PointSet.Points, res.Triangles)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		md := tui.Report(res, elapsed)
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			rendered, err := tui.NewRenderer()(md)
			if err == nil {
				md = rendered
			}
		}
		_, err := io.WriteString(w, md)
		return err
	}
}
