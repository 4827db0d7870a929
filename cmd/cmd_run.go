// cmd_run.go - Run Command: Filter ueber eine Bildsequenz anwenden
// Hauptfunktionen: newRunCmd, RunHandler, writeFrame
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/trt"
	"github.com/vsmlrt/vstrt/vs"
)

// newRunCmd - Erstellt den run Command
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run ENGINE",
		Short: "Run an engine over an image sequence",
		Args:  cobra.ExactArgs(1),
		RunE:  RunHandler,
	}

	addFilterFlags(runCmd.Flags())
	runCmd.Flags().String("output", "", "Directory for the output PNG files")
	runCmd.Flags().Int("threads", 0, "Maximum number of concurrent frame requests (default VSTRT_THREADS)")
	runCmd.Flags().Int("frames", 0, "Number of frames to process (default: all)")

	return runCmd
}

// RunHandler - Erstellt den Filter und schreibt alle Ausgabe-Frames als PNG
func RunHandler(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("--output is required")
	}

	threads, err := cmd.Flags().GetInt("threads")
	if err != nil {
		return err
	}
	if threads <= 0 {
		threads = int(envconfig.Threads())
	}

	f, err := createFilter(cmd.Context(), cmd, args[0])
	if err != nil {
		return err
	}
	defer f.Free()

	frames := f.VideoInfo().NumFrames
	if n, _ := cmd.Flags().GetInt("frames"); n > 0 && n < frames {
		frames = n
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := slog.With("run", runID)
	logger.Info("processing", "frames", frames, "threads", threads, "output", f.VideoInfo(), "filter", f.Options())

	progress := term.IsTerminal(int(os.Stderr.Fd()))
	var done atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(threads)
	for n := range frames {
		g.Go(func() error {
			if err := writeFrame(ctx, f, n, filepath.Join(output, fmt.Sprintf("%06d.png", n))); err != nil {
				return fmt.Errorf("frame %d: %w", n, err)
			}

			d := done.Add(1)
			logger.Debug("frame written", "frame", n)
			if progress {
				fmt.Fprintf(os.Stderr, "\rprocessing frames %d/%d", d, frames)
			}
			return nil
		})
	}

	err = g.Wait()
	if progress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	stats := f.Stats()
	elapsed := time.Since(start)
	logger.Info("done", "frames", stats.Frames, "peak_in_flight", stats.PeakInFlight, "elapsed", elapsed)
	fmt.Printf("%d frames written to %s in %s\n", stats.Frames, output, elapsed.Round(time.Millisecond))
	return nil
}

// writeFrame holt Frame n und schreibt ihn als PNG nach path
func writeFrame(ctx context.Context, f *trt.Filter, n int, path string) error {
	frame, err := f.GetFrame(ctx, n)
	if err != nil {
		return err
	}
	defer frame.Free()

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := vs.EncodePNG(out, frame); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
