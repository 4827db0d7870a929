// cmd_filter.go - Gemeinsame Filter-Flags fuer run und serve
// Hauptfunktionen: addFilterFlags, filterArgs, openInput, createFilter
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vsmlrt/vstrt/trt"
	"github.com/vsmlrt/vstrt/vs"
)

// Flag-Name -> Filter-Option, nur Integer-Optionen
var intFlags = []struct {
	flag, option, usage string
}{
	{"pad", "pad", "Overlap in pixels between neighboring tiles"},
	{"block-w", "block_w", "Tile width (default: whole frame)"},
	{"block-h", "block_h", "Tile height (default: block width)"},
	{"device-id", "device_id", "Accelerator device index"},
	{"num-streams", "num_streams", "Number of concurrent inference instances"},
	{"verbosity", "verbosity", "Engine runtime severity (0 internal error .. 4 verbose)"},
}

// addFilterFlags registriert die Filter-Optionen als Flags
func addFilterFlags(flags *pflag.FlagSet) {
	flags.String("input", "", "Glob of input images (PNG, JPEG, WebP)")
	flags.String("format", "RGBS", "Sample format of the input clip (RGBS, RGBH, GrayS, GrayH)")
	for _, f := range intFlags {
		flags.Int(f.flag, 0, f.usage)
	}
	flags.Bool("use-cuda-graph", false, "Capture and replay the inference graph")
	flags.String("backend", "", "Inference backend")
}

// filterArgs baut die Options-Map. Nur explizit gesetzte Flags werden uebernommen,
// alle anderen Optionen bleiben fuer die Defaults des Filters offen.
func filterArgs(flags *pflag.FlagSet, engine string, clip vs.Node) (*vs.Map, error) {
	args := vs.NewMap()
	args.SetNode("clips", clip)
	args.SetData("engine_path", engine)

	for _, f := range intFlags {
		if !flags.Changed(f.flag) {
			continue
		}
		v, err := flags.GetInt(f.flag)
		if err != nil {
			return nil, err
		}
		args.SetInt(f.option, int64(v))
	}

	if flags.Changed("use-cuda-graph") {
		v, err := flags.GetBool("use-cuda-graph")
		if err != nil {
			return nil, err
		}
		if v {
			args.SetInt("use_cuda_graph", 1)
		} else {
			args.SetInt("use_cuda_graph", 0)
		}
	}

	if flags.Changed("backend") {
		v, err := flags.GetString("backend")
		if err != nil {
			return nil, err
		}
		args.SetData("backend", v)
	}

	return args, nil
}

// openInput erstellt die Eingabe-Sequenz aus dem Glob in --input
func openInput(flags *pflag.FlagSet) (*vs.ImageSequence, error) {
	pattern, err := flags.GetString("input")
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, errors.New("--input is required")
	}

	name, err := flags.GetString("format")
	if err != nil {
		return nil, err
	}
	format, err := vs.FormatByName(name)
	if err != nil {
		return nil, err
	}

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid input pattern: %w", err)
	}
	slices.Sort(paths)

	return vs.NewImageSequence(paths, format)
}

// createFilter oeffnet die Eingabe und erstellt den Filter fuer engine
func createFilter(ctx context.Context, cmd *cobra.Command, engine string) (*trt.Filter, error) {
	clip, err := openInput(cmd.Flags())
	if err != nil {
		return nil, err
	}

	args, err := filterArgs(cmd.Flags(), engine, clip)
	if err != nil {
		return nil, err
	}

	return trt.Create(ctx, args)
}
