// options.go - Optionen des Filters
//
// ParseOptions liest die Argument-Map in der Reihenfolge: Clips pruefen,
// pad, block_w/block_h, device_id, use_cuda_graph, num_streams, verbosity.
// Fehlende optionale Werte erhalten Defaults aus envconfig.
package trt

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/agnivade/levenshtein"

	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/logutil"
	"github.com/vsmlrt/vstrt/vs"
)

// Options sind die aufgeloesten Filter-Optionen
type Options struct {
	Clips        []vs.Node
	Engine       string
	Pad          int
	Block        BlockSize
	DeviceID     int
	UseCudaGraph bool
	NumStreams   int
	Verbosity    logutil.Severity
	Backend      string
}

func (o *Options) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("engine", o.Engine),
		slog.Int("clips", len(o.Clips)),
		slog.Int("pad", o.Pad),
		slog.String("block", describeBlock(o.Block)),
		slog.Int("device", o.DeviceID),
		slog.Bool("cuda_graph", o.UseCudaGraph),
		slog.Int("streams", o.NumStreams),
		slog.String("verbosity", o.Verbosity.String()),
		slog.String("backend", o.Backend),
	)
}

// Argumente des Filters in Registrierungs-Reihenfolge
var optionNames = []string{
	"clips",
	"engine_path",
	"pad",
	"block_w",
	"block_h",
	"device_id",
	"use_cuda_graph",
	"num_streams",
	"verbosity",
	"backend",
}

// ParseOptions prueft die Argumente und loest Defaults auf
func ParseOptions(in *vs.Map) (*Options, error) {
	for _, key := range in.Keys() {
		if !slices.Contains(optionNames, key) {
			return nil, unknownOption(key)
		}
		if key != "clips" && in.NumElements(key) > 1 {
			return nil, configError("%q must be a single value", key)
		}
	}

	clips, err := in.Nodes("clips")
	if errors.Is(err, vs.ErrKeyNotFound) {
		return nil, configError("\"clips\" is required")
	} else if err != nil {
		return nil, configError("%v", err)
	}

	if err := checkNodes(clips); err != nil {
		return nil, configError("%v", err)
	}

	o := &Options{Clips: clips}

	o.Engine, err = in.Data("engine_path", 0)
	if err != nil {
		return nil, configError("\"engine_path\" is required")
	}

	pad, err := intOption(in, "pad", 0)
	if err != nil {
		return nil, err
	}
	if pad < 0 {
		return nil, configError("\"pad\" should be non-negative")
	}
	o.Pad = pad

	vi := clips[0].VideoInfo()
	if in.NumElements("block_w") > 0 {
		blockW, err := intOption(in, "block_w", 0)
		if err != nil {
			return nil, err
		}

		blockH, err := intOption(in, "block_h", blockW)
		if err != nil {
			return nil, err
		}

		if blockW-2*pad <= 0 || blockH-2*pad <= 0 {
			return nil, configError("\"pad\" too large")
		}
		if blockW > vi.Width || blockH > vi.Height {
			return nil, configError("block size %dx%d exceeds frame size %dx%d", blockW, blockH, vi.Width, vi.Height)
		}

		o.Block = RequestedBlock{Width: blockW, Height: blockH}
	} else {
		if pad != 0 {
			return nil, configError("\"block_w\" must be specified")
		}

		o.Block = FrameBlock{Width: vi.Width, Height: vi.Height}
	}

	if o.DeviceID, err = intOption(in, "device_id", int(envconfig.DeviceID())); err != nil {
		return nil, err
	}

	graph, err := intOption(in, "use_cuda_graph", boolInt(envconfig.UseCudaGraph()))
	if err != nil {
		return nil, err
	}
	o.UseCudaGraph = graph != 0

	if o.NumStreams, err = intOption(in, "num_streams", int(envconfig.NumStreams())); err != nil {
		return nil, err
	}
	if o.NumStreams < 1 {
		return nil, configError("\"num_streams\" must be positive")
	}

	verbosity, err := intOption(in, "verbosity", int(logutil.DefaultSeverity))
	if err != nil {
		return nil, err
	}
	o.Verbosity = logutil.Severity(verbosity)

	o.Backend = envconfig.Backend()
	if in.NumElements("backend") > 0 {
		if o.Backend, err = in.Data("backend", 0); err != nil {
			return nil, configError("%v", err)
		}
	}

	return o, nil
}

// intOption liest key als int, def wenn key fehlt. Werte ausserhalb von int32 werden geklemmt.
func intOption(in *vs.Map, key string, def int) (int, error) {
	v, err := in.Int(key, 0)
	if errors.Is(err, vs.ErrKeyNotFound) {
		return def, nil
	} else if err != nil {
		return 0, configError("%v", err)
	}

	return int(min(max(v, math.MinInt32), math.MaxInt32)), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// unknownOption schlaegt den naechstgelegenen bekannten Namen vor
func unknownOption(key string) error {
	best, dist := "", math.MaxInt
	for _, name := range optionNames {
		if d := levenshtein.ComputeDistance(key, name); d < dist {
			best, dist = name, d
		}
	}

	if dist <= 2 {
		return configError("unknown option %q, did you mean %q?", key, best)
	}
	return configError("unknown option %q", key)
}

// checkNodes prueft, dass alle Clips konstantes, gleiches Float-Format ohne
// Subsampling und gleiche Dimensionen haben
func checkNodes(clips []vs.Node) error {
	if len(clips) == 0 {
		return errors.New("at least one clip is required")
	}

	first := clips[0].VideoInfo()
	for i, clip := range clips {
		vi := clip.VideoInfo()

		if !vi.IsConstant() {
			return fmt.Errorf("clip %d: video format must be constant", i)
		}
		if vi.Width != first.Width || vi.Height != first.Height {
			return fmt.Errorf("clip %d: dimensions %dx%d differ from %dx%d", i, vi.Width, vi.Height, first.Width, first.Height)
		}
		if vi.Format != first.Format {
			return fmt.Errorf("clip %d: format %s differs from %s", i, vi.Format, first.Format)
		}
		if vi.Format.SampleType != vs.SampleFloat || (vi.Format.BitsPerSample != 16 && vi.Format.BitsPerSample != 32) {
			return fmt.Errorf("clip %d: sample type must be float16 or float32, got %s", i, vi.Format)
		}
		if vi.Format.SubSamplingW != 0 || vi.Format.SubSamplingH != 0 {
			return fmt.Errorf("clip %d: subsampling is not supported", i)
		}
	}

	return nil
}
