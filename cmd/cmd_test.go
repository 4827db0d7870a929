package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vsmlrt/vstrt/api"
	"github.com/vsmlrt/vstrt/fs/plan"
	"github.com/vsmlrt/vstrt/ml"
	"github.com/vsmlrt/vstrt/ml/backend/ref"
	"github.com/vsmlrt/vstrt/vs"
)

func writeEngine(t *testing.T, c ref.Config) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "engine.vste")
	require.NoError(t, ref.WritePlan(path, c))
	return path
}

func writeImages(t *testing.T, n int, c color.RGBA) string {
	t.Helper()

	dir := t.TempDir()
	for i := range n {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		for y := range 8 {
			for x := range 8 {
				img.SetRGBA(x, y, c)
			}
		}

		f, err := os.Create(filepath.Join(dir, filepath.Base(t.Name())+string(rune('a'+i))+".png"))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return dir
}

func TestFilterArgsOnlyChangedFlags(t *testing.T) {
	cases := []struct {
		args []string
		keys []string
	}{
		{nil, []string{"clips", "engine_path"}},
		{[]string{"--pad", "2", "--block-w", "16"}, []string{"clips", "engine_path", "pad", "block_w"}},
		{[]string{"--use-cuda-graph=false", "--backend", "ref"}, []string{"clips", "engine_path", "use_cuda_graph", "backend"}},
		{[]string{"--num-streams", "0"}, []string{"clips", "engine_path", "num_streams"}},
	}

	for _, tt := range cases {
		cmd := newRunCmd()
		require.NoError(t, cmd.Flags().Parse(tt.args))

		args, err := filterArgs(cmd.Flags(), "engine.vste", vs.NewBlankClip(vs.RGBS, 8, 8, 1, 0))
		require.NoError(t, err)

		if diff := cmp.Diff(tt.keys, args.Keys()); diff != "" {
			t.Errorf("%v: keys mismatch (-want +got):\n%s", tt.args, diff)
		}
	}

	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--use-cuda-graph", "--num-streams", "0"}))
	args, err := filterArgs(cmd.Flags(), "engine.vste", vs.NewBlankClip(vs.RGBS, 8, 8, 1, 0))
	require.NoError(t, err)

	v, err := args.Int("use_cuda_graph", 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	v, err = args.Int("num_streams", 0)
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestParseHW(t *testing.T) {
	cases := []struct {
		in   string
		want ml.Dims
		err  bool
	}{
		{"8x16", ml.Dims{H: 8, W: 16}, false},
		{"32", ml.Dims{H: 32, W: 32}, false},
		{"4X4", ml.Dims{H: 4, W: 4}, false},
		{"0x4", ml.Dims{}, true},
		{"ax4", ml.Dims{}, true},
		{"4x", ml.Dims{}, true},
	}

	for _, tt := range cases {
		got, err := parseHW(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("%q: erwartet Fehler", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unerwarteter Fehler %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: erwartet %v, bekommen %v", tt.in, tt.want, got)
		}
	}
}

func TestCreateConfig(t *testing.T) {
	cmd := newCreateCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--scale", "3", "--scale-h", "2", "--channels", "3", "--channels-out", "1", "--min", "4", "--opt", "8x8", "--max", "16x32", "--bits", "16", "--filter", "bilinear", "--kernel-kind", "bf16"}))

	c, err := createConfig(cmd.Flags(), filepath.Join("models", "x3.vste"))
	require.NoError(t, err)

	require.Equal(t, "x3", c.Name)
	require.Equal(t, 3, c.ScaleW)
	require.Equal(t, 2, c.ScaleH)
	require.Equal(t, 1, c.ChannelsOut)
	require.Equal(t, 16, c.SampleBits)
	require.Equal(t, ml.SamplingModeBilinear, c.Filter)
	require.Equal(t, plan.KindBF16, c.KernelKind)
	require.Equal(t, []ml.Profile{{
		Min: ml.Dims{N: 1, C: 3, H: 4, W: 4},
		Opt: ml.Dims{N: 1, C: 3, H: 8, W: 8},
		Max: ml.Dims{N: 1, C: 3, H: 16, W: 32},
	}}, c.Profiles)
}

func TestCreateConfigErrors(t *testing.T) {
	cases := map[string][]string{
		"bits must be 16 or 32":     {"--bits", "8"},
		"scale must be positive":    {"--scale", "0"},
		"channels must be positive": {"--channels", "-1"},
		`unknown filter "cubic"`:    {"--filter", "cubic"},
		`unknown kernel kind "q4"`:  {"--kernel-kind", "q4"},
		`--min: invalid size "0x0"`: {"--min", "0x0"},
		"--opt 128x128 is outside":  {"--opt", "128x128", "--max", "64x64"},
	}

	for want, flags := range cases {
		cmd := newCreateCmd()
		require.NoError(t, cmd.Flags().Parse(flags))

		_, err := createConfig(cmd.Flags(), "engine.vste")
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("%v: erwartet %q, bekommen %v", flags, want, err)
		}
	}
}

func TestCreateAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.vste")

	cli := NewCLI()
	cli.SetArgs([]string{"create", path, "--channels", "16", "--min", "8", "--opt", "32", "--max", "64"})
	require.NoError(t, cli.ExecuteContext(t.Context()))

	b, err := ml.GetBackend(ref.Name)
	require.NoError(t, err)
	rt, err := b.NewRuntime(nil)
	require.NoError(t, err)
	defer rt.Close()

	engine, err := rt.Load(path)
	require.NoError(t, err)
	defer engine.Close()

	meta, err := plan.Open(path)
	require.NoError(t, err)
	defer meta.Close()

	devices, err := b.Devices()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, showInfo(&buf, engine, meta, devices, true))

	out := buf.String()
	for _, want := range []string{"wide", "upscale", "8x8", "32x32", "64x64", "[1 16 -1 -1]", "[1 16 -1 -1]", "kernel", "1,024", "upscale.channels_in", "CPU0"} {
		if !strings.Contains(out, want) {
			t.Errorf("erwartet %q in Ausgabe:\n%s", want, out)
		}
	}
}

func TestRunWritesFrames(t *testing.T) {
	engine := writeEngine(t, ref.Config{
		Name:        "x2",
		ChannelsIn:  3,
		ChannelsOut: 3,
		ScaleW:      2,
		ScaleH:      2,
		SampleBits:  32,
		Profiles: []ml.Profile{{
			Min: ml.Dims{H: 1, W: 1},
			Opt: ml.Dims{H: 8, W: 8},
			Max: ml.Dims{H: 64, W: 64},
		}},
	})

	want := color.RGBA{R: 255, G: 0, B: 128, A: 255}
	input := writeImages(t, 3, want)
	output := filepath.Join(t.TempDir(), "out")

	cli := NewCLI()
	cli.SetArgs([]string{
		"run", engine,
		"--input", filepath.Join(input, "*.png"),
		"--output", output,
		"--num-streams", "2",
		"--threads", "2",
		"--backend", ref.Name,
	})
	require.NoError(t, cli.ExecuteContext(t.Context()))

	for _, name := range []string{"000000.png", "000001.png", "000002.png"} {
		f, err := os.Open(filepath.Join(output, name))
		require.NoError(t, err)

		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)

		require.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
		r, g, b, _ := img.At(11, 3).RGBA()
		got := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
		if got != want {
			t.Errorf("%s: erwartet %v, bekommen %v", name, want, got)
		}
	}
}

func TestRunErrors(t *testing.T) {
	engine := writeEngine(t, ref.Config{
		ChannelsIn:  3,
		ChannelsOut: 3,
		ScaleW:      2,
		ScaleH:      2,
		SampleBits:  32,
		FailAfter:   1,
		Profiles: []ml.Profile{{
			Min: ml.Dims{H: 8, W: 8},
			Opt: ml.Dims{H: 8, W: 8},
			Max: ml.Dims{H: 8, W: 8},
		}},
	})
	input := filepath.Join(writeImages(t, 2, color.RGBA{A: 255}), "*.png")
	output := t.TempDir()

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"run", engine, "--input", input}, "--output is required"},
		{[]string{"run", engine, "--output", output}, "--input is required"},
		{[]string{"run", engine, "--input", filepath.Join(output, "*.none"), "--output", output}, "image sequence is empty"},
		{[]string{"run", engine, "--input", input, "--output", output, "--format", "YUV420P8"}, "unsupported image sequence format"},
		{[]string{"run", engine, "--input", input, "--output", output, "--pad", "-1"}, `"pad" should be non-negative`},
		{[]string{"run", engine, "--input", input, "--output", output, "--threads", "1"}, "GetFrame: device 0: inference failed after 1 calls"},
	}

	for _, tt := range cases {
		cli := NewCLI()
		cli.SetArgs(tt.args)
		err := cli.ExecuteContext(t.Context())
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%v: erwartet %q, bekommen %v", tt.args[2:], tt.want, err)
		}
	}
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	renderStats(&buf,
		&api.InfoResponse{Format: "RGBS", Width: 128, Height: 96, Options: api.OptionsResponse{Engine: "x2.vste"}},
		&api.StatsResponse{NumStreams: 2, FreeSlots: 1, InFlight: 1, PeakInFlight: 2, Frames: 40, Errors: 3},
	)

	out := buf.String()
	for _, want := range []string{"ENGINE", "IN FLIGHT", "x2.vste", "RGBS 128x96", "40"} {
		if !strings.Contains(out, want) {
			t.Errorf("erwartet %q in Ausgabe:\n%s", want, out)
		}
	}
}
