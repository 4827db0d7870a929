package ref

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vsmlrt/vstrt/fs/plan"
	"github.com/vsmlrt/vstrt/ml"
	"github.com/vsmlrt/vstrt/vs"
)

func profile(minH, minW, maxH, maxW int) ml.Profile {
	return ml.Profile{
		Min: ml.Dims{H: minH, W: minW},
		Opt: ml.Dims{H: maxH, W: maxW},
		Max: ml.Dims{H: maxH, W: maxW},
	}
}

func writeEngine(t *testing.T, c Config) string {
	t.Helper()

	if c.ScaleW == 0 {
		c.ScaleW, c.ScaleH = 2, 2
	}
	if c.SampleBits == 0 {
		c.SampleBits = 32
	}
	if c.ChannelsIn == 0 {
		c.ChannelsIn, c.ChannelsOut = 3, 3
	}
	if c.Profiles == nil {
		c.Profiles = []ml.Profile{profile(1, 1, 64, 64)}
	}

	path := filepath.Join(t.TempDir(), "engine.vste")
	if err := WritePlan(path, c); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadEngine(t *testing.T, c Config) *Engine {
	t.Helper()

	b := &Backend{}
	rt, err := b.NewRuntime(nil)
	if err != nil {
		t.Fatal(err)
	}

	e, err := rt.Load(writeEngine(t, c))
	if err != nil {
		t.Fatal(err)
	}
	return e.(*Engine)
}

func TestRegistered(t *testing.T) {
	b, err := ml.GetBackend(Name)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*Backend); !ok {
		t.Errorf("erwartet *Backend, bekommen %T", b)
	}
}

func TestDevices(t *testing.T) {
	b := &Backend{NumDevices: 2}

	devices, err := b.Devices()
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 || devices[1].ID != 1 || devices[1].Library != Name {
		t.Fatalf("devices = %+v", devices)
	}

	if err := b.SetDevice(1); err != nil {
		t.Fatal(err)
	}
	if b.ActiveDevice() != 1 {
		t.Errorf("aktives Geraet = %d, erwartet 1", b.ActiveDevice())
	}

	if err := b.SetDevice(2); !errors.Is(err, ErrDevice) {
		t.Errorf("erwartet ErrDevice, bekommen %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	rt, _ := (&Backend{}).NewRuntime(nil)

	if _, err := rt.Load(filepath.Join(t.TempDir(), "missing.vste")); err == nil {
		t.Error("erwartet Fehler fuer fehlende Datei")
	}

	bad := filepath.Join(t.TempDir(), "bad.vste")
	if err := WritePlan(bad, Config{ChannelsIn: 3, ChannelsOut: 3, ScaleW: 2, ScaleH: 2, SampleBits: 8, Profiles: []ml.Profile{profile(1, 1, 8, 8)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Load(bad); err == nil {
		t.Error("erwartet Fehler fuer 8-Bit Samples")
	}

	if err := WritePlan(bad, Config{}); err == nil {
		t.Error("erwartet Fehler ohne Profile")
	}
}

func TestBindingDims(t *testing.T) {
	static := loadEngine(t, Config{Profiles: []ml.Profile{profile(8, 16, 8, 16)}})
	if diff := cmp.Diff(ml.Dims{N: 1, C: 3, H: 16, W: 32}, static.BindingDims(ml.BindingOutput)); diff != "" {
		t.Errorf("static output (-want +got):\n%s", diff)
	}

	dynamic := loadEngine(t, Config{})
	if diff := cmp.Diff(ml.Dims{N: 1, C: 3, H: -1, W: -1}, dynamic.BindingDims(ml.BindingInput)); diff != "" {
		t.Errorf("dynamic input (-want +got):\n%s", diff)
	}
}

func TestNewInstance(t *testing.T) {
	e := loadEngine(t, Config{Profiles: []ml.Profile{profile(8, 8, 32, 32)}})

	inst, err := e.NewInstance(0, ml.Size{Width: 16, Height: 24}, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ml.Dims{N: 1, C: 3, H: 48, W: 32}, inst.BindingDims(ml.BindingOutput)); diff != "" {
		t.Errorf("bound output (-want +got):\n%s", diff)
	}

	if _, err := e.NewInstance(1, ml.Size{Width: 16, Height: 16}, false); err == nil {
		t.Error("erwartet Fehler fuer Profil 1")
	}
	if _, err := e.NewInstance(0, ml.Size{Width: 64, Height: 16}, false); err == nil {
		t.Error("erwartet Fehler fuer Breite 64")
	}
}

// frame erzeugt einen Frame mit Wert x + 100*y + 1000*plane
func frame(t *testing.T, format *vs.Format, w, h int) *vs.Frame {
	t.Helper()

	f, err := vs.NewFramePool().NewFrame(format, w, h, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Free)

	bps := format.BytesPerSample
	for p := range format.NumPlanes {
		for y := range h {
			for x := range w {
				vs.WriteSample(f.WritePlane(p), y*f.Stride(p)/bps+x, bps, float32(x+100*y+1000*p))
			}
		}
	}
	return f
}

func planes(f *vs.Frame) [][]byte {
	var ps [][]byte
	for p := range f.Format().NumPlanes {
		ps = append(ps, f.WritePlane(p))
	}
	return ps
}

func geometry(src, dst *vs.Frame, patchW, patchH, scale, pad int) ml.Geometry {
	return ml.Geometry{
		In: ml.InputGeometry{
			Width:          src.Width(0),
			Height:         src.Height(0),
			Stride:         src.Stride(0),
			BytesPerSample: src.Format().BytesPerSample,
			PatchW:         patchW,
			PatchH:         patchH,
		},
		Out:    ml.OutputGeometry{Stride: dst.Stride(0), BytesPerSample: dst.Format().BytesPerSample},
		WScale: scale,
		HScale: scale,
		Pad:    pad,
	}
}

func infer(t *testing.T, e *Engine, src *vs.Frame, patchW, patchH, pad int, useGraph bool) (*vs.Frame, *Instance) {
	t.Helper()

	inst, err := e.NewInstance(0, ml.Size{Width: patchW, Height: patchH}, useGraph)
	if err != nil {
		t.Fatal(err)
	}

	dst, err := vs.NewFramePool().NewFrame(src.Format(), src.Width(0)*2, src.Height(0)*2, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dst.Free)

	if err := inst.Infer(0, useGraph, geometry(src, dst, patchW, patchH, 2, pad), planes(src), planes(dst)); err != nil {
		t.Fatal(err)
	}
	return dst, inst.(*Instance)
}

func TestInferNearestIdentity(t *testing.T) {
	e := loadEngine(t, Config{})
	src := frame(t, vs.RGBS, 20, 12)

	whole, _ := infer(t, e, src, 20, 12, 0, false)
	tiled, _ := infer(t, e, src, 8, 8, 2, false)

	for p := range 3 {
		for y := range 24 {
			for x := range 40 {
				want := float32(x/2 + 100*(y/2) + 1000*p)
				idx := y*whole.Stride(p)/4 + x
				if got := vs.ReadSample(whole.ReadPlane(p), idx, 4); got != want {
					t.Fatalf("whole plane %d (%d,%d) = %v, erwartet %v", p, x, y, got, want)
				}
				if got := vs.ReadSample(tiled.ReadPlane(p), idx, 4); got != want {
					t.Fatalf("tiled plane %d (%d,%d) = %v, erwartet %v", p, x, y, got, want)
				}
			}
		}
	}
}

func TestInferKernelAndBias(t *testing.T) {
	e := loadEngine(t, Config{
		ChannelsIn:  3,
		ChannelsOut: 1,
		Kernel:      []float32{1, 0.5, 0},
		Bias:        []float32{-1},
		KernelKind:  plan.KindBF16,
	})

	src := frame(t, vs.RGBS, 4, 4)
	dst, err := vs.NewFramePool().NewFrame(vs.GrayS, 8, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Free()

	inst, err := e.NewInstance(0, ml.Size{Width: 4, Height: 4}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Infer(0, false, geometry(src, dst, 4, 4, 2, 0), planes(src), planes(dst)); err != nil {
		t.Fatal(err)
	}

	// (1 + 100) + 0.5*(1001 + 100) - 1 = 650.5 an Eingabe (1,1)
	if got := vs.ReadSample(dst.ReadPlane(0), 2*dst.Stride(0)/4+2, 4); got != 650.5 {
		t.Errorf("sample = %v, erwartet 650.5", got)
	}
}

func TestInferHalfBilinear(t *testing.T) {
	e := loadEngine(t, Config{SampleBits: 16, Filter: ml.SamplingModeBilinear, ChannelsIn: 1, ChannelsOut: 1})

	src, err := vs.NewFramePool().NewFrame(vs.GrayH, 8, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Free()
	for i := range 8 * src.Stride(0) / 2 {
		vs.WriteSample(src.WritePlane(0), i, 2, 0.25)
	}

	dst, _ := infer(t, e, src, 8, 8, 0, false)
	for y := range 16 {
		for x := range 16 {
			if got := vs.ReadSample(dst.ReadPlane(0), y*dst.Stride(0)/2+x, 2); got != 0.25 {
				t.Fatalf("(%d,%d) = %v, erwartet 0.25", x, y, got)
			}
		}
	}
}

func TestInferGraphCapture(t *testing.T) {
	e := loadEngine(t, Config{})
	src := frame(t, vs.RGBS, 16, 16)

	_, inst := infer(t, e, src, 8, 8, 1, true)
	if !inst.Captured() {
		t.Error("erwartet aufgezeichneten Replay-Plan")
	}

	_, inst = infer(t, e, src, 8, 8, 1, false)
	if inst.Captured() {
		t.Error("erwartet keinen Replay-Plan ohne use_cuda_graph")
	}
}

func TestInferErrors(t *testing.T) {
	e := loadEngine(t, Config{FailAfter: 1})
	src := frame(t, vs.RGBS, 8, 8)
	dst, _ := vs.NewFramePool().NewFrame(vs.RGBS, 16, 16, nil)
	defer dst.Free()

	inst, err := e.NewInstance(0, ml.Size{Width: 8, Height: 8}, false)
	if err != nil {
		t.Fatal(err)
	}

	g := geometry(src, dst, 8, 8, 2, 0)
	if err := inst.Infer(0, false, g, planes(src), planes(dst)[:1]); err == nil {
		t.Error("erwartet Fehler fuer falsche Plane-Anzahl")
	}
	if err := inst.Infer(0, false, g, planes(src), planes(dst)); err == nil {
		t.Error("erwartet Fehler nach fail_after")
	}

	half := loadEngine(t, Config{SampleBits: 16})
	inst, _ = half.NewInstance(0, ml.Size{Width: 8, Height: 8}, false)
	if err := inst.Infer(0, false, g, planes(src), planes(dst)); err == nil {
		t.Error("erwartet Fehler fuer 32-Bit Eingabe an 16-Bit Engine")
	}
}

func TestTilesCoverFrame(t *testing.T) {
	cases := []struct{ width, height, patch, pad int }{
		{64, 64, 64, 0},
		{64, 64, 32, 4},
		{100, 37, 16, 3},
		{9, 9, 3, 1},
	}

	for _, tt := range cases {
		covered := make([]int, tt.width*tt.height)
		for _, tl := range tiles(tt.width, tt.height, tt.patch, tt.patch, tt.pad) {
			for y := tl.y + tl.cropTop; y < tl.y+tt.patch-tl.cropBottom; y++ {
				for x := tl.x + tl.cropLeft; x < tl.x+tt.patch-tl.cropRight; x++ {
					covered[y*tt.width+x]++
				}
			}
		}

		for i, n := range covered {
			if n == 0 {
				t.Fatalf("%+v: pixel %d nicht geschrieben", tt, i)
			}
		}
	}
}

func TestTaps(t *testing.T) {
	for _, tp := range taps(5, 3, ml.SamplingModeBilinear) {
		if math.Abs(tp.w0+tp.w1-1) > 1e-12 || tp.i0 < 0 || tp.i1 > 4 {
			t.Errorf("tap %+v ungueltig", tp)
		}
	}

	want := []tap{{0, 0, 1, 0}, {0, 0, 1, 0}, {1, 1, 1, 0}, {1, 1, 1, 0}}
	if diff := cmp.Diff(want, taps(2, 2, ml.SamplingModeNearest), cmp.AllowUnexported(tap{})); diff != "" {
		t.Errorf("nearest taps (-want +got):\n%s", diff)
	}
}
