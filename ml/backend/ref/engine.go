// engine.go - Referenz-Engine
// Enthaelt: Engine aus Plan-Metadaten (Kanaele, Skalierung, Profile, Gewichte),
// statische Binding-Dimensionen und den Bau gebundener Instanzen.
package ref

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/vsmlrt/vstrt/fs/plan"
	"github.com/vsmlrt/vstrt/ml"
)

// Architecture ist der Wert von general.architecture fuer Referenz-Engines
const Architecture = "upscale"

// Engine ist eine geladene Referenz-Engine: 1x1-Faltung gefolgt von Upsampling
type Engine struct {
	name     string
	cin      int
	cout     int
	scaleW   int
	scaleH   int
	bits     int
	filter   ml.SamplingMode
	profiles []ml.Profile

	// kernel hat die Form cout x cin
	kernel *mat.Dense
	bias   []float64

	failAfter int64
	calls     atomic.Int64

	logger *slog.Logger
}

func newEngine(f *plan.File) (*Engine, error) {
	if arch := f.KeyValue("general.architecture").String(); arch != Architecture {
		return nil, fmt.Errorf("unsupported engine architecture %q", arch)
	}

	e := &Engine{
		name:      f.KeyValue("general.name").String(),
		cin:       f.KeyValue("channels_in").Int(),
		cout:      f.KeyValue("channels_out").Int(),
		scaleW:    f.KeyValue("scale_w").Int(),
		scaleH:    f.KeyValue("scale_h").Int(),
		bits:      f.KeyValue("sample_bits").Int(),
		failAfter: int64(f.KeyValue("fail_after").Int()),
	}

	if e.cin <= 0 || e.cout <= 0 {
		return nil, fmt.Errorf("invalid channel count %d->%d", e.cin, e.cout)
	}
	if e.scaleW <= 0 || e.scaleH <= 0 {
		return nil, fmt.Errorf("invalid scale %dx%d", e.scaleW, e.scaleH)
	}
	if e.bits != 16 && e.bits != 32 {
		return nil, fmt.Errorf("unsupported sample bits %d", e.bits)
	}

	filter, err := ParseFilter(f.KeyValue("filter").String())
	if err != nil {
		return nil, err
	}
	e.filter = filter

	e.profiles, err = readProfiles(f, e.cin)
	if err != nil {
		return nil, err
	}

	if e.kernel, e.bias, err = readWeights(f, e.cin, e.cout); err != nil {
		return nil, err
	}

	return e, nil
}

// ParseFilter uebersetzt den Filter-Namen in einen SamplingMode, leer bedeutet nearest
func ParseFilter(s string) (ml.SamplingMode, error) {
	switch s {
	case "", "nearest":
		return ml.SamplingModeNearest, nil
	case "bilinear":
		return ml.SamplingModeBilinear, nil
	default:
		return 0, fmt.Errorf("unknown filter %q", s)
	}
}

func filterName(m ml.SamplingMode) string {
	if m == ml.SamplingModeBilinear {
		return "bilinear"
	}
	return "nearest"
}

func readProfiles(f *plan.File, cin int) ([]ml.Profile, error) {
	n := f.KeyValue("profile_count").Int()
	if n <= 0 {
		return nil, errors.New("engine has no optimization profiles")
	}

	profiles := make([]ml.Profile, n)
	for i := range profiles {
		dims := make([]ml.Dims, 3)
		for j, name := range []string{"min", "opt", "max"} {
			hw := f.KeyValue(fmt.Sprintf("profile.%d.%s", i, name)).Ints()
			if len(hw) != 2 || hw[0] <= 0 || hw[1] <= 0 {
				return nil, fmt.Errorf("profile %d: invalid %s shape %v", i, name, hw)
			}
			dims[j] = ml.Dims{N: 1, C: cin, H: hw[0], W: hw[1]}
		}

		p := ml.Profile{Min: dims[0], Opt: dims[1], Max: dims[2]}
		if !p.Supports(ml.Size{Width: p.Opt.W, Height: p.Opt.H}) {
			return nil, fmt.Errorf("profile %d: opt shape %v outside [%v, %v]", i, p.Opt, p.Min, p.Max)
		}
		profiles[i] = p
	}

	return profiles, nil
}

func readWeights(f *plan.File, cin, cout int) (*mat.Dense, []float64, error) {
	info, values, err := f.Tensor("kernel")
	if err != nil {
		return nil, nil, err
	}
	if !slices.Equal(info.Shape, []uint64{uint64(cout), uint64(cin)}) {
		return nil, nil, fmt.Errorf("kernel shape %v, expected [%d %d]", info.Shape, cout, cin)
	}

	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	kernel := mat.NewDense(cout, cin, data)

	bias := make([]float64, cout)
	if _, ok := f.TensorInfo("bias"); ok {
		info, values, err := f.Tensor("bias")
		if err != nil {
			return nil, nil, err
		}
		if info.Elements() != uint64(cout) {
			return nil, nil, fmt.Errorf("bias has %d elements, expected %d", info.Elements(), cout)
		}
		for i, v := range values {
			bias[i] = float64(v)
		}
	}

	return kernel, bias, nil
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) Profiles() []ml.Profile {
	return slices.Clone(e.profiles)
}

// BindingDims gibt statische Dimensionen zurueck. Achsen, die sich zwischen
// Profilen oder innerhalb eines Profils unterscheiden, sind -1.
func (e *Engine) BindingDims(binding int) ml.Dims {
	h, w := e.profiles[0].Min.H, e.profiles[0].Min.W
	for _, p := range e.profiles {
		if p.Min.H != h || p.Max.H != h {
			h = -1
		}
		if p.Min.W != w || p.Max.W != w {
			w = -1
		}
	}

	switch binding {
	case ml.BindingInput:
		return ml.Dims{N: 1, C: e.cin, H: h, W: w}
	case ml.BindingOutput:
		if h > 0 {
			h *= e.scaleH
		}
		if w > 0 {
			w *= e.scaleW
		}
		return ml.Dims{N: 1, C: e.cout, H: h, W: w}
	default:
		return ml.Dims{}
	}
}

// SampleBits gibt die erwartete Bittiefe der Ein- und Ausgabe zurueck
func (e *Engine) SampleBits() int {
	return e.bits
}

// NewInstance bindet einen Ausfuehrungskontext an profile und size
func (e *Engine) NewInstance(profile int, size ml.Size, useGraph bool) (ml.Instance, error) {
	if profile < 0 || profile >= len(e.profiles) {
		return nil, fmt.Errorf("invalid profile index %d", profile)
	}
	if p := e.profiles[profile]; !p.Supports(size) {
		return nil, fmt.Errorf("profile %d does not support input size %s", profile, size)
	}

	inst := &Instance{
		engine:   e,
		in:       ml.Dims{N: 1, C: e.cin, H: size.Height, W: size.Width},
		out:      ml.Dims{N: 1, C: e.cout, H: size.Height * e.scaleH, W: size.Width * e.scaleW},
		useGraph: useGraph,
	}

	if e.logger != nil {
		e.logger.Debug("instance created", "profile", profile, "input", inst.in, "output", inst.out, "graph", useGraph)
	}
	return inst, nil
}

func (e *Engine) Close() error {
	return nil
}
