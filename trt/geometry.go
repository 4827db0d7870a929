// geometry.go - Profilwahl und I/O-Geometrie
//
// selectProfile laeuft einmal beim Aufbau, resolveGeometry bei jedem Frame
// auf Basis der gebundenen Dimensionen der ausgeliehenen Instanz.
package trt

import (
	"fmt"

	"github.com/vsmlrt/vstrt/ml"
	"github.com/vsmlrt/vstrt/vs"
)

// selectProfile gibt das erste Profil zurueck, das die Kachelgroesse unterstuetzt
func selectProfile(profiles []ml.Profile, block BlockSize) (int, error) {
	size := block.Size()
	for i, p := range profiles {
		if p.Supports(size) {
			return i, nil
		}
	}

	return -1, fmt.Errorf("no optimization profile supports %s (%d profiles)", describeBlock(block), len(profiles))
}

// scaleOf leitet die Skalierung aus gebundenen Ein- und Ausgabe-Dimensionen ab.
// Ein nicht ganzzahliges Verhaeltnis ist ein Programmierfehler.
func scaleOf(in, out ml.Dims) (w, h int) {
	if in.W <= 0 || in.H <= 0 || out.W%in.W != 0 || out.H%in.H != 0 {
		panic(fmt.Sprintf("trt: non-integral scale between bound input %v and output %v", in, out))
	}
	return out.W / in.W, out.H / in.H
}

func resolveGeometry(inst ml.Instance, src, dst *vs.Frame, pad int) ml.Geometry {
	in := inst.BindingDims(ml.BindingInput)
	out := inst.BindingDims(ml.BindingOutput)
	wScale, hScale := scaleOf(in, out)

	return ml.Geometry{
		In: ml.InputGeometry{
			Width:          src.Width(0),
			Height:         src.Height(0),
			Stride:         src.Stride(0),
			BytesPerSample: src.Format().BytesPerSample,
			PatchW:         in.W,
			PatchH:         in.H,
		},
		Out: ml.OutputGeometry{
			Stride:         dst.Stride(0),
			BytesPerSample: dst.Format().BytesPerSample,
		},
		WScale: wScale,
		HScale: hScale,
		Pad:    pad,
	}
}

// outputInfo leitet das Ausgabe-Format aus den gebundenen Dimensionen von inst ab
func outputInfo(vi vs.VideoInfo, inst ml.Instance) (vs.VideoInfo, error) {
	in := inst.BindingDims(ml.BindingInput)
	out := inst.BindingDims(ml.BindingOutput)
	wScale, hScale := scaleOf(in, out)

	var family vs.ColorFamily
	switch out.C {
	case 1:
		family = vs.ColorGray
	case 3:
		family = vs.ColorRGB
	default:
		return vs.VideoInfo{}, fmt.Errorf("unsupported number of output channels %d", out.C)
	}

	format, err := vs.FormatFor(family, vi.Format.SampleType, vi.Format.BitsPerSample)
	if err != nil {
		return vs.VideoInfo{}, err
	}

	vi.Format = format
	vi.Width *= wScale
	vi.Height *= hScale
	return vi, nil
}
