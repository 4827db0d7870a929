// instance.go - Gebundener Ausfuehrungskontext
// Enthaelt: Instance.Infer mit dem Kachel-Durchlauf ueber den Frame.
// Kacheln ueberlappen um 2*pad, die letzte Kachel jeder Zeile/Spalte wird
// an den Frame-Rand geschoben. Beim Zurueckschreiben wird pad an inneren
// Kanten abgeschnitten.
package ref

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/vsmlrt/vstrt/ml"
	"github.com/vsmlrt/vstrt/vs"
)

// Instance gehoert waehrend eines Aufrufs exklusiv dem Aufrufer
type Instance struct {
	engine   *Engine
	in, out  ml.Dims
	useGraph bool

	// graph wird beim ersten Aufruf mit useGraph aufgezeichnet
	graph *replayPlan

	// Puffer fuer eine Kachel, wiederverwendet zwischen Aufrufen
	patch  *mat.Dense
	result mat.Dense
}

func (i *Instance) BindingDims(binding int) ml.Dims {
	switch binding {
	case ml.BindingInput:
		return i.in
	case ml.BindingOutput:
		return i.out
	default:
		return ml.Dims{}
	}
}

// Captured meldet ob ein Replay-Plan aufgezeichnet wurde
func (i *Instance) Captured() bool {
	return i.graph != nil
}

func (i *Instance) Infer(deviceID int, useGraph bool, g ml.Geometry, src [][]byte, dst [][]byte) error {
	e := i.engine

	if n := e.calls.Add(1); e.failAfter > 0 && n > e.failAfter {
		return fmt.Errorf("device %d: inference failed after %d calls", deviceID, e.failAfter)
	}

	if len(src) != e.cin || len(dst) != e.cout {
		return fmt.Errorf("expected %d input and %d output planes, got %d and %d", e.cin, e.cout, len(src), len(dst))
	}
	if g.In.BytesPerSample*8 != e.bits || g.Out.BytesPerSample*8 != e.bits {
		return fmt.Errorf("engine expects %d-bit samples, got %d-bit input and %d-bit output", e.bits, g.In.BytesPerSample*8, g.Out.BytesPerSample*8)
	}
	if g.In.PatchW != i.in.W || g.In.PatchH != i.in.H {
		return fmt.Errorf("patch %dx%d does not match bound input %dx%d", g.In.PatchW, g.In.PatchH, i.in.W, i.in.H)
	}
	if g.WScale != e.scaleW || g.HScale != e.scaleH {
		return fmt.Errorf("scale %dx%d does not match engine scale %dx%d", g.WScale, g.HScale, e.scaleW, e.scaleH)
	}
	if g.Pad < 0 || g.In.PatchW-2*g.Pad <= 0 || g.In.PatchH-2*g.Pad <= 0 {
		return fmt.Errorf("pad %d too large for patch %dx%d", g.Pad, g.In.PatchW, g.In.PatchH)
	}
	if g.In.Width < g.In.PatchW || g.In.Height < g.In.PatchH {
		return fmt.Errorf("frame %dx%d smaller than patch %dx%d", g.In.Width, g.In.Height, g.In.PatchW, g.In.PatchH)
	}

	var rp *replayPlan
	if useGraph && i.useGraph {
		if i.graph == nil || !i.graph.matches(g) {
			i.graph = capture(g, e.filter)
		}
		rp = i.graph
	} else {
		rp = capture(g, e.filter)
	}

	if i.patch == nil {
		i.patch = mat.NewDense(e.cin, i.in.H*i.in.W, nil)
	}

	for _, t := range rp.tiles {
		i.loadPatch(g, t, src)
		i.result.Mul(e.kernel, i.patch)
		i.storePatch(g, rp, t, dst)
	}

	return nil
}

// loadPatch kopiert die Eingabe-Kachel an t in i.patch (Kanaele x Pixel)
func (i *Instance) loadPatch(g ml.Geometry, t tile, src [][]byte) {
	bps := g.In.BytesPerSample
	stride := g.In.Stride / bps

	for c, plane := range src {
		row := i.patch.RawRowView(c)
		for py := range g.In.PatchH {
			base := (t.y+py)*stride + t.x
			for px := range g.In.PatchW {
				row[py*g.In.PatchW+px] = float64(vs.ReadSample(plane, base+px, bps))
			}
		}
	}
}

// storePatch skaliert das Ergebnis hoch und schreibt den beschnittenen Bereich
func (i *Instance) storePatch(g ml.Geometry, rp *replayPlan, t tile, dst [][]byte) {
	bps := g.Out.BytesPerSample
	stride := g.Out.Stride / bps
	patchW := g.In.PatchW

	for c, plane := range dst {
		bias := i.engine.bias[c]
		row := i.result.RawRowView(c)

		for oy := t.cropTop * g.HScale; oy < (g.In.PatchH-t.cropBottom)*g.HScale; oy++ {
			ty := rp.ys[oy]
			base := (t.y*g.HScale+oy)*stride + t.x*g.WScale

			for ox := t.cropLeft * g.WScale; ox < (patchW-t.cropRight)*g.WScale; ox++ {
				tx := rp.xs[ox]
				v := ty.w0*(tx.w0*row[ty.i0*patchW+tx.i0]+tx.w1*row[ty.i0*patchW+tx.i1]) +
					ty.w1*(tx.w0*row[ty.i1*patchW+tx.i0]+tx.w1*row[ty.i1*patchW+tx.i1])
				vs.WriteSample(plane, base+ox, bps, float32(v+bias))
			}
		}
	}
}

func (i *Instance) Close() error {
	i.graph = nil
	i.patch = nil
	return nil
}
