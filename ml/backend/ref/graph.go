// graph.go - Replay-Plan
// Enthaelt: Kachel-Positionen und Interpolations-Tabellen fuer eine Geometrie.
// Mit use_cuda_graph wird der Plan einmal pro Instanz aufgezeichnet und
// danach wiederverwendet.
package ref

import (
	"math"

	"github.com/vsmlrt/vstrt/ml"
)

// tile ist eine Kachel-Position mit dem pro Kante abgeschnittenen Rand
type tile struct {
	x, y int

	cropLeft, cropRight int
	cropTop, cropBottom int
}

// tap ist ein Interpolations-Eintrag entlang einer Achse
type tap struct {
	i0, i1 int
	w0, w1 float64
}

type replayPlan struct {
	width, height  int
	patchW, patchH int
	pad            int

	tiles  []tile
	xs, ys []tap
}

func (rp *replayPlan) matches(g ml.Geometry) bool {
	return rp.width == g.In.Width && rp.height == g.In.Height &&
		rp.patchW == g.In.PatchW && rp.patchH == g.In.PatchH && rp.pad == g.Pad
}

func capture(g ml.Geometry, filter ml.SamplingMode) *replayPlan {
	return &replayPlan{
		width:  g.In.Width,
		height: g.In.Height,
		patchW: g.In.PatchW,
		patchH: g.In.PatchH,
		pad:    g.Pad,
		tiles:  tiles(g.In.Width, g.In.Height, g.In.PatchW, g.In.PatchH, g.Pad),
		xs:     taps(g.In.PatchW, g.WScale, filter),
		ys:     taps(g.In.PatchH, g.HScale, filter),
	}
}

// positions liefert die Kachel-Anfaenge entlang einer Achse
func positions(size, patch, pad int) []int {
	step := patch - 2*pad
	var pos []int
	for p := 0; ; p = min(p+step, size-patch) {
		pos = append(pos, p)
		if p+patch == size {
			return pos
		}
	}
}

func tiles(width, height, patchW, patchH, pad int) []tile {
	var ts []tile
	for _, y := range positions(height, patchH, pad) {
		for _, x := range positions(width, patchW, pad) {
			t := tile{x: x, y: y}
			if x != 0 {
				t.cropLeft = pad
			}
			if x+patchW != width {
				t.cropRight = pad
			}
			if y != 0 {
				t.cropTop = pad
			}
			if y+patchH != height {
				t.cropBottom = pad
			}
			ts = append(ts, t)
		}
	}
	return ts
}

// taps berechnet fuer jede Ausgabe-Position die Quell-Indizes und Gewichte
// innerhalb einer Kachel der Groesse n
func taps(n, scale int, filter ml.SamplingMode) []tap {
	ts := make([]tap, n*scale)
	for o := range ts {
		if filter == ml.SamplingModeNearest || n == 1 {
			ts[o] = tap{i0: o / scale, i1: o / scale, w0: 1}
			continue
		}

		s := (float64(o)+0.5)/float64(scale) - 0.5
		s = min(max(s, 0), float64(n-1))
		i0 := int(math.Floor(s))
		i1 := min(i0+1, n-1)
		f := s - float64(i0)
		ts[o] = tap{i0: i0, i1: i1, w0: 1 - f, w1: f}
	}
	return ts
}
