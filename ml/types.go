// types.go - Datentypen fuer Engine-Bindungen und I/O-Geometrie
// Dieses Modul definiert DType, SamplingMode, Dims, Profile, Size und Geometry.
package ml

import (
	"fmt"
	"log/slog"
)

// DType represents the data type of tensor elements.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
	DTypeBF16
)

func (t DType) String() string {
	switch t {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	default:
		return "other"
	}
}

// SamplingMode specifies the interpolation method for tensor resizing.
type SamplingMode int

const (
	SamplingModeNearest SamplingMode = iota
	SamplingModeBilinear
)

// Dims sind NCHW-Dimensionen einer Bindung. Dynamische Achsen sind -1.
type Dims struct {
	N, C, H, W int
}

func (d Dims) String() string {
	return fmt.Sprintf("[%d %d %d %d]", d.N, d.C, d.H, d.W)
}

// Size ist eine raeumliche Groesse in Pixeln.
type Size struct {
	Width, Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Profile beschreibt den unterstuetzten Bereich der Eingabe-Dimensionen.
type Profile struct {
	Min, Opt, Max Dims
}

// Supports prueft ob size innerhalb von [Min, Max] liegt
func (p Profile) Supports(size Size) bool {
	return p.Min.H <= size.Height && size.Height <= p.Max.H &&
		p.Min.W <= size.Width && size.Width <= p.Max.W
}

// InputGeometry beschreibt den Eingabe-Frame und die Eingabe-Kachel.
type InputGeometry struct {
	Width, Height  int
	Stride         int
	BytesPerSample int
	PatchW, PatchH int
}

// OutputGeometry beschreibt den Ausgabe-Frame.
type OutputGeometry struct {
	Stride         int
	BytesPerSample int
}

// Geometry ist die pro Aufruf berechnete I/O-Geometrie.
type Geometry struct {
	In     InputGeometry
	Out    OutputGeometry
	WScale int
	HScale int
	Pad    int
}

// LogValue formatiert die Geometrie fuer Logging
func (g Geometry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("frame", fmt.Sprintf("%dx%d", g.In.Width, g.In.Height)),
		slog.String("patch", fmt.Sprintf("%dx%d", g.In.PatchW, g.In.PatchH)),
		slog.String("scale", fmt.Sprintf("%dx%d", g.WScale, g.HScale)),
		slog.Int("pad", g.Pad),
	)
}
