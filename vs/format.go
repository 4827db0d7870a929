// MODUL: format
// ZWECK: Pixel-Formate der Frame-Quellen (Farbfamilie, Sample-Typ, Planes)
// INPUT: Keine (Konstanten und Lookup)
// OUTPUT: *Format Presets, FormatFor
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: Keine externen (nur stdlib)
// HINWEISE: Formate sind unveraenderlich und werden per Pointer verglichen

package vs

import "fmt"

// ColorFamily ist die Farbfamilie eines Formats
type ColorFamily int

const (
	ColorGray ColorFamily = iota + 1
	ColorRGB
	ColorYUV
)

func (c ColorFamily) String() string {
	switch c {
	case ColorGray:
		return "Gray"
	case ColorRGB:
		return "RGB"
	case ColorYUV:
		return "YUV"
	default:
		return fmt.Sprintf("ColorFamily(%d)", int(c))
	}
}

// SampleType unterscheidet Integer- und Float-Samples
type SampleType int

const (
	SampleInteger SampleType = iota
	SampleFloat
)

// Format beschreibt das Pixel-Layout eines Frames
type Format struct {
	Name           string
	ColorFamily    ColorFamily
	SampleType     SampleType
	BitsPerSample  int
	BytesPerSample int
	SubSamplingW   int
	SubSamplingH   int
	NumPlanes      int
}

func (f *Format) String() string {
	if f == nil {
		return "variable"
	}
	return f.Name
}

// Vordefinierte Formate
var (
	GrayS    = &Format{Name: "GrayS", ColorFamily: ColorGray, SampleType: SampleFloat, BitsPerSample: 32, BytesPerSample: 4, NumPlanes: 1}
	GrayH    = &Format{Name: "GrayH", ColorFamily: ColorGray, SampleType: SampleFloat, BitsPerSample: 16, BytesPerSample: 2, NumPlanes: 1}
	RGBS     = &Format{Name: "RGBS", ColorFamily: ColorRGB, SampleType: SampleFloat, BitsPerSample: 32, BytesPerSample: 4, NumPlanes: 3}
	RGBH     = &Format{Name: "RGBH", ColorFamily: ColorRGB, SampleType: SampleFloat, BitsPerSample: 16, BytesPerSample: 2, NumPlanes: 3}
	Gray8    = &Format{Name: "Gray8", ColorFamily: ColorGray, SampleType: SampleInteger, BitsPerSample: 8, BytesPerSample: 1, NumPlanes: 1}
	RGB24    = &Format{Name: "RGB24", ColorFamily: ColorRGB, SampleType: SampleInteger, BitsPerSample: 8, BytesPerSample: 1, NumPlanes: 3}
	YUV420P8 = &Format{Name: "YUV420P8", ColorFamily: ColorYUV, SampleType: SampleInteger, BitsPerSample: 8, BytesPerSample: 1, SubSamplingW: 1, SubSamplingH: 1, NumPlanes: 3}
)

var formats = []*Format{GrayS, GrayH, RGBS, RGBH, Gray8, RGB24, YUV420P8}

// FormatFor sucht ein vordefiniertes Format nach Farbfamilie, Sample-Typ und Bittiefe
func FormatFor(family ColorFamily, sampleType SampleType, bits int) (*Format, error) {
	for _, f := range formats {
		if f.ColorFamily == family && f.SampleType == sampleType && f.BitsPerSample == bits && f.SubSamplingW == 0 {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no format for %v with %d bits", family, bits)
}

// FormatByName sucht ein vordefiniertes Format nach Name (z.B. "RGBS")
func FormatByName(name string) (*Format, error) {
	for _, f := range formats {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("unknown format %q", name)
}
