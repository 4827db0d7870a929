// MODUL: image
// ZWECK: Bildsequenzen als Frame-Quelle und PNG-Ausgabe von Frames
// INPUT: Dateipfade (PNG, JPEG, WebP), Ziel-Format
// OUTPUT: ImageSequence (Node), EncodePNG
// NEBENEFFEKTE: Dateisystem-Lesezugriff bei GetFrame
// ABHAENGIGKEITEN: golang.org/x/image/draw (extern), image/jpeg, image/png
// HINWEISE: Float-Formate werden auf [0,1] normalisiert, WebP benoetigt x/image/webp

package vs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	// Standard-Decoder registrieren
	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNoImages wird geliefert wenn eine Sequenz keine Dateien hat
var ErrNoImages = errors.New("image sequence is empty")

// ImageSequence liefert Frame n aus der n-ten Bilddatei
type ImageSequence struct {
	paths []string
	info  VideoInfo
	pool  *FramePool
}

// NewImageSequence prueft alle Dateien auf gleiche Groesse und erstellt die Quelle.
// format muss RGB oder Gray ohne Subsampling sein.
func NewImageSequence(paths []string, format *Format) (*ImageSequence, error) {
	if len(paths) == 0 {
		return nil, ErrNoImages
	}
	if format == nil || format.ColorFamily == ColorYUV {
		return nil, fmt.Errorf("unsupported image sequence format %s", format)
	}

	var width, height int
	for i, path := range paths {
		cfg, err := decodeConfig(path)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			width, height = cfg.Width, cfg.Height
		} else if cfg.Width != width || cfg.Height != height {
			return nil, fmt.Errorf("%s: size %dx%d differs from %dx%d", path, cfg.Width, cfg.Height, width, height)
		}
	}

	return &ImageSequence{
		paths: paths,
		info: VideoInfo{
			Format:    format,
			Width:     width,
			Height:    height,
			NumFrames: len(paths),
			FPSNum:    24,
			FPSDen:    1,
		},
		pool: NewFramePool(),
	}, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("datei lesen fehlgeschlagen: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (s *ImageSequence) VideoInfo() VideoInfo {
	return s.info
}

// Pool gibt den Frame-Pool der Sequenz zurueck
func (s *ImageSequence) Pool() *FramePool {
	return s.pool
}

func (s *ImageSequence) GetFrame(ctx context.Context, n int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 0 || n >= len(s.paths) {
		return nil, fmt.Errorf("frame %d out of range", n)
	}

	rgba, err := loadRGBA(s.paths[n])
	if err != nil {
		return nil, err
	}

	f, err := s.pool.NewFrame(s.info.Format, s.info.Width, s.info.Height, nil)
	if err != nil {
		return nil, err
	}
	f.Props.Set("_DurationNum", s.info.FPSDen)
	f.Props.Set("_DurationDen", s.info.FPSNum)
	f.Props.Set("Name", s.paths[n])

	FromImage(f, rgba)
	return f, nil
}

func loadRGBA(path string) (*image.RGBA, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datei lesen fehlgeschlagen: %w", err)
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("bild dekodieren fehlgeschlagen: %w", err)
	}
	return toRGBA(img), nil
}

// toRGBA konvertiert ein beliebiges image.Image zu *image.RGBA
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// rangeOf gibt den Teiler von 8-Bit auf den Sample-Wertebereich zurueck
func rangeOf(format *Format) float32 {
	if format.SampleType == SampleFloat {
		return 255
	}
	return 1
}

// FromImage schreibt img in die Planes von f (Gray ueber Luma)
func FromImage(f *Frame, img *image.RGBA) {
	format := f.Format()
	bps := format.BytesPerSample
	div := rangeOf(format)

	for y := range f.Height(0) {
		for x := range f.Width(0) {
			c := img.RGBAAt(x, y)
			if format.ColorFamily == ColorGray {
				g := color.GrayModel.Convert(c).(color.Gray)
				WriteSample(f.WritePlane(0), y*f.Stride(0)/bps+x, bps, float32(g.Y)/div)
				continue
			}

			for p, v := range [3]uint8{c.R, c.G, c.B} {
				WriteSample(f.WritePlane(p), y*f.Stride(p)/bps+x, bps, float32(v)/div)
			}
		}
	}
}

// ToImage konvertiert einen Gray- oder RGB-Frame in ein 8-Bit Bild
func ToImage(f *Frame) (image.Image, error) {
	format := f.Format()
	if format.ColorFamily == ColorYUV {
		return nil, fmt.Errorf("cannot convert %s frame to image", format)
	}

	bps := format.BytesPerSample
	scale := rangeOf(format)
	w, h := f.Width(0), f.Height(0)

	sample := func(p, x, y int) uint8 {
		v := ReadSample(f.ReadPlane(p), y*f.Stride(p)/bps+x, bps) * scale
		return uint8(min(max(v+0.5, 0), 255))
	}

	if format.ColorFamily == ColorGray {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := range h {
			for x := range w {
				img.SetGray(x, y, color.Gray{Y: sample(0, x, y)})
			}
		}
		return img, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: sample(0, x, y), G: sample(1, x, y), B: sample(2, x, y), A: 255})
		}
	}
	return img, nil
}

// EncodePNG schreibt einen Frame als PNG
func EncodePNG(w io.Writer, f *Frame) error {
	img, err := ToImage(f)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
