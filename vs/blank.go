package vs

import (
	"context"
	"fmt"
)

// BlankClip liefert Frames mit konstantem Wert in allen Planes
type BlankClip struct {
	Info  VideoInfo
	Value float32
	Pool  *FramePool
}

// NewBlankClip erstellt eine BlankClip mit eigenem Frame-Pool
func NewBlankClip(format *Format, width, height, frames int, value float32) *BlankClip {
	return &BlankClip{
		Info: VideoInfo{
			Format:    format,
			Width:     width,
			Height:    height,
			NumFrames: frames,
			FPSNum:    24,
			FPSDen:    1,
		},
		Value: value,
		Pool:  NewFramePool(),
	}
}

func (b *BlankClip) VideoInfo() VideoInfo {
	return b.Info
}

func (b *BlankClip) GetFrame(ctx context.Context, n int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 0 || (b.Info.NumFrames > 0 && n >= b.Info.NumFrames) {
		return nil, fmt.Errorf("frame %d out of range", n)
	}

	pool := b.Pool
	if pool == nil {
		pool = DefaultPool
	}

	f, err := pool.NewFrame(b.Info.Format, b.Info.Width, b.Info.Height, nil)
	if err != nil {
		return nil, err
	}

	f.Props.Set("_DurationNum", b.Info.FPSDen)
	f.Props.Set("_DurationDen", b.Info.FPSNum)

	bps := f.Format().BytesPerSample
	for p := range f.Format().NumPlanes {
		plane := f.WritePlane(p)
		stride := f.Stride(p) / bps
		for y := range f.Height(p) {
			for x := range f.Width(p) {
				WriteSample(plane, y*stride+x, bps, b.Value)
			}
		}
	}

	return f, nil
}
