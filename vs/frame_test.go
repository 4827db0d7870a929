package vs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewFrameStride(t *testing.T) {
	pool := NewFramePool()

	cases := []struct {
		format *Format
		width  int
		stride []int
	}{
		{GrayS, 10, []int{64}},
		{RGBH, 40, []int{128, 128, 128}},
		{YUV420P8, 130, []int{192, 128, 128}},
	}

	for _, tt := range cases {
		t.Run(tt.format.Name, func(t *testing.T) {
			f, err := pool.NewFrame(tt.format, tt.width, 8, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Free()

			var got []int
			for p := range tt.format.NumPlanes {
				got = append(got, f.Stride(p))
				if len(f.ReadPlane(p)) != f.Stride(p)*f.Height(p) {
					t.Errorf("plane %d: laenge %d, erwartet %d", p, len(f.ReadPlane(p)), f.Stride(p)*f.Height(p))
				}
			}

			if diff := cmp.Diff(tt.stride, got); diff != "" {
				t.Errorf("stride mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewFrameInvalid(t *testing.T) {
	pool := NewFramePool()

	if _, err := pool.NewFrame(nil, 8, 8, nil); err == nil {
		t.Error("erwartet Fehler bei variablem Format")
	}
	if _, err := pool.NewFrame(GrayS, 0, 8, nil); err == nil {
		t.Error("erwartet Fehler bei Breite 0")
	}
	if pool.Outstanding() != 0 {
		t.Errorf("outstanding = %d, erwartet 0", pool.Outstanding())
	}
}

func TestFrameFreeIdempotent(t *testing.T) {
	pool := NewFramePool()

	f, err := pool.NewFrame(GrayS, 4, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Outstanding() != 1 {
		t.Fatalf("outstanding = %d, erwartet 1", pool.Outstanding())
	}

	f.Free()
	f.Free()

	if pool.Outstanding() != 0 {
		t.Errorf("outstanding = %d, erwartet 0", pool.Outstanding())
	}

	var nilFrame *Frame
	nilFrame.Free()
}

func TestNewVideoFrameCopiesProps(t *testing.T) {
	pool := NewFramePool()

	src, err := pool.NewFrame(GrayS, 4, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Free()
	src.Props.Set("_DurationNum", int64(1))
	src.Props.Set("Name", "a.png")

	dst, err := NewVideoFrame(RGBS, 8, 8, src)
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Free()

	if pool.Outstanding() != 2 {
		t.Errorf("outstanding = %d, erwartet 2 (gleicher Pool wie Quelle)", pool.Outstanding())
	}

	var keys []string
	for pair := dst.Props.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if diff := cmp.Diff([]string{"_DurationNum", "Name"}, keys); diff != "" {
		t.Errorf("props mismatch (-want +got):\n%s", diff)
	}

	if dst.Width(0) != 8 || dst.Format() != RGBS {
		t.Errorf("frame = %dx%s, erwartet 8xRGBS", dst.Width(0), dst.Format())
	}
}

type failingNode struct {
	info VideoInfo
}

func (n failingNode) VideoInfo() VideoInfo { return n.info }

func (n failingNode) GetFrame(context.Context, int) (*Frame, error) {
	return nil, errors.New("boom")
}

func TestRequestFrames(t *testing.T) {
	a := NewBlankClip(GrayS, 8, 8, 2, 0.25)
	b := NewBlankClip(RGBS, 8, 8, 1, 0.5)

	frames, err := RequestFrames(t.Context(), []Node{a, b}, 1)
	if err != nil {
		t.Fatal(err)
	}

	if len(frames) != 2 || frames[0].Format() != GrayS || frames[1].Format() != RGBS {
		t.Fatalf("frames in falscher Reihenfolge")
	}

	if got := ReadSample(frames[1].ReadPlane(2), 0, 4); got != 0.5 {
		t.Errorf("sample = %v, erwartet 0.5", got)
	}

	for _, f := range frames {
		f.Free()
	}
	if a.Pool.Outstanding() != 0 || b.Pool.Outstanding() != 0 {
		t.Errorf("frames nicht freigegeben")
	}
}

func TestRequestFramesFreesOnError(t *testing.T) {
	a := NewBlankClip(GrayS, 8, 8, 1, 1)

	_, err := RequestFrames(t.Context(), []Node{a, failingNode{a.Info}}, 0)
	if err == nil || err.Error() != "clip 1: boom" {
		t.Fatalf("err = %v, erwartet clip 1: boom", err)
	}

	if a.Pool.Outstanding() != 0 {
		t.Errorf("outstanding = %d, erwartet 0", a.Pool.Outstanding())
	}
}
