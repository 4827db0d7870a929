package trt

import "github.com/vsmlrt/vstrt/ml"

// BlockSize ist entweder RequestedBlock oder FrameBlock
type BlockSize interface {
	Size() ml.Size
	blockSize()
}

// RequestedBlock ist eine explizit angeforderte Kachelgroesse (block_w/block_h)
type RequestedBlock struct {
	Width, Height int
}

func (b RequestedBlock) Size() ml.Size {
	return ml.Size{Width: b.Width, Height: b.Height}
}

func (RequestedBlock) blockSize() {}

// FrameBlock verarbeitet den ganzen Frame als eine Kachel
type FrameBlock struct {
	Width, Height int
}

func (b FrameBlock) Size() ml.Size {
	return ml.Size{Width: b.Width, Height: b.Height}
}

func (FrameBlock) blockSize() {}

func describeBlock(b BlockSize) string {
	switch b := b.(type) {
	case RequestedBlock:
		return "block size " + b.Size().String()
	case FrameBlock:
		return "frame size " + b.Size().String()
	default:
		panic("trt: unknown block size")
	}
}
