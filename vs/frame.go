// MODUL: frame
// ZWECK: Planare Frame-Puffer mit Properties und Pool-Verwaltung
// INPUT: Format, Breite, Hoehe, optional Property-Quelle
// OUTPUT: *Frame mit les-/schreibbaren Planes
// NEBENEFFEKTE: Puffer werden ueber FramePool wiederverwendet
// ABHAENGIGKEITEN: github.com/wk8/go-ordered-map/v2
// HINWEISE: Free ist idempotent, ein freigegebener Frame darf nicht mehr gelesen werden

package vs

import (
	"fmt"
	"sync"
	"sync/atomic"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// strideAlignment ist das Alignment jeder Plane-Zeile in Bytes
const strideAlignment = 64

// Frame ist ein planarer Video-Frame
type Frame struct {
	format  *Format
	width   int
	height  int
	planes  [][]byte
	strides []int

	// Props sind Frame-Properties (z.B. _DurationNum), in Einfuege-Reihenfolge
	Props *orderedmap.OrderedMap[string, any]

	pool  *FramePool
	freed atomic.Bool
}

// Format gibt das Pixel-Format zurueck
func (f *Frame) Format() *Format {
	return f.format
}

// Width gibt die Breite der Plane zurueck (mit Subsampling)
func (f *Frame) Width(plane int) int {
	if plane > 0 {
		return f.width >> f.format.SubSamplingW
	}
	return f.width
}

// Height gibt die Hoehe der Plane zurueck (mit Subsampling)
func (f *Frame) Height(plane int) int {
	if plane > 0 {
		return f.height >> f.format.SubSamplingH
	}
	return f.height
}

// Stride gibt den Zeilenabstand der Plane in Bytes zurueck
func (f *Frame) Stride(plane int) int {
	return f.strides[plane]
}

// ReadPlane gibt die Plane-Daten zum Lesen zurueck
func (f *Frame) ReadPlane(plane int) []byte {
	return f.planes[plane]
}

// WritePlane gibt die Plane-Daten zum Schreiben zurueck
func (f *Frame) WritePlane(plane int) []byte {
	return f.planes[plane]
}

// Free gibt die Puffer an den Pool zurueck
func (f *Frame) Free() {
	if f == nil || !f.freed.CompareAndSwap(false, true) {
		return
	}

	if f.pool != nil {
		f.pool.put(f.planes)
	}
	f.planes = nil
}

// FramePool verwaltet wiederverwendbare Plane-Puffer nach Groesse.
// Die Statistik zaehlt ausgegebene und noch nicht freigegebene Frames.
type FramePool struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool

	allocated   atomic.Int64
	outstanding atomic.Int64
}

// NewFramePool erstellt einen leeren Pool
func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[int]*sync.Pool)}
}

// DefaultPool wird von NewVideoFrame ohne Property-Quelle verwendet
var DefaultPool = NewFramePool()

// NewFrame erstellt einen Frame aus dem Pool. Properties werden von propSrc kopiert.
func (p *FramePool) NewFrame(format *Format, width, height int, propSrc *Frame) (*Frame, error) {
	if format == nil {
		return nil, fmt.Errorf("frame format must be constant")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	f := &Frame{
		format:  format,
		width:   width,
		height:  height,
		planes:  make([][]byte, format.NumPlanes),
		strides: make([]int, format.NumPlanes),
		Props:   orderedmap.New[string, any](),
		pool:    p,
	}

	for i := range format.NumPlanes {
		rowBytes := f.Width(i) * format.BytesPerSample
		stride := (rowBytes + strideAlignment - 1) / strideAlignment * strideAlignment
		f.strides[i] = stride
		f.planes[i] = p.get(stride * f.Height(i))
	}

	if propSrc != nil && propSrc.Props != nil {
		for pair := propSrc.Props.Oldest(); pair != nil; pair = pair.Next() {
			f.Props.Set(pair.Key, pair.Value)
		}
	}

	p.outstanding.Add(1)
	return f, nil
}

// Outstanding gibt die Anzahl ausgegebener, nicht freigegebener Frames zurueck
func (p *FramePool) Outstanding() int64 {
	return p.outstanding.Load()
}

// Allocated gibt die Anzahl neu allokierter Plane-Puffer zurueck
func (p *FramePool) Allocated() int64 {
	return p.allocated.Load()
}

func (p *FramePool) sizePool(size int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sp, ok := p.pools[size]
	if !ok {
		sp = &sync.Pool{}
		p.pools[size] = sp
	}
	return sp
}

func (p *FramePool) get(size int) []byte {
	if b, ok := p.sizePool(size).Get().([]byte); ok {
		clear(b)
		return b
	}

	p.allocated.Add(1)
	return make([]byte, size)
}

func (p *FramePool) put(planes [][]byte) {
	for _, b := range planes {
		p.sizePool(len(b)).Put(b) //nolint:staticcheck
	}
	p.outstanding.Add(-1)
}

// NewVideoFrame erstellt einen Frame im Pool von propSrc (oder DefaultPool)
// und kopiert dessen Properties.
func NewVideoFrame(format *Format, width, height int, propSrc *Frame) (*Frame, error) {
	pool := DefaultPool
	if propSrc != nil && propSrc.pool != nil {
		pool = propSrc.pool
	}
	return pool.NewFrame(format, width, height, propSrc)
}
