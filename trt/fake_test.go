package trt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vsmlrt/vstrt/ml"
	"github.com/vsmlrt/vstrt/vs"
)

// fakeNode zaehlt Freigaben des Upstream-Handles
type fakeNode struct {
	*vs.BlankClip
	freed atomic.Int32
}

func newFakeNode(format *vs.Format, width, height, frames int) *fakeNode {
	return &fakeNode{BlankClip: vs.NewBlankClip(format, width, height, frames, 0.5)}
}

func (n *fakeNode) Free() {
	n.freed.Add(1)
}

type fakeBackend struct {
	name    string
	devices int
	runtime *fakeRuntime

	mu         sync.Mutex
	setDevices []int
}

var fakeBackends atomic.Int32

// newFakeBackend registriert ein Backend mit eindeutigem Namen je Aufruf
func newFakeBackend(t *testing.T, engine *fakeEngine) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		name:    fmt.Sprintf("fake/%s/%d", t.Name(), fakeBackends.Add(1)),
		devices: 1,
		runtime: &fakeRuntime{engine: engine},
	}
	ml.RegisterBackend(b)
	return b
}

func (b *fakeBackend) Name() string {
	return b.name
}

func (b *fakeBackend) Devices() ([]ml.DeviceInfo, error) {
	devices := make([]ml.DeviceInfo, b.devices)
	for i := range devices {
		devices[i] = ml.DeviceInfo{ID: i, Library: "fake"}
	}
	return devices, nil
}

func (b *fakeBackend) SetDevice(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setDevices = append(b.setDevices, id)
	return nil
}

func (b *fakeBackend) NewRuntime(*slog.Logger) (ml.Runtime, error) {
	return b.runtime, nil
}

type fakeRuntime struct {
	engine    *fakeEngine
	loadErr   error
	pluginErr error

	loads  atomic.Int32
	closed atomic.Bool
}

func (r *fakeRuntime) InitPlugins() error {
	return r.pluginErr
}

func (r *fakeRuntime) Load(string) (ml.Engine, error) {
	r.loads.Add(1)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.engine, nil
}

func (r *fakeRuntime) Close() error {
	r.closed.Store(true)
	return nil
}

type fakeEngine struct {
	profiles []ml.Profile
	cin      int
	cout     int
	scaleW   int
	scaleH   int

	// failInstance laesst den n-ten NewInstance-Aufruf (ab 1) fehlschlagen
	failInstance int
	// failCall laesst den n-ten Infer-Aufruf (ab 1) fehlschlagen
	failCall int64
	delay    time.Duration

	built  atomic.Int32
	live   atomic.Int32
	calls  atomic.Int64
	active atomic.Int32
	max    atomic.Int32
	closed atomic.Bool
}

// newFakeEngine hat ein Profil mit festem 64x64 Eingang und Skalierung 2
func newFakeEngine(cin, cout int) *fakeEngine {
	return &fakeEngine{
		profiles: []ml.Profile{{
			Min: ml.Dims{N: 1, C: cin, H: 64, W: 64},
			Opt: ml.Dims{N: 1, C: cin, H: 64, W: 64},
			Max: ml.Dims{N: 1, C: cin, H: 64, W: 64},
		}},
		cin:    cin,
		cout:   cout,
		scaleW: 2,
		scaleH: 2,
	}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Profiles() []ml.Profile { return e.profiles }

func (e *fakeEngine) BindingDims(binding int) ml.Dims {
	if binding == ml.BindingInput {
		return ml.Dims{N: 1, C: e.cin, H: -1, W: -1}
	}
	return ml.Dims{N: 1, C: e.cout, H: -1, W: -1}
}

func (e *fakeEngine) NewInstance(_ int, size ml.Size, _ bool) (ml.Instance, error) {
	if n := e.built.Add(1); int(n) == e.failInstance {
		return nil, errors.New("out of device memory")
	}
	e.live.Add(1)

	return &fakeInstance{
		engine: e,
		in:     ml.Dims{N: 1, C: e.cin, H: size.Height, W: size.Width},
		out:    ml.Dims{N: 1, C: e.cout, H: size.Height * e.scaleH, W: size.Width * e.scaleW},
	}, nil
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

type fakeInstance struct {
	engine  *fakeEngine
	in, out ml.Dims
	busy    atomic.Bool
	closed  bool
}

func (i *fakeInstance) BindingDims(binding int) ml.Dims {
	if binding == ml.BindingInput {
		return i.in
	}
	return i.out
}

func (i *fakeInstance) Infer(_ int, _ bool, g ml.Geometry, _ [][]byte, dst [][]byte) error {
	e := i.engine

	if !i.busy.CompareAndSwap(false, true) {
		panic("fake instance used concurrently")
	}
	defer i.busy.Store(false)

	active := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		m := e.max.Load()
		if active <= m || e.max.CompareAndSwap(m, active) {
			break
		}
	}

	time.Sleep(e.delay)

	if n := e.calls.Add(1); n == e.failCall {
		return errors.New("cuda error: illegal address")
	}

	for _, plane := range dst {
		vs.WriteSample(plane, 0, g.Out.BytesPerSample, 1)
	}
	return nil
}

func (i *fakeInstance) Close() error {
	if !i.closed {
		i.closed = true
		i.engine.live.Add(-1)
	}
	return nil
}

// newArgs baut eine Argument-Map mit clips, engine_path und backend
func newArgs(b *fakeBackend, clips ...vs.Node) *vs.Map {
	m := vs.NewMap()
	for _, c := range clips {
		m.SetNode("clips", c)
	}
	m.SetData("engine_path", "model.engine")
	m.SetData("backend", b.name)
	return m
}
