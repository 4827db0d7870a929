// filter.go - Der Inferenz-Filter
//
// Create baut den Filter in fester Reihenfolge auf (Optionen, Geraet,
// Runtime, Engine, Profil, Instanzen, Pool, Ausgabe-Format). Jeder Fehler
// bricht ab und gibt alles bereits Erworbene frei. GetFrame fordert die
// Quell-Frames an, leiht eine Instanz aus und fuehrt die Inferenz aus.
package trt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vsmlrt/vstrt/logutil"
	"github.com/vsmlrt/vstrt/ml"
	"github.com/vsmlrt/vstrt/vs"
)

// errFreed wird von GetFrame nach Free geliefert
var errFreed = errors.New("filter already freed")

// Filter implementiert vs.Node und kann daher verkettet werden
type Filter struct {
	opts *Options
	vi   vs.VideoInfo

	backend ml.Backend
	runtime ml.Runtime
	engine  ml.Engine

	// pool wird nur in Create gesetzt, release schliesst lediglich die Instanzen
	pool *instancePool

	logger *slog.Logger

	inFlight atomic.Int64
	peak     atomic.Int64
	frames   atomic.Int64
	errors   atomic.Int64

	freed    atomic.Bool
	freeOnce sync.Once
}

// Create baut einen Filter aus den Argumenten in in. Bei einem Fehler sind
// alle Clips aus in freigegeben und keine Instanz bleibt bestehen.
func Create(ctx context.Context, in *vs.Map) (_ *Filter, err error) {
	clips, _ := in.Nodes("clips")

	f := &Filter{}
	defer func() {
		if err != nil {
			slog.Debug("filter setup failed", "error", err)
			f.release(clips)
		}
	}()

	f.opts, err = ParseOptions(in)
	if err != nil {
		return nil, err
	}
	opts := f.opts

	f.backend, err = ml.GetBackend(opts.Backend)
	if err != nil {
		return nil, configError("%v", err)
	}

	devices, err := f.backend.Devices()
	if err != nil {
		return nil, resourceError(err)
	}
	if err := ml.ValidDevice(devices, opts.DeviceID); err != nil {
		return nil, configError("%v", err)
	}
	if err := f.backend.SetDevice(opts.DeviceID); err != nil {
		return nil, resourceError(err)
	}

	f.logger = logutil.WithLevel(slog.Default(), logutil.SeverityLevel(opts.Verbosity))

	f.runtime, err = f.backend.NewRuntime(f.logger)
	if err != nil {
		return nil, resourceError(err)
	}

	if pl, ok := f.runtime.(ml.PluginLoader); ok {
		if err := pl.InitPlugins(); err != nil {
			slog.Warn("initialize plugins failed", "backend", opts.Backend, "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, resourceError(err)
	}

	f.engine, err = f.runtime.Load(opts.Engine)
	if err != nil {
		return nil, resourceError(err)
	}

	profile, err := selectProfile(f.engine.Profiles(), opts.Block)
	if err != nil {
		return nil, resourceError(err)
	}

	instances := make([]ml.Instance, 0, opts.NumStreams)
	for range opts.NumStreams {
		inst, err := f.engine.NewInstance(profile, opts.Block.Size(), opts.UseCudaGraph)
		if err != nil {
			closeInstances(instances)
			return nil, resourceError(err)
		}
		instances = append(instances, inst)
	}
	f.pool = newInstancePool(instances)

	planes := 0
	for _, clip := range opts.Clips {
		planes += clip.VideoInfo().Format.NumPlanes
	}
	if c := instances[0].BindingDims(ml.BindingInput).C; c != planes {
		return nil, configError("engine expects %d input planes, clips provide %d", c, planes)
	}

	f.vi, err = outputInfo(opts.Clips[0].VideoInfo(), instances[0])
	if err != nil {
		return nil, resourceError(err)
	}

	slog.Info("filter created", "options", opts, "profile", profile, "output", f.vi)
	return f, nil
}

func closeInstances(instances []ml.Instance) {
	for _, inst := range instances {
		if err := inst.Close(); err != nil {
			slog.Debug("close instance", "error", err)
		}
	}
}

// release gibt Clips, Instanzen, Engine und Runtime frei und setzt das Geraet erneut
func (f *Filter) release(clips []vs.Node) {
	for _, clip := range clips {
		vs.FreeNode(clip)
	}

	if f.pool != nil {
		closeInstances(f.pool.instances)
	}

	if f.engine != nil {
		if err := f.engine.Close(); err != nil {
			slog.Debug("close engine", "error", err)
		}
		f.engine = nil
	}

	if f.runtime != nil {
		if err := f.runtime.Close(); err != nil {
			slog.Debug("close runtime", "error", err)
		}
		f.runtime = nil
	}

	if f.backend != nil && f.opts != nil {
		if err := f.backend.SetDevice(f.opts.DeviceID); err != nil {
			slog.Debug("reset device", "device", f.opts.DeviceID, "error", err)
		}
	}
}

// VideoInfo gibt das Ausgabe-Format zurueck
func (f *Filter) VideoInfo() vs.VideoInfo {
	return f.vi
}

// Options gibt die aufgeloesten Optionen zurueck
func (f *Filter) Options() *Options {
	return f.opts
}

// GetFrame erzeugt Ausgabe-Frame n. Der Aufrufer besitzt den Frame.
func (f *Filter) GetFrame(ctx context.Context, n int) (*vs.Frame, error) {
	if f.freed.Load() {
		f.errors.Add(1)
		return nil, inferenceError(errFreed)
	}
	if n < 0 || (f.vi.NumFrames > 0 && n >= f.vi.NumFrames) {
		f.errors.Add(1)
		return nil, inferenceError(fmt.Errorf("frame %d out of range [0, %d)", n, f.vi.NumFrames))
	}

	src, err := vs.RequestFrames(ctx, f.opts.Clips, n)
	if err != nil {
		f.errors.Add(1)
		return nil, inferenceError(err)
	}

	dst, err := vs.NewVideoFrame(f.vi.Format, f.vi.Width, f.vi.Height, src[0])
	if err != nil {
		freeFrames(src)
		f.errors.Add(1)
		return nil, inferenceError(err)
	}

	err = f.infer(src, dst)
	freeFrames(src)

	if err != nil {
		dst.Free()
		f.errors.Add(1)
		return nil, inferenceError(err)
	}

	f.frames.Add(1)
	return dst, nil
}

// infer haelt eine Instanz nur fuer die Dauer des Aufrufs
func (f *Filter) infer(src []*vs.Frame, dst *vs.Frame) error {
	var srcPlanes [][]byte
	for _, frame := range src {
		for p := range frame.Format().NumPlanes {
			srcPlanes = append(srcPlanes, frame.ReadPlane(p))
		}
	}

	dstPlanes := make([][]byte, dst.Format().NumPlanes)
	for p := range dstPlanes {
		dstPlanes[p] = dst.WritePlane(p)
	}

	idx, inst := f.pool.acquire()
	defer f.pool.release(idx)

	active := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if active <= peak || f.peak.CompareAndSwap(peak, active) {
			break
		}
	}

	g := resolveGeometry(inst, src[0], dst, f.opts.Pad)
	logutil.Trace("infer", "instance", idx, "geometry", g)

	return inst.Infer(f.opts.DeviceID, f.opts.UseCudaGraph, g, srcPlanes, dstPlanes)
}

func freeFrames(frames []*vs.Frame) {
	for _, frame := range frames {
		frame.Free()
	}
}

// Free gibt alle Ressourcen frei. Mehrfache Aufrufe sind erlaubt.
// Laufende GetFrame-Aufrufe muessen vorher beendet sein.
func (f *Filter) Free() {
	f.freeOnce.Do(func() {
		f.freed.Store(true)
		f.release(f.opts.Clips)
	})
}

// Stats ist ein Schnappschuss der Pool-Auslastung
type Stats struct {
	NumStreams   int   `json:"num_streams"`
	FreeSlots    int   `json:"free_slots"`
	Waiting      int   `json:"waiting"`
	InFlight     int64 `json:"in_flight"`
	PeakInFlight int64 `json:"peak_in_flight"`
	Frames       int64 `json:"frames"`
	Errors       int64 `json:"errors"`
}

// Stats liest die Zaehler ohne den Pool zu blockieren (bis auf die Free-List)
func (f *Filter) Stats() Stats {
	s := Stats{
		InFlight:     f.inFlight.Load(),
		PeakInFlight: f.peak.Load(),
		Frames:       f.frames.Load(),
		Errors:       f.errors.Load(),
	}

	if f.pool != nil {
		s.NumStreams = f.pool.size()
		s.FreeSlots = len(f.pool.available())
		s.Waiting = f.pool.sem.Waiting()
	}
	return s
}
