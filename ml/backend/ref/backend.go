// backend.go - Referenz-Backend auf der CPU
// Enthaelt: Backend (Geraete, aktives Geraet, Runtime-Erzeugung) und die
// Registrierung unter dem Namen "ref". Jedes simulierte Geraet ist die CPU.
package ref

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/ml"
)

// Name ist der Registrierungsname des Referenz-Backends
const Name = "ref"

// ErrDevice wird bei ungueltigen Geraete-Indizes geliefert
var ErrDevice = errors.New("invalid device")

func init() {
	ml.RegisterBackend(&Backend{})
}

// Backend simuliert VSTRT_REF_DEVICES Geraete auf der CPU
type Backend struct {
	// NumDevices ueberschreibt VSTRT_REF_DEVICES wenn > 0
	NumDevices int

	active atomic.Int64
}

func (b *Backend) Name() string {
	return Name
}

func (b *Backend) numDevices() int {
	if b.NumDevices > 0 {
		return b.NumDevices
	}
	return max(int(envconfig.RefDevices()), 1)
}

func (b *Backend) Devices() ([]ml.DeviceInfo, error) {
	devices := make([]ml.DeviceInfo, b.numDevices())
	for i := range devices {
		devices[i] = ml.DeviceInfo{
			ID:           i,
			Library:      Name,
			Name:         fmt.Sprintf("CPU%d", i),
			Description:  cpuDescription(),
			ComputeMajor: -1,
			ComputeMinor: -1,
		}
	}
	return devices, nil
}

// SetDevice setzt das aktive Geraet
func (b *Backend) SetDevice(id int) error {
	if id < 0 || id >= b.numDevices() {
		return fmt.Errorf("%w: %d", ErrDevice, id)
	}
	b.active.Store(int64(id))
	return nil
}

// ActiveDevice gibt das zuletzt gesetzte Geraet zurueck
func (b *Backend) ActiveDevice() int {
	return int(b.active.Load())
}

func (b *Backend) NewRuntime(logger *slog.Logger) (ml.Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{logger: logger.With("backend", Name)}, nil
}

// cpuDescription listet die erkannten SIMD-Erweiterungen
func cpuDescription() string {
	var features []string
	switch {
	case cpu.X86.HasAVX512F:
		features = append(features, "avx512f")
	case cpu.X86.HasAVX2:
		features = append(features, "avx2")
	case cpu.X86.HasAVX:
		features = append(features, "avx")
	}
	if cpu.X86.HasFMA {
		features = append(features, "fma")
	}
	if cpu.ARM64.HasASIMD {
		features = append(features, "asimd")
	}

	if len(features) == 0 {
		return "cpu"
	}
	return "cpu (" + strings.Join(features, ", ") + ")"
}
