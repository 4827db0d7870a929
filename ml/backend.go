// backend.go - Backend-Interface und Registrierung fuer Inferenz-Engines
// Dieses Modul definiert die Vertraege zwischen Filter und Engine:
// Backend (Geraete + Runtime), Runtime (Engine laden), Engine (Profile,
// Instanzen bauen) und Instance (gebundener Ausfuehrungskontext).
package ml

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Binding-Indizes einer Engine: genau ein Eingang und ein Ausgang
const (
	BindingInput  = 0
	BindingOutput = 1
)

// ErrUnknownBackend wird zurueckgegeben wenn kein Backend unter dem Namen registriert ist
var ErrUnknownBackend = errors.New("unknown backend")

// Backend stellt Geraete und Runtimes fuer ein Compute-Backend bereit.
type Backend interface {
	Name() string

	// Devices listet die sichtbaren Geraete in Index-Reihenfolge
	Devices() ([]DeviceInfo, error)

	// SetDevice setzt das prozessweit aktive Geraet
	SetDevice(id int) error

	// NewRuntime erstellt eine Runtime, die Diagnose-Meldungen an logger schreibt
	NewRuntime(logger *slog.Logger) (Runtime, error)
}

// Runtime deserialisiert kompilierte Engines.
type Runtime interface {
	// Load laedt eine serialisierte Engine. Fehlermeldungen des Loaders
	// werden unveraendert zurueckgegeben.
	Load(path string) (Engine, error)

	Close() error
}

// PluginLoader wird von Runtimes implementiert, die optionale Plugins laden koennen.
// Ein Fehler ist nicht fatal.
type PluginLoader interface {
	InitPlugins() error
}

// Engine ist eine geladene, kompilierte Engine.
type Engine interface {
	Name() string

	// Profiles gibt die deklarierten Eingabe-Profile zurueck
	Profiles() []Profile

	// BindingDims gibt die statisch deklarierten Dimensionen zurueck,
	// dynamische Achsen sind -1
	BindingDims(binding int) Dims

	// NewInstance baut einen Ausfuehrungskontext, gebunden an profile und size
	NewInstance(profile int, size Size, useGraph bool) (Instance, error)

	Close() error
}

// Instance ist ein zustandsbehafteter, an ein Profil gebundener Ausfuehrungskontext.
// Eine Instance wird nie von zwei Aufrufern gleichzeitig benutzt.
type Instance interface {
	// BindingDims gibt die konkret gebundenen Dimensionen zurueck
	BindingDims(binding int) Dims

	// Infer verarbeitet einen ganzen Frame kachelweise und schreibt dst in-place
	Infer(deviceID int, useGraph bool, geometry Geometry, src [][]byte, dst [][]byte) error

	Close() error
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// RegisterBackend registriert ein Backend unter seinem Namen.
func RegisterBackend(b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if _, ok := backends[b.Name()]; ok {
		panic("backend: backend already registered: " + b.Name())
	}

	backends[b.Name()] = b
}

// GetBackend gibt das Backend mit dem Namen name zurueck.
func GetBackend(name string) (Backend, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	if b, ok := backends[name]; ok {
		return b, nil
	}

	return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownBackend, name, backendNames())
}

// Backends gibt die sortierten Namen aller registrierten Backends zurueck.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	return backendNames()
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
