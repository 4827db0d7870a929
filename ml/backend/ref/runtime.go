// runtime.go - Runtime des Referenz-Backends
// Enthaelt: Runtime.Load (Plan-Datei lesen und validieren), InitPlugins.
package ref

import (
	"fmt"
	"log/slog"

	"github.com/vsmlrt/vstrt/fs/plan"
	"github.com/vsmlrt/vstrt/ml"
)

// Runtime laedt Referenz-Engines aus Plan-Dateien
type Runtime struct {
	logger *slog.Logger
}

// InitPlugins meldet die eingebauten Layer. Das Referenz-Backend hat keine externen Plugins.
func (r *Runtime) InitPlugins() error {
	r.logger.Debug("plugins initialized", "layers", []string{"conv1x1", "upsample"})
	return nil
}

// Load oeffnet die Plan-Datei unter path und baut die Engine
func (r *Runtime) Load(path string) (ml.Engine, error) {
	f, err := plan.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	e, err := newEngine(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	e.logger = r.logger

	r.logger.Info("engine loaded",
		"name", e.name,
		"channels", fmt.Sprintf("%d->%d", e.cin, e.cout),
		"scale", fmt.Sprintf("%dx%d", e.scaleW, e.scaleH),
		"bits", e.bits,
		"filter", e.filter,
		"profiles", len(e.profiles),
	)

	return e, nil
}

func (r *Runtime) Close() error {
	return nil
}
