// config.go - Erzeugung von Referenz-Engines
// Enthaelt: Config (Beschreibung einer Engine) und WritePlan, das die
// Plan-Datei mit Metadaten und Gewichten schreibt.
package ref

import (
	"errors"
	"fmt"
	"os"

	"github.com/vsmlrt/vstrt/fs/plan"
	"github.com/vsmlrt/vstrt/ml"
)

// Config beschreibt eine Referenz-Engine
type Config struct {
	Name        string
	ChannelsIn  int
	ChannelsOut int
	ScaleW      int
	ScaleH      int
	SampleBits  int
	Filter      ml.SamplingMode

	// Profiles mit H/W je Profil, N und C werden ignoriert
	Profiles []ml.Profile

	// Kernel ist zeilenweise cout x cin, nil bedeutet Identitaet (bzw. Mittelwert bei cout=1)
	Kernel     []float32
	Bias       []float32
	KernelKind plan.TensorKind

	// FailAfter laesst Infer nach so vielen Aufrufen fehlschlagen, 0 deaktiviert
	FailAfter int
}

func (c Config) kernel() []float32 {
	if c.Kernel != nil {
		return c.Kernel
	}

	k := make([]float32, c.ChannelsOut*c.ChannelsIn)
	for o := range c.ChannelsOut {
		if c.ChannelsOut == c.ChannelsIn {
			k[o*c.ChannelsIn+o] = 1
			continue
		}
		for i := range c.ChannelsIn {
			k[o*c.ChannelsIn+i] = 1 / float32(c.ChannelsIn)
		}
	}
	return k
}

// KV gibt die Metadaten der Plan-Datei zurueck
func (c Config) KV() map[string]any {
	kv := map[string]any{
		"general.architecture":  Architecture,
		"general.name":          c.Name,
		"upscale.channels_in":   uint32(c.ChannelsIn),
		"upscale.channels_out":  uint32(c.ChannelsOut),
		"upscale.scale_w":       uint32(c.ScaleW),
		"upscale.scale_h":       uint32(c.ScaleH),
		"upscale.sample_bits":   uint32(c.SampleBits),
		"upscale.filter":        filterName(c.Filter),
		"upscale.profile_count": uint32(len(c.Profiles)),
	}

	if c.FailAfter > 0 {
		kv["upscale.fail_after"] = uint32(c.FailAfter)
	}

	for i, p := range c.Profiles {
		kv[fmt.Sprintf("upscale.profile.%d.min", i)] = []int32{int32(p.Min.H), int32(p.Min.W)}
		kv[fmt.Sprintf("upscale.profile.%d.opt", i)] = []int32{int32(p.Opt.H), int32(p.Opt.W)}
		kv[fmt.Sprintf("upscale.profile.%d.max", i)] = []int32{int32(p.Max.H), int32(p.Max.W)}
	}

	return kv
}

// WritePlan schreibt die Engine nach path
func WritePlan(path string, c Config) error {
	if len(c.Profiles) == 0 {
		return errors.New("at least one profile is required")
	}

	tensors := []plan.Tensor{
		{Name: "kernel", Shape: []uint64{uint64(c.ChannelsOut), uint64(c.ChannelsIn)}, Kind: c.KernelKind, Values: c.kernel()},
	}
	if c.Bias != nil {
		tensors = append(tensors, plan.Tensor{Name: "bias", Shape: []uint64{uint64(c.ChannelsOut)}, Kind: plan.KindF32, Values: c.Bias})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := plan.Write(f, c.KV(), tensors); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
