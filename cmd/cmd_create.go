// cmd_create.go - Create Command: Referenz-Engine schreiben
// Hauptfunktionen: newCreateCmd, CreateHandler, parseHW, parseKernelKind
package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vsmlrt/vstrt/fs/plan"
	"github.com/vsmlrt/vstrt/ml"
	"github.com/vsmlrt/vstrt/ml/backend/ref"
)

// newCreateCmd - Erstellt den create Command
func newCreateCmd() *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create OUTPUT",
		Short: "Write a reference engine plan",
		Args:  cobra.ExactArgs(1),
		RunE:  CreateHandler,
	}

	createCmd.Flags().String("name", "", "Engine name (default: file name)")
	createCmd.Flags().Int("scale", 2, "Upscaling factor for both axes")
	createCmd.Flags().Int("scale-w", 0, "Horizontal upscaling factor (overrides --scale)")
	createCmd.Flags().Int("scale-h", 0, "Vertical upscaling factor (overrides --scale)")
	createCmd.Flags().Int("channels", 3, "Number of input channels")
	createCmd.Flags().Int("channels-out", 0, "Number of output channels (default: --channels)")
	createCmd.Flags().String("min", "1x1", "Minimum input size of the profile (HxW)")
	createCmd.Flags().String("opt", "64x64", "Optimal input size of the profile (HxW)")
	createCmd.Flags().String("max", "1024x1024", "Maximum input size of the profile (HxW)")
	createCmd.Flags().Int("bits", 32, "Sample bits of the bindings (16 or 32)")
	createCmd.Flags().String("filter", "nearest", "Upscaling filter (nearest, bilinear)")
	createCmd.Flags().String("kernel-kind", "f32", "Storage type of the kernel tensor (f32, f16, bf16)")
	createCmd.Flags().Int("fail-after", 0, "Fail inference after this many calls (testing)")

	return createCmd
}

// CreateHandler - Schreibt die Plan-Datei nach args[0]
func CreateHandler(cmd *cobra.Command, args []string) error {
	c, err := createConfig(cmd.Flags(), args[0])
	if err != nil {
		return err
	}

	if err := ref.WritePlan(args[0], c); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d -> %d channels, scale %dx%d, %d-bit)\n", args[0], c.ChannelsIn, c.ChannelsOut, c.ScaleW, c.ScaleH, c.SampleBits)
	return nil
}

// createConfig liest die Flags in eine ref.Config
func createConfig(flags *pflag.FlagSet, path string) (ref.Config, error) {
	var c ref.Config
	var errs []error

	getInt := func(name string) int {
		v, err := flags.GetInt(name)
		errs = append(errs, err)
		return v
	}
	getString := func(name string) string {
		v, err := flags.GetString(name)
		errs = append(errs, err)
		return v
	}

	c.Name = getString("name")
	scale := getInt("scale")
	c.ScaleW, c.ScaleH = getInt("scale-w"), getInt("scale-h")
	c.ChannelsIn = getInt("channels")
	c.ChannelsOut = getInt("channels-out")
	c.SampleBits = getInt("bits")
	c.FailAfter = getInt("fail-after")
	minSize, optSize, maxSize := getString("min"), getString("opt"), getString("max")
	filter, kind := getString("filter"), getString("kernel-kind")

	if err := errors.Join(errs...); err != nil {
		return c, err
	}

	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if c.ScaleW == 0 {
		c.ScaleW = scale
	}
	if c.ScaleH == 0 {
		c.ScaleH = scale
	}
	if c.ChannelsOut == 0 {
		c.ChannelsOut = c.ChannelsIn
	}

	if c.ScaleW <= 0 || c.ScaleH <= 0 {
		return c, fmt.Errorf("scale must be positive, got %dx%d", c.ScaleW, c.ScaleH)
	}
	if c.ChannelsIn <= 0 || c.ChannelsOut <= 0 {
		return c, fmt.Errorf("channels must be positive, got %d -> %d", c.ChannelsIn, c.ChannelsOut)
	}
	if c.SampleBits != 16 && c.SampleBits != 32 {
		return c, fmt.Errorf("bits must be 16 or 32, got %d", c.SampleBits)
	}

	var err error
	if c.Filter, err = ref.ParseFilter(filter); err != nil {
		return c, err
	}
	if c.KernelKind, err = parseKernelKind(kind); err != nil {
		return c, err
	}

	var profile ml.Profile
	for _, s := range []struct {
		dims *ml.Dims
		name string
		v    string
	}{
		{&profile.Min, "min", minSize},
		{&profile.Opt, "opt", optSize},
		{&profile.Max, "max", maxSize},
	} {
		if *s.dims, err = parseHW(s.v); err != nil {
			return c, fmt.Errorf("--%s: %w", s.name, err)
		}
		s.dims.N, s.dims.C = 1, c.ChannelsIn
	}

	if !profile.Supports(ml.Size{Width: profile.Opt.W, Height: profile.Opt.H}) {
		return c, fmt.Errorf("--opt %s is outside [%s, %s]", optSize, minSize, maxSize)
	}
	c.Profiles = []ml.Profile{profile}

	return c, nil
}

// parseHW liest "HxW" (oder eine einzelne Zahl fuer quadratische Groessen)
func parseHW(s string) (ml.Dims, error) {
	h, w, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		w = h
	}

	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return ml.Dims{}, fmt.Errorf("invalid size %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return ml.Dims{}, fmt.Errorf("invalid size %q", s)
	}

	return ml.Dims{H: height, W: width}, nil
}

func parseKernelKind(s string) (plan.TensorKind, error) {
	switch strings.ToLower(s) {
	case "", "f32":
		return plan.KindF32, nil
	case "f16":
		return plan.KindF16, nil
	case "bf16":
		return plan.KindBF16, nil
	default:
		return 0, fmt.Errorf("unknown kernel kind %q", s)
	}
}
