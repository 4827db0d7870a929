// cmd_show.go - Show Command und Engine-Info Anzeige
// Hauptfunktionen: ShowHandler, showInfo
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/fs/plan"
	"github.com/vsmlrt/vstrt/ml"
)

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show ENGINE",
		Short: "Show profiles and bindings of an engine",
		Args:  cobra.ExactArgs(1),
		RunE:  ShowHandler,
	}

	showCmd.Flags().String("backend", "", "Inference backend (default VSTRT_BACKEND)")
	showCmd.Flags().Bool("verbose", false, "Show all metadata")

	return showCmd
}

// ShowHandler - Laedt die Engine und gibt Profile, Bindings und Geraete aus
func ShowHandler(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("backend")
	if name == "" {
		name = envconfig.Backend()
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	b, err := ml.GetBackend(name)
	if err != nil {
		return err
	}

	devices, err := b.Devices()
	if err != nil {
		return err
	}

	rt, err := b.NewRuntime(slog.Default())
	if err != nil {
		return err
	}
	defer rt.Close()

	engine, err := rt.Load(args[0])
	if err != nil {
		return err
	}
	defer engine.Close()

	// Metadaten nur fuer Plan-Dateien
	meta, err := plan.Open(args[0])
	if err != nil {
		slog.Debug("no plan metadata", "engine", args[0], "error", err)
		meta = nil
	} else {
		defer meta.Close()
	}

	return showInfo(os.Stdout, engine, meta, devices, verbose)
}

// showInfo - Gibt detaillierte Engine-Informationen aus
func showInfo(w io.Writer, engine ml.Engine, meta *plan.File, devices []ml.DeviceInfo, verbose bool) error {
	p := message.NewPrinter(language.English)

	tableRender := func(header string, columns []string, rows func() [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		if columns != nil {
			table.SetHeader(columns)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetAutoFormatHeaders(false)
		}
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(rows())
		table.Render()
		fmt.Fprintln(w)
	}

	tableRender("Engine", nil, func() (rows [][]string) {
		rows = append(rows, []string{"", "name", engine.Name()})
		if meta != nil {
			rows = append(rows, []string{"", "architecture", meta.KeyValue("general.architecture").String()})
			rows = append(rows, []string{"", "plan version", strconv.Itoa(int(meta.Version))})
		}
		return
	})

	tableRender("Profiles", []string{"", "INDEX", "MIN", "OPT", "MAX"}, func() (rows [][]string) {
		for i, profile := range engine.Profiles() {
			rows = append(rows, []string{"", strconv.Itoa(i), hw(profile.Min), hw(profile.Opt), hw(profile.Max)})
		}
		return
	})

	tableRender("Bindings", []string{"", "BINDING", "DIMS"}, func() (rows [][]string) {
		rows = append(rows, []string{"", "input", engine.BindingDims(ml.BindingInput).String()})
		rows = append(rows, []string{"", "output", engine.BindingDims(ml.BindingOutput).String()})
		return
	})

	if meta != nil {
		tableRender("Tensors", []string{"", "NAME", "KIND", "SHAPE", "BYTES"}, func() (rows [][]string) {
			for _, t := range meta.TensorInfos() {
				rows = append(rows, []string{"", t.Name, t.Kind.String(), fmt.Sprint(t.Shape), p.Sprintf("%d", t.NumBytes())})
			}
			return
		})

		if verbose {
			tableRender("Metadata", nil, func() (rows [][]string) {
				for _, kv := range meta.KeyValues() {
					rows = append(rows, []string{"", kv.Key, fmt.Sprint(kv.Any())})
				}
				return
			})
		}
	}

	tableRender("Devices", []string{"", "ID", "NAME", "DESCRIPTION"}, func() (rows [][]string) {
		for _, d := range devices {
			rows = append(rows, []string{"", strconv.Itoa(d.ID), d.Name, d.Description})
		}
		return
	})

	return nil
}

// hw formatiert die raeumlichen Dimensionen eines Profils als HxW
func hw(d ml.Dims) string {
	return strings.Join([]string{strconv.Itoa(d.H), strconv.Itoa(d.W)}, "x")
}
