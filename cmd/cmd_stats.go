// cmd_stats.go - Stats Command: Auslastung eines laufenden Servers
// Hauptfunktionen: newStatsCmd, StatsHandler
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vsmlrt/vstrt/api"
)

// newStatsCmd - Erstellt den stats Command
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		Aliases: []string{"ps"},
		Short:   "Show the filter statistics of a running server",
		Args:    cobra.ExactArgs(0),
		RunE:    StatsHandler,
	}
}

// StatsHandler - Fragt Info und Stats vom Server ab
func StatsHandler(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	info, err := client.Info(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := client.Stats(cmd.Context())
	if err != nil {
		return err
	}

	renderStats(os.Stdout, info, stats)
	return nil
}

func renderStats(w io.Writer, info *api.InfoResponse, stats *api.StatsResponse) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ENGINE", "OUTPUT", "STREAMS", "FREE", "WAITING", "IN FLIGHT", "PEAK", "FRAMES", "ERRORS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.Append([]string{
		info.Options.Engine,
		fmt.Sprintf("%s %dx%d", info.Format, info.Width, info.Height),
		strconv.Itoa(stats.NumStreams),
		strconv.Itoa(stats.FreeSlots),
		strconv.Itoa(stats.Waiting),
		strconv.FormatInt(stats.InFlight, 10),
		strconv.FormatInt(stats.PeakInFlight, 10),
		strconv.FormatInt(stats.Frames, 10),
		strconv.FormatInt(stats.Errors, 10),
	})
	table.Render()
}
