// cmd_serve.go - Serve Command
// Hauptfunktionen: newServeCmd, RunServer
package cmd

import (
	"errors"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/server"
)

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Serve the output frames of an engine over HTTP",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}

	serveCmd.Flags().String("engine", "", "Path of the engine to load")
	addFilterFlags(serveCmd.Flags())

	return serveCmd
}

// RunServer - Erstellt den Filter und startet den Server
func RunServer(cmd *cobra.Command, _ []string) error {
	engine, err := cmd.Flags().GetString("engine")
	if err != nil {
		return err
	}
	if engine == "" {
		return errors.New("--engine is required")
	}

	f, err := createFilter(cmd.Context(), cmd, engine)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		f.Free()
		return err
	}

	err = server.Serve(ln, f)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
