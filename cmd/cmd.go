// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs, versionHandler
package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vsmlrt/vstrt/api"
	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/logutil"
	"github.com/vsmlrt/vstrt/version"

	// Referenz-Backend registrieren
	_ "github.com/vsmlrt/vstrt/ml/backend/ref"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "vstrt",
		Short:         "Tiled engine inference over frame streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	runCmd := newRunCmd()
	showCmd := newShowCmd()
	createCmd := newCreateCmd()
	serveCmd := newServeCmd()
	statsCmd := newStatsCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	filterEnvs := []envconfig.EnvVar{
		envVars["VSTRT_DEBUG"],
		envVars["VSTRT_BACKEND"],
		envVars["VSTRT_NUM_STREAMS"],
		envVars["VSTRT_DEVICE"],
		envVars["VSTRT_USE_CUDA_GRAPH"],
		envVars["VSTRT_REF_DEVICES"],
	}

	for _, cmd := range []*cobra.Command{runCmd, showCmd, serveCmd, statsCmd} {
		switch cmd {
		case runCmd:
			appendEnvDocs(cmd, append(filterEnvs, envVars["VSTRT_THREADS"]))
		case showCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["VSTRT_DEBUG"], envVars["VSTRT_BACKEND"], envVars["VSTRT_REF_DEVICES"]})
		case serveCmd:
			appendEnvDocs(cmd, append(filterEnvs, envVars["VSTRT_HOST"], envVars["VSTRT_ORIGINS"]))
		default:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["VSTRT_HOST"]})
		}
	}

	rootCmd.AddCommand(
		runCmd,
		showCmd,
		createCmd,
		serveCmd,
		statsCmd,
	)

	return rootCmd
}

// versionHandler - Zeigt die Version an
func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Printf("vstrt version is %s\n", version.Version)

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}

	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		return
	}

	if serverVersion != version.Version {
		fmt.Printf("Warning: server version is %s\n", serverVersion)
	}
}
