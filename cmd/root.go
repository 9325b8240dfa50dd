package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"apitap/internal/app"
	"apitap/internal/cli"
)

var (
	flagJSON   bool
	flagDebug  bool
	flagSilent bool
)

// rootCmd is the base command for the apitap CLI. It is the entry point
// when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "apitap",
	Short: "Capture, store, and replay a website's API endpoints directly",
	Long: `apitap intercepts a website's own API traffic, distills it into a
per-domain skill file of replayable endpoints, and lets you call those
endpoints again later without a browser in the loop.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main at
// build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the CLI, translating any returned error into a process
// exit code via cli.ExitCodeFor.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "apitap version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCodeFor(err))
	}
}

// bootstrap builds an *app.Application from the global flags, used by
// every subcommand's RunE. Each command gets its own wiring rather than
// a shared package-level Application, so commands stay independently
// testable.
func bootstrap() (*app.Application, error) {
	return app.NewApplication(app.NewConfig(flagDebug, flagSilent, flagJSON), nil)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON instead of tables")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagSilent, "silent", false, "suppress log output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newPeekCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newStatsCmd())
}
