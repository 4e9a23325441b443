package main

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "debbie",
		Short: "Build Debian packages from a declarative definition",
		Long: `debbie stages a package tree under a workspace directory, copies sources into it,
writes the DEBIAN control files and runs dpkg-deb to produce the .deb.

Examples:
  # Build the package described by pkg.yaml
  debbie build -f pkg.yaml

  # Override a template variable and build without dpkg-deb
  debbie build -f pkg.yaml --define version=1.2.3 --native

  # Show the metadata and file listing of a package
  debbie inspect /var/tmp/debbie/foo/1.0/20240101-000000/foo_1.0_all.deb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v.GetBool("no-color") {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	// Priority: default < env (DEBBIE_*) < flag
	v.SetEnvPrefix("DEBBIE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("log-json", cmd.PersistentFlags().Lookup("log-json"))
	v.BindPFlag("no-color", cmd.PersistentFlags().Lookup("no-color"))

	cmd.AddCommand(
		newBuildCmd(v),
		newInspectCmd(),
		newKeysCmd(),
	)
	return cmd
}

// newLogger creates the hclog logger of the CLI from the viper settings.
func newLogger(v *viper.Viper, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "debbie",
		Level:      hclog.LevelFromString(v.GetString("log-level")),
		JSONFormat: v.GetBool("log-json"),
		Output:     output,
	})
}
