package main

import (
	"fmt"
	"strings"

	"github.com/etnz/debbie/deb"
	"github.com/etnz/debbie/manifest"
	"github.com/etnz/debbie/stage"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type buildOptions struct {
	file          string
	defines       []string
	buildID       string
	randomBuildID bool
	native        bool
	compression   string
}

func newBuildCmd(v *viper.Viper) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Stage and build a package from a definition file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, v, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "debbie.yaml", "package definition file (.yaml, .json or .toml)")
	cmd.Flags().StringArrayVar(&opts.defines, "define", nil, "define a template variable (KEY=VALUE), repeatable")
	cmd.Flags().String("workspace", "", "workspace base directory (default "+stage.DefaultWorkspaceBasedir+")")
	cmd.Flags().StringVar(&opts.buildID, "build-id", "", "build identifier (default: current UTC time)")
	cmd.Flags().BoolVar(&opts.randomBuildID, "random-build-id", false, "use a random UUID as build identifier")
	cmd.Flags().BoolVar(&opts.native, "native", false, "compute md5sums and write the archive without md5sum or dpkg-deb")
	cmd.Flags().StringVar(&opts.compression, "compression", "gzip", "archive compression with --native (gzip, xz, none)")
	cmd.MarkFlagsMutuallyExclusive("build-id", "random-build-id")

	v.BindPFlag("workspace", cmd.Flags().Lookup("workspace"))
	return cmd
}

func runBuild(cmd *cobra.Command, v *viper.Viper, opts buildOptions) error {
	logger := newLogger(v, cmd.ErrOrStderr())

	defines, err := parseDefines(opts.defines)
	if err != nil {
		return err
	}

	def, err := manifest.Load(opts.file, defines)
	if err != nil {
		return err
	}

	overrides := stage.Values{}
	if ws := v.GetString("workspace"); ws != "" {
		overrides[stage.KeyWorkspaceBasedir] = ws
	}
	switch {
	case opts.randomBuildID:
		overrides[stage.KeyBuildID] = uuid.New()
	case opts.buildID != "":
		overrides[stage.KeyBuildID] = opts.buildID
	}

	stageOpts := []stage.Option{
		stage.WithLogger(logger),
		stage.WithListener(func(e fmt.Stringer) {
			logger.Info("event", "event", e.String())
		}),
	}
	if opts.native {
		c, err := deb.ParseCompression(opts.compression)
		if err != nil {
			return err
		}
		stageOpts = append(stageOpts,
			stage.WithChecksummer(stage.NativeChecksummer{}),
			stage.WithPackager(stage.NativePackager{Compression: c}),
		)
	}

	b, err := def.Builder(overrides, stageOpts...)
	if err != nil {
		return err
	}

	logger.Info("building", "package", b.Config().FullName, "dir", b.Config().BuildDir)
	path, err := b.Build(cmd.Context())
	if err != nil {
		return explain(logger, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("✓"), path)
	return nil
}

// explain logs the captured output of a failed command so it is visible without re-running.
func explain(logger hclog.Logger, err error) error {
	if cmdErr, ok := asCommandError(err); ok && len(cmdErr.Output) > 0 {
		logger.Error("command output", "cmd", strings.Join(cmdErr.Command, " "), "output", string(cmdErr.Output))
	}
	return err
}

func parseDefines(defines []string) (map[string]string, error) {
	m := make(map[string]string, len(defines))
	for _, d := range defines {
		parts := strings.SplitN(d, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid define %q, expected KEY=VALUE", d)
		}
		m[parts[0]] = parts[1]
	}
	return m, nil
}
