package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/etnz/debbie/deb"
	"github.com/etnz/debbie/stage"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.deb",
		Short: "Print the control file, control members and payload listing of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := deb.Inspect(f)
			if err != nil {
				return fmt.Errorf("inspecting %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, bold("Control:"))
			fmt.Fprint(out, info.Control)

			names := make([]string, 0, len(info.ControlFiles))
			for name := range info.ControlFiles {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintln(out, bold("Control files:"))
			for _, name := range names {
				fmt.Fprintf(out, "  %04o %s\n", info.ControlModes[name]&0o7777, name)
			}

			fmt.Fprintln(out, bold("Contents:"))
			for _, c := range info.Contents {
				fmt.Fprintf(out, "  %s\n", c)
			}
			return nil
		},
	}
}

func asCommandError(err error) (*stage.CommandError, bool) {
	var cmdErr *stage.CommandError
	ok := errors.As(err, &cmdErr)
	return cmdErr, ok
}
