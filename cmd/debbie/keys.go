package main

import (
	"fmt"

	"github.com/etnz/debbie/stage"
	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the configuration keys that must be non-empty",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range stage.RequiredKeys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}
