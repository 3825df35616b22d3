package cmd

import (
	"fmt"
	"os"

	"github.com/somners/Spout/cmd/sim"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "spoutcore",
		Short: "tick engine core tooling",
		Long: fmt.Sprintf(`spoutcore (v%s)

Tooling around the tick engine core: the snapshot lock arbitrating
shared readers against the committing scheduler, and the scheduled
block update records drained during the exclusive phase.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of spoutcore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("spoutcore v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(sim.SimCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
