package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/vold/cmd/kv"
	"github.com/ValentinKolb/vold/cmd/meta"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "vold",
		Short: "client for partitioned, replicated key-value clusters",
		Long: fmt.Sprintf(`vold (v%s)

A client for Voldemort-style key-value clusters. It bootstraps the
cluster layout from any node, reads and writes versioned values and
fails over between nodes when a connection breaks.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vold",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vold v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(meta.MetaCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
