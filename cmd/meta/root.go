package meta

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/vold/cmd/util"
	"github.com/ValentinKolb/vold/lib/cluster"
	"github.com/ValentinKolb/vold/rpc/bootstrap"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/spf13/cobra"
)

var (
	topology *cluster.Topology

	// MetaCommands represents the metadata command group
	MetaCommands = &cobra.Command{
		Use:               "meta",
		Short:             "Inspect the cluster metadata",
		PersistentPreRunE: setupMeta,
	}

	clusterCmd = &cobra.Command{
		Use:   "cluster",
		Short: "Prints the nodes of the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%-6s %-28s %-10s %s\n", "ID", "SOCKET", "HTTP", "PARTITIONS")
			for _, n := range topology.Nodes {
				partitions := make([]string, 0, len(n.Partitions))
				for _, p := range n.Partitions {
					partitions = append(partitions, fmt.Sprint(p))
				}
				fmt.Printf("%-6d %-28s %-10d %s\n", n.ID, n.SocketAddress(), n.HTTPPort, strings.Join(partitions, ","))
			}
			return nil
		},
	}

	storeCmd = &cobra.Command{
		Use:   "store",
		Short: "Prints the topology and the definition of the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(topology.String())
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupClientFlags(MetaCommands)

	MetaCommands.AddCommand(clusterCmd)
	MetaCommands.AddCommand(storeCmd)
}

// setupMeta bootstraps the topology of the configured store
func setupMeta(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()
	if err := config.Validate(); err != nil {
		return err
	}
	if err := common.InitLoggers(*config); err != nil {
		return err
	}

	s, err := util.GetSerializer(*config)
	if err != nil {
		return err
	}

	topology, err = bootstrap.New(util.GetTransport(), s, *config).Bootstrap(config.Transport.BootstrapURLs, config.StoreName)
	return err
}
