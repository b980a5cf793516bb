package kv

import (
	"os"

	"github.com/ValentinKolb/vold/cmd/util"
	"github.com/ValentinKolb/vold/rpc/client"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	storeClient  *client.StoreClient
	clientConfig *common.ClientConfig

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Read and write versioned values of a store",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add cluster connection flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	KeyValueCommands.PersistentFlags().Bool("print-metrics", false, util.WrapString("Print the session metrics in Prometheus format after the command"))

	// Add subcommands
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(getAllCmd)
	KeyValueCommands.AddCommand(versionsCmd)
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(addCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient bootstraps the store client
func setupKVClient(cmd *cobra.Command, _ []string) (err error) {
	storeClient, clientConfig, err = util.NewStoreClient(cmd)
	return err
}

// closeKVClient prints the metrics if requested and closes the client
func closeKVClient(_ *cobra.Command, _ []string) error {
	if storeClient == nil {
		return nil
	}
	if viper.GetBool("print-metrics") {
		storeClient.WriteMetrics(os.Stdout)
	}
	return storeClient.Close()
}
