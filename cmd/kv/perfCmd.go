package kv

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/vold/cmd/util"
	"github.com/ValentinKolb/vold/rpc/client"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for a cluster",
		Long:    "Runs put, get, versions, delete and mixed workloads against the store with one client per worker and reports the latency distribution of every workload.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfOps        = 1000
	perfSkip       = make([]string, 0)
)

// perfWorkloads are the benchmarks in execution order
var perfWorkloads = []string{"put", "get", "versions", "mixed", "delete"}

// perfPercentiles are reported for every workload
var perfPercentiles = []float64{0.5, 0.9, 0.99}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of workers, each with its own client"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per benchmark"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for vold clusters")

	// the shared client of the command group is worker 0
	clients := []*client.StoreClient{storeClient}
	defer func() {
		for _, c := range clients[1:] {
			c.Close()
		}
	}()
	for len(clients) < perfNumThreads {
		c, _, err := util.NewStoreClient(cmd)
		if err != nil {
			return err
		}
		clients = append(clients, c)
	}

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d, Operations: %d, Keys: %d\n", perfNumThreads, perfOps, perfKeySpread)
	fmt.Println()

	registry := metrics.NewRegistry()

	for _, workload := range perfWorkloads {
		if slices.Contains(perfSkip, workload) {
			fmt.Printf("%-12sskipped\n", workload)
			continue
		}

		timer := metrics.GetOrRegisterTimer(workload, registry)
		errs := metrics.GetOrRegisterCounter(workload+".errors", registry)

		start := time.Now()
		runWorkload(clients, func(c *client.StoreClient, i int) error {
			return perfOperation(c, workload, i)
		}, timer, errs)

		printResult(workload, timer, errs, time.Since(start))
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry, clientConfig); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runWorkload spreads perfOps operations over one goroutine per client
func runWorkload(clients []*client.StoreClient, op func(*client.StoreClient, int) error, timer metrics.Timer, errs metrics.Counter) {
	var wg sync.WaitGroup
	for w, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < perfOps; i += len(clients) {
				start := time.Now()
				err := op(c, i)
				timer.UpdateSince(start)
				if err != nil {
					errs.Inc(1)
				}
			}
		}()
	}
	wg.Wait()
}

// perfOperation runs operation i of a workload
func perfOperation(c *client.StoreClient, workload string, i int) error {
	key := fmt.Sprintf("%s-%d", perfKeyPrefix, i%perfKeySpread)

	switch workload {
	case "put":
		_, err := c.Put(key, "test", nil)
		return err
	case "get":
		_, err := c.Get(key)
		return err
	case "versions":
		_, err := c.GetVersions(key)
		return err
	case "delete":
		_, err := c.Delete(key, nil)
		return err
	case "mixed":
		return perfOperation(c, perfWorkloads[i%3], i)
	default:
		return fmt.Errorf("unknown workload %q", workload)
	}
}

// printResult prints the result of a benchmark in a formatted way
func printResult(workload string, timer metrics.Timer, errs metrics.Counter, elapsed time.Duration) {
	snapshot := timer.Snapshot()
	if snapshot.Count() == 0 {
		fmt.Printf("%-12sno operations\n", workload)
		return
	}

	ps := snapshot.Percentiles(perfPercentiles)
	opsPerSec := float64(snapshot.Count()) / elapsed.Seconds()

	fmt.Printf("%-12smean %s  p50 %s  p90 %s  p99 %s  %.0f ops/sec  %d errors\n",
		workload,
		time.Duration(snapshot.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		opsPerSec,
		errs.Count(),
	)
}

// writeResultsToCSV writes the timers of the registry to a CSV file
func writeResultsToCSV(csvPath string, registry metrics.Registry, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P90Ns", "P99Ns", "MaxNs", "Errors",
		"BootstrapURLs", "Store", "TimeoutSec", "ReconnectInterval", "Protocol",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, workload := range perfWorkloads {
		timer, ok := registry.Get(workload).(metrics.Timer)
		if !ok {
			continue
		}
		var errCount int64
		if errs, ok := registry.Get(workload + ".errors").(metrics.Counter); ok {
			errCount = errs.Count()
		}

		snapshot := timer.Snapshot()
		ps := snapshot.Percentiles(perfPercentiles)

		row := []string{
			workload,
			strconv.FormatInt(snapshot.Count(), 10),
			fmt.Sprintf("%.0f", snapshot.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(snapshot.Max(), 10),
			strconv.FormatInt(errCount, 10),
			strings.Join(config.Transport.BootstrapURLs, ";"),
			config.StoreName,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.ReconnectInterval),
			config.Transport.Protocol,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", workload, err)
		}
	}

	return nil
}
