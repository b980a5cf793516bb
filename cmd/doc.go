// Package cmd implements the command-line interface of vold. It provides a
// hierarchical command structure for working with a cluster as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for store operations (get, versions, put, delete, perf)
//   - meta: Commands to inspect the cluster metadata (cluster, store)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through the environment with the prefix VOLD_
// (e.g. VOLD_BOOTSTRAP_URLS), or in a .env / .env.local file.
//
// See vold -help for a list of all commands.
package cmd
