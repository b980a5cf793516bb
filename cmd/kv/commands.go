package kv

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads all versions of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			versions, err := storeClient.Get(key)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}
			for _, v := range versions {
				fmt.Printf("key=%s, value=%v, %s\n", key, formatValue(v.Value), v.Clock)
			}
			return nil
		},
	}
	getAllCmd = &cobra.Command{
		Use:   "getall [key...]",
		Short: "Reads several keys with a single request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]any, len(args))
			for i, key := range args {
				keys[i] = key
			}
			result, err := storeClient.GetAll(keys...)
			if err != nil {
				return err
			}
			for _, key := range args {
				versions, ok := result[key]
				if !ok {
					fmt.Printf("key=%s, found=false\n", key)
					continue
				}
				for _, v := range versions {
					fmt.Printf("key=%s, value=%v, %s\n", key, formatValue(v.Value), v.Clock)
				}
			}
			return nil
		},
	}
	versionsCmd = &cobra.Command{
		Use:   "versions [key]",
		Short: "Reads the vector clocks of all versions of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			clocks, err := storeClient.GetVersions(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, versions=%d\n", key, len(clocks))
			for _, c := range clocks {
				fmt.Printf("  %s\n", c)
			}
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Writes a new version of a key",
		Long:  "Writes a new version of a key. Without --json the value is passed to the value serializer as a string.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(cmd, args[1])
			if err != nil {
				return err
			}

			written, err := storeClient.Put(args[0], value, nil)
			if err != nil {
				return err
			}
			fmt.Printf("put successfully, %s\n", written)
			return nil
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [key] [value]",
		Short: "Writes a key only if it has no value yet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(cmd, args[1])
			if err != nil {
				return err
			}

			written, err := storeClient.Add(args[0], value)
			if err != nil {
				return err
			}
			fmt.Printf("added successfully, %s\n", written)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes all current versions of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			deleted, err := storeClient.Delete(key, nil)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, deleted=%t\n", key, deleted)
			return nil
		},
	}
)

func init() {
	putCmd.Flags().Bool("json", false, "Parse the value as JSON")
	addCmd.Flags().Bool("json", false, "Parse the value as JSON")
}

// parseValue returns raw as string, or decoded if --json is set
func parseValue(cmd *cobra.Command, raw string) (any, error) {
	var value any = raw
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("value is not valid json: %w", err)
		}
	}
	return value, nil
}

// formatValue renders byte values as strings
func formatValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
