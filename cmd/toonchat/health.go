package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the answering service's health",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, client, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		status := client.CheckHealth(cmd.Context())
		fmt.Printf("status:      %s\n", status.Status)
		fmt.Printf("database:    %s\n", status.Database)
		fmt.Printf("collections: %d\n", status.Collections)
		if status.Message != "" {
			fmt.Printf("message:     %s\n", status.Message)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, client, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := client.Stats(cmd.Context())
		if err != nil {
			return err
		}
		for name, count := range stats.Collections {
			fmt.Printf("%s: %d\n", name, count)
		}
		fmt.Printf("total chunks: %d\n", stats.TotalChunks)
		return nil
	},
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List the searchable collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, client, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		collections, err := client.ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		if len(collections) == 0 {
			fmt.Println("no collections available")
			return nil
		}
		for _, name := range collections {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(collectionsCmd)
}
