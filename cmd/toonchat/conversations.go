package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Manage stored conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, _, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		conversations, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(conversations) == 0 {
			fmt.Println("no conversations yet")
			return nil
		}
		for _, c := range conversations {
			fmt.Printf("%s  %s  (%d messages, updated %s)\n",
				c.ID, c.Title, len(c.Messages), c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid conversation id: %w", err)
		}

		_, store, _, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Println("deleted", id)
		return nil
	},
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}
