package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	deleteUserCmd := &cobra.Command{
		Use:   "delete-user <username>",
		Short: "Remove a user from every subsystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Removing home trees and principals needs root.
			if os.Geteuid() != 0 {
				return fmt.Errorf("delete-user must be run as root")
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.engine.DeleteUser(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete user %s: %w", args[0], err)
			}
			fmt.Printf("User %s deleted\n", args[0])
			return nil
		},
	}
	rootCmd.AddCommand(deleteUserCmd)
}
