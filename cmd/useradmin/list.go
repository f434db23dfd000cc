package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	var detailed bool

	listUsersCmd := &cobra.Command{
		Use:   "list-users",
		Short: "List directory users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			users, err := app.engine.ListUsers(cmd.Context(), detailed)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No users found")
				return nil
			}

			if detailed {
				fmt.Printf("%-15s %-12s %-25s %-10s %-10s %s\n",
					"Username", "UID", "Name", "Kerberos", "Home", "Quota")
				for _, u := range users {
					fmt.Printf("%-15s %-12s %-25s %-10s %-10s %s\n",
						u.Entry.Username, u.Entry.UIDNumber, u.Entry.CN,
						mark(u.Kerberos), mark(u.HomeDir), u.Quota)
				}
				return nil
			}

			fmt.Printf("%-15s %-12s %-30s %s\n", "Username", "UID", "Name", "Home directory")
			for _, u := range users {
				fmt.Printf("%-15s %-12s %-30s %s\n",
					u.Entry.Username, u.Entry.UIDNumber, u.Entry.CN, u.Entry.HomeDirectory)
			}
			return nil
		},
	}
	listUsersCmd.Flags().BoolVar(&detailed, "detailed", false, "also show Kerberos, home directory, and quota status")
	rootCmd.AddCommand(listUsersCmd)
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
