package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m-217/useradmin/useradmin/engine"
)

func init() {
	addUserSteps := &stepFlags{}
	addUserCmd := &cobra.Command{
		Use:   "add-user <uid> <groups> <username> <surname> <firstname> <password>",
		Short: "Add a single user",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := addUserSteps.resolve()
			if err != nil {
				return err
			}

			uid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("uid %q is not an integer", args[0])
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Printf("Running steps: %s\n", joinSteps(steps))

			result := app.engine.Provision(cmd.Context(), engine.Spec{
				UID:       uid,
				Groups:    splitGroups(args[1]),
				Username:  args[2],
				Surname:   args[3],
				Firstname: args[4],
				Password:  args[5],
				Steps:     steps,
			})

			for _, step := range engine.AllSteps() {
				fmt.Printf("  %-8s %s\n", step, result[step])
			}
			if !result.Overall() {
				return fmt.Errorf("failed to add user %s: %w", args[2], result.Err())
			}
			fmt.Printf("User %s added\n", args[2])
			return nil
		},
	}
	addUserSteps.register(addUserCmd)
	rootCmd.AddCommand(addUserCmd)

	addFileSteps := &stepFlags{}
	addFileCmd := &cobra.Command{
		Use:   "add-file <filename>",
		Short: "Add users from a manifest file",
		Long: `Add users from a manifest file with one user per line:

  uid groups username surname firstname password

Fields are whitespace separated; groups is a comma-separated list.
Blank lines and lines starting with # are ignored. Malformed lines are
skipped with a warning and processing continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := addFileSteps.resolve()
			if err != nil {
				return err
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Printf("Running steps: %s\n", joinSteps(steps))

			results := app.engine.ProcessFile(cmd.Context(), args[0], steps)

			fmt.Printf("\nResults for %s:\n", args[0])
			failed := 0
			for username, ok := range results {
				status := "OK"
				if !ok {
					status = "FAILED"
					failed++
				}
				fmt.Printf("  %s: %s\n", username, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d users failed", failed, len(results))
			}
			return nil
		},
	}
	addFileSteps.register(addFileCmd)
	rootCmd.AddCommand(addFileCmd)
}

func splitGroups(groups string) []string {
	parts := []string{}
	for _, g := range strings.Split(groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			parts = append(parts, g)
		}
	}
	return parts
}

func joinSteps(steps []engine.Step) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
