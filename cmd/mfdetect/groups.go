package main

import (
	"github.com/spf13/cobra"
)

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List the groups of templates that can be correlated together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("templates")

			tribe, err := readTribe(path)
			if err != nil {
				return err
			}

			printGroups(cmd.OutOrStdout(), tribe)

			return nil
		},
	}

	cmd.Flags().String("templates", "", "Template tribe JSON file (required)")
	_ = cmd.MarkFlagRequired("templates")

	return cmd
}
