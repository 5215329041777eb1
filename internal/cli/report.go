package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/carbon/internal/tracker"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status of the current projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, _, err := root.openTracker()
			if err != nil {
				return err
			}
			return t.Status(cmd.OutOrStdout(), root.reportOptions())
		},
	}
}

func newListCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "all",
			Short: "List all completed projects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				t, _, err := root.openTracker()
				if err != nil {
					return err
				}
				return t.ListAll(cmd.OutOrStdout())
			},
		},
		newListDayCmd(root, "today", "List projects completed today", tracker.Today),
		newListDayCmd(root, "yesterday", "List projects completed yesterday", tracker.Yesterday),
	)
	return cmd
}

func newListDayCmd(root *rootOptions, use, short string, day tracker.Day) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, _, err := root.openTracker()
			if err != nil {
				return err
			}
			return t.ListDay(cmd.OutOrStdout(), day)
		},
	}
}
