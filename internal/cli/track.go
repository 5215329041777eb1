package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/carbon/internal/tracker"
)

func newStartCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <title>",
		Short: "Start tracking a new project",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return cmd.Help()
			}
			t, _, err := root.openTracker()
			if err != nil {
				return err
			}
			p, err := t.Start(title)
			if err != nil {
				return err
			}
			slog.Debug("project started", "id", p.ID)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tracker.StartedMessage(p))
			return err
		},
	}
}

func newPauseCmd(root *rootOptions) *cobra.Command {
	return newTransitionCmd(root, "pause <id>", "Pause tracking a project",
		(*tracker.Tracker).Pause, tracker.PausedMessage)
}

func newResumeCmd(root *rootOptions) *cobra.Command {
	return newTransitionCmd(root, "resume <id>", "Resume tracking a project",
		(*tracker.Tracker).Resume, tracker.ResumedMessage)
}

func newStopCmd(root *rootOptions) *cobra.Command {
	return newTransitionCmd(root, "stop <id>", "Stop tracking a project",
		(*tracker.Tracker).Stop, tracker.StoppedMessage)
}

type transition func(*tracker.Tracker, int) (tracker.Project, error)

// newTransitionCmd builds a command that applies one state transition to the
// project named by its single id argument. Rejected transitions are printed
// and the command still succeeds.
func newTransitionCmd(root *rootOptions, use, short string, apply transition, confirm func(int) string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, _, err := root.openTracker()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := apply(t, id); err != nil {
				if tracker.IsRejected(err) {
					slog.Debug("transition rejected", "command", cmd.Name(), "id", id, "reason", err)
					_, err = fmt.Fprintln(out, err.Error())
					return err
				}
				return err
			}
			_, err = fmt.Fprintln(out, confirm(id))
			return err
		},
	}
}

func parseID(arg string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return int(n), nil
}
