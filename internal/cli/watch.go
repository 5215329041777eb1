package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/baaaaaaaka/carbon/internal/tui"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of in-progress projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
				return errors.New("watch requires an interactive terminal")
			}
			t, st, err := root.openTracker()
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), tui.Options{
				Load:       t.Load,
				Pause:      t.Pause,
				Resume:     t.Resume,
				Stop:       t.Stop,
				Now:        t.Now,
				TimeLayout: root.settings.TimeFormat,
				Location:   t.Location(),
				WatchPath:  st.Path(),
				Version:    version,
			})
		},
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
