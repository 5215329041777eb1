package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/carbon/internal/settings"
	"github.com/baaaaaaaka/carbon/internal/store"
	"github.com/baaaaaaaka/carbon/internal/tracker"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type rootOptions struct {
	dataPath string
	strict   bool
	verbose  bool

	// resolved in PersistentPreRunE
	settings settings.Settings
	logger   *slog.Logger
}

func Execute() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "carbon",
		Short:         "A time tracking CLI",
		SilenceErrors: false,
		SilenceUsage:  true,
		Version:       buildVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dataPath, "data", "", "Override projects file path (default: $XDG_CONFIG_HOME/carbon/projects.json)")
	cmd.PersistentFlags().BoolVar(&opts.strict, "strict", false, "Fail instead of starting empty when the projects file is corrupt")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newStartCmd(opts),
		newPauseCmd(opts),
		newResumeCmd(opts),
		newStopCmd(opts),
		newStatusCmd(opts),
		newListCmd(opts),
		newWatchCmd(opts),
		newPathCmd(opts),
	)

	return cmd
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}

// setup resolves the data path, reads settings and installs the logger.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if o.dataPath == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return err
		}
		o.dataPath = p
	}

	s, err := settings.Load(settings.PathFor(o.dataPath))
	if err != nil {
		return err
	}
	o.settings = s

	level, _ := s.Level()
	if o.verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)

	if !cmd.Flags().Changed("strict") && s.StrictLoad {
		o.strict = true
	}
	return nil
}

func (o *rootOptions) openStore() (*store.Store, error) {
	return store.New(o.dataPath, store.Options{Strict: o.strict, Logger: o.logger})
}

func (o *rootOptions) openTracker() (*tracker.Tracker, *store.Store, error) {
	st, err := o.openStore()
	if err != nil {
		return nil, nil, err
	}
	return tracker.New(st), st, nil
}

func (o *rootOptions) reportOptions() tracker.ReportOptions {
	return tracker.ReportOptions{TimeLayout: o.settings.TimeFormat}
}

func newPathCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the projects file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), root.dataPath)
			return err
		},
	}
}
