package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lsa/internal/tui"
)

func browseCmd(flags *rootFlags) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "browse [paths...]",
		Short: "Analyze a corpus and explore it interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, log, err := setup(cmd, flags, o)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := svc.Analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(tui.New(svc, a.Report), tea.WithAltScreen()).Run()
			return err
		},
	}
	o.register(cmd)
	return cmd
}
