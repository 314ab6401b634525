package main

import (
	"github.com/spf13/cobra"

	"lsa/internal/report"
)

func analyzeCmd(flags *rootFlags) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Cluster a corpus and print the LSA report",
		Long: `Load every file, glob or directory given, build the TF-IDF matrix,
cluster it with k-means and compute a truncated SVD. Directories are read as
labelled corpora: the first folder below the root names each document's
category, which enables the clustering metrics.`,
		Args: cobra.MinimumNArgs(1),
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
			return report.Render(cmd.OutOrStdout(), a.Report)
		},
	}
	o.register(cmd)
	return cmd
}
