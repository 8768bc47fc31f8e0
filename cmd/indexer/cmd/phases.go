package cmd

import (
	"github.com/spf13/cobra"
)

func newChunkCmd(a *app) *cobra.Command {
	var flags phaseFlags
	cmd := &cobra.Command{
		Use:   "chunk [corpus]",
		Short: "Run only the chunk indexing phase",
		Long: `Partitions the corpus and writes one intermediate artifact per chunk.
Run 'invindex merge' afterwards to produce the final index.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, a)
			engine, err := a.engine()
			if err != nil {
				return err
			}
			src, err := a.openCorpus(args)
			if err != nil {
				return err
			}
			defer src.Close()

			summary, err := engine.IndexChunks(cmd.Context(), src)
			printSummary(cmd, summary)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	var flags phaseFlags
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge existing intermediate artifacts into the final index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.apply(cmd, a)
			engine, err := a.engine()
			if err != nil {
				return err
			}
			summary, err := engine.MergeArtifacts(cmd.Context())
			printSummary(cmd, summary)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
