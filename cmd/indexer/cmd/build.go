package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type phaseFlags struct {
	chunkSize   int
	parallelism int
	readers     int
	onMalformed string
	finalPath   string
	workDir     string
}

func (f *phaseFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 0, "documents per chunk (overrides indexer.chunkSize)")
	cmd.Flags().IntVarP(&f.parallelism, "parallelism", "p", 0, "concurrent chunk workers, 0 for one per CPU")
	cmd.Flags().IntVar(&f.readers, "readers", 0, "concurrent merge readers, 0 for one per CPU")
	cmd.Flags().StringVar(&f.onMalformed, "on-malformed", "", "malformed artifact policy: abort or skip")
	cmd.Flags().StringVarP(&f.finalPath, "output", "o", "", "final index path (overrides indexer.finalPath)")
	cmd.Flags().StringVar(&f.workDir, "intermediate-dir", "", "intermediate artifact directory")
}

func (f *phaseFlags) apply(cmd *cobra.Command, a *app) {
	if cmd.Flags().Changed("chunk-size") {
		a.cfg.Indexer.ChunkSize = f.chunkSize
	}
	if cmd.Flags().Changed("parallelism") {
		a.cfg.Indexer.Parallelism = f.parallelism
	}
	if cmd.Flags().Changed("readers") {
		a.cfg.Merge.Readers = f.readers
	}
	if f.onMalformed != "" {
		a.cfg.Merge.OnMalformed = f.onMalformed
	}
	if f.finalPath != "" {
		a.cfg.Indexer.FinalPath = f.finalPath
	}
	if f.workDir != "" {
		a.cfg.Indexer.IntermediateDir = f.workDir
	}
}

func newBuildCmd(a *app) *cobra.Command {
	var (
		flags phaseFlags
		sink  string
	)
	cmd := &cobra.Command{
		Use:   "build [corpus]",
		Short: "Index a corpus and merge the chunks into the final index",
		Long: `Runs both phases. The merge starts only after every chunk has been
indexed successfully; if any chunk fails the failing chunk IDs are reported
and no final index is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, a)
			if sink != "" {
				a.cfg.Publish.Sink = sink
			}
			engine, err := a.engine()
			if err != nil {
				return err
			}
			src, err := a.openCorpus(args)
			if err != nil {
				return err
			}
			defer src.Close()

			summary, err := engine.Build(cmd.Context(), src)
			printSummary(cmd, summary)
			if err != nil {
				return err
			}
			if a.cfg.Publish.Sink == "" {
				return nil
			}
			n, err := a.publish(cmd.Context(), summary.FinalPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published:  %d entries to %s\n", n, a.cfg.Publish.Sink)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&sink, "publish", "", "publish the final index to a sink after the build (postgres, redis)")
	return cmd
}
