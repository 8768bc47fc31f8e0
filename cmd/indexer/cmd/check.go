package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/publish"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/kafka"
)

func newCheckCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check [corpus]",
		Short: "Check that the corpus, directories and configured services are usable",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.cfg.Corpus.Path = args[0]
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			report := a.checker().Run(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				for _, r := range report.Results {
					fmt.Fprintf(out, "%-18s %-4s %8s  %s\n", r.Name, r.Status, r.Latency, r.Message)
				}
			}
			if report.Status != health.StatusUp {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (a *app) checker() *health.Checker {
	c := health.NewChecker(5 * time.Second)
	if a.cfg.Corpus.Path != "" {
		c.Register("corpus", health.FileReadable(a.cfg.Corpus.Path))
	}
	c.Register("intermediate_dir", health.DirWritable(a.cfg.Indexer.IntermediateDir))
	c.Register("final_dir", health.DirWritable(filepath.Dir(a.cfg.Indexer.FinalPath)))
	c.Register("build_lock", health.LockFree(a.cfg.Indexer.IntermediateDir))
	if a.cfg.Kafka.Enabled {
		c.Register("kafka", func(ctx context.Context) error {
			return kafka.Ping(ctx, a.cfg.Kafka)
		})
	}
	if a.cfg.Publish.Sink != "" {
		c.Register("sink_"+a.cfg.Publish.Sink, func(ctx context.Context) error {
			sink, err := publish.OpenSink(ctx, a.cfg)
			if err != nil {
				return err
			}
			return sink.Close()
		})
	}
	return c
}
