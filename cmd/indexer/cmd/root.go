// Package cmd provides the invindex CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/events"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	metrics *metrics.Metrics
	cleanup []func(context.Context) error
}

// NewRootCmd creates the root command for the invindex CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "invindex",
		Short: "Build an inverted index from a delimited corpus in parallel",
		Long: `invindex splits a delimited corpus into fixed-size chunks, indexes every
chunk in parallel into an intermediate artifact, then merges all artifacts
into one sorted JSONL index of term -> documents.

Run 'invindex build corpus.tsv' for a full build, or 'invindex chunk' and
'invindex merge' to run the phases separately.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			a.shutdown(cmd.Context())
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newChunkCmd(a))
	cmd.AddCommand(newMergeCmd(a))
	cmd.AddCommand(newPublishCmd(a))
	cmd.AddCommand(newCheckCmd(a))
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		slog.Error("invindex failed", "error", err, "exit_code", apperrors.ExitCode(err))
	}
	return apperrors.ExitCode(err)
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	logger.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	a.metrics = metrics.New(prometheus.NewRegistry())
	if cfg.Metrics.Enabled {
		srv, err := metrics.StartServer(fmt.Sprintf(":%d", cfg.Metrics.Port), a.metrics)
		if err != nil {
			return err
		}
		a.cleanup = append(a.cleanup, srv.Shutdown)
	}
	return nil
}

func (a *app) shutdown(ctx context.Context) {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](context.WithoutCancel(ctx)); err != nil {
			slog.Warn("shutdown step failed", "error", err)
		}
	}
	a.cleanup = nil
}

func (a *app) tokenizer() (*tokenizer.Tokenizer, error) {
	exclusions, err := tokenizer.LoadExclusions(a.cfg.Tokenizer.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}
	slog.Debug("exclusion set loaded", "terms", len(exclusions))
	return tokenizer.New(tokenizer.Options{
		Mode:          a.cfg.Tokenizer.Mode,
		Stem:          a.cfg.Tokenizer.Stem,
		MinTermLength: a.cfg.Tokenizer.MinTermLength,
	}, exclusions), nil
}

func (a *app) engine() (*indexer.Engine, error) {
	tok, err := a.tokenizer()
	if err != nil {
		return nil, err
	}
	opts := []indexer.Option{indexer.WithMetrics(a.metrics)}
	if a.cfg.Kafka.Enabled {
		producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.IndexComplete)
		a.cleanup = append(a.cleanup, func(context.Context) error { return producer.Close() })
		opts = append(opts, indexer.WithNotifier(events.NewNotifier(producer)))
	}
	return indexer.NewEngine(a.cfg, tok, opts...)
}

func (a *app) openCorpus(args []string) (*corpus.Reader, error) {
	if len(args) > 0 {
		a.cfg.Corpus.Path = args[0]
	}
	if a.cfg.Corpus.Path == "" {
		return nil, fmt.Errorf("%w: no corpus path given (argument or corpus.path)", apperrors.ErrInvalidConfig)
	}
	return corpus.Open(a.cfg.Corpus.Path, corpus.Layout{
		Delimiter: a.cfg.Corpus.Delimiter,
		HasHeader: a.cfg.Corpus.HasHeader,
		IDField:   a.cfg.Corpus.IDField,
		TextField: a.cfg.Corpus.TextField,
		MinFields: a.cfg.Corpus.MinFields,
	})
}

func printSummary(cmd *cobra.Command, s indexer.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:        %s\n", s.RunID)
	if s.Chunks > 0 || s.Documents > 0 {
		fmt.Fprintf(out, "chunks:     %d\n", s.Chunks)
		fmt.Fprintf(out, "documents:  %d (skipped rows: %d)\n", s.Documents, s.RowsSkipped)
		fmt.Fprintf(out, "index time: %s\n", s.IndexDuration)
	}
	if s.FinalPath != "" {
		fmt.Fprintf(out, "artifacts:  %d (records: %d, malformed: %d)\n", s.Artifacts, s.Records, s.Malformed)
		fmt.Fprintf(out, "terms:      %d\n", s.Terms)
		fmt.Fprintf(out, "merge time: %s\n", s.MergeDuration)
		fmt.Fprintf(out, "final:      %s\n", s.FinalPath)
	}
	for _, p := range s.SkippedArtifacts {
		fmt.Fprintf(out, "skipped:    %s\n", p)
	}
}
