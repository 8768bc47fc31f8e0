// Package events defines the messages emitted when a build finishes.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer"
)

// BuildCompleted announces a final index that is durable on disk.
type BuildCompleted struct {
	RunID            string    `json:"run_id"`
	FinalPath        string    `json:"final_path"`
	Chunks           int       `json:"chunks"`
	Documents        int       `json:"documents"`
	Terms            int       `json:"terms"`
	SkippedArtifacts []string  `json:"skipped_artifacts,omitempty"`
	DurationMS       int64     `json:"duration_ms"`
	CompletedAt      time.Time `json:"completed_at"`
}

// FromSummary builds the event for a finished build.
func FromSummary(s indexer.Summary) BuildCompleted {
	return BuildCompleted{
		RunID:            s.RunID,
		FinalPath:        s.FinalPath,
		Chunks:           s.Chunks,
		Documents:        s.Documents,
		Terms:            s.Terms,
		SkippedArtifacts: s.SkippedArtifacts,
		DurationMS:       s.Duration.Milliseconds(),
		CompletedAt:      s.CompletedAt,
	}
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// Notifier publishes a BuildCompleted event keyed by run ID.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// NotifyBuildCompleted implements indexer.Notifier.
func (n *Notifier) NotifyBuildCompleted(ctx context.Context, s indexer.Summary) error {
	if err := n.pub.Publish(ctx, s.RunID, FromSummary(s)); err != nil {
		return fmt.Errorf("announcing build %s: %w", s.RunID, err)
	}
	return nil
}
